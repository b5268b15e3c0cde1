package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/config"
)

const (
	redisDocField = "doc"
	redisRevField = "rev"
)

// RedisStore keeps each profile in a hash with a document and a revision
// field. Conditional saves use WATCH and MULTI.
type RedisStore struct {
	base
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	return newRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

func newRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tonetrace:profile:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(studentID string) string {
	return s.prefix + studentID
}

func (s *RedisStore) Get(ctx context.Context, studentID string) (*Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(studentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get profile: %w", err)
	}
	doc, ok := fields[redisDocField]
	if !ok {
		return nil, ErrNotFound
	}
	revision, err := strconv.ParseInt(fields[redisRevField], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid revision for %s: %w", studentID, err)
	}

	p, err := profile.Unmarshal([]byte(doc))
	if err != nil {
		return nil, err
	}
	return &Snapshot{Profile: p, Revision: revision}, nil
}

func (s *RedisStore) Save(ctx context.Context, studentID string, p *profile.StyleProfile, expectedRevision int64) (int64, error) {
	doc, err := encode(p)
	if err != nil {
		return 0, err
	}
	key := s.key(studentID)

	var next int64
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, redisRevField).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedRevision {
			return ErrRevisionConflict
		}

		next = current + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, redisDocField, doc, redisRevField, next)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrRevisionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, ErrRevisionConflict
	default:
		return 0, fmt.Errorf("redis: failed to save profile: %w", err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, studentID string) error {
	n, err := s.client.Del(ctx, s.key(studentID)).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to delete profile: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
