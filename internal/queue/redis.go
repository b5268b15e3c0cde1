package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonetrace/tonetrace/internal/logging"
)

const redisDataField = "data"

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379)
	Password string
	DB       int
	Stream   string // Stream prefix (default: "tonetrace")
	Group    string // Consumer group name (default: "tonetrace-group")
	Consumer string // Consumer name (default: hostname)
}

// RedisQueue implements Queue using Redis Streams and consumer groups
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	logger        *logging.Logger
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisQueue connects to Redis and verifies the connection
func NewRedisQueue(cfg RedisConfig, logger *logging.Logger) (*RedisQueue, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisQueueWithClient(client, cfg, logger), nil
}

func newRedisQueueWithClient(client *redis.Client, cfg RedisConfig, logger *logging.Logger) *RedisQueue {
	if cfg.Stream == "" {
		cfg.Stream = "tonetrace"
	}
	if cfg.Group == "" {
		cfg.Group = "tonetrace-group"
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}
	return &RedisQueue{
		client:        client,
		config:        cfg,
		logger:        logger,
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// streamName converts a subject to a Redis stream name
func (q *RedisQueue) streamName(subject string) string {
	return q.config.Stream + ":" + subject
}

func (q *RedisQueue) addArgs(msg Message) *redis.XAddArgs {
	values := map[string]any{redisDataField: msg.Data}
	if msg.Key != "" {
		values["key"] = msg.Key
	}
	return &redis.XAddArgs{
		Stream: q.streamName(msg.Subject),
		ID:     "*",
		Values: values,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.client.XAdd(ctx, q.addArgs(msg)).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", q.streamName(msg.Subject), err)
	}
	return nil
}

// PublishBatch publishes every message in one pipeline
func (q *RedisQueue) PublishBatch(ctx context.Context, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	for _, msg := range msgs {
		pipe.XAdd(ctx, q.addArgs(msg))
	}

	cmds, err := pipe.Exec(ctx)
	accepted := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			accepted++
		}
	}
	if err != nil && accepted == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}
	return accepted, nil
}

// Subscribe joins the consumer group of the subject's stream, creating both
// when missing, and reads new entries in the background.
func (q *RedisQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamName(subject)
	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.readStream(subCtx, subject, stream, handler)
	}()
	return nil
}

// readStream reads entries until ctx is done. Entries whose handler fails stay
// in the pending list for redelivery.
func (q *RedisQueue) readStream(ctx context.Context, subject, stream string, handler MessageHandler) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Warn("Failed to read Redis stream", "stream", stream, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, entry := range s.Messages {
				data, ok := entry.Values[redisDataField].(string)
				if !ok {
					q.logger.Warn("Dropping malformed stream entry", "stream", stream, "id", entry.ID)
					q.client.XAck(ctx, stream, q.config.Group, entry.ID)
					continue
				}
				if err := handler(ctx, subject, []byte(data)); err != nil {
					q.logger.Warn("Message handler failed", "stream", stream, "id", entry.ID, "error", err)
					continue
				}
				q.client.XAck(ctx, stream, q.config.Group, entry.ID)
			}
		}
	}
}

func (q *RedisQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops every reader and closes the Redis connection
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}
