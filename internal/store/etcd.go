package store

import (
	"context"
	"fmt"
	"path"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/config"
)

// EtcdStore keeps one key per profile and uses the key's ModRevision as the
// profile revision.
type EtcdStore struct {
	base
	client *clientv3.Client
	prefix string
}

// NewEtcdStore creates an etcd-backed profile store
func NewEtcdStore(cfg config.EtcdConfig) (*EtcdStore, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/tonetrace/profiles"
	}
	return &EtcdStore{client: client, prefix: prefix}, nil
}

func (s *EtcdStore) key(studentID string) string {
	return path.Join(s.prefix, studentID)
}

func (s *EtcdStore) Get(ctx context.Context, studentID string) (*Snapshot, error) {
	resp, err := s.client.Get(ctx, s.key(studentID))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}

	kv := resp.Kvs[0]
	p, err := profile.Unmarshal(kv.Value)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Profile: p, Revision: kv.ModRevision}, nil
}

// Save uses a transaction on the key's ModRevision. A ModRevision of 0
// compares equal only for a missing key.
func (s *EtcdStore) Save(ctx context.Context, studentID string, p *profile.StyleProfile, expectedRevision int64) (int64, error) {
	doc, err := encode(p)
	if err != nil {
		return 0, err
	}
	key := s.key(studentID)

	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", expectedRevision)).
		Then(clientv3.OpPut(key, string(doc))).
		Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to store profile in etcd: %w", err)
	}
	if !resp.Succeeded {
		return 0, ErrRevisionConflict
	}
	return resp.Header.Revision, nil
}

func (s *EtcdStore) Delete(ctx context.Context, studentID string) error {
	resp, err := s.client.Delete(ctx, s.key(studentID))
	if err != nil {
		return fmt.Errorf("failed to delete profile from etcd: %w", err)
	}
	if resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping reads the profile prefix with a count-only range. Endpoints that
// cannot serve a read are reported as unreachable.
func (s *EtcdStore) Ping(ctx context.Context) error {
	if _, err := s.client.Get(ctx, s.prefix, clientv3.WithCountOnly()); err != nil {
		return fmt.Errorf("etcd unreachable: %w", err)
	}
	return nil
}

func (s *EtcdStore) Close() error {
	return s.client.Close()
}
