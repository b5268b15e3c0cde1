package store

import (
	"context"
	"sync"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

type memoryEntry struct {
	doc      []byte
	revision int64
}

// MemoryStore keeps encoded profiles in a map. Profiles are stored encoded so
// callers never share mutable state with the store.
type MemoryStore struct {
	base
	mu      sync.RWMutex
	entries map[string]memoryEntry
	closed  bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, studentID string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	e, ok := s.entries[studentID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	p, err := profile.Unmarshal(e.doc)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Profile: p, Revision: e.revision}, nil
}

func (s *MemoryStore) Save(ctx context.Context, studentID string, p *profile.StyleProfile, expectedRevision int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	doc, err := encode(p)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	current := s.entries[studentID].revision
	if current != expectedRevision {
		return 0, ErrRevisionConflict
	}
	next := current + 1
	s.entries[studentID] = memoryEntry{doc: doc, revision: next}
	return next, nil
}

func (s *MemoryStore) Delete(ctx context.Context, studentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.entries[studentID]; !ok {
		return ErrNotFound
	}
	delete(s.entries, studentID)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
