package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memorySubmission struct {
	studentID  string
	analyzedAt time.Time
	anomalous  bool
	doc        []byte
}

// MemorySubmissionStore keeps encoded submission records in a map.
type MemorySubmissionStore struct {
	mu      sync.RWMutex
	records map[string]memorySubmission
	closed  bool
}

// NewMemorySubmissionStore creates an empty in-memory archive
func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{records: make(map[string]memorySubmission)}
}

func (s *MemorySubmissionStore) Record(ctx context.Context, r *SubmissionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := encodeSubmission(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records[r.SubmissionID] = memorySubmission{
		studentID:  r.StudentID,
		analyzedAt: r.AnalyzedAt,
		anomalous:  r.IsAnomaly(),
		doc:        doc,
	}
	return nil
}

func (s *MemorySubmissionStore) Get(ctx context.Context, submissionID string) (*SubmissionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	e, ok := s.records[submissionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return decodeSubmission(e.doc)
}

func (s *MemorySubmissionStore) List(ctx context.Context, studentID string, q SubmissionQuery) ([]*SubmissionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type match struct {
		id string
		memorySubmission
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	var matches []match
	for id, e := range s.records {
		if e.studentID != studentID || (q.AnomaliesOnly && !e.anomalous) {
			continue
		}
		matches = append(matches, match{id: id, memorySubmission: e})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].analyzedAt.Equal(matches[j].analyzedAt) {
			return matches[i].analyzedAt.After(matches[j].analyzedAt)
		}
		return matches[i].id > matches[j].id
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	out := make([]*SubmissionRecord, 0, len(matches))
	for _, m := range matches {
		r, err := decodeSubmission(m.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemorySubmissionStore) DeleteStudent(ctx context.Context, studentID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	var n int64
	for id, e := range s.records {
		if e.studentID == studentID {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *MemorySubmissionStore) Ping(ctx context.Context) error {
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

func (s *MemorySubmissionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
