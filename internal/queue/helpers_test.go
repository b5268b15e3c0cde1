package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

// collector records every delivered message
type collector struct {
	mu       sync.Mutex
	messages [][]byte
	subjects []string
	notify   chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 1000)}
}

func (c *collector) handle(_ context.Context, subject string, data []byte) error {
	c.mu.Lock()
	c.messages = append(c.messages, append([]byte(nil), data...))
	c.subjects = append(c.subjects, subject)
	c.mu.Unlock()
	c.notify <- struct{}{}
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// waitFor blocks until n messages arrived or the timeout elapses
func (c *collector) waitFor(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for c.count() < n {
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("Timed out waiting for %d messages, got %d", n, c.count())
		}
	}
}
