package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// MemoryQueue implements Queue using buffered channels, one per subject.
// Messages published before a subscriber exists wait in the buffer.
type MemoryQueue struct {
	logger        *logging.Logger
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	closed        bool
	mu            sync.Mutex
}

// NewMemoryQueue creates an in-memory queue
func NewMemoryQueue(logger *logging.Logger) *MemoryQueue {
	return &MemoryQueue{
		logger:        logger,
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// channel returns the subject's channel, creating it. Callers hold q.mu.
func (q *MemoryQueue) channel(subject string) chan []byte {
	if ch, ok := q.channels[subject]; ok {
		return ch
	}
	ch := make(chan []byte, utils.MemoryQueueBufferSize)
	q.channels[subject] = ch
	return ch
}

func (q *MemoryQueue) Publish(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	ch := q.channel(msg.Subject)

	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)

	select {
	case ch <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("channel full for subject: %s", msg.Subject)
	}
}

func (q *MemoryQueue) PublishBatch(ctx context.Context, msgs []Message) (int, error) {
	accepted := 0
	var lastErr error
	for _, msg := range msgs {
		if err := q.Publish(ctx, msg); err != nil {
			lastErr = err
			continue
		}
		accepted++
	}
	if accepted == 0 && lastErr != nil {
		return 0, lastErr
	}
	return accepted, nil
}

func (q *MemoryQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ch := q.channel(subject)
	subCtx, cancel := context.WithCancel(ctx)
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-subCtx.Done():
				return
			case data := <-ch:
				if err := handler(subCtx, subject, data); err != nil {
					// No redelivery in memory
					q.logger.Warn("Message handler failed", "subject", subject, "error", err)
				}
			}
		}
	}()
	return nil
}

func (q *MemoryQueue) Unsubscribe(subject string) error {
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

// Close stops every subscription and waits for running handlers to return.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Pending returns the number of buffered messages for subject
func (q *MemoryQueue) Pending(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ch, ok := q.channels[subject]; ok {
		return len(ch)
	}
	return 0
}
