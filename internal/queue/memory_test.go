package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tonetrace/tonetrace/internal/logging"
)

func TestMemoryQueue_PublishBuffersUntilSubscribed(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	defer func() { _ = q.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Publish(ctx, Message{Subject: "tonetrace.analyses", Data: []byte(fmt.Sprintf("m%d", i))}); err != nil {
			t.Fatalf("Failed to publish: %v", err)
		}
	}
	if got := q.Pending("tonetrace.analyses"); got != 3 {
		t.Fatalf("Expected 3 pending messages, got %d", got)
	}

	c := newCollector()
	if err := q.Subscribe(ctx, "tonetrace.analyses", c.handle); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	c.waitFor(t, 3, time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.messages {
		if string(m) != fmt.Sprintf("m%d", i) {
			t.Errorf("Message %d = %q, want in-order delivery", i, m)
		}
	}
}

func TestMemoryQueue_PublishCopiesData(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	defer func() { _ = q.Close() }()

	data := []byte("original")
	if err := q.Publish(context.Background(), Message{Subject: "s", Data: data}); err != nil {
		t.Fatal(err)
	}
	copy(data, "mutated!")

	c := newCollector()
	if err := q.Subscribe(context.Background(), "s", c.handle); err != nil {
		t.Fatal(err)
	}
	c.waitFor(t, 1, time.Second)
	if string(c.messages[0]) != "original" {
		t.Errorf("Expected published data to be copied, got %q", c.messages[0])
	}
}

func TestMemoryQueue_PublishBatch(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	defer func() { _ = q.Close() }()

	n, err := q.PublishBatch(context.Background(), []Message{
		{Subject: "a", Data: []byte("1")},
		{Subject: "b", Data: []byte("2")},
		{Subject: "a", Data: []byte("3")},
	})
	if err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 accepted, got %d", n)
	}
	if q.Pending("a") != 2 || q.Pending("b") != 1 {
		t.Errorf("Unexpected pending counts a=%d b=%d", q.Pending("a"), q.Pending("b"))
	}
}

func TestMemoryQueue_DuplicateSubscribe(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	defer func() { _ = q.Close() }()

	ctx := context.Background()
	noop := func(context.Context, string, []byte) error { return nil }
	if err := q.Subscribe(ctx, "s", noop); err != nil {
		t.Fatal(err)
	}
	if err := q.Subscribe(ctx, "s", noop); err == nil {
		t.Error("Expected error on duplicate subscription")
	}
	if err := q.Unsubscribe("s"); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if err := q.Unsubscribe("s"); err == nil {
		t.Error("Expected error unsubscribing twice")
	}
}

func TestMemoryQueue_HandlerErrorDoesNotStopConsumer(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	defer func() { _ = q.Close() }()

	var calls atomic.Int32
	done := make(chan struct{})
	handler := func(context.Context, string, []byte) error {
		if calls.Add(1) == 2 {
			close(done)
		}
		return errors.New("boom")
	}
	ctx := context.Background()
	if err := q.Subscribe(ctx, "s", handler); err != nil {
		t.Fatal(err)
	}
	_ = q.Publish(ctx, Message{Subject: "s", Data: []byte("1")})
	_ = q.Publish(ctx, Message{Subject: "s", Data: []byte("2")})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Expected both messages to reach the handler, got %d", calls.Load())
	}
}

func TestMemoryQueue_SubscriptionStopsWithContext(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	c := newCollector()
	if err := q.Subscribe(ctx, "s", c.handle); err != nil {
		t.Fatal(err)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)

	_ = q.Publish(context.Background(), Message{Subject: "s", Data: []byte("late")})
	time.Sleep(20 * time.Millisecond)
	if c.count() != 0 {
		t.Errorf("Expected no delivery after cancel, got %d", c.count())
	}
	if q.Pending("s") != 1 {
		t.Errorf("Expected the message to stay buffered, got %d", q.Pending("s"))
	}
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue(logging.Nop())
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}

	err := q.Publish(context.Background(), Message{Subject: "s", Data: []byte("x")})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after close = %v, want ErrClosed", err)
	}
	err = q.Subscribe(context.Background(), "s", func(context.Context, string, []byte) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after close = %v, want ErrClosed", err)
	}
}
