package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tonetrace/tonetrace/internal/logging"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
	Name     string // Connection name reported to the server
}

// NATSQueue implements Queue using NATS JetStream. Every subject gets its
// own file-backed stream named "tonetrace-<subject>".
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	logger        *logging.Logger
	streams       map[string]bool
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// NewNATSQueue connects to NATS and creates a JetStream context
func NewNATSQueue(cfg NATSConfig, logger *logging.Logger) (*NATSQueue, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "tonetrace"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func newNATSQueueWithConn(conn *nats.Conn, logger *logging.Logger) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &NATSQueue{
		conn:          conn,
		js:            js,
		logger:        logger,
		streams:       make(map[string]bool),
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// ensureStream creates the stream capturing subject if it does not exist.
// JetStream rejects publishes to subjects without a stream.
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.streams[subject] {
		return nil
	}

	streamName := "tonetrace-" + sanitizeName(subject)
	if _, err := q.js.StreamInfo(streamName); err != nil {
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
	}
	q.streams[subject] = true
	return nil
}

func (q *NATSQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.ensureStream(msg.Subject); err != nil {
		return err
	}

	nmsg := nats.NewMsg(msg.Subject)
	nmsg.Data = msg.Data
	if msg.Key != "" {
		nmsg.Header.Set("Tonetrace-Key", msg.Key)
	}
	if _, err := q.js.PublishMsg(nmsg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", msg.Subject, err)
	}
	return nil
}

// PublishBatch queues every message asynchronously and waits for all acks
func (q *NATSQueue) PublishBatch(ctx context.Context, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(msgs))
	for _, msg := range msgs {
		if err := q.ensureStream(msg.Subject); err != nil {
			q.logger.Warn("Skipping batch message", "subject", msg.Subject, "error", err)
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	accepted := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			accepted++
		case err := <-future.Err():
			q.logger.Warn("Batch publish failed", "subject", future.Msg().Subject, "error", err)
		}
	}
	return accepted, nil
}

// Subscribe creates a durable consumer with manual acks. Failed messages are
// NAKed and redelivered up to three times.
func (q *NATSQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	durableName := "consumer-" + sanitizeName(subject)
	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			q.logger.Warn("Message handler failed, requesting redelivery",
				"subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}
	q.subscriptions[subject] = sub

	go func() {
		<-ctx.Done()
		_ = q.Unsubscribe(subject)
	}()
	return nil
}

func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	delete(q.subscriptions, subject)

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	for subject, sub := range q.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			q.logger.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.conn.Close()
	return nil
}

// sanitizeName maps subject to a valid stream or consumer name
// (A-Z, a-z, 0-9, dash and underscore).
func sanitizeName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
