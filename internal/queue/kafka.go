package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tonetrace/tonetrace/internal/logging"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers       []string
	GroupID       string        // Consumer group ID (default: "tonetrace-group")
	BatchTimeout  time.Duration // Producer batch timeout (default: 10ms)
	MaxRetries    int           // Producer attempts (default: 3)
	RetryBackoff  time.Duration // Backoff between commit retries (default: 100ms)
	CommitRetries int           // Consumer commit retries (default: 3)
}

// KafkaQueue implements Queue using Kafka topics named after subjects.
// Messages are partitioned by key so one student's submissions stay ordered.
type KafkaQueue struct {
	config        KafkaConfig
	logger        *logging.Logger
	writers       map[string]*kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// NewKafkaQueue creates a Kafka queue. Connections are opened lazily.
func NewKafkaQueue(cfg KafkaConfig, logger *logging.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.GroupID == "" {
		cfg.GroupID = "tonetrace-group"
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.CommitRetries == 0 {
		cfg.CommitRetries = 3
	}

	return &KafkaQueue{
		config:        cfg,
		logger:        logger,
		writers:       make(map[string]*kafka.Writer),
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

func (q *KafkaQueue) writer(topic string) *kafka.Writer {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w, exists := q.writers[topic]; exists {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(q.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           q.config.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            q.config.MaxRetries,
		AllowAutoTopicCreation: true,
	}
	q.writers[topic] = w
	return w
}

func toKafkaMessage(msg Message) kafka.Message {
	km := kafka.Message{Value: msg.Data, Time: time.Now()}
	if msg.Key != "" {
		km.Key = []byte(msg.Key)
	}
	return km
}

func (q *KafkaQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.writer(msg.Subject).WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", msg.Subject, err)
	}
	return nil
}

// PublishBatch groups messages by topic and writes each group in one call
func (q *KafkaQueue) PublishBatch(ctx context.Context, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	byTopic := make(map[string][]kafka.Message)
	order := make([]string, 0)
	for _, msg := range msgs {
		if _, seen := byTopic[msg.Subject]; !seen {
			order = append(order, msg.Subject)
		}
		byTopic[msg.Subject] = append(byTopic[msg.Subject], toKafkaMessage(msg))
	}

	accepted := 0
	var lastErr error
	for _, topic := range order {
		batch := byTopic[topic]
		if err := q.writer(topic).WriteMessages(ctx, batch...); err != nil {
			var werr kafka.WriteErrors
			if errors.As(err, &werr) {
				accepted += len(batch) - werr.Count()
			}
			lastErr = err
			continue
		}
		accepted += len(batch)
	}

	if lastErr != nil && accepted == 0 {
		return 0, fmt.Errorf("failed to publish batch: %w", lastErr)
	}
	return accepted, nil
}

func (q *KafkaQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		GroupID:  q.config.GroupID,
		Topic:    subject,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	subCtx, cancel := context.WithCancel(ctx)
	q.readers[subject] = reader
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.consume(subCtx, subject, reader, handler)
	}()
	return nil
}

// consume fetches messages until ctx is done. Offsets are committed only after
// the handler succeeds.
func (q *KafkaQueue) consume(ctx context.Context, subject string, reader *kafka.Reader, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			q.logger.Warn("Failed to fetch Kafka message", "topic", subject, "error", err)
			continue
		}

		if err := handler(ctx, subject, msg.Value); err != nil {
			q.logger.Warn("Message handler failed", "topic", subject,
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}

		for i := 0; i < q.config.CommitRetries; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			} else if i == q.config.CommitRetries-1 {
				q.logger.Error("Failed to commit Kafka offset", "topic", subject, "offset", msg.Offset, "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(q.config.RetryBackoff)
		}
	}
}

func (q *KafkaQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	cancel()
	if reader, ok := q.readers[subject]; ok {
		_ = reader.Close()
		delete(q.readers, subject)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close stops consumers and flushes writers
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	var lastErr error
	for subject, cancel := range q.subscriptions {
		cancel()
		if reader, ok := q.readers[subject]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
		}
		delete(q.subscriptions, subject)
		delete(q.readers, subject)
	}
	for topic, w := range q.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
		delete(q.writers, topic)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return lastErr
}

// Stats returns writer stats for a topic
func (q *KafkaQueue) Stats(topic string) kafka.WriterStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if w, exists := q.writers[topic]; exists {
		return w.Stats()
	}
	return kafka.WriterStats{}
}
