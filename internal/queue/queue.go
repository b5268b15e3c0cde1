// Package queue carries analysis submissions and analysis events between
// tonetrace processes over NATS JetStream, Redis Streams, Kafka or an
// in-memory channel.
package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed queue
var ErrClosed = errors.New("queue closed")

// Message is one payload addressed to a subject. Key orders messages on
// backends that partition (Kafka); the student id is used as key.
type Message struct {
	Subject string
	Key     string
	Data    []byte
}

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes one message and waits for the backend to accept it
	Publish(ctx context.Context, msg Message) error

	// PublishBatch publishes several messages and returns how many were accepted
	PublishBatch(ctx context.Context, msgs []Message) (int, error)

	Close() error
}

// MessageHandler processes one delivered message. Returning an error leaves
// the message unacknowledged so the backend can redeliver it.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber consumes messages from a queue
type Subscriber interface {
	// Subscribe starts consuming subject in the background until ctx is done,
	// Unsubscribe is called or the queue is closed.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	Unsubscribe(subject string) error

	Close() error
}

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}
