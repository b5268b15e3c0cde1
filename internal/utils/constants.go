package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// StoreOperationTimeout bounds one profile store round trip
	StoreOperationTimeout = 5 * time.Second

	// PublishTimeout bounds publishing one analysis event
	PublishTimeout = 2 * time.Second

	// ShutdownTimeout is the grace period for draining servers and consumers
	ShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of conditional save attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the backoff before the first retry
	DefaultRetryBackoff = 10 * time.Millisecond

	// MaxRetryBackoff is the maximum backoff duration
	MaxRetryBackoff = 500 * time.Millisecond
)

// RetryBackoff returns the exponential backoff for the given attempt (0-based).
func RetryBackoff(attempt int) time.Duration {
	d := DefaultRetryBackoff << attempt
	if d <= 0 || d > MaxRetryBackoff {
		return MaxRetryBackoff
	}
	return d
}

// =============================================================================
// Buffer Constants
// =============================================================================

const (
	// DefaultBufferSize is the default buffer size for channels
	DefaultBufferSize = 100

	// MemoryQueueBufferSize is the per-subject buffer of the in-memory queue
	MemoryQueueBufferSize = 10000
)

// =============================================================================
// Submission Archive Constants
// =============================================================================

const (
	// SubmissionPreviewLength is the number of characters archived per text
	SubmissionPreviewLength = 100

	// DefaultHistoryLimit is the page size when a request names none
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps the page size of archive reads
	MaxHistoryLimit = 500
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// =============================================================================
// Store Type Constants
// =============================================================================

// StoreType represents the profile store backend
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypePostgres StoreType = "postgres"
	StoreTypeSQLite   StoreType = "sqlite"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeEtcd     StoreType = "etcd"
)
