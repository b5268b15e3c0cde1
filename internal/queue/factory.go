package queue

import (
	"fmt"
	"strings"

	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// New creates the queue selected by cfg.Type. NATS is the default.
func New(cfg config.QueueConfig, logger *logging.Logger) (Queue, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}
	logger = logger.With("component", "queue."+string(queueType))

	var (
		q   Queue
		err error
	)
	switch queueType {
	case utils.QueueTypeNATS:
		q, err = NewNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		}, logger)

	case utils.QueueTypeRedis:
		q, err = NewRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		}, logger)

	case utils.QueueTypeKafka:
		q, err = NewKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		}, logger)

	case utils.QueueTypeMemory:
		q = NewMemoryQueue(logger)

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Queue ready")
	return q, nil
}
