package config

import (
	"fmt"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Anomaly  anomaly.Config `mapstructure:"anomaly"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // Max request body in bytes
}

// StoreConfig selects and configures the profile store backend
type StoreConfig struct {
	Type       string         `mapstructure:"type"`        // memory (default), postgres, sqlite, redis, etcd
	MaxRetries int            `mapstructure:"max_retries"` // Conditional save attempts before an update is reported lost
	Timeout    time.Duration  `mapstructure:"timeout"`     // Per-operation timeout
	Postgres   PostgresConfig `mapstructure:"postgres"`
	SQLite     SQLiteConfig   `mapstructure:"sqlite"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Etcd       EtcdConfig     `mapstructure:"etcd"`

	Submissions SubmissionsConfig `mapstructure:"submissions"`
}

// SubmissionsConfig controls the per-submission analysis archive. It reuses
// the postgres and sqlite sections of StoreConfig.
type SubmissionsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"` // memory, postgres, sqlite; empty inherits store.type
}

// SubmissionStoreType returns the archive backend after inheritance.
func (c *StoreConfig) SubmissionStoreType() utils.StoreType {
	t := utils.StoreType(c.Submissions.Type)
	if t == "" {
		t = utils.StoreType(c.Type)
	}
	if t == "" {
		t = utils.StoreTypeMemory
	}
	return t
}

// PostgresConfig represents PostgreSQL connection configuration
type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// SQLiteConfig represents embedded SQLite configuration
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig represents Redis store configuration
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Prefix      string        `mapstructure:"prefix"`
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Publish analysis events and consume submissions
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`   // Stream prefix (default: "tonetrace")
	RedisGroup    string `mapstructure:"redis_group"`    // Consumer group (default: "tonetrace-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`

	Subjects SubjectsConfig `mapstructure:"subjects"`
}

// SubjectsConfig names the queue subjects
type SubjectsConfig struct {
	Submissions string `mapstructure:"submissions"` // Intake consumed by the worker
	Analyses    string `mapstructure:"analyses"`    // Every completed analysis
	Anomalies   string `mapstructure:"anomalies"`   // Analyses flagged anomalous
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// ProfileConfig controls how profiles aggregate metrics
type ProfileConfig struct {
	MeanMode string `mapstructure:"mean_mode"` // texts (default) or observations
}

// AnalysisConfig controls text extraction
type AnalysisConfig struct {
	MinTextLength     int           `mapstructure:"min_text_length"` // Characters
	MaxTextLength     int           `mapstructure:"max_text_length"` // Characters
	Extractors        []string      `mapstructure:"extractors"`      // Enabled extractors; empty enables all
	ExtractorTimeout  time.Duration `mapstructure:"extractor_timeout"`
	WorkerConcurrency int           `mapstructure:"worker_concurrency"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Anomaly.Validate(); err != nil {
		return fmt.Errorf("anomaly config: %w", err)
	}

	if _, err := profile.ParseMeanMode(c.Profile.MeanMode); err != nil {
		return fmt.Errorf("profile config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates store configuration
func (c *StoreConfig) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("store.max_retries must be at least 1")
	}

	switch utils.StoreType(c.Type) {
	case "", utils.StoreTypeMemory:
	case utils.StoreTypePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store.postgres.url is required")
		}
	case utils.StoreTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required")
		}
	case utils.StoreTypeRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("store.redis.url is required")
		}
	case utils.StoreTypeEtcd:
		if err := c.Etcd.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store.type must be one of: memory, postgres, sqlite, redis, etcd")
	}

	if !c.Submissions.Enabled {
		return nil
	}
	switch c.SubmissionStoreType() {
	case utils.StoreTypeMemory:
	case utils.StoreTypePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store.postgres.url is required for the submission archive")
		}
	case utils.StoreTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required for the submission archive")
		}
	default:
		return fmt.Errorf("store.submissions.type must be one of: memory, postgres, sqlite")
	}

	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("store.etcd.endpoints is required")
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("store.etcd.dial_timeout must be positive")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch utils.QueueType(c.Type) {
	case "", utils.QueueTypeNATS, utils.QueueTypeRedis, utils.QueueTypeMemory:
	case utils.QueueTypeKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}

	if c.Subjects.Submissions == "" || c.Subjects.Analyses == "" || c.Subjects.Anomalies == "" {
		return fmt.Errorf("queue.subjects must all be set")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

// Validate validates analysis configuration
func (c *AnalysisConfig) Validate() error {
	if c.MinTextLength < 0 {
		return fmt.Errorf("analysis.min_text_length cannot be negative")
	}

	if c.MaxTextLength > 0 && c.MaxTextLength < c.MinTextLength {
		return fmt.Errorf("analysis.max_text_length cannot be below min_text_length")
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("analysis.worker_concurrency must be at least 1")
	}

	return nil
}
