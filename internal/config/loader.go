package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
)

// EnvPrefix prefixes every environment override, e.g. TONETRACE_STORE_TYPE.
const EnvPrefix = "TONETRACE"

// EnvFileVar names an explicit .env file to load instead of the defaults.
const EnvFileVar = "TONETRACE_ENV_FILE"

// LoadEnvFiles loads TONETRACE_ENV_FILE when set, otherwise .env.local and
// .env. Variables already present in the environment are never overwritten.
// Missing files are ignored.
func LoadEnvFiles() error {
	if envFile := os.Getenv(EnvFileVar); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tonetrace")
	}

	setDefaults(v)

	// Nested keys map to env vars with underscores: store.redis.url -> TONETRACE_STORE_REDIS_URL
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.max_retries", d.Store.MaxRetries)
	v.SetDefault("store.timeout", d.Store.Timeout)
	v.SetDefault("store.postgres.url", "")
	v.SetDefault("store.postgres.max_conns", d.Store.Postgres.MaxConns)
	v.SetDefault("store.postgres.min_conns", d.Store.Postgres.MinConns)
	v.SetDefault("store.postgres.max_conn_lifetime", d.Store.Postgres.MaxConnLifetime)
	v.SetDefault("store.postgres.max_conn_idle_time", d.Store.Postgres.MaxConnIdleTime)
	v.SetDefault("store.sqlite.path", d.Store.SQLite.Path)
	v.SetDefault("store.redis.url", d.Store.Redis.URL)
	v.SetDefault("store.redis.key_prefix", d.Store.Redis.KeyPrefix)
	v.SetDefault("store.etcd.endpoints", d.Store.Etcd.Endpoints)
	v.SetDefault("store.etcd.dial_timeout", d.Store.Etcd.DialTimeout)
	v.SetDefault("store.etcd.prefix", d.Store.Etcd.Prefix)
	v.SetDefault("store.submissions.enabled", d.Store.Submissions.Enabled)
	v.SetDefault("store.submissions.type", d.Store.Submissions.Type)

	v.SetDefault("queue.enabled", d.Queue.Enabled)
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)
	v.SetDefault("queue.subjects.submissions", d.Queue.Subjects.Submissions)
	v.SetDefault("queue.subjects.analyses", d.Queue.Subjects.Analyses)
	v.SetDefault("queue.subjects.anomalies", d.Queue.Subjects.Anomalies)

	v.SetDefault("auth.enabled", d.Auth.Enabled)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)

	v.SetDefault("anomaly.sentence_length", d.Anomaly.SentenceLength)
	v.SetDefault("anomaly.lexical_density", d.Anomaly.LexicalDensity)
	v.SetDefault("anomaly.formality", d.Anomaly.Formality)
	v.SetDefault("anomaly.lexical_diversity", d.Anomaly.LexicalDiversity)
	v.SetDefault("anomaly.sentiment", d.Anomaly.Sentiment)
	v.SetDefault("anomaly.tone_similarity", d.Anomaly.ToneSimilarity)

	v.SetDefault("profile.mean_mode", d.Profile.MeanMode)

	v.SetDefault("analysis.min_text_length", d.Analysis.MinTextLength)
	v.SetDefault("analysis.max_text_length", d.Analysis.MaxTextLength)
	v.SetDefault("analysis.extractor_timeout", d.Analysis.ExtractorTimeout)
	v.SetDefault("analysis.worker_concurrency", d.Analysis.WorkerConcurrency)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			BodyLimit:    1 << 20,
		},
		Store: StoreConfig{
			Type:       "memory",
			MaxRetries: 3,
			Timeout:    5 * time.Second,
			Postgres: PostgresConfig{
				MaxConns:        10,
				MinConns:        2,
				MaxConnLifetime: time.Hour,
				MaxConnIdleTime: 30 * time.Minute,
			},
			SQLite: SQLiteConfig{
				Path: "./data/tonetrace.db",
			},
			Redis: RedisConfig{
				URL:       "redis://localhost:6379",
				KeyPrefix: "tonetrace:profile:",
			},
			Etcd: EtcdConfig{
				Endpoints:   []string{"http://localhost:2379"},
				DialTimeout: 5 * time.Second,
				Prefix:      "/tonetrace/profiles",
			},
			Submissions: SubmissionsConfig{
				Enabled: true,
			},
		},
		Queue: QueueConfig{
			Enabled:      false,
			Type:         "nats",
			URL:          "nats://localhost:4222",
			RedisStream:  "tonetrace",
			RedisGroup:   "tonetrace-group",
			KafkaGroupID: "tonetrace-worker",
			Subjects: SubjectsConfig{
				Submissions: "tonetrace.submissions",
				Analyses:    "tonetrace.analyses",
				Anomalies:   "tonetrace.anomalies",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Anomaly: anomaly.DefaultConfig(),
		Profile: ProfileConfig{
			MeanMode: "texts",
		},
		Analysis: AnalysisConfig{
			MinTextLength:     1,
			MaxTextLength:     100000,
			ExtractorTimeout:  5 * time.Second,
			WorkerConcurrency: 4,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
