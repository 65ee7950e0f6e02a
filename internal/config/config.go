// Package config loads the ingestor configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPostsPerPage keeps fetch jobs small so one job maps to one post
	// in the common case.
	DefaultPostsPerPage = 1
	// DefaultIdempotencyTTLHours is the advisory lifetime of completion
	// records.
	DefaultIdempotencyTTLHours = 24
)

// Config is the full ingestor configuration.
type Config struct {
	Debug       bool              `yaml:"debug"`
	WordPress   WordPressConfig   `yaml:"wordpress"`
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Queue       QueueConfig       `yaml:"queue"`
	Worker      WorkerConfig      `yaml:"worker"`
}

// WordPressConfig points at the blog's REST posts endpoint.
type WordPressConfig struct {
	URL          string        `yaml:"url"`      // may carry query params (category filter)
	Username     string        `yaml:"username"` // optional basic auth
	Password     string        `yaml:"password"`
	Timeout      time.Duration `yaml:"timeout"`
	PostsPerPage int           `yaml:"posts_per_page"`
}

// StorageConfig names the object-store bucket raw posts and weekly records
// land in.
type StorageConfig struct {
	Bucket string `yaml:"bucket"`
}

// RedisConfig holds the connection for the idempotency table and the fetch
// queue.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IdempotencyConfig controls the completion-record table. An empty prefix
// with Enabled false leaves the pipeline running fail-open without the table.
type IdempotencyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	KeySpace string `yaml:"key_space"` // redis key prefix for the table
	TTLHours int    `yaml:"ttl_hours"`
}

// TTL returns the completion-record lifetime as a duration.
func (c IdempotencyConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// QueueConfig names the fetch-job queue.
type QueueConfig struct {
	Name        string        `yaml:"name"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// WorkerConfig controls the queue consumer.
type WorkerConfig struct {
	// Schedule is an optional cron expression; when set, the worker also
	// enqueues a fresh fetch fan-out on that schedule.
	Schedule string `yaml:"schedule"`
}

// Load reads path, applies defaults and environment overrides, and validates
// the result.
func Load(path string) (*Config, error) {
	var cfg Config

	// A missing file is fine, environment variables can carry the
	// full configuration on their own.
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.WordPress.URL == "" {
		return errors.New("wordpress.url is required")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Idempotency.Enabled && c.Idempotency.KeySpace == "" {
		return errors.New("idempotency.key_space is required when idempotency.enabled is true")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.WordPress.Timeout == 0 {
		cfg.WordPress.Timeout = 30 * time.Second
	}
	if cfg.WordPress.PostsPerPage == 0 {
		cfg.WordPress.PostsPerPage = DefaultPostsPerPage
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Idempotency.TTLHours == 0 {
		cfg.Idempotency.TTLHours = DefaultIdempotencyTTLHours
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "wod:fetch-jobs"
	}
	if cfg.Queue.PollTimeout == 0 {
		cfg.Queue.PollTimeout = 5 * time.Second
	}
}

func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("WORDPRESS_API_URL"); v != "" {
		cfg.WordPress.URL = v
	}
	if v := os.Getenv("WORDPRESS_API_USER"); v != "" {
		cfg.WordPress.Username = v
	}
	if v := os.Getenv("WORDPRESS_API_PASS"); v != "" {
		cfg.WordPress.Password = v
	}
	if v := os.Getenv("WOD_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("IDEMPOTENCY_KEY_SPACE"); v != "" {
		cfg.Idempotency.Enabled = true
		cfg.Idempotency.KeySpace = v
	}
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
