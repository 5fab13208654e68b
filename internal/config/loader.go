package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "catalog.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CATALOG_PORT")
	setString(&cfg.Server.CORSOrigin, "CATALOG_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CATALOG_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CATALOG_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CATALOG_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CATALOG_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CATALOG_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.MaxSizeMB, "CATALOG_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.ListTTL, "CATALOG_CACHE_LIST_TTL")
	setInt(&cfg.Stream.QueueDepth, "CATALOG_STREAM_QUEUE_DEPTH")
	setDuration(&cfg.Stream.PingInterval, "CATALOG_STREAM_PING_INTERVAL")
	setDuration(&cfg.Stream.ReconnectDelay, "CATALOG_STREAM_RECONNECT_DELAY")
	setDuration(&cfg.Stream.PendingTTL, "CATALOG_STREAM_PENDING_TTL")
	setString(&cfg.Logging.Level, "CATALOG_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CATALOG_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "CATALOG_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CATALOG_BREAKER_TIMEOUT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Stream.QueueDepth < 1 {
		return errors.New("stream.queue_depth must be >= 1")
	}
	if cfg.Stream.PingInterval <= 0 {
		return errors.New("stream.ping_interval must be positive")
	}
	if cfg.Stream.ReconnectDelay <= 0 {
		return errors.New("stream.reconnect_delay must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
