// Package config defines the top-level configuration for the obrix metrics
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by OBRIX_* environment variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Subgraph  SubgraphConfig  `toml:"subgraph"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Worker    WorkerConfig    `toml:"worker"`
	Alerts    AlertsConfig    `toml:"alerts"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// CacheTTL bounds how long the latest metrics of a pool stay cached.
	CacheTTL duration `toml:"cache_ttl"`
}

// S3Config holds S3-compatible object storage parameters. Archiving of raw
// swap windows is skipped unless Enabled is set.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SubgraphConfig points at the GraphQL indexer serving pool swaps.
type SubgraphConfig struct {
	URL     string   `toml:"url"`
	APIKey  string   `toml:"api_key"`
	Timeout duration `toml:"timeout"`
}

// AnalyticsConfig tunes the metrics engine.
type AnalyticsConfig struct {
	DefaultToken0Decimals int     `toml:"default_token0_decimals"`
	DefaultToken1Decimals int     `toml:"default_token1_decimals"`
	MaxMAWindow           int     `toml:"max_ma_window"`
	MinSwapsMeanReversion int     `toml:"min_swaps_mean_reversion"`
	MinSamplesHurst       int     `toml:"min_samples_hurst"`
	CrossingWeight        float64 `toml:"crossing_weight"`
	HurstWeight           float64 `toml:"hurst_weight"`
}

// WorkerConfig drives the scheduler and the job processor.
type WorkerConfig struct {
	Pools       []string `toml:"pools"`
	Interval    duration `toml:"interval"`
	Lookback    duration `toml:"lookback"`
	FetchLimit  int      `toml:"fetch_limit"`
	Concurrency int      `toml:"concurrency"`
	LockTTL     duration `toml:"lock_ttl"`
	JobTimeout  duration `toml:"job_timeout"`
	Consumer    string   `toml:"consumer"`
	Protocol    string   `toml:"protocol"`
	Chain       string   `toml:"chain"`
	Version     string   `toml:"version"`
}

// AlertsConfig holds metric thresholds. A zero threshold disables its rule.
type AlertsConfig struct {
	Enabled            bool    `toml:"enabled"`
	VolatilityAbove    float64 `toml:"volatility_above"`
	MeanReversionAbove float64 `toml:"mean_reversion_above"`
	TWAPDeviationPct   float64 `toml:"twap_deviation_pct"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters. RateLimit is requests per minute
// per client IP; zero disables limiting. APIKey guards the job endpoint and
// is disabled when empty.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "obrix",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			CacheTTL:   duration{15 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "obrix-swaps",
			Prefix:         "windows",
			ForcePathStyle: true,
		},
		Subgraph: SubgraphConfig{
			Timeout: duration{30 * time.Second},
		},
		Analytics: AnalyticsConfig{
			DefaultToken0Decimals: 18,
			DefaultToken1Decimals: 6,
			MaxMAWindow:           20,
			MinSwapsMeanReversion: 10,
			MinSamplesHurst:       20,
			CrossingWeight:        0.6,
			HurstWeight:           0.4,
		},
		Worker: WorkerConfig{
			Interval:    duration{5 * time.Minute},
			Lookback:    duration{2 * time.Hour},
			FetchLimit:  1000,
			Concurrency: 4,
			LockTTL:     duration{2 * time.Minute},
			JobTimeout:  duration{90 * time.Second},
			Consumer:    "worker-1",
			Protocol:    "uniswap",
			Chain:       "ethereum",
			Version:     "v4",
		},
		Alerts: AlertsConfig{
			Enabled:            false,
			VolatilityAbove:    2.0,
			MeanReversionAbove: 0.7,
			TWAPDeviationPct:   5.0,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
		},
		Notify: NotifyConfig{
			Events: []string{"volatility_spike", "mean_reversion_high", "twap_deviation", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"worker": true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// RunsWorker reports whether the configured mode schedules and processes jobs.
func (c *Config) RunsWorker() bool {
	m := strings.ToLower(c.Mode)
	return m == "worker" || m == "full"
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: worker, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Analytics
	a := c.Analytics
	if a.DefaultToken0Decimals < 0 || a.DefaultToken1Decimals < 0 {
		errs = append(errs, "analytics: default token decimals must be >= 0")
	}
	if a.MaxMAWindow < 1 {
		errs = append(errs, "analytics: max_ma_window must be >= 1")
	}
	if a.MinSwapsMeanReversion < 2 {
		errs = append(errs, "analytics: min_swaps_mean_reversion must be >= 2")
	}
	if a.CrossingWeight < 0 || a.HurstWeight < 0 || a.CrossingWeight+a.HurstWeight > 1 {
		errs = append(errs, fmt.Sprintf("analytics: weights must be non-negative and sum to at most 1, got %g + %g",
			a.CrossingWeight, a.HurstWeight))
	}

	// Worker
	if c.RunsWorker() {
		if c.Subgraph.URL == "" {
			errs = append(errs, "subgraph: url must not be empty for mode "+c.Mode)
		}
		if c.Worker.Interval.Duration <= 0 {
			errs = append(errs, "worker: interval must be > 0")
		}
		if c.Worker.Lookback.Duration <= 0 {
			errs = append(errs, "worker: lookback must be > 0")
		}
		if c.Worker.FetchLimit < 2 {
			errs = append(errs, "worker: fetch_limit must be >= 2")
		}
		if c.Worker.Concurrency < 1 {
			errs = append(errs, "worker: concurrency must be >= 1")
		}
		if c.Worker.LockTTL.Duration <= 0 {
			errs = append(errs, "worker: lock_ttl must be > 0")
		}
		if c.Worker.Consumer == "" {
			errs = append(errs, "worker: consumer must not be empty")
		}
	}

	// Alerts
	if c.Alerts.VolatilityAbove < 0 || c.Alerts.MeanReversionAbove < 0 || c.Alerts.TWAPDeviationPct < 0 {
		errs = append(errs, "alerts: thresholds must be >= 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
