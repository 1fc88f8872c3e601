package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies OBRIX_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known OBRIX_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "OBRIX_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "OBRIX_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "OBRIX_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "OBRIX_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "OBRIX_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "OBRIX_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "OBRIX_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "OBRIX_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "OBRIX_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "OBRIX_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "OBRIX_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "OBRIX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OBRIX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OBRIX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OBRIX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OBRIX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OBRIX_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "OBRIX_REDIS_CACHE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "OBRIX_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "OBRIX_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "OBRIX_S3_REGION")
	setStr(&cfg.S3.Bucket, "OBRIX_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "OBRIX_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "OBRIX_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "OBRIX_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "OBRIX_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "OBRIX_S3_FORCE_PATH_STYLE")

	// ── Subgraph ──
	setStr(&cfg.Subgraph.URL, "OBRIX_SUBGRAPH_URL")
	setStr(&cfg.Subgraph.APIKey, "OBRIX_SUBGRAPH_API_KEY")
	setDuration(&cfg.Subgraph.Timeout, "OBRIX_SUBGRAPH_TIMEOUT")

	// ── Analytics ──
	setInt(&cfg.Analytics.DefaultToken0Decimals, "OBRIX_ANALYTICS_DEFAULT_TOKEN0_DECIMALS")
	setInt(&cfg.Analytics.DefaultToken1Decimals, "OBRIX_ANALYTICS_DEFAULT_TOKEN1_DECIMALS")
	setInt(&cfg.Analytics.MaxMAWindow, "OBRIX_ANALYTICS_MAX_MA_WINDOW")
	setInt(&cfg.Analytics.MinSwapsMeanReversion, "OBRIX_ANALYTICS_MIN_SWAPS_MEAN_REVERSION")
	setInt(&cfg.Analytics.MinSamplesHurst, "OBRIX_ANALYTICS_MIN_SAMPLES_HURST")
	setFloat64(&cfg.Analytics.CrossingWeight, "OBRIX_ANALYTICS_CROSSING_WEIGHT")
	setFloat64(&cfg.Analytics.HurstWeight, "OBRIX_ANALYTICS_HURST_WEIGHT")

	// ── Worker ──
	setStringSlice(&cfg.Worker.Pools, "OBRIX_WORKER_POOLS")
	setDuration(&cfg.Worker.Interval, "OBRIX_WORKER_INTERVAL")
	setDuration(&cfg.Worker.Lookback, "OBRIX_WORKER_LOOKBACK")
	setInt(&cfg.Worker.FetchLimit, "OBRIX_WORKER_FETCH_LIMIT")
	setInt(&cfg.Worker.Concurrency, "OBRIX_WORKER_CONCURRENCY")
	setDuration(&cfg.Worker.LockTTL, "OBRIX_WORKER_LOCK_TTL")
	setDuration(&cfg.Worker.JobTimeout, "OBRIX_WORKER_JOB_TIMEOUT")
	setStr(&cfg.Worker.Consumer, "OBRIX_WORKER_CONSUMER")
	setStr(&cfg.Worker.Protocol, "OBRIX_WORKER_PROTOCOL")
	setStr(&cfg.Worker.Chain, "OBRIX_WORKER_CHAIN")
	setStr(&cfg.Worker.Version, "OBRIX_WORKER_VERSION")

	// ── Alerts ──
	setBool(&cfg.Alerts.Enabled, "OBRIX_ALERTS_ENABLED")
	setFloat64(&cfg.Alerts.VolatilityAbove, "OBRIX_ALERTS_VOLATILITY_ABOVE")
	setFloat64(&cfg.Alerts.MeanReversionAbove, "OBRIX_ALERTS_MEAN_REVERSION_ABOVE")
	setFloat64(&cfg.Alerts.TWAPDeviationPct, "OBRIX_ALERTS_TWAP_DEVIATION_PCT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "OBRIX_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "OBRIX_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "OBRIX_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "OBRIX_SERVER_RATE_LIMIT")
	setStr(&cfg.Server.APIKey, "OBRIX_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "OBRIX_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "OBRIX_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "OBRIX_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "OBRIX_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "OBRIX_MODE")
	setStr(&cfg.LogLevel, "OBRIX_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
