package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/akbaridria/obrix/internal/analytics"
	s3blob "github.com/akbaridria/obrix/internal/blob/s3"
	"github.com/akbaridria/obrix/internal/cache/redis"
	"github.com/akbaridria/obrix/internal/config"
	"github.com/akbaridria/obrix/internal/domain"
	"github.com/akbaridria/obrix/internal/instrumentation"
	"github.com/akbaridria/obrix/internal/notify"
	"github.com/akbaridria/obrix/internal/platform/subgraph"
	"github.com/akbaridria/obrix/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application modes need.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Postgres *postgres.Client
	Redis    *redis.Client
	S3       *s3blob.Client // nil when archiving is disabled

	// Stores
	MetricsStore domain.MetricsStore
	AlertStore   domain.AlertStore

	// Caches and coordination
	MetricsCache domain.MetricsCache
	RateLimiter  domain.RateLimiter
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus
	JobQueue     domain.JobQueue

	// Blob storage; nil when archiving is disabled.
	BlobReader domain.BlobReader
	Archiver   *s3blob.WindowArchiver

	// Indexer is nil when no subgraph URL is configured.
	Indexer *subgraph.Client

	Engine   *analytics.Engine
	Notifier *notify.Notifier

	Registry *prometheus.Registry
	Metrics  *instrumentation.Metrics
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Postgres = pgClient
	deps.MetricsStore = postgres.NewMetricsStore(pgClient.Pool())
	deps.AlertStore = postgres.NewAlertStore(pgClient.Pool())

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.MetricsCache = redis.NewMetricsCache(redisClient, cfg.Redis.CacheTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	queue, err := redis.NewJobQueue(ctx, redisClient)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: job queue: %w", err)
	}
	deps.JobQueue = queue

	// --- S3 blob storage (only when archiving is enabled) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.S3 = s3Client
		deps.BlobReader = s3Client
		deps.Archiver = s3blob.NewWindowArchiver(s3Client, cfg.S3.Prefix)
	}

	// --- Swap indexer ---
	if cfg.Subgraph.URL != "" {
		deps.Indexer = subgraph.NewClient(cfg.Subgraph.URL, cfg.Subgraph.APIKey, cfg.Subgraph.Timeout.Duration)
	}

	deps.Engine = analytics.New(analytics.Config{
		DefaultToken0Decimals: cfg.Analytics.DefaultToken0Decimals,
		DefaultToken1Decimals: cfg.Analytics.DefaultToken1Decimals,
		MaxMAWindow:           cfg.Analytics.MaxMAWindow,
		MinSwapsMeanReversion: cfg.Analytics.MinSwapsMeanReversion,
		MinSamplesHurst:       cfg.Analytics.MinSamplesHurst,
		CrossingWeight:        cfg.Analytics.CrossingWeight,
		HurstWeight:           cfg.Analytics.HurstWeight,
	})

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Prometheus ---
	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = instrumentation.NewMetrics(deps.Registry)

	return deps, cleanup, nil
}
