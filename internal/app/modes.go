package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akbaridria/obrix/internal/alert"
	s3blob "github.com/akbaridria/obrix/internal/blob/s3"
	"github.com/akbaridria/obrix/internal/domain"
	"github.com/akbaridria/obrix/internal/pipeline"
	"github.com/akbaridria/obrix/internal/server"
	"github.com/akbaridria/obrix/internal/server/handler"
	"github.com/akbaridria/obrix/internal/server/ws"
	"github.com/akbaridria/obrix/internal/service"
)

// services are the domain services shared by the worker and the server.
type services struct {
	metrics *service.MetricsService
	alerts  *service.AlertService
	jobs    *service.JobService
}

func (a *App) buildServices(deps *Dependencies) services {
	return services{
		metrics: service.NewMetricsService(deps.MetricsStore, deps.MetricsCache, deps.SignalBus, a.logger),
		alerts:  service.NewAlertService(deps.AlertStore, deps.Notifier, deps.SignalBus, a.logger),
		jobs:    service.NewJobService(deps.JobQueue),
	}
}

// source identifies the venue every computed row belongs to.
func (a *App) source() domain.Source {
	return domain.Source{
		Protocol: a.cfg.Worker.Protocol,
		Chain:    a.cfg.Worker.Chain,
		Version:  a.cfg.Worker.Version,
	}
}

// WorkerMode schedules and processes metrics jobs without serving HTTP.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startWorker(ctx, g, deps, a.buildServices(deps)); err != nil {
		return fmt.Errorf("worker mode: %w", err)
	}
	return g.Wait()
}

// ServerMode serves the HTTP and WebSocket API only.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// FullMode runs the worker and the server in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	if err := a.startWorker(ctx, g, deps, svcs); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	} else {
		a.logger.InfoContext(ctx, "server.enabled is false, HTTP API not started")
	}

	return g.Wait()
}

// startWorker launches the scheduler and processor orchestrator.
func (a *App) startWorker(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) error {
	if deps.Indexer == nil {
		return fmt.Errorf("subgraph.url is required to run the worker")
	}

	wc := a.cfg.Worker
	procDeps := pipeline.ProcessorDeps{
		Queue:    deps.JobQueue,
		Locks:    deps.LockManager,
		Fetcher:  deps.Indexer,
		Engine:   deps.Engine,
		Recorder: svcs.metrics,
		Notifier: deps.Notifier,
		Metrics:  deps.Metrics,
	}
	if deps.Archiver != nil {
		procDeps.Archiver = deps.Archiver
	}
	if a.cfg.Alerts.Enabled {
		procDeps.Evaluator = alert.NewEvaluator(alert.Thresholds{
			VolatilityAbove:    a.cfg.Alerts.VolatilityAbove,
			MeanReversionAbove: a.cfg.Alerts.MeanReversionAbove,
			TWAPDeviationPct:   a.cfg.Alerts.TWAPDeviationPct,
		}, deps.Engine)
		procDeps.Alerts = svcs.alerts
	}

	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Source:      a.source(),
		Lookback:    wc.Lookback.Duration,
		FetchLimit:  wc.FetchLimit,
		LockTTL:     wc.LockTTL.Duration,
		JobTimeout:  wc.JobTimeout.Duration,
		Concurrency: wc.Concurrency,
	}, procDeps, a.logger)

	var scheduler *pipeline.Scheduler
	if len(wc.Pools) > 0 {
		scheduler = pipeline.NewScheduler(svcs.jobs, wc.Pools, a.logger)
	} else {
		a.logger.WarnContext(ctx, "worker.pools is empty, only manually enqueued jobs will run")
	}

	orch := pipeline.NewOrchestrator(scheduler, processor, wc.Interval.Duration, wc.Consumer, a.logger)
	g.Go(func() error {
		return orch.Run(ctx)
	})
	return nil
}

// startHTTPServer builds the API handlers and serves them until ctx ends.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	checks := map[string]handler.Pinger{
		"postgres": deps.Postgres.Ping,
		"redis":    deps.Redis.Ping,
	}
	if deps.S3 != nil {
		checks["s3"] = deps.S3.Health
	}
	var indexer handler.BlockSource
	if deps.Indexer != nil {
		indexer = deps.Indexer
	}

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(checks, indexer, a.logger),
		Metrics: handler.NewMetricsHandler(svcs.metrics, a.logger),
		Alerts:  handler.NewAlertHandler(svcs.alerts, a.logger),
		Jobs:    handler.NewJobHandler(svcs.jobs, a.logger),
	}
	if deps.BlobReader != nil {
		src, root := a.source(), a.cfg.S3.Prefix
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, root, func(poolID string) string {
			return s3blob.PoolPrefix(root, src, poolID)
		}, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Channels:  []string{service.MetricsChannel, service.AlertsChannel},
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, server.Deps{
		Hub:      hub,
		Limiter:  deps.RateLimiter,
		Gatherer: deps.Registry,
	}, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
