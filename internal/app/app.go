// Package app runs the metrics service in one of its modes. It wires the
// stores, caches, archive and indexer, then starts the worker, the HTTP
// server, or both.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/akbaridria/obrix/internal/config"
)

type runner func(a *App, ctx context.Context, deps *Dependencies) error

var runners = map[string]runner{
	"worker": (*App).WorkerMode,
	"server": (*App).ServerMode,
	"full":   (*App).FullMode,
}

// Modes lists the supported run modes.
func Modes() []string {
	out := make([]string, 0, len(runners))
	for m := range runners {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// App owns the configuration and the cleanup hooks registered by Wire.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies and blocks in the configured mode until ctx is
// cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(strings.TrimSpace(a.cfg.Mode))
	run, ok := runners[mode]
	if !ok {
		return fmt.Errorf("app: unsupported mode %q (want one of %s)", a.cfg.Mode, strings.Join(Modes(), ", "))
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logger.InfoContext(ctx, "dependencies ready",
		slog.String("mode", mode),
		slog.Bool("archive", deps.Archiver != nil),
		slog.Bool("indexer", deps.Indexer != nil),
		slog.Int("pools", len(a.cfg.Worker.Pools)),
	)
	return run(a, ctx, deps)
}

// Close runs cleanup hooks in reverse order. Calling it again is a no-op.
func (a *App) Close() {
	if len(a.closers) == 0 {
		return
	}
	a.logger.Info("releasing resources")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
