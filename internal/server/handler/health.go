package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is a dependency probed by the health check.
type Pinger func(ctx context.Context) error

// BlockSource reports the latest block the swap indexer has processed.
type BlockSource interface {
	FetchLatestBlock(ctx context.Context) (int64, error)
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	checks  map[string]Pinger
	indexer BlockSource
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checks maps a dependency name to
// its probe; indexer may be nil.
func NewHealthHandler(checks map[string]Pinger, indexer BlockSource, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, indexer: indexer, logger: logger}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	IndexerBlock int64             `json:"indexerBlock,omitempty"`
	Timestamp    string            `json:"timestamp"`
}

// HealthCheck probes every dependency and reports 503 when any is down. The
// indexer block is informational and never fails the check.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "handler: health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if h.indexer != nil {
		block, err := h.indexer.FetchLatestBlock(ctx)
		if err != nil {
			resp.Checks["indexer"] = "unreachable"
		} else {
			resp.Checks["indexer"] = "ok"
			resp.IndexerBlock = block
		}
	}

	writeJSON(w, status, resp)
}
