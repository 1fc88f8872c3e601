package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/akbaridria/obrix/internal/domain"
)

// MetricsService defines the methods the metrics handler requires from the
// service layer.
type MetricsService interface {
	Get(ctx context.Context, id string) (domain.PoolMetrics, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.PoolMetrics, error)
	Latest(ctx context.Context, poolID string) (domain.PoolMetrics, error)
	CountPools(ctx context.Context) (int64, error)
}

// MetricsHandler serves computed pool metrics.
type MetricsHandler struct {
	metrics MetricsService
	logger  *slog.Logger
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(metrics MetricsService, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, logger: logger}
}

type listMetricsResponse struct {
	Metrics []domain.PoolMetrics `json:"metrics"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// ListMetrics returns metrics rows newest first.
// GET /api/metrics?limit=10&offset=0&protocol=uniswap&pool=0x...
func (h *MetricsHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.metrics.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list metrics failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list metrics")
		return
	}
	if rows == nil {
		rows = []domain.PoolMetrics{}
	}

	writeJSON(w, http.StatusOK, listMetricsResponse{
		Metrics: rows,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMetrics returns one metrics row.
// GET /api/metrics/{id}
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing metrics id")
		return
	}

	m, err := h.metrics.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "metrics not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get metrics failed",
			slog.String("metrics_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// LatestForPool returns the newest metrics of one pool.
// GET /api/pools/{id}/metrics/latest
func (h *MetricsHandler) LatestForPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.metrics.Latest(r.Context(), poolID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no metrics for pool")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: latest metrics failed",
			slog.String("pool_id", poolID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get latest metrics")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// CountPools reports how many distinct pools have metrics.
// GET /api/pools/count
func (h *MetricsHandler) CountPools(w http.ResponseWriter, r *http.Request) {
	n, err := h.metrics.CountPools(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count pools")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}
