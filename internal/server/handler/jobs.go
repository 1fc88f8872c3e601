package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/akbaridria/obrix/internal/domain"
)

// JobService enqueues metrics jobs.
type JobService interface {
	Enqueue(ctx context.Context, poolID string) (domain.MetricsJob, error)
}

// JobHandler lets operators trigger a computation outside the schedule.
type JobHandler struct {
	jobs   JobService
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

type enqueueRequest struct {
	PoolID string `json:"poolId"`
}

// EnqueueJob queues a metrics job for one pool.
// POST /api/jobs {"poolId":"0x..."}
func (h *JobHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), req.PoolID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPoolID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: enqueue job failed",
			slog.String("pool_id", req.PoolID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	h.logger.InfoContext(r.Context(), "handler: job enqueued",
		slog.String("job_id", job.ID),
		slog.String("pool_id", job.PoolID),
	)
	writeJSON(w, http.StatusAccepted, job)
}
