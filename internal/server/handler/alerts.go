package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akbaridria/obrix/internal/domain"
)

// AlertService lists logged alerts.
type AlertService interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error)
}

// AlertHandler serves the alert log.
type AlertHandler struct {
	alerts AlertService
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(alerts AlertService, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, logger: logger}
}

// ListAlerts returns raised alerts newest first.
// GET /api/alerts?limit=10&offset=0&pool=0x...
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.alerts.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list alerts failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
