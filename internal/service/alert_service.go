package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/akbaridria/obrix/internal/domain"
)

// AlertsChannel is the signal bus channel carrying raised alerts.
const AlertsChannel = "ch:alerts"

// AlertNotifier delivers an alert to operators.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, a domain.Alert) error
}

// AlertService fans raised alerts out to the alert log, the notifier and the
// signal bus.
type AlertService struct {
	store    domain.AlertStore
	notifier AlertNotifier
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewAlertService creates an AlertService. notifier may be nil when no chat
// channel is configured.
func NewAlertService(store domain.AlertStore, notifier AlertNotifier, bus domain.SignalBus, logger *slog.Logger) *AlertService {
	return &AlertService{
		store:    store,
		notifier: notifier,
		bus:      bus,
		logger:   logger,
	}
}

// Raise records and delivers each alert. Delivery problems are logged; only a
// failure to write the alert log is returned.
func (s *AlertService) Raise(ctx context.Context, alerts []domain.Alert) error {
	for _, a := range alerts {
		if err := s.store.Log(ctx, a); err != nil {
			return fmt.Errorf("alert_service: log %s for pool %s: %w", a.Event, a.PoolID, err)
		}

		s.logger.InfoContext(ctx, "alert raised",
			slog.String("event", a.Event),
			slog.String("pool_id", a.PoolID),
			slog.Float64("value", a.Value),
			slog.Float64("threshold", a.Threshold),
		)

		if s.notifier != nil {
			if err := s.notifier.NotifyAlert(ctx, a); err != nil {
				s.logger.WarnContext(ctx, "alert_service: notify failed",
					slog.String("event", a.Event),
					slog.String("error", err.Error()),
				)
			}
		}

		evt, _ := json.Marshal(a)
		if err := s.bus.Publish(ctx, AlertsChannel, evt); err != nil {
			s.logger.WarnContext(ctx, "alert_service: publish alert failed",
				slog.String("event", a.Event),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// List returns logged alerts newest first.
func (s *AlertService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	alerts, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("alert_service: list: %w", err)
	}
	return alerts, nil
}
