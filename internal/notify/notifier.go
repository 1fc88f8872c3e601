// Package notify delivers metric alerts and worker errors to chat channels
// (Telegram, Discord), filtered by event type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/akbaridria/obrix/internal/domain"
)

// Notification is one message bound for every configured channel.
type Notification struct {
	Event string
	Title string
	Body  string
}

// Sender delivers notifications to one channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
	Name() string
}

// Notifier fans notifications out to its senders in parallel.
type Notifier struct {
	senders []Sender
	allowed map[string]bool // empty allows every event
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. Only events listed in events are
// delivered, unless events is empty.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether event would be delivered.
func (n *Notifier) Enabled(event string) bool {
	if len(n.senders) == 0 {
		return false
	}
	return len(n.allowed) == 0 || n.allowed[event]
}

// Notify delivers a notification for event. Every sender is attempted;
// failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled(event) {
		n.logger.DebugContext(ctx, "notification skipped", slog.String("event", event))
		return nil
	}

	msg := Notification{Event: event, Title: title, Body: message}
	errs := make([]error, len(n.senders))

	var g errgroup.Group
	for i, s := range n.senders {
		g.Go(func() error {
			if err := s.Send(ctx, msg); err != nil {
				n.logger.ErrorContext(ctx, "notification failed",
					slog.String("sender", s.Name()),
					slog.String("event", event),
					slog.String("error", err.Error()),
				)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// NotifyAlert formats a raised alert and delivers it.
func (n *Notifier) NotifyAlert(ctx context.Context, a domain.Alert) error {
	title, body := FormatAlert(a)
	return n.Notify(ctx, a.Event, title, body)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
