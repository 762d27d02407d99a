// Package notify announces finished runs to external channels.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/models"
)

// Notifier announces a finished run.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, run *models.RunResult) error
}

// Multi fans a run out to several notifiers. Every notifier is tried; the
// errors are joined.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, run *models.RunResult) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, run); err != nil {
			slog.Warn("notification failed", "notifier", n.Name(), "run_id", run.RunID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifiers enabled in cfg. It returns nil when none
// is configured.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var m Multi
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		m = append(m, tg)
	}
	if cfg.WebhookURL != "" {
		m = append(m, NewWebhook(cfg.WebhookURL, cfg.WebhookSecret))
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
