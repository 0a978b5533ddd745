// Package notify dispatches committed status changes to the outside world.
// Notifiers run after commit and never fail the operation that triggered
// them.
package notify

import (
	"context"
	"log/slog"

	"certflow/internal/lifecycle/models"
)

// LogNotifier writes each status change to the structured log. It is the
// default when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) StatusChanged(ctx context.Context, change models.StatusChange) {
	n.logger.InfoContext(ctx, "application status changed",
		"application_id", change.ApplicationID,
		"account_id", change.AccountID,
		"action", change.Action,
		"from", change.From,
		"to", change.To,
	)
}
