package notify

import (
	"context"
	"log/slog"
)

// Log writes reminders to the structured log and always succeeds. It is the
// fire-and-forget notifier for setups with no delivery channel.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log notifier. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, ownerID, message string) error {
	l.logger.InfoContext(ctx, "hoard reminder", "owner_id", ownerID, "message", message)
	return nil
}
