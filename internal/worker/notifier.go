package worker

import (
	"context"

	"github.com/glassfocus/core/internal/infrastructure/logger"
)

// LogNotifier writes reminders to the log. It stands in for a platform
// notification channel on headless deployments.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(appLogger *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: appLogger.WithComponent("notifier")}
}

// Notify records one reminder
func (n *LogNotifier) Notify(ctx context.Context, title, body string) error {
	n.logger.Infow("Notification", "title", title, "body", body)
	return nil
}
