package worker

import (
	"context"
	"time"

	"github.com/glassfocus/core/internal/application/services"
	"github.com/glassfocus/core/internal/infrastructure/logger"
)

// RefreshWorker periodically re-derives today's stats and runs the day
// rollover when the clock crosses midnight while the process is up.
type RefreshWorker struct {
	state    *services.StateService
	interval time.Duration
	logger   *logger.Logger
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(state *services.StateService, interval time.Duration, appLogger *logger.Logger) *RefreshWorker {
	return &RefreshWorker{
		state:    state,
		interval: interval,
		logger:   appLogger.WithComponent("refresh_worker"),
	}
}

// Start runs the worker until ctx is cancelled
func (w *RefreshWorker) Start(ctx context.Context) {
	w.logger.Infow("Refresh worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infow("Refresh worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RefreshWorker) tick(ctx context.Context) {
	if err := w.state.RunDailyRollover(ctx); err != nil {
		w.logger.WithError(err).Errorw("Failed to run day rollover")
	}
	w.state.RefreshDailyStats(ctx)
}
