package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glassfocus/core/internal/application/services"
	"github.com/glassfocus/core/internal/domain/entities"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// ReminderWorker fires one end-of-day reminder per day, a configured lead
// time before midnight, when reminders are enabled and unfinished tasks
// remain. Toggling the setting reschedules or cancels the pending timer.
type ReminderWorker struct {
	state    *services.StateService
	notifier ports.Notifier
	lead     time.Duration
	loc      *time.Location
	logger   *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	reschedule chan struct{}
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(state *services.StateService, notifier ports.Notifier, lead time.Duration, loc *time.Location, appLogger *logger.Logger) *ReminderWorker {
	return &ReminderWorker{
		state:      state,
		notifier:   notifier,
		lead:       lead,
		loc:        loc,
		logger:     appLogger.WithComponent("reminder_worker"),
		now:        time.Now,
		reschedule: make(chan struct{}, 1),
	}
}

// Start runs the worker until ctx is cancelled
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Infow("Reminder worker started", "lead", w.lead.String())

	for {
		fireAt := w.nextFireTime()
		timer := time.NewTimer(time.Until(fireAt))

		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Infow("Reminder worker stopped")
			return
		case <-w.reschedule:
			timer.Stop()
			w.logger.Debugw("Reminder rescheduled")
		case <-timer.C:
			w.fire(ctx)
		}
	}
}

// Reschedule cancels the pending timer and arms a fresh one. Called when
// the notification settings change.
func (w *ReminderWorker) Reschedule() {
	select {
	case w.reschedule <- struct{}{}:
	default:
	}
}

// nextFireTime returns the next reminder point: lead before the coming
// midnight. If today's point already passed, it moves to tomorrow's.
func (w *ReminderWorker) nextFireTime() time.Time {
	now := w.now().In(w.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, w.loc).AddDate(0, 0, 1)
	fireAt := midnight.Add(-w.lead)
	if !fireAt.After(now) {
		fireAt = fireAt.AddDate(0, 0, 1)
	}
	return fireAt
}

func (w *ReminderWorker) fire(ctx context.Context) {
	settings := w.state.Settings()
	if !settings.Notifications || settings.NotificationPermission != entities.PermissionGranted {
		return
	}

	remaining := w.state.IncompleteCount()
	if remaining == 0 {
		return
	}

	body := fmt.Sprintf("You have %d unfinished tasks today. Finish strong!", remaining)
	if remaining == 1 {
		body = "You have 1 unfinished task today. Finish strong!"
	}
	if err := w.notifier.Notify(ctx, "GlassFocus", body); err != nil {
		w.logger.WithError(err).Errorw("Failed to deliver reminder")
		return
	}
	w.logger.Infow("Reminder delivered", "remaining", remaining)
}
