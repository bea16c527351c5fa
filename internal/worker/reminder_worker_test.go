package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassfocus/core/internal/application/services"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// recordingNotifier captures delivered notifications
type recordingNotifier struct {
	mu     sync.Mutex
	bodies []string
}

func (n *recordingNotifier) Notify(ctx context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bodies)
}

type nullStore struct{}

func (nullStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ports.ErrDocumentNotFound
}
func (nullStore) Put(ctx context.Context, key string, value []byte) error { return nil }

func (nullStore) PutAll(ctx context.Context, docs map[string][]byte) error { return nil }

func (nullStore) Delete(ctx context.Context, key string) error { return nil }

func newReminderFixture(t *testing.T) (*services.StateService, *ReminderWorker, *recordingNotifier) {
	t.Helper()
	state := services.NewStateService(nullStore{}, time.UTC, logger.NewNop())
	state.Load(context.Background())

	notifier := &recordingNotifier{}
	w := NewReminderWorker(state, notifier, 4*time.Hour, time.UTC, logger.NewNop())
	return state, w, notifier
}

func TestNextFireTime(t *testing.T) {
	_, w, _ := newReminderFixture(t)

	// Morning: fires tonight at 20:00.
	w.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC), w.nextFireTime())

	// Late evening, past the reminder point: fires tomorrow.
	w.now = func() time.Time { return time.Date(2025, 6, 15, 22, 30, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 6, 16, 20, 0, 0, 0, time.UTC), w.nextFireTime())

	// Exactly at the reminder point: next one is tomorrow's.
	w.now = func() time.Time { return time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 6, 16, 20, 0, 0, 0, time.UTC), w.nextFireTime())
}

func TestFireRequiresOptInAndOpenTasks(t *testing.T) {
	state, w, notifier := newReminderFixture(t)
	ctx := context.Background()

	// Notifications off: nothing fires, even with open tasks.
	_, err := state.AddTask(ctx, ports.AddTaskRequest{Text: "open"})
	require.NoError(t, err)
	w.fire(ctx)
	assert.Zero(t, notifier.count())

	// Enabled with open tasks: one notification.
	on := true
	_, err = state.UpdateSettings(ctx, ports.UpdateSettingsRequest{Notifications: &on})
	require.NoError(t, err)
	w.fire(ctx)
	assert.Equal(t, 1, notifier.count())
}

func TestFireSkipsWhenAllDone(t *testing.T) {
	state, w, notifier := newReminderFixture(t)
	ctx := context.Background()

	on := true
	_, err := state.UpdateSettings(ctx, ports.UpdateSettingsRequest{Notifications: &on})
	require.NoError(t, err)

	task, err := state.AddTask(ctx, ports.AddTaskRequest{Text: "done"})
	require.NoError(t, err)
	_, err = state.ToggleTask(ctx, task.ID)
	require.NoError(t, err)

	w.fire(ctx)
	assert.Zero(t, notifier.count())
}

func TestRescheduleDoesNotBlock(t *testing.T) {
	_, w, _ := newReminderFixture(t)

	// Repeated calls without a running worker must never block.
	for i := 0; i < 10; i++ {
		w.Reschedule()
	}
}

func TestRescheduleRearmsRunningWorker(t *testing.T) {
	_, w, _ := newReminderFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	w.Reschedule()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
