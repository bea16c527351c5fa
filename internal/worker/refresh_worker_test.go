package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassfocus/core/internal/application/services"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

func TestRefreshWorkerTickRecordsStats(t *testing.T) {
	state := services.NewStateService(nullStore{}, time.UTC, logger.NewNop())
	state.Load(context.Background())

	task, err := state.AddTask(context.Background(), ports.AddTaskRequest{Text: "work"})
	require.NoError(t, err)
	_, err = state.ToggleTask(context.Background(), task.ID)
	require.NoError(t, err)

	w := NewRefreshWorker(state, time.Minute, logger.NewNop())
	w.tick(context.Background())

	snapshot := state.State()
	assert.Equal(t, 1, snapshot.Analytics.Streaks.Current)
	assert.Len(t, snapshot.Analytics.Daily, 1)
}

func TestRefreshWorkerStopsOnCancel(t *testing.T) {
	state := services.NewStateService(nullStore{}, time.UTC, logger.NewNop())
	state.Load(context.Background())

	w := NewRefreshWorker(state, 10*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
