package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/glassfocus/core/internal/domain/entities"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// StateService owns the application state document. It is the single writer:
// every mutation happens under its lock and is persisted before the call
// returns. Read access goes through deep copies.
type StateService struct {
	mu     sync.Mutex
	store  ports.DocumentStore
	logger *logger.Logger
	loc    *time.Location
	now    func() time.Time

	state      *entities.State
	lastOpened entities.DayKey
	saveFailed bool

	onSettingsChange func(entities.Settings)
}

// StateOption customizes a state service
type StateOption func(*StateService)

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) StateOption {
	return func(s *StateService) {
		s.now = now
	}
}

// NewStateService creates a new state service. Load must be called before
// the service is used.
func NewStateService(store ports.DocumentStore, loc *time.Location, appLogger *logger.Logger, opts ...StateOption) *StateService {
	s := &StateService{
		store:  store,
		logger: appLogger.WithComponent("state"),
		loc:    loc,
		now:    time.Now,
		state:  entities.NewState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnSettingsChange registers a hook invoked after every settings mutation,
// outside the state lock.
func (s *StateService) OnSettingsChange(fn func(entities.Settings)) {
	s.onSettingsChange = fn
}

// Load reconstructs the state from durable storage. It never fails the
// caller: a missing or unparseable document is replaced by its default and
// every other document still loads.
func (s *StateService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := entities.NewState()
	loadDocument(ctx, s, ports.DocTodos, &state.Todos)
	loadDocument(ctx, s, ports.DocArchive, &state.Archive)
	loadDocument(ctx, s, ports.DocBooks, &state.Books)
	loadDocument(ctx, s, ports.DocAnalytics, &state.Analytics)
	loadDocument(ctx, s, ports.DocSettings, &state.Settings)
	if state.Analytics.Daily == nil {
		state.Analytics.Daily = make(map[entities.DayKey]entities.DailyStat)
	}
	s.state = state

	s.lastOpened = ""
	raw, err := s.store.Get(ctx, ports.DocLastOpened)
	if err == nil {
		key, parseErr := entities.ParseDayKey(string(raw))
		if parseErr != nil {
			s.logger.Warnw("Invalid last-opened marker, treating as absent", "value", string(raw))
		} else {
			s.lastOpened = key
		}
	}
}

// loadDocument decodes into a scratch value so that a document which is
// valid JSON of the wrong shape cannot half-populate the target; the
// target keeps its default unless the whole document decodes.
func loadDocument[T any](ctx context.Context, s *StateService, key string, target *T) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		// Absent documents degrade to their defaults.
		return
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		s.logger.Warnw("Corrupt document replaced by default", "document", key, "error", err)
		return
	}
	*target = decoded
}

// State returns a deep copy of the full state for read-only consumers
func (s *StateService) State() *entities.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Settings returns the current settings
func (s *StateService) Settings() entities.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// IncompleteCount returns the number of incomplete tasks on the active list
func (s *StateService) IncompleteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Todos) - s.state.CompletedCount()
}

// AddTask adds a task to the front of the active list
func (s *StateService) AddTask(ctx context.Context, req ports.AddTaskRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task, err := entities.NewTask(s.nextTaskIDLocked(now), req.Text, now)
	if err != nil {
		return nil, err
	}

	s.state.Todos = append([]entities.Task{*task}, s.state.Todos...)
	s.refreshDailyLocked()
	s.persistLocked(ctx)

	s.logger.Infow("Task added", "task_id", task.ID)
	return task, nil
}

// ToggleTask flips a task's completed flag
func (s *StateService) ToggleTask(ctx context.Context, id int64) (*entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.state.FindTask(id)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	task.Completed = !task.Completed
	s.refreshDailyLocked()
	s.persistLocked(ctx)

	copied := *task
	return &copied, nil
}

// DeleteTask removes a task from the active list
func (s *StateService) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.FindTask(id); !ok {
		return entities.ErrTaskNotFound
	}

	filtered := s.state.Todos[:0]
	for _, t := range s.state.Todos {
		if t.ID != id {
			filtered = append(filtered, t)
		}
	}
	s.state.Todos = filtered
	s.refreshDailyLocked()
	s.persistLocked(ctx)

	return nil
}

// AddBook adds a book to the front of the reading list
func (s *StateService) AddBook(ctx context.Context, req ports.AddBookRequest) (*entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	book, err := entities.NewBook(s.nextBookIDLocked(now), req.Title, now)
	if err != nil {
		return nil, err
	}

	s.state.Books = append([]entities.Book{*book}, s.state.Books...)
	s.persistLocked(ctx)

	s.logger.Infow("Book added", "book_id", book.ID)
	return book, nil
}

// ToggleBook flips a book between reading and completed
func (s *StateService) ToggleBook(ctx context.Context, id int64) (*entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.state.FindBook(id)
	if !ok {
		return nil, entities.ErrBookNotFound
	}

	book.ToggleStatus(s.now())
	s.persistLocked(ctx)

	copied := *book
	return &copied, nil
}

// DeleteBook removes a book from the reading list
func (s *StateService) DeleteBook(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.FindBook(id); !ok {
		return entities.ErrBookNotFound
	}

	filtered := s.state.Books[:0]
	for _, b := range s.state.Books {
		if b.ID != id {
			filtered = append(filtered, b)
		}
	}
	s.state.Books = filtered
	s.persistLocked(ctx)

	return nil
}

// UpdateSettings applies a partial settings change and persists it. Turning
// notifications on records the permission grant; the registered hook lets
// the reminder scheduler cancel and rearm its pending timer.
func (s *StateService) UpdateSettings(ctx context.Context, req ports.UpdateSettingsRequest) (entities.Settings, error) {
	s.mu.Lock()

	if req.Notifications != nil {
		s.state.Settings.Notifications = *req.Notifications
		if *req.Notifications {
			s.state.Settings.NotificationPermission = entities.PermissionGranted
		}
	}
	if req.AutoArchive != nil {
		s.state.Settings.AutoArchive = *req.AutoArchive
	}

	s.persistLocked(ctx)
	settings := s.state.Settings
	s.mu.Unlock()

	if s.onSettingsChange != nil {
		s.onSettingsChange(settings)
	}
	return settings, nil
}

// RunDailyRollover closes out the previous day when a calendar-day boundary
// has been crossed since the marker was last recorded. Calling it again on
// the same day is a no-op, so it is safe both at startup and on a timer.
func (s *StateService) RunDailyRollover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := entities.NewDayKey(s.now().In(s.loc))

	switch {
	case s.lastOpened.IsZero():
		// First launch ever: nothing to archive, just record today.
	case s.lastOpened == today:
		return nil
	default:
		s.rollOverLocked(s.lastOpened)
		s.advanceStreakLocked(today)
	}

	s.lastOpened = today
	s.persistLocked(ctx)
	return nil
}

// rollOverLocked moves the previous day's tasks into the archive according
// to the auto-archive setting.
func (s *StateService) rollOverLocked(previous entities.DayKey) {
	if s.state.Settings.AutoArchive {
		if len(s.state.Todos) == 0 {
			return
		}
		entry := entities.NewArchiveEntry(previous, s.state.Todos)
		s.state.Archive = append([]entities.ArchiveEntry{entry}, s.state.Archive...)
		s.state.Todos = []entities.Task{}
		s.logger.Infow("Day rolled over", "date", previous, "archived", len(entry.Items))
		return
	}

	var completed, incomplete []entities.Task
	for _, t := range s.state.Todos {
		if t.Completed {
			completed = append(completed, t)
		} else {
			incomplete = append(incomplete, t)
		}
	}
	if len(completed) > 0 {
		entry := entities.NewArchiveEntry(previous, completed)
		s.state.Archive = append([]entities.ArchiveEntry{entry}, s.state.Archive...)
	}
	if incomplete == nil {
		incomplete = []entities.Task{}
	}
	s.state.Todos = incomplete
	s.logger.Infow("Day rolled over", "date", previous, "archived", len(completed), "carried", len(incomplete))
}

// RefreshDailyStats records today's completion counts and re-evaluates the
// streak. Safe to call any number of times per day.
func (s *StateService) RefreshDailyStats(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshDailyLocked()
	s.persistLocked(ctx)
}

func (s *StateService) refreshDailyLocked() {
	today := entities.NewDayKey(s.now().In(s.loc))
	s.state.Analytics.Daily[today] = entities.DailyStat{
		Completed: s.state.CompletedCount(),
		Total:     len(s.state.Todos),
	}
	s.advanceStreakLocked(today)
}

func (s *StateService) advanceStreakLocked(today entities.DayKey) {
	yesterday := today.Prev()
	s.state.Analytics.Streaks.Advance(
		today,
		yesterday,
		s.state.Analytics.Daily[today].Active(),
		s.state.Analytics.Daily[yesterday].Active(),
	)
}

// persistLocked writes all five documents plus the marker together. A
// failure keeps the in-memory state and is retried on the next mutation.
func (s *StateService) persistLocked(ctx context.Context) {
	docs := make(map[string][]byte, 6)
	encode := func(key string, v interface{}) {
		raw, err := json.Marshal(v)
		if err != nil {
			s.logger.Errorw("Failed to encode document", "document", key, "error", err)
			return
		}
		docs[key] = raw
	}

	encode(ports.DocTodos, s.state.Todos)
	encode(ports.DocArchive, s.state.Archive)
	encode(ports.DocBooks, s.state.Books)
	encode(ports.DocAnalytics, s.state.Analytics)
	encode(ports.DocSettings, s.state.Settings)
	if !s.lastOpened.IsZero() {
		docs[ports.DocLastOpened] = []byte(s.lastOpened)
	}

	if err := s.store.PutAll(ctx, docs); err != nil {
		s.saveFailed = true
		s.logger.Errorw("Failed to persist state, keeping in-memory copy", "error", err)
		return
	}
	if s.saveFailed {
		s.logger.Infow("State persisted after earlier failure")
	}
	s.saveFailed = false
}

// nextTaskIDLocked derives a unique time-based ID for a new task
func (s *StateService) nextTaskIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	for {
		if _, taken := s.state.FindTask(id); !taken {
			return id
		}
		id++
	}
}

func (s *StateService) nextBookIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	for {
		if _, taken := s.state.FindBook(id); !taken {
			return id
		}
		id++
	}
}
