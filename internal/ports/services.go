package ports

import (
	"context"
	"net/http"

	"github.com/glassfocus/core/internal/domain/entities"
)

// StateService interface for the single-writer state engine
type StateService interface {
	State() *entities.State
	AddTask(ctx context.Context, req AddTaskRequest) (*entities.Task, error)
	ToggleTask(ctx context.Context, id int64) (*entities.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	AddBook(ctx context.Context, req AddBookRequest) (*entities.Book, error)
	ToggleBook(ctx context.Context, id int64) (*entities.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (entities.Settings, error)
	RunDailyRollover(ctx context.Context) error
	RefreshDailyStats(ctx context.Context)
}

// AnalyticsService interface for read-only reporting
type AnalyticsService interface {
	Report(ctx context.Context) *AnalyticsReport
}

// ShellService interface for the cache-manager context
type ShellService interface {
	Fetch(ctx context.Context, req *http.Request) (*CachedResponse, error)
	PostMessage(msg ShellMessage) error
}

// Notifier delivers end-of-day reminders. Payload formatting and display
// belong to the platform layer, not the core.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Request/Response Types

type AddTaskRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

type AddBookRequest struct {
	Title string `json:"title" validate:"required,max=300"`
}

// UpdateSettingsRequest carries partial settings changes; nil fields are
// left untouched.
type UpdateSettingsRequest struct {
	Notifications *bool `json:"notifications"`
	AutoArchive   *bool `json:"autoArchive"`
}

// Shell control messages
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageSync        = "SYNC"
)

// ShellMessage is one cross-context control message for the cache manager.
type ShellMessage struct {
	ID   string `json:"id"`
	Type string `json:"type" validate:"required,oneof=SKIP_WAITING SYNC"`
	Tag  string `json:"tag,omitempty"`
}

// WeeklyBucket is one day of the trailing-week report
type WeeklyBucket struct {
	Date      entities.DayKey `json:"date"`
	Completed int             `json:"completed"`
}

// Progress summarizes today's active list for the view layer
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// AnalyticsReport is the full read-only summary consumed by reporting views
type AnalyticsReport struct {
	TotalTasksCompleted    int            `json:"totalTasksCompleted"`
	ProductiveDays         int            `json:"productiveDays"`
	CurrentStreak          int            `json:"currentStreak"`
	BestStreak             int            `json:"bestStreak"`
	BooksReading           int            `json:"booksReading"`
	BooksCompleted         int            `json:"booksCompleted"`
	BooksCompletedThisYear int            `json:"booksCompletedThisYear"`
	Today                  Progress       `json:"today"`
	Weekly                 []WeeklyBucket `json:"weekly"`
	Monthly                [12]int        `json:"monthly"`
}
