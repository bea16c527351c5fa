package entities

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrEmptyTaskText     = errors.New("task text cannot be empty")
	ErrEmptyBookTitle    = errors.New("book title cannot be empty")
	ErrInvalidBookStatus = errors.New("invalid book status")
	ErrInvalidPermission = errors.New("invalid notification permission")
)

// Enums and types
type BookStatus string

const (
	BookStatusReading   BookStatus = "reading"
	BookStatusCompleted BookStatus = "completed"
)

type NotificationPermission string

const (
	PermissionDefault NotificationPermission = "default"
	PermissionGranted NotificationPermission = "granted"
	PermissionDenied  NotificationPermission = "denied"
)

// Task represents a single item on the active list
type Task struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTask creates a task from user input. The text must be non-empty after
// trimming; the ID is derived from the creation time.
func NewTask(id int64, text string, now time.Time) (*Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTaskText
	}
	return &Task{
		ID:        id,
		Text:      text,
		Completed: false,
		CreatedAt: now,
	}, nil
}

// ArchiveEntry is one closed-out day in the history. Items are snapshots
// taken at archival time, never live references to active tasks.
type ArchiveEntry struct {
	Date  DayKey `json:"date"`
	Items []Task `json:"items"`
}

// NewArchiveEntry snapshots the given tasks under the given day label.
func NewArchiveEntry(date DayKey, items []Task) ArchiveEntry {
	snapshot := make([]Task, len(items))
	copy(snapshot, items)
	return ArchiveEntry{Date: date, Items: snapshot}
}

// Book represents an item on the reading list
type Book struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        BookStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedDate *time.Time `json:"completedDate"`
}

// NewBook creates a book in reading status
func NewBook(id int64, title string, now time.Time) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyBookTitle
	}
	return &Book{
		ID:        id,
		Title:     title,
		Status:    BookStatusReading,
		CreatedAt: now,
	}, nil
}

// ToggleStatus flips the book between reading and completed. CompletedDate
// is set exactly when the status is completed.
func (b *Book) ToggleStatus(now time.Time) {
	if b.Status == BookStatusReading {
		b.Status = BookStatusCompleted
		b.CompletedDate = &now
	} else {
		b.Status = BookStatusReading
		b.CompletedDate = nil
	}
}

// IsCompleted returns true if the book has been finished
func (b *Book) IsCompleted() bool {
	return b.Status == BookStatusCompleted
}

// DailyStat holds the completion counts recorded for one calendar day
type DailyStat struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Active reports whether the day counts toward a streak
func (d DailyStat) Active() bool {
	return d.Completed > 0
}

// Streaks tracks consecutive-active-day continuity
type Streaks struct {
	Current    int    `json:"current"`
	Best       int    `json:"best"`
	LastActive DayKey `json:"lastActive,omitempty"`
}

// Advance applies one streak evaluation for today. It is idempotent within a
// day: once today has been credited, repeated calls with the same inputs
// leave the record unchanged. Best never decreases and is always >= Current.
func (s *Streaks) Advance(today, yesterday DayKey, activeToday, activeYesterday bool) {
	if activeToday {
		switch s.LastActive {
		case yesterday:
			s.Current++
		case today:
			// already counted this day
		default:
			s.Current = 1
		}
		s.LastActive = today
	} else if !activeYesterday && s.LastActive != today {
		s.Current = 0
	}

	if s.Current > s.Best {
		s.Best = s.Current
	}
}

// Analytics is the per-day history plus the streak record
type Analytics struct {
	Daily   map[DayKey]DailyStat `json:"daily"`
	Streaks Streaks              `json:"streaks"`
}

// DefaultAnalytics returns an empty history with a zero streak record
func DefaultAnalytics() Analytics {
	return Analytics{Daily: make(map[DayKey]DailyStat)}
}

// Settings holds the user-facing configuration flags
type Settings struct {
	Notifications          bool                   `json:"notifications"`
	AutoArchive            bool                   `json:"autoArchive"`
	NotificationPermission NotificationPermission `json:"notificationPermission"`
}

// DefaultSettings returns the documented defaults: notifications off,
// auto-archive on, permission not yet requested.
func DefaultSettings() Settings {
	return Settings{
		Notifications:          false,
		AutoArchive:            true,
		NotificationPermission: PermissionDefault,
	}
}

// State is the full application document. It has exactly one writer context
// at a time; components receive it by reference from its owner.
type State struct {
	Todos     []Task         `json:"todos"`
	Archive   []ArchiveEntry `json:"archive"`
	Books     []Book         `json:"books"`
	Analytics Analytics      `json:"analytics"`
	Settings  Settings       `json:"settings"`
}

// NewState returns a state document with every field at its default
func NewState() *State {
	return &State{
		Todos:     []Task{},
		Archive:   []ArchiveEntry{},
		Books:     []Book{},
		Analytics: DefaultAnalytics(),
		Settings:  DefaultSettings(),
	}
}

// CompletedCount returns the number of completed tasks on the active list
func (s *State) CompletedCount() int {
	count := 0
	for _, t := range s.Todos {
		if t.Completed {
			count++
		}
	}
	return count
}

// FindTask returns the active task with the given ID
func (s *State) FindTask(id int64) (*Task, bool) {
	for i := range s.Todos {
		if s.Todos[i].ID == id {
			return &s.Todos[i], true
		}
	}
	return nil, false
}

// FindBook returns the book with the given ID
func (s *State) FindBook(id int64) (*Book, bool) {
	for i := range s.Books {
		if s.Books[i].ID == id {
			return &s.Books[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the state for read-only consumers
func (s *State) Clone() *State {
	clone := &State{
		Todos:    make([]Task, len(s.Todos)),
		Archive:  make([]ArchiveEntry, len(s.Archive)),
		Books:    make([]Book, len(s.Books)),
		Settings: s.Settings,
	}
	copy(clone.Todos, s.Todos)
	copy(clone.Books, s.Books)
	for i := range clone.Books {
		if clone.Books[i].CompletedDate != nil {
			d := *clone.Books[i].CompletedDate
			clone.Books[i].CompletedDate = &d
		}
	}
	for i, entry := range s.Archive {
		clone.Archive[i] = NewArchiveEntry(entry.Date, entry.Items)
	}
	clone.Analytics = Analytics{
		Daily:   make(map[DayKey]DailyStat, len(s.Analytics.Daily)),
		Streaks: s.Analytics.Streaks,
	}
	for k, v := range s.Analytics.Daily {
		clone.Analytics.Daily[k] = v
	}
	return clone
}

// Utility methods
func (bs BookStatus) IsValid() bool {
	switch bs {
	case BookStatusReading, BookStatusCompleted:
		return true
	default:
		return false
	}
}

func (np NotificationPermission) IsValid() bool {
	switch np {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return true
	default:
		return false
	}
}
