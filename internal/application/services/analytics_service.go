package services

import (
	"context"
	"time"

	"github.com/glassfocus/core/internal/domain/entities"
	"github.com/glassfocus/core/internal/ports"
)

// AnalyticsService derives read-only summary statistics from the state.
// It never mutates anything; absent data defaults to zero.
type AnalyticsService struct {
	state *StateService
	loc   *time.Location
	now   func() time.Time
}

// AnalyticsOption customizes an analytics service
type AnalyticsOption func(*AnalyticsService)

// WithAnalyticsClock overrides the time source, for tests
func WithAnalyticsClock(now func() time.Time) AnalyticsOption {
	return func(s *AnalyticsService) {
		s.now = now
	}
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(state *StateService, loc *time.Location, opts ...AnalyticsOption) *AnalyticsService {
	s := &AnalyticsService{
		state: state,
		loc:   loc,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report builds the full summary consumed by reporting views
func (s *AnalyticsService) Report(ctx context.Context) *ports.AnalyticsReport {
	state := s.state.State()
	now := s.now().In(s.loc)

	report := &ports.AnalyticsReport{
		CurrentStreak: state.Analytics.Streaks.Current,
		BestStreak:    state.Analytics.Streaks.Best,
	}

	for _, stat := range state.Analytics.Daily {
		report.TotalTasksCompleted += stat.Completed
		if stat.Active() {
			report.ProductiveDays++
		}
	}

	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc)
	for _, book := range state.Books {
		switch book.Status {
		case entities.BookStatusReading:
			report.BooksReading++
		case entities.BookStatusCompleted:
			report.BooksCompleted++
			if book.CompletedDate != nil && !book.CompletedDate.Before(yearStart) {
				report.BooksCompletedThisYear++
			}
		}
	}

	report.Today = s.todayProgress(state)
	report.Weekly = s.weeklyBuckets(state, now)
	report.Monthly = s.monthlyBuckets(state, now)

	return report
}

func (s *AnalyticsService) todayProgress(state *entities.State) ports.Progress {
	progress := ports.Progress{
		Completed: state.CompletedCount(),
		Total:     len(state.Todos),
	}
	if progress.Total > 0 {
		progress.Percent = float64(progress.Completed) / float64(progress.Total) * 100
	}
	return progress
}

// weeklyBuckets maps the last 7 calendar days, oldest to newest, onto their
// completed counts.
func (s *AnalyticsService) weeklyBuckets(state *entities.State, now time.Time) []ports.WeeklyBucket {
	buckets := make([]ports.WeeklyBucket, 0, 7)
	for i := 6; i >= 0; i-- {
		key := entities.NewDayKey(now.AddDate(0, 0, -i))
		buckets = append(buckets, ports.WeeklyBucket{
			Date:      key,
			Completed: state.Analytics.Daily[key].Completed,
		})
	}
	return buckets
}

// monthlyBuckets sums completed counts per month of the current year.
func (s *AnalyticsService) monthlyBuckets(state *entities.State, now time.Time) [12]int {
	var buckets [12]int
	for key, stat := range state.Analytics.Daily {
		day, err := key.Time(s.loc)
		if err != nil {
			continue
		}
		if day.Year() == now.Year() {
			buckets[int(day.Month())-1] += stat.Completed
		}
	}
	return buckets
}
