// Package timing picks delivery times for deferrable notifications.
//
// The engine looks for free windows in the user's calendar over the next
// day, generates a few candidate times per window, and scores them against
// historical completion behavior and the current user context. Urgent items
// bypass it entirely.
package timing

import (
	"context"
	"time"

	"nudged/internal/notify"
)

// CalendarEvent is the minimal calendar shape the engine consumes.
type CalendarEvent struct {
	StartTime       time.Time
	DurationMinutes int
}

func (e CalendarEvent) End() time.Time {
	return e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// CalendarSource reads the user's schedule for a window.
type CalendarSource interface {
	ScheduleEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error)
}

// ContextSource reads the user's current energy/stress/mode.
type ContextSource interface {
	UserContext(ctx context.Context) (notify.UserContext, error)
}

// HistorySource provides timestamps of past "item marked done" moments.
type HistorySource interface {
	CompletionTimes(ctx context.Context) ([]time.Time, error)
}

// ScheduleGap is a stretch of free time between calendar events.
type ScheduleGap struct {
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
}
