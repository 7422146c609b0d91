// Package agents contains producer agents run by the orchestrator.
package agents

import (
	"context"
	"fmt"
	"time"

	"nudged/internal/notify"
	"nudged/internal/timing"
)

// Calendar watches the calendar boundary and emits an upcoming-event nudge
// for entries starting within the lead window. Event ids are stable per
// calendar slot so re-observations deduplicate in the scheduled queue.
type Calendar struct {
	cal      timing.CalendarSource
	interval time.Duration
	lead     time.Duration
	now      func() time.Time
}

func NewCalendar(cal timing.CalendarSource, interval, lead time.Duration) *Calendar {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if lead <= 0 {
		lead = time.Hour
	}
	return &Calendar{cal: cal, interval: interval, lead: lead, now: time.Now}
}

func (c *Calendar) Name() string            { return "calendar" }
func (c *Calendar) Interval() time.Duration { return c.interval }

func (c *Calendar) Run(ctx context.Context, emit func(notify.Event)) error {
	now := c.now()
	events, err := c.cal.ScheduleEvents(ctx, now, now.Add(c.lead))
	if err != nil {
		return fmt.Errorf("calendar read: %w", err)
	}
	for _, ev := range events {
		startsIn := ev.StartTime.Sub(now)
		if startsIn <= 0 {
			continue
		}
		emit(notify.Event{
			ID:        fmt.Sprintf("cal:%d", ev.StartTime.Unix()),
			Source:    "calendar",
			Type:      notify.EventCalendarUpcoming,
			Priority:  notify.PriorityMedium,
			Timestamp: now,
			Payload: map[string]any{
				"startsIn": fmt.Sprintf("in %d minutes", int(startsIn.Minutes())),
			},
		})
	}
	return nil
}
