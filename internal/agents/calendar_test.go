package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"nudged/internal/notify"
	"nudged/internal/sources"
	"nudged/internal/timing"
)

func TestCalendarEmitsUpcoming(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cal := sources.NewMemoryCalendar(
		timing.CalendarEvent{StartTime: now.Add(30 * time.Minute), DurationMinutes: 60},
		timing.CalendarEvent{StartTime: now.Add(-10 * time.Minute), DurationMinutes: 30},
		timing.CalendarEvent{StartTime: now.Add(5 * time.Hour), DurationMinutes: 60},
	)
	a := NewCalendar(cal, 10*time.Minute, time.Hour)
	a.now = func() time.Time { return now }

	var got []notify.Event
	if err := a.Run(context.Background(), func(ev notify.Event) { got = append(got, ev) }); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("only the event inside the lead window qualifies, got %v", got)
	}
	ev := got[0]
	if ev.Type != notify.EventCalendarUpcoming || ev.Source != "calendar" {
		t.Fatalf("event: %+v", ev)
	}
	var again []notify.Event
	_ = a.Run(context.Background(), func(ev notify.Event) { again = append(again, ev) })
	if len(again) != 1 || again[0].ID != ev.ID {
		t.Fatalf("re-observation must reuse the stable id: %q vs %q", ev.ID, again[0].ID)
	}
}

type failingCalendar struct{}

func (failingCalendar) ScheduleEvents(context.Context, time.Time, time.Time) ([]timing.CalendarEvent, error) {
	return nil, errors.New("backend offline")
}

func TestCalendarPropagatesReadError(t *testing.T) {
	a := NewCalendar(failingCalendar{}, time.Minute, time.Hour)
	err := a.Run(context.Background(), func(notify.Event) { t.Fatal("no events on failure") })
	if err == nil {
		t.Fatal("read failure must surface to the orchestrator")
	}
}

func TestCalendarDefaults(t *testing.T) {
	a := NewCalendar(sources.NewMemoryCalendar(), 0, 0)
	if a.Interval() != 10*time.Minute {
		t.Fatalf("default interval: %v", a.Interval())
	}
	if a.lead != time.Hour {
		t.Fatalf("default lead: %v", a.lead)
	}
}
