package timing

import (
	"testing"
	"time"
)

func day(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func TestScheduleGapsEmptyWindowIsOneGap(t *testing.T) {
	gaps := ScheduleGaps(nil, day(14, 0), day(15, 30))
	if len(gaps) != 1 {
		t.Fatalf("expected exactly one gap, got %d", len(gaps))
	}
	g := gaps[0]
	if !g.StartTime.Equal(day(14, 0)) || !g.EndTime.Equal(day(15, 30)) || g.DurationMinutes != 90 {
		t.Fatalf("unexpected gap %+v", g)
	}
}

func TestScheduleGapsAroundEvents(t *testing.T) {
	events := []CalendarEvent{
		{StartTime: day(10, 0), DurationMinutes: 60}, // 10:00-11:00
		{StartTime: day(12, 0), DurationMinutes: 30}, // 12:00-12:30
	}
	gaps := ScheduleGaps(events, day(9, 0), day(14, 0))
	want := []ScheduleGap{
		{day(9, 0), day(10, 0), 60},
		{day(11, 0), day(12, 0), 60},
		{day(12, 30), day(14, 0), 90},
	}
	if len(gaps) != len(want) {
		t.Fatalf("expected %d gaps, got %d: %+v", len(want), len(gaps), gaps)
	}
	for i, g := range gaps {
		if !g.StartTime.Equal(want[i].StartTime) || !g.EndTime.Equal(want[i].EndTime) || g.DurationMinutes != want[i].DurationMinutes {
			t.Errorf("gap %d: got %+v, want %+v", i, g, want[i])
		}
	}
}

func TestScheduleGapsSkipsShortGaps(t *testing.T) {
	events := []CalendarEvent{
		{StartTime: day(9, 20), DurationMinutes: 40}, // 20 min before first: too short
		{StartTime: day(10, 15), DurationMinutes: 45},
	}
	gaps := ScheduleGaps(events, day(9, 0), day(11, 20)) // 20 min tail: too short
	if len(gaps) != 0 {
		t.Fatalf("expected no gaps >= 30 minutes, got %+v", gaps)
	}
}

func TestScheduleGapsOverlappingEvents(t *testing.T) {
	events := []CalendarEvent{
		{StartTime: day(9, 0), DurationMinutes: 120}, // 9:00-11:00
		{StartTime: day(10, 0), DurationMinutes: 30}, // nested inside the first
	}
	gaps := ScheduleGaps(events, day(9, 0), day(12, 0))
	if len(gaps) != 1 {
		t.Fatalf("expected a single trailing gap, got %+v", gaps)
	}
	if !gaps[0].StartTime.Equal(day(11, 0)) {
		t.Errorf("gap should start after the furthest event end, got %v", gaps[0].StartTime)
	}
}
