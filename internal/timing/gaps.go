package timing

import (
	"sort"
	"time"
)

// MinGapMinutes is the smallest stretch of free time worth targeting.
const MinGapMinutes = 30

// ScheduleGaps finds free windows of at least MinGapMinutes inside
// [from, to]: before the first event, between consecutive events, and after
// the last one. With zero events the entire window is a single gap.
// Overlapping events are handled by tracking the furthest end seen.
func ScheduleGaps(events []CalendarEvent, from, to time.Time) []ScheduleGap {
	if !to.After(from) {
		return nil
	}

	inWindow := make([]CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.End().After(from) && ev.StartTime.Before(to) {
			inWindow = append(inWindow, ev)
		}
	}
	if len(inWindow) == 0 {
		return []ScheduleGap{newGap(from, to)}
	}

	sort.Slice(inWindow, func(i, j int) bool {
		return inWindow[i].StartTime.Before(inWindow[j].StartTime)
	})

	var gaps []ScheduleGap
	cursor := from
	for _, ev := range inWindow {
		if ev.StartTime.Sub(cursor) >= MinGapMinutes*time.Minute {
			gaps = append(gaps, newGap(cursor, ev.StartTime))
		}
		if end := ev.End(); end.After(cursor) {
			cursor = end
		}
	}
	if to.Sub(cursor) >= MinGapMinutes*time.Minute {
		gaps = append(gaps, newGap(cursor, to))
	}
	return gaps
}

func newGap(start, end time.Time) ScheduleGap {
	return ScheduleGap{
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
	}
}
