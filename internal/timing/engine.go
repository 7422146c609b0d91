package timing

import (
	"context"
	"time"

	"nudged/internal/notify"
	"nudged/pkg/logx"
)

// lookahead is the window the engine searches for a better delivery time.
const lookahead = 24 * time.Hour

// Engine computes delivery times from calendar gaps, completion history and
// the current user context. All sources are injected; the engine itself
// holds no mutable state.
type Engine struct {
	cal     CalendarSource
	usrCtx  ContextSource
	history HistorySource
	now     func() time.Time
	log     logx.Logger
}

func NewEngine(cal CalendarSource, usrCtx ContextSource, history HistorySource, log logx.Logger) *Engine {
	return &Engine{cal: cal, usrCtx: usrCtx, history: history, now: time.Now, log: log}
}

// WithNow overrides the engine clock. Test hook.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// OptimalTime returns the best delivery time for a deferrable notification.
// Urgent items, empty calendars, source errors and windows with no usable
// candidate all degrade to "now".
func (e *Engine) OptimalTime(ctx context.Context, urgent bool) time.Time {
	now := e.now()
	if urgent {
		return now
	}

	events, err := e.cal.ScheduleEvents(ctx, now, now.Add(lookahead))
	if err != nil {
		e.log.Warn("calendar read failed, delivering now", logx.Err(err))
		return now
	}
	gaps := ScheduleGaps(events, now, now.Add(lookahead))
	if len(gaps) == 0 {
		return now
	}

	uctx, err := e.usrCtx.UserContext(ctx)
	if err != nil {
		uctx = notify.DefaultUserContext()
	}
	var completions []time.Time
	if e.history != nil {
		if c, err := e.history.CompletionTimes(ctx); err == nil {
			completions = c
		}
	}
	peaks := CompletionPeaks(completions)

	best := time.Time{}
	bestScore := -1
	for _, gap := range gaps {
		for _, cand := range CandidateTimes(gap) {
			if cand.Before(now) {
				continue
			}
			if s := ScoreTime(cand, now, uctx, peaks); s > bestScore {
				best, bestScore = cand, s
			}
		}
	}
	if bestScore < 0 {
		return now
	}
	return best
}

// CandidateTimes generates one to three delivery candidates inside a gap,
// depending on its size.
func CandidateTimes(gap ScheduleGap) []time.Time {
	mid := gap.StartTime.Add(gap.EndTime.Sub(gap.StartTime) / 2)
	switch {
	case gap.DurationMinutes >= 120:
		return []time.Time{
			gap.StartTime.Add(15 * time.Minute),
			mid,
			gap.EndTime.Add(-30 * time.Minute),
		}
	case gap.DurationMinutes >= 60:
		return []time.Time{gap.StartTime.Add(10 * time.Minute), mid}
	default:
		return []time.Time{mid}
	}
}
