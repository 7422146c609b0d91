// Package deadline derives live priority for time-bound items and throttles
// repeat reminders per item.
package deadline

import (
	"time"

	"nudged/internal/notify"
)

// Item is a reminder-eligible, time-bound item as seen by this core.
type Item struct {
	ID        string
	Title     string
	Priority  notify.Priority
	DueAt     time.Time
	Completed bool
}

// Escalate computes the live priority of an item from its stored priority
// and the time remaining until it is due. The result is never persisted:
// every read recomputes it, so shrinking time-to-due ratchets priority up
// and nothing ever needs undoing.
//
// Completed items keep their stored priority. Past due forces critical;
// within 24h everything bumps one level; within 48h only items at medium
// or below bump; within 72h only low bumps.
func Escalate(stored notify.Priority, completed bool, dueAt, now time.Time) notify.Priority {
	if completed {
		return stored
	}
	hoursUntilDue := dueAt.Sub(now).Hours()
	switch {
	case hoursUntilDue <= 0:
		return notify.PriorityCritical
	case hoursUntilDue <= 24:
		return stored.Bump()
	case hoursUntilDue <= 48:
		if stored.Rank() <= notify.PriorityMedium.Rank() {
			return stored.Bump()
		}
		return stored
	case hoursUntilDue <= 72:
		if stored == notify.PriorityLow {
			return notify.PriorityMedium
		}
		return stored
	default:
		return stored
	}
}
