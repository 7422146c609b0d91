package notify

import "time"

// ShouldDispatch is the single authority for "is the user allowed to see
// this now". Every delivery path (direct push, scheduled-queue pop, digest)
// must pass through it before attempting delivery.
//
// Checks, in order: per-source toggle, minimum priority, quiet hours
// (with the critical override).
func ShouldDispatch(n Notification, prefs Preferences, now time.Time) bool {
	if enabled, ok := prefs.Sources[n.Source]; ok && !enabled {
		return false
	}
	if n.Priority.Rank() < prefs.MinimumPriority.Rank() {
		return false
	}
	if InQuietHours(prefs.QuietHours, now) {
		return n.Priority == PriorityCritical && prefs.AllowCriticalInQuietHours
	}
	return true
}

// InQuietHours reports whether now falls inside the window.
// Windows wrap past midnight (22 → 7 covers 22:00–06:59); a degenerate
// window with start == end is always quiet.
func InQuietHours(q QuietHours, now time.Time) bool {
	if !q.Enabled {
		return false
	}
	h := now.Hour()
	start, end := q.StartHour, q.EndHour
	switch {
	case start == end:
		return true
	case start < end:
		return h >= start && h < end
	default:
		return h >= start || h < end
	}
}
