package notify

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Event types understood by the translator. Producers are free to emit
// other types; those surface as low-priority diagnostics rather than being
// silently dropped.
const (
	EventCalendarUpcoming  = "calendar.upcoming_event"
	EventDeadlineUpcoming  = "deadline.approaching"
	EventDeadlineOverdue   = "deadline.overdue_reminder"
	EventHabitStreakAtRisk = "habit.streak_at_risk"
	EventGoalMilestone     = "goal.milestone"
	EventSystemBoot        = "system.boot"
	EventProducerError     = "system.producer_error"
)

// Translate maps a typed event plus the current user context onto zero or
// one candidate notification. It performs no I/O. The result's priority is
// derived from the event's own priority, never hardcoded per type.
func Translate(ev Event, uctx UserContext) *Notification {
	if dropForMode(ev, uctx) {
		return nil
	}

	n := Notification{
		ID:        uuid.NewString(),
		Source:    ev.Source,
		Priority:  ev.Priority,
		Timestamp: ev.Timestamp,
		Metadata:  map[string]any{"eventId": ev.ID, "eventType": ev.Type},
	}

	switch ev.Type {
	case EventCalendarUpcoming:
		n.Title = "Upcoming: " + payloadString(ev, "title", "event")
		n.Message = fmt.Sprintf("Starts %s.", payloadString(ev, "startsIn", "soon"))

	case EventDeadlineUpcoming:
		n.Title = payloadString(ev, "title", "A deadline") + " is due " + payloadString(ev, "dueIn", "soon")
		n.Message = "Plan time for it before it becomes urgent."

	case EventDeadlineOverdue:
		n.Title = "Overdue: " + payloadString(ev, "title", "an item")
		n.Message = "This is past due. Mark it done or reschedule it."
		n.Actions = []Action{
			{Label: "Done", Action: "confirm:completed"},
			{Label: "Not yet", Action: "confirm:pending"},
		}

	case EventHabitStreakAtRisk:
		n.Title = payloadString(ev, "habit", "A habit") + " streak at risk"
		n.Message = fmt.Sprintf("You're at a %s-day streak. A quick session keeps it alive.",
			payloadString(ev, "streak", "multi"))

	case EventGoalMilestone:
		n.Title = "Milestone: " + payloadString(ev, "goal", "a goal")
		n.Message = payloadString(ev, "summary", "You reached a checkpoint.")

	case EventSystemBoot:
		n.Title = "nudged is up"
		n.Message = "Producers and sweeps are scheduled."

	case EventProducerError:
		n.Title = "Producer failed: " + payloadString(ev, "producer", "unknown")
		n.Message = payloadString(ev, "error", "no detail")

	default:
		// Coverage gap, not an error: visible to operators as a nudge.
		n.Priority = PriorityLow
		n.Title = "Unhandled event type"
		n.Message = fmt.Sprintf("No translation for %q from source %q.", ev.Type, ev.Source)
	}

	return &n
}

// dropForMode prunes nudges the current mode makes unwelcome.
// Deadline and system events always pass.
func dropForMode(ev Event, uctx UserContext) bool {
	if strings.HasPrefix(ev.Type, "deadline.") || strings.HasPrefix(ev.Type, "system.") {
		return false
	}
	switch uctx.Mode {
	case ModeRecovery:
		return ev.Priority == PriorityLow
	case ModeFocus:
		return ev.Priority.Rank() < PriorityHigh.Rank() && !strings.HasPrefix(ev.Type, "calendar.")
	default:
		return false
	}
}

func payloadString(ev Event, key, fallback string) string {
	if ev.Payload == nil {
		return fallback
	}
	v, ok := ev.Payload[key]
	if !ok {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}
