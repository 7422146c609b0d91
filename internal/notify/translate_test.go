package notify

import (
	"testing"
	"time"
)

func testEvent(typ string, prio Priority) Event {
	return Event{
		ID:        "ev-1",
		Source:    "deadline",
		Type:      typ,
		Priority:  prio,
		Timestamp: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Payload:   map[string]any{"title": "Tax return"},
	}
}

func TestTranslateDerivesPriorityFromEvent(t *testing.T) {
	for _, prio := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		n := Translate(testEvent(EventDeadlineOverdue, prio), DefaultUserContext())
		if n == nil {
			t.Fatalf("expected a notification for %s", prio)
		}
		if n.Priority != prio {
			t.Errorf("priority %s not carried through, got %s", prio, n.Priority)
		}
	}
}

func TestTranslateUnknownType(t *testing.T) {
	ev := testEvent("nutrition.window_closing", PriorityHigh)
	n := Translate(ev, DefaultUserContext())
	if n == nil {
		t.Fatalf("unknown event types must not be dropped silently")
	}
	if n.Priority != PriorityLow {
		t.Errorf("diagnostic notification should be low priority, got %s", n.Priority)
	}
	if n.Metadata["eventType"] != ev.Type {
		t.Errorf("diagnostic should name the unhandled type")
	}
}

func TestTranslateModePruning(t *testing.T) {
	recovery := UserContext{EnergyLevel: EnergyLow, StressLevel: StressHigh, Mode: ModeRecovery}
	habit := testEvent(EventHabitStreakAtRisk, PriorityLow)
	habit.Source = "habit"
	if Translate(habit, recovery) != nil {
		t.Errorf("recovery mode should drop low-priority habit nudges")
	}

	// Deadline events always pass regardless of mode.
	overdue := testEvent(EventDeadlineOverdue, PriorityLow)
	if Translate(overdue, recovery) == nil {
		t.Errorf("deadline events must never be pruned by mode")
	}

	focus := UserContext{EnergyLevel: EnergyHigh, StressLevel: StressLow, Mode: ModeFocus}
	goal := testEvent(EventGoalMilestone, PriorityMedium)
	goal.Source = "goal"
	if Translate(goal, focus) != nil {
		t.Errorf("focus mode should drop sub-high goal nudges")
	}
}

func TestTranslateOverdueCarriesActions(t *testing.T) {
	n := Translate(testEvent(EventDeadlineOverdue, PriorityCritical), DefaultUserContext())
	if n == nil || len(n.Actions) != 2 {
		t.Fatalf("overdue reminder should offer confirm actions, got %+v", n)
	}
}
