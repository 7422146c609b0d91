package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nudged/internal/notify"
	"nudged/pkg/logx"
)

// each test runs against both drivers; sqlite gets a throwaway file.
func withStores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory(5))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := Open(Config{
			Driver:       "sqlite",
			Path:         filepath.Join(t.TempDir(), "nudged.db"),
			BusyTimeout:  time.Second,
			HistoryLimit: 5,
		}, logx.Nop())
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func TestScheduledQueue(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

		entries := []ScheduledNotification{
			{
				ID: "b",
				Notification: notify.Notification{
					Source:   "deadline",
					Title:    "second",
					Message:  "m2",
					Priority: notify.PriorityMedium,
					Metadata: map[string]any{"itemId": "hw-1"},
					Actions:  []notify.Action{{Label: "Done", Action: "confirm_done"}},
				},
				ScheduledFor: base.Add(2 * time.Hour),
				CreatedAt:    base,
				EventID:      "ev-2",
				Recurrence:   RecurDaily,
				Digest:       true,
			},
			{
				ID:           "a",
				Notification: notify.Notification{Source: "calendar", Title: "first", Message: "m1", Priority: notify.PriorityLow},
				ScheduledFor: base.Add(time.Hour),
				CreatedAt:    base,
			},
		}
		for _, e := range entries {
			if err := s.PutScheduled(ctx, e); err != nil {
				t.Fatalf("put %s: %v", e.ID, err)
			}
		}

		due, err := s.DueScheduled(ctx, base.Add(90*time.Minute))
		if err != nil || len(due) != 1 || due[0].ID != "a" {
			t.Fatalf("partial due: %v %v", due, err)
		}

		due, err = s.DueScheduled(ctx, base.Add(3*time.Hour))
		if err != nil || len(due) != 2 {
			t.Fatalf("full due: %v %v", due, err)
		}
		if due[0].ID != "a" || due[1].ID != "b" {
			t.Fatalf("due must order by scheduledFor: %s, %s", due[0].ID, due[1].ID)
		}

		got := due[1]
		if got.Notification.Title != "second" || got.Notification.Priority != notify.PriorityMedium {
			t.Fatalf("notification fields lost: %+v", got.Notification)
		}
		if got.Notification.Metadata["itemId"] != "hw-1" {
			t.Fatalf("metadata lost: %v", got.Notification.Metadata)
		}
		if len(got.Notification.Actions) != 1 || got.Notification.Actions[0].Action != "confirm_done" {
			t.Fatalf("actions lost: %v", got.Notification.Actions)
		}
		if got.Recurrence != RecurDaily || !got.Digest || got.EventID != "ev-2" {
			t.Fatalf("entry fields lost: %+v", got)
		}
		if !got.ScheduledFor.Equal(base.Add(2 * time.Hour)) {
			t.Fatalf("scheduledFor drifted: %v", got.ScheduledFor)
		}

		byEvent, err := s.ScheduledByEventID(ctx, "ev-2")
		if err != nil || byEvent == nil || byEvent.ID != "b" {
			t.Fatalf("by event id: %v %v", byEvent, err)
		}
		if byEvent, _ := s.ScheduledByEventID(ctx, "missing"); byEvent != nil {
			t.Fatalf("unknown event id must be nil")
		}

		deleted, err := s.DeleteScheduled(ctx, "a")
		if err != nil || !deleted {
			t.Fatalf("delete: %v %v", deleted, err)
		}
		deleted, err = s.DeleteScheduled(ctx, "a")
		if err != nil || deleted {
			t.Fatalf("double delete must report false: %v %v", deleted, err)
		}
	})
}

func TestReminderStateRoundTrip(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

		if st, err := s.ReminderState(ctx, "hw-1"); err != nil || st != nil {
			t.Fatalf("missing state must be nil: %v %v", st, err)
		}

		in := ReminderState{ItemID: "hw-1", ReminderCount: 2, LastReminderAt: now}
		if err := s.PutReminderState(ctx, in); err != nil {
			t.Fatal(err)
		}
		st, err := s.ReminderState(ctx, "hw-1")
		if err != nil || st == nil {
			t.Fatalf("read back: %v %v", st, err)
		}
		if st.ReminderCount != 2 || !st.LastReminderAt.Equal(now) {
			t.Fatalf("round trip: %+v", st)
		}
		if !st.LastConfirmationAt.IsZero() || st.LastConfirmedCompleted {
			t.Fatalf("unset confirmation fields must stay zero: %+v", st)
		}

		in.LastConfirmationAt = now.Add(time.Hour)
		in.LastConfirmedCompleted = true
		if err := s.PutReminderState(ctx, in); err != nil {
			t.Fatal(err)
		}
		list, err := s.ListReminderStates(ctx)
		if err != nil || len(list) != 1 || !list[0].LastConfirmedCompleted {
			t.Fatalf("list: %v %v", list, err)
		}

		if err := s.DeleteReminderState(ctx, "hw-1"); err != nil {
			t.Fatal(err)
		}
		if st, _ := s.ReminderState(ctx, "hw-1"); st != nil {
			t.Fatalf("deleted state still present: %+v", st)
		}
	})
}

func TestHistoryRing(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

		// Limit is 5; append 8 and expect only the newest 5 back, oldest first.
		for i := 0; i < 8; i++ {
			n := notify.Notification{
				ID:        string(rune('a' + i)),
				Source:    "test",
				Title:     "t",
				Message:   "m",
				Priority:  notify.PriorityLow,
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}
			if err := s.AppendHistory(ctx, n); err != nil {
				t.Fatal(err)
			}
		}

		hist, err := s.RecentHistory(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(hist) != 5 {
			t.Fatalf("ring must cap at 5, got %d", len(hist))
		}
		if hist[0].ID != "d" || hist[4].ID != "h" {
			t.Fatalf("ring must keep the newest entries oldest-first: %v", hist)
		}

		hist, _ = s.RecentHistory(ctx, 2)
		if len(hist) != 2 || hist[0].ID != "g" || hist[1].ID != "h" {
			t.Fatalf("explicit limit: %v", hist)
		}
	})
}

func TestPreferencesSingleton(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if p, err := s.Preferences(ctx); err != nil || p != nil {
			t.Fatalf("never-written preferences must be nil: %v %v", p, err)
		}

		p := notify.DefaultPreferences()
		p.MinimumPriority = notify.PriorityHigh
		p.QuietHours = notify.QuietHours{Enabled: true, StartHour: 22, EndHour: 7}
		p.Sources["calendar"] = false
		if err := s.PutPreferences(ctx, p); err != nil {
			t.Fatal(err)
		}

		got, err := s.Preferences(ctx)
		if err != nil || got == nil {
			t.Fatalf("read back: %v %v", got, err)
		}
		if got.MinimumPriority != notify.PriorityHigh || !got.QuietHours.Enabled || got.QuietHours.StartHour != 22 {
			t.Fatalf("round trip: %+v", got)
		}
		if enabled, ok := got.Sources["calendar"]; !ok || enabled {
			t.Fatalf("source toggle lost: %v", got.Sources)
		}

		got.MinimumPriority = notify.PriorityLow
		if err := s.PutPreferences(ctx, *got); err != nil {
			t.Fatal(err)
		}
		again, _ := s.Preferences(ctx)
		if again.MinimumPriority != notify.PriorityLow {
			t.Fatalf("overwrite lost: %+v", again)
		}
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must fail")
	}
}
