package deadline

import (
	"context"
	"testing"
	"time"

	"nudged/internal/notify"
	"nudged/internal/storage"
	"nudged/pkg/logx"
)

type memItems struct {
	items map[string]*Item
}

func newMemItems(items ...Item) *memItems {
	m := &memItems{items: make(map[string]*Item)}
	for i := range items {
		it := items[i]
		m.items[it.ID] = &it
	}
	return m
}

func (m *memItems) Items(context.Context) ([]Item, error) {
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	return out, nil
}

func (m *memItems) SetCompleted(_ context.Context, itemID string, completed bool) (bool, error) {
	it, ok := m.items[itemID]
	if !ok {
		return false, nil
	}
	it.Completed = completed
	return true, nil
}

func newTestTracker(items ...Item) (*Tracker, *memItems) {
	src := newMemItems(items...)
	return NewTracker(src, storage.NewMemory(storage.DefaultHistoryLimit), logx.Nop()), src
}

func TestReminderCooldown(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cooldown := 180 * time.Minute

	tr, _ := newTestTracker(Item{ID: "hw-1", Title: "assignment", Priority: notify.PriorityMedium, DueAt: due})

	at := func(m int) time.Time { return due.Add(time.Duration(m) * time.Minute) }

	list, err := tr.OverdueRequiringReminder(ctx, at(5), cooldown)
	if err != nil || len(list) != 1 {
		t.Fatalf("never-reminded overdue item must be due: %v %v", list, err)
	}
	if _, err := tr.RecordReminder(ctx, "hw-1", at(5), cooldown); err != nil {
		t.Fatalf("RecordReminder: %v", err)
	}

	list, _ = tr.OverdueRequiringReminder(ctx, at(10), cooldown)
	if len(list) != 0 {
		t.Fatalf("item inside cooldown must be suppressed, got %v", list)
	}

	// 185 minutes after the reminder the window has elapsed.
	list, _ = tr.OverdueRequiringReminder(ctx, at(190), cooldown)
	if len(list) != 1 {
		t.Fatalf("item past cooldown must be due again, got %v", list)
	}
}

func TestOverdueListIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(
		Item{ID: "a", DueAt: now.Add(-time.Hour)},
		Item{ID: "b", DueAt: now.Add(time.Hour)},
		Item{ID: "c", DueAt: now.Add(-time.Hour), Completed: true},
	)

	first, err := tr.OverdueRequiringReminder(ctx, now, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := tr.OverdueRequiringReminder(ctx, now, time.Hour)
	if len(first) != 1 || len(second) != 1 || first[0].ID != "a" || second[0].ID != "a" {
		t.Fatalf("repeated listing without RecordReminder changed the set: %v then %v", first, second)
	}
}

func TestRecordReminderUnknownItem(t *testing.T) {
	tr, _ := newTestTracker()
	st, err := tr.RecordReminder(context.Background(), "ghost", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("unknown item must not error: %v", err)
	}
	if st != nil {
		t.Fatalf("unknown item must yield nil state, got %+v", st)
	}
}

func TestRecordReminderCounts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(Item{ID: "x", DueAt: now.Add(-time.Hour)})

	st1, err := tr.RecordReminder(ctx, "x", now, 3*time.Hour)
	if err != nil || st1.ReminderCount != 1 || !st1.LastReminderAt.Equal(now) {
		t.Fatalf("first reminder: %+v %v", st1, err)
	}
	later := now.Add(4 * time.Hour)
	st2, _ := tr.RecordReminder(ctx, "x", later, 3*time.Hour)
	if st2.ReminderCount != 2 || !st2.LastReminderAt.Equal(later) {
		t.Fatalf("second reminder: %+v", st2)
	}
	if !st2.LastConfirmationAt.IsZero() {
		t.Fatalf("reminders must not touch confirmation fields")
	}
}

func TestRecordReminderRechecksCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cooldown := 3 * time.Hour
	tr, _ := newTestTracker(Item{ID: "x", DueAt: now.Add(-time.Hour)})

	// Two sweeps both saw the item as due before either recorded. Only
	// the first write may land.
	st1, err := tr.RecordReminder(ctx, "x", now, cooldown)
	if err != nil || st1 == nil || st1.ReminderCount != 1 {
		t.Fatalf("first record: %+v %v", st1, err)
	}
	st2, err := tr.RecordReminder(ctx, "x", now.Add(time.Minute), cooldown)
	if err != nil {
		t.Fatal(err)
	}
	if st2 != nil {
		t.Fatalf("record inside cooldown must be a no-op, got %+v", st2)
	}

	st3, _ := tr.RecordReminder(ctx, "x", now.Add(cooldown+time.Minute), cooldown)
	if st3 == nil || st3.ReminderCount != 2 {
		t.Fatalf("record past cooldown must land: %+v", st3)
	}
}

func TestConfirmStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr, src := newTestTracker(Item{ID: "x", DueAt: now.Add(-time.Hour)})

	ok, err := tr.ConfirmStatus(ctx, "x", true, now)
	if err != nil || !ok {
		t.Fatalf("ConfirmStatus: %v %v", ok, err)
	}
	if !src.items["x"].Completed {
		t.Fatalf("confirmation must flip the item's completion flag")
	}

	times, err := tr.CompletionTimes(ctx)
	if err != nil || len(times) != 1 || !times[0].Equal(now) {
		t.Fatalf("confirmed completion must feed history: %v %v", times, err)
	}

	ok, err = tr.ConfirmStatus(ctx, "ghost", true, now)
	if err != nil || ok {
		t.Fatalf("unknown item must report false without error: %v %v", ok, err)
	}

	// Confirming "not done" overwrites the earlier confirmation.
	if _, err := tr.ConfirmStatus(ctx, "x", false, now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	times, _ = tr.CompletionTimes(ctx)
	if len(times) != 0 {
		t.Fatalf("not-done confirmation must drop the item from history, got %v", times)
	}
}

func TestItemDeletedDropsState(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(Item{ID: "x", DueAt: now.Add(-time.Hour)})

	if _, err := tr.RecordReminder(ctx, "x", now, 3*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := tr.ItemDeleted(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	list, _ := tr.OverdueRequiringReminder(ctx, now.Add(time.Minute), 24*time.Hour)
	if len(list) != 1 {
		t.Fatalf("after state deletion the item counts as never reminded, got %v", list)
	}
}
