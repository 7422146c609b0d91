package deadline

import (
	"context"
	"sync"
	"time"

	"nudged/internal/storage"
	"nudged/pkg/logx"
)

// ItemSource is the boundary to whatever owns the time-bound items
// (assignment tracker, todo store, ...). This core only reads items and
// flips their completion flag on explicit user confirmation.
type ItemSource interface {
	Items(ctx context.Context) ([]Item, error)
	SetCompleted(ctx context.Context, itemID string, completed bool) (bool, error)
}

// Tracker owns reminder cooldown bookkeeping on top of the store.
//
// RecordReminder re-checks the cooldown under its mutex before writing,
// so two racing sweeps cannot both record a reminder inside the same
// cooldown window even though the overdue listing runs unlocked.
type Tracker struct {
	mu    sync.Mutex
	items ItemSource
	store storage.Store
	log   logx.Logger
}

func NewTracker(items ItemSource, store storage.Store, log logx.Logger) *Tracker {
	return &Tracker{items: items, store: store, log: log}
}

// OverdueRequiringReminder returns incomplete, past-due items that have
// never been reminded or whose last reminder is older than the cooldown.
// It mutates nothing: calling it twice without an intervening
// RecordReminder yields the same set.
func (t *Tracker) OverdueRequiringReminder(ctx context.Context, now time.Time, cooldown time.Duration) ([]Item, error) {
	items, err := t.items.Items(ctx)
	if err != nil {
		return nil, err
	}

	var due []Item
	for _, it := range items {
		if it.Completed || it.DueAt.After(now) {
			continue
		}
		st, err := t.store.ReminderState(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		if st == nil || st.LastReminderAt.IsZero() || now.Sub(st.LastReminderAt) > cooldown {
			due = append(due, it)
		}
	}
	return due, nil
}

// RecordReminder bumps the reminder count and stamps lastReminderAt.
// It returns nil without writing when the item is unknown or when a
// reminder already landed inside the cooldown window.
func (t *Tracker) RecordReminder(ctx context.Context, itemID string, now time.Time, cooldown time.Duration) (*storage.ReminderState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ok, err := t.itemExists(ctx, itemID); err != nil || !ok {
		return nil, err
	}

	st, err := t.store.ReminderState(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &storage.ReminderState{ItemID: itemID}
	} else if !st.LastReminderAt.IsZero() && now.Sub(st.LastReminderAt) <= cooldown {
		return nil, nil
	}
	st.ReminderCount++
	st.LastReminderAt = now
	if err := t.store.PutReminderState(ctx, *st); err != nil {
		return nil, err
	}
	return st, nil
}

// ConfirmStatus applies an explicit user confirmation: it updates the
// underlying item's completion state and stamps the confirmation fields.
// This is the only writer of lastConfirmationAt/lastConfirmedCompleted,
// keeping "we reminded" separate from "the user told us the truth".
// Returns false for an unknown item.
func (t *Tracker) ConfirmStatus(ctx context.Context, itemID string, completed bool, now time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ok, err := t.items.SetCompleted(ctx, itemID, completed)
	if err != nil || !ok {
		return false, err
	}

	st, err := t.store.ReminderState(ctx, itemID)
	if err != nil {
		return false, err
	}
	if st == nil {
		st = &storage.ReminderState{ItemID: itemID}
	}
	st.LastConfirmationAt = now
	st.LastConfirmedCompleted = completed
	if err := t.store.PutReminderState(ctx, *st); err != nil {
		return false, err
	}
	t.log.Info("status confirmed", logx.String("item", itemID), logx.Bool("completed", completed))
	return true, nil
}

// ItemDeleted drops the reminder state for a removed item.
func (t *Tracker) ItemDeleted(ctx context.Context, itemID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.DeleteReminderState(ctx, itemID)
}

// CompletionTimes exposes confirmation timestamps of completed items as
// completion history for the timing engine.
func (t *Tracker) CompletionTimes(ctx context.Context) ([]time.Time, error) {
	states, err := t.store.ListReminderStates(ctx)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for _, st := range states {
		if st.LastConfirmedCompleted && !st.LastConfirmationAt.IsZero() {
			out = append(out, st.LastConfirmationAt)
		}
	}
	return out, nil
}

func (t *Tracker) itemExists(ctx context.Context, itemID string) (bool, error) {
	items, err := t.items.Items(ctx)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ID == itemID {
			return true, nil
		}
	}
	return false, nil
}
