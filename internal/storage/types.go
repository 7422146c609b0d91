package storage

import (
	"context"
	"time"

	"nudged/internal/notify"
)

// Config configures storage.
//
// Driver values:
//   - "memory": in-process maps, lost on restart (also used by tests)
//   - "sqlite": SQLite database file
//
// If Driver is empty, "memory" is used.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// HistoryLimit bounds the notification history ring buffer.
	HistoryLimit int
}

const DefaultHistoryLimit = 200

// Recurrence values for scheduled notifications.
const (
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

// ScheduledNotification is a durable queue entry holding a notification
// with a future delivery time. Invariant: ScheduledFor >= CreatedAt.
// Entries are deleted once delivered; recurring ones are replaced by a new
// entry for the next occurrence.
type ScheduledNotification struct {
	ID           string
	Notification notify.Notification // ID/Timestamp assigned at delivery
	ScheduledFor time.Time
	CreatedAt    time.Time
	EventID      string
	Recurrence   string
	Category     string
	Digest       bool
}

// ReminderState tracks reminders for one reminder-eligible item.
// ReminderCount never decreases; the confirmation fields are written only
// by an explicit user confirmation.
type ReminderState struct {
	ItemID                 string
	ReminderCount          int
	LastReminderAt         time.Time
	LastConfirmationAt     time.Time
	LastConfirmedCompleted bool
}

// Store is the persistence boundary for the notification pipeline.
type Store interface {
	// Scheduled notification queue.
	PutScheduled(ctx context.Context, s ScheduledNotification) error
	DueScheduled(ctx context.Context, now time.Time) ([]ScheduledNotification, error)
	ScheduledByEventID(ctx context.Context, eventID string) (*ScheduledNotification, error)
	DeleteScheduled(ctx context.Context, id string) (bool, error)

	// Per-item reminder state.
	ReminderState(ctx context.Context, itemID string) (*ReminderState, error)
	PutReminderState(ctx context.Context, st ReminderState) error
	DeleteReminderState(ctx context.Context, itemID string) error
	ListReminderStates(ctx context.Context) ([]ReminderState, error)

	// Bounded notification history.
	AppendHistory(ctx context.Context, n notify.Notification) error
	RecentHistory(ctx context.Context, limit int) ([]notify.Notification, error)

	// Preferences singleton. Preferences returns nil when never written.
	Preferences(ctx context.Context) (*notify.Preferences, error)
	PutPreferences(ctx context.Context, p notify.Preferences) error

	Close() error
}
