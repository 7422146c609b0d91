// Package schedq is the durable holding area for notifications with a
// future delivery time, including recurrence re-arming and digest batching.
package schedq

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nudged/internal/notify"
	"nudged/internal/storage"
	"nudged/pkg/logx"
)

// ErrInvalidSchedule rejects entries whose delivery time is already in the
// past at creation time (scheduledFor must be >= createdAt).
var ErrInvalidSchedule = errors.New("schedq: delivery time before creation time")

// Options carry the optional fields of a scheduled entry.
type Options struct {
	EventID    string
	Recurrence string
	Category   string
	Digest     bool
}

type Queue struct {
	store storage.Store
	log   logx.Logger
	now   func() time.Time
}

func New(store storage.Store, log logx.Logger) *Queue {
	return &Queue{store: store, log: log, now: time.Now}
}

// WithNow overrides the queue clock. Test hook.
func (q *Queue) WithNow(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Schedule persists an entry for future delivery. When opts.EventID matches
// an existing entry, the existing entry is returned and nothing new is
// inserted (producers may re-observe the same underlying fact every tick).
func (q *Queue) Schedule(ctx context.Context, n notify.Notification, deliverAt time.Time, opts Options) (*storage.ScheduledNotification, error) {
	now := q.now()
	if deliverAt.Before(now) {
		return nil, ErrInvalidSchedule
	}
	if opts.EventID != "" {
		if existing, err := q.store.ScheduledByEventID(ctx, opts.EventID); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	sn := storage.ScheduledNotification{
		ID:           uuid.NewString(),
		Notification: n,
		ScheduledFor: deliverAt,
		CreatedAt:    now,
		EventID:      opts.EventID,
		Recurrence:   opts.Recurrence,
		Category:     opts.Category,
		Digest:       opts.Digest,
	}
	if err := q.store.PutScheduled(ctx, sn); err != nil {
		return nil, err
	}
	q.log.Debug("notification scheduled",
		logx.String("id", sn.ID),
		logx.Time("at", deliverAt),
		logx.String("recurrence", opts.Recurrence),
		logx.Bool("digest", opts.Digest))
	return &sn, nil
}

// Due returns all entries with scheduledFor <= now, ordered by scheduledFor
// ascending.
func (q *Queue) Due(ctx context.Context, now time.Time) ([]storage.ScheduledNotification, error) {
	return q.store.DueScheduled(ctx, now)
}

// Complete removes a fired entry and, if it recurs, inserts the entry for
// the next occurrence. Recurrence stops silently once the next occurrence
// would land more than 365 days out. Unknown ids report already-gone.
func (q *Queue) Complete(ctx context.Context, sn storage.ScheduledNotification, now time.Time) (bool, error) {
	deleted, err := q.store.DeleteScheduled(ctx, sn.ID)
	if err != nil || !deleted {
		return deleted, err
	}
	if sn.Recurrence == "" {
		return true, nil
	}

	next, ok := NextOccurrence(sn.Recurrence, sn.ScheduledFor)
	if !ok {
		return true, nil
	}
	if next.After(now.Add(365 * 24 * time.Hour)) {
		q.log.Debug("recurrence stopped, next occurrence too far out",
			logx.String("id", sn.ID), logx.Time("next", next))
		return true, nil
	}

	replacement := sn
	replacement.ID = uuid.NewString()
	replacement.ScheduledFor = next
	replacement.CreatedAt = now
	if err := q.store.PutScheduled(ctx, replacement); err != nil {
		return true, err
	}
	return true, nil
}

// NextOccurrence advances a recurrence one step from the given firing time.
// Monthly means the same calendar day next month, clamped to that month's
// last day (Jan 31 -> Feb 28/29, never Mar overflow).
func NextOccurrence(recurrence string, from time.Time) (time.Time, bool) {
	switch recurrence {
	case storage.RecurDaily:
		return from.Add(24 * time.Hour), true
	case storage.RecurWeekly:
		return from.Add(7 * 24 * time.Hour), true
	case storage.RecurMonthly:
		return nextMonthly(from), true
	default:
		return time.Time{}, false
	}
}

func nextMonthly(t time.Time) time.Time {
	year, month := t.Year(), t.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
