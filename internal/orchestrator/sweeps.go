package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nudged/internal/deadline"
	"nudged/internal/notify"
	"nudged/internal/schedq"
	"nudged/pkg/logx"
)

// reminderSweep finds incomplete, past-due items outside their cooldown,
// records the reminder, and feeds a reminder event back into the pipeline.
// Recording happens at emission time so a racing sweep cannot double-remind
// within one cooldown window.
func (o *Orchestrator) reminderSweep(ctx context.Context) {
	now := o.now()
	items, err := o.tracker.OverdueRequiringReminder(ctx, now, o.cfg.ReminderCooldown)
	if err != nil {
		o.log.Warn("reminder sweep failed", logx.Err(err))
		return
	}

	for _, it := range items {
		st, err := o.tracker.RecordReminder(ctx, it.ID, now, o.cfg.ReminderCooldown)
		if err != nil {
			o.log.Warn("record reminder failed", logx.Err(err))
			continue
		}
		if st == nil {
			// Item vanished between listing and recording, or a racing
			// sweep already reminded inside the cooldown.
			continue
		}
		o.emit(notify.Event{
			ID:        uuid.NewString(),
			Source:    "deadline",
			Type:      notify.EventDeadlineOverdue,
			Priority:  deadline.Escalate(it.Priority, it.Completed, it.DueAt, now),
			Timestamp: now,
			Payload: map[string]any{
				"itemId":        it.ID,
				"title":         it.Title,
				"reminderCount": st.ReminderCount,
			},
		})
	}
}

// queueSweep delivers everything that has come due: digest-eligible
// entries collapse into one notification, the rest go out individually in
// scheduledFor order. Every fired entry is removed; recurring ones are
// re-armed by the queue.
func (o *Orchestrator) queueSweep(ctx context.Context) {
	now := o.now()
	due, err := o.queue.Due(ctx, now)
	if err != nil {
		o.log.Warn("queue sweep failed", logx.Err(err))
		return
	}
	if len(due) == 0 {
		return
	}

	digestBatch, individual := schedq.PartitionDue(due)

	for _, entry := range individual {
		n := entry.Notification
		n.ID = uuid.NewString()
		n.Timestamp = now
		o.dispatcher.Dispatch(ctx, n)
		if _, err := o.queue.Complete(ctx, entry, now); err != nil {
			o.log.Warn("queue complete failed", logx.Err(err))
		}
	}

	if d := schedq.BuildDigest(digestBatch, now); d != nil {
		o.dispatcher.Dispatch(ctx, *d)
	}
	for _, entry := range digestBatch {
		if _, err := o.queue.Complete(ctx, entry, now); err != nil {
			o.log.Warn("queue complete failed", logx.Err(err))
		}
	}
}

// proactiveSweep looks ahead for items approaching their due time and
// emits heads-up events. The scheduled queue deduplicates on the stable
// event id, so a pending heads-up is not re-queued every tick.
func (o *Orchestrator) proactiveSweep(ctx context.Context) {
	now := o.now()
	items, err := o.items.Items(ctx)
	if err != nil {
		o.log.Warn("proactive sweep failed", logx.Err(err))
		return
	}

	for _, it := range items {
		if it.Completed {
			continue
		}
		until := it.DueAt.Sub(now)
		if until <= 0 || until > o.cfg.UpcomingLead {
			continue
		}
		o.emit(notify.Event{
			ID:        "upcoming:" + it.ID,
			Source:    "deadline",
			Type:      notify.EventDeadlineUpcoming,
			Priority:  deadline.Escalate(it.Priority, it.Completed, it.DueAt, now),
			Timestamp: now,
			Payload: map[string]any{
				"itemId": it.ID,
				"title":  it.Title,
				"dueIn":  humanDuration(until),
			},
		})
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("in %d minutes", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("in %d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("in %d days", int(d.Hours()/24))
	}
}
