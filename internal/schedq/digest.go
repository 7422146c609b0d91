package schedq

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nudged/internal/notify"
	"nudged/internal/storage"
)

// DigestSource labels the combined notification so preferences can toggle
// digests independently.
const DigestSource = "digest"

// BuildDigest folds several due, digest-eligible entries into a single
// notification. The entries must already be in scheduledFor order and that
// order is preserved in the combined message. Returns nil for an empty
// batch.
func BuildDigest(entries []storage.ScheduledNotification, now time.Time) *notify.Notification {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	highest := notify.PriorityLow
	for _, e := range entries {
		fmt.Fprintf(&b, "• %s — %s\n", e.Notification.Title, e.Notification.Message)
		if e.Notification.Priority.Rank() > highest.Rank() {
			highest = e.Notification.Priority
		}
	}

	return &notify.Notification{
		ID:        uuid.NewString(),
		Source:    DigestSource,
		Title:     fmt.Sprintf("Digest: %d updates", len(entries)),
		Message:   strings.TrimRight(b.String(), "\n"),
		Priority:  highest,
		Timestamp: now,
		Metadata:  map[string]any{"count": len(entries)},
	}
}

// PartitionDue splits a poll cycle's due entries into the digest batch and
// the individually delivered remainder, keeping order within both halves.
func PartitionDue(due []storage.ScheduledNotification) (digest, individual []storage.ScheduledNotification) {
	for _, e := range due {
		if e.Digest {
			digest = append(digest, e)
		} else {
			individual = append(individual, e)
		}
	}
	return digest, individual
}
