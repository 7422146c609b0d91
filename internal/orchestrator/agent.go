package orchestrator

import (
	"context"
	"time"

	"nudged/internal/notify"
)

// Agent is a producer: a periodically-run unit that observes some domain
// state and emits zero or more events per run via the emit callback.
type Agent interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context, emit func(notify.Event)) error
}

// HealthState of a producer. error is not terminal: the next scheduled
// tick moves the producer back through running.
type HealthState string

const (
	HealthIdle    HealthState = "idle"
	HealthRunning HealthState = "running"
	HealthError   HealthState = "error"
)
