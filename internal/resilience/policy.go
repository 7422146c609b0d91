// Package resilience provides a keyed circuit breaker with exponential
// backoff, shared by every external dependency (push channel, sync
// sources). One Policy per dependency name; state is per-process and not
// persisted.
package resilience

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"nudged/pkg/logx"
)

type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. <= 0 selects the default.
	FailureThreshold int
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 5 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Minute
	}
	return c
}

// Attempt is the verdict of CanAttempt.
type Attempt struct {
	Allowed bool
	Reason  string
}

// Policy tracks consecutive failures for one named dependency.
type Policy struct {
	mu   sync.Mutex
	name string
	cfg  Config
	log  logx.Logger

	consecutiveFailures int
	circuitOpenUntil    time.Time
	nextAttemptAt       time.Time
	lastError           string
	skips               int
}

// Snapshot is a read-only view for status surfaces.
type Snapshot struct {
	Name                string    `json:"name"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	CircuitOpenUntil    time.Time `json:"circuitOpenUntil,omitzero"`
	NextAttemptAt       time.Time `json:"nextAttemptAt,omitzero"`
	LastError           string    `json:"lastError,omitempty"`
	Skips               int       `json:"skips"`
}

// CanAttempt reports whether a new attempt may start. It never aborts
// in-flight work; it just declines to let a new attempt begin while the
// circuit is open.
func (p *Policy) CanAttempt(now time.Time) Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.circuitOpenUntil.IsZero() && now.Before(p.circuitOpenUntil) {
		return Attempt{Allowed: false, Reason: "circuit open until " + p.circuitOpenUntil.Format(time.RFC3339)}
	}
	return Attempt{Allowed: true}
}

// RecordSuccess resets the failure count and closes the circuit.
func (p *Policy) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailures = 0
	p.circuitOpenUntil = time.Time{}
	p.nextAttemptAt = time.Time{}
	p.lastError = ""
}

// RecordFailure increments the failure count and computes the next backoff
// delay (base * 2^failures, capped, plus a little jitter). Once failures
// reach the threshold the circuit opens until that delay has passed.
func (p *Policy) RecordFailure(now time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFailures++
	if err != nil {
		p.lastError = err.Error()
	}

	delay := p.backoffLocked()
	p.nextAttemptAt = now.Add(delay)
	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.circuitOpenUntil = p.nextAttemptAt
		p.log.Warn("circuit opened",
			logx.String("dependency", p.name),
			logx.Int("failures", p.consecutiveFailures),
			logx.Duration("backoff", delay))
	}
}

// RecordSkip notes an attempt that was skipped (e.g. gated by quiet hours
// upstream). Logged only; it does not count as a failure.
func (p *Policy) RecordSkip(reason string) {
	p.mu.Lock()
	p.skips++
	p.mu.Unlock()
	p.log.Debug("attempt skipped", logx.String("dependency", p.name), logx.String("reason", reason))
}

func (p *Policy) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Name:                p.name,
		ConsecutiveFailures: p.consecutiveFailures,
		CircuitOpenUntil:    p.circuitOpenUntil,
		NextAttemptAt:       p.nextAttemptAt,
		LastError:           p.lastError,
		Skips:               p.skips,
	}
}

func (p *Policy) backoffLocked() time.Duration {
	d := p.cfg.BaseBackoff
	for i := 0; i < p.consecutiveFailures; i++ {
		d *= 2
		if d >= p.cfg.MaxBackoff {
			d = p.cfg.MaxBackoff
			break
		}
	}
	if d > p.cfg.MaxBackoff {
		d = p.cfg.MaxBackoff
	}
	// Up to 10% jitter so synchronized dependencies don't retry in lockstep.
	if d > 0 {
		d += time.Duration(rand.Int63n(int64(d)/10 + 1))
	}
	return d
}

// Registry hands out one Policy per dependency name.
type Registry struct {
	mu  sync.Mutex
	m   map[string]*Policy
	cfg Config
	log logx.Logger
}

func NewRegistry(cfg Config, log logx.Logger) *Registry {
	return &Registry{m: map[string]*Policy{}, cfg: cfg.withDefaults(), log: log}
}

// For returns the policy for a dependency, creating it on first use.
func (r *Registry) For(name string) *Policy {
	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.m[name]
	if p == nil {
		p = &Policy{name: name, cfg: r.cfg, log: r.log}
		r.m[name] = p
	}
	return p
}

// Snapshots returns the current state of every known dependency.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.m))
	for _, p := range r.m {
		out = append(out, p.Snapshot())
	}
	return out
}
