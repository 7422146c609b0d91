// Package push defines the delivery boundary: channels that carry an
// approved notification to the user, plus the delivery metrics sink.
package push

import (
	"context"
	"sync"
	"time"

	"nudged/internal/notify"
)

// Category is the root cause of a delivery failure, supplied by the
// channel. Failures are data, not exceptions: they happen routinely.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryNetwork    Category = "network"
	CategoryRateLimit  Category = "rate_limit"
	CategoryValidation Category = "validation"
	CategoryProvider   Category = "provider"
	CategoryUnknown    Category = "unknown"
)

// Subscription addresses one delivery target on a channel.
type Subscription struct {
	Channel  string
	ChatID   int64
	Endpoint string
}

// Result is the outcome of one delivery attempt.
type Result struct {
	Delivered  bool
	StatusCode int
	Category   Category
	Err        error
}

// Deliverer is a single push channel.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, n notify.Notification, sub Subscription) Result
}

// FailureRecord is one entry of the recent-failure list.
type FailureRecord struct {
	At       time.Time `json:"at"`
	Source   string    `json:"source"`
	Category Category  `json:"category"`
	Error    string    `json:"error"`
}

const maxRecentFailures = 20

// Metrics counts delivery outcomes. It is an explicit injected object, not
// a package global; all mutation goes through its methods.
type Metrics struct {
	mu        sync.Mutex
	attempted uint64
	delivered uint64
	failed    uint64
	dropped   uint64
	recent    []FailureRecord
}

func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) Attempt() {
	m.mu.Lock()
	m.attempted++
	m.mu.Unlock()
}

func (m *Metrics) Delivered() {
	m.mu.Lock()
	m.delivered++
	m.mu.Unlock()
}

// Dropped counts notifications the gate or the circuit kept from the user.
func (m *Metrics) Dropped() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

func (m *Metrics) Failed(now time.Time, source string, cat Category, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
	rec := FailureRecord{At: now, Source: source, Category: cat}
	if err != nil {
		rec.Error = err.Error()
	}
	m.recent = append(m.recent, rec)
	if len(m.recent) > maxRecentFailures {
		m.recent = m.recent[len(m.recent)-maxRecentFailures:]
	}
}

// MetricsSnapshot is a read-only copy for status surfaces.
type MetricsSnapshot struct {
	Attempted      uint64          `json:"attempted"`
	Delivered      uint64          `json:"delivered"`
	Failed         uint64          `json:"failed"`
	Dropped        uint64          `json:"dropped"`
	RecentFailures []FailureRecord `json:"recentFailures,omitempty"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Attempted:      m.attempted,
		Delivered:      m.delivered,
		Failed:         m.failed,
		Dropped:        m.dropped,
		RecentFailures: append([]FailureRecord(nil), m.recent...),
	}
}
