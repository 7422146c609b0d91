package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"nudged/internal/notify"
)

// Memory is a map-backed Store. It backs the "memory" driver and the test
// suites of the packages above it.
type Memory struct {
	mu sync.Mutex

	scheduled map[string]ScheduledNotification
	reminders map[string]ReminderState
	history   []notify.Notification
	prefs     *notify.Preferences

	historyLimit int
}

func NewMemory(historyLimit int) *Memory {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Memory{
		scheduled:    map[string]ScheduledNotification{},
		reminders:    map[string]ReminderState{},
		historyLimit: historyLimit,
	}
}

func (m *Memory) PutScheduled(_ context.Context, s ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled[s.ID] = s
	return nil
}

func (m *Memory) DueScheduled(_ context.Context, now time.Time) ([]ScheduledNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []ScheduledNotification
	for _, s := range m.scheduled {
		if !s.ScheduledFor.After(now) {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	return due, nil
}

func (m *Memory) ScheduledByEventID(_ context.Context, eventID string) (*ScheduledNotification, error) {
	if eventID == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scheduled {
		if s.EventID == eventID {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) DeleteScheduled(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scheduled[id]; !ok {
		return false, nil
	}
	delete(m.scheduled, id)
	return true, nil
}

func (m *Memory) ReminderState(_ context.Context, itemID string) (*ReminderState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.reminders[itemID]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

func (m *Memory) PutReminderState(_ context.Context, st ReminderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[st.ItemID] = st
	return nil
}

func (m *Memory) DeleteReminderState(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reminders, itemID)
	return nil
}

func (m *Memory) ListReminderStates(_ context.Context) ([]ReminderState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReminderState, 0, len(m.reminders))
	for _, st := range m.reminders {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *Memory) AppendHistory(_ context.Context, n notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, n)
	if len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
	return nil
}

func (m *Memory) RecentHistory(_ context.Context, limit int) ([]notify.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]notify.Notification, limit)
	copy(out, m.history[len(m.history)-limit:])
	return out, nil
}

func (m *Memory) Preferences(_ context.Context) (*notify.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return nil, nil
	}
	cp := *m.prefs
	return &cp, nil
}

func (m *Memory) PutPreferences(_ context.Context, p notify.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = &p
	return nil
}

func (m *Memory) Close() error { return nil }
