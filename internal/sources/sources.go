// Package sources holds in-process implementations of the pipeline's
// boundary interfaces (calendar, user context, item source). The real
// providers (calendar sync, assignment tracking) are external
// collaborators; these stand in for them in the binary and in tests.
package sources

import (
	"context"
	"sort"
	"sync"
	"time"

	"nudged/internal/deadline"
	"nudged/internal/notify"
	"nudged/internal/timing"
)

// StaticContext reports a fixed user context.
type StaticContext struct {
	mu  sync.Mutex
	ctx notify.UserContext
}

func NewStaticContext(ctx notify.UserContext) *StaticContext {
	return &StaticContext{ctx: ctx}
}

func (s *StaticContext) UserContext(context.Context) (notify.UserContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx, nil
}

func (s *StaticContext) Set(ctx notify.UserContext) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
}

// MemoryCalendar serves calendar events from memory.
type MemoryCalendar struct {
	mu     sync.Mutex
	events []timing.CalendarEvent
}

func NewMemoryCalendar(events ...timing.CalendarEvent) *MemoryCalendar {
	return &MemoryCalendar{events: events}
}

func (c *MemoryCalendar) SetEvents(events []timing.CalendarEvent) {
	c.mu.Lock()
	c.events = append([]timing.CalendarEvent(nil), events...)
	c.mu.Unlock()
}

func (c *MemoryCalendar) ScheduleEvents(_ context.Context, from, to time.Time) ([]timing.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []timing.CalendarEvent
	for _, ev := range c.events {
		if ev.End().After(from) && ev.StartTime.Before(to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// MemoryItems is a map-backed item source.
type MemoryItems struct {
	mu    sync.Mutex
	items map[string]deadline.Item
}

func NewMemoryItems(items ...deadline.Item) *MemoryItems {
	m := &MemoryItems{items: map[string]deadline.Item{}}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *MemoryItems) Put(it deadline.Item) {
	m.mu.Lock()
	m.items[it.ID] = it
	m.mu.Unlock()
}

func (m *MemoryItems) Delete(id string) {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
}

func (m *MemoryItems) Items(context.Context) ([]deadline.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]deadline.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryItems) SetCompleted(_ context.Context, id string, completed bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return false, nil
	}
	it.Completed = completed
	m.items[id] = it
	return true, nil
}
