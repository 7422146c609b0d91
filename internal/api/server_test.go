package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"nudged/internal/deadline"
	"nudged/internal/notify"
	"nudged/internal/orchestrator"
	"nudged/internal/push"
	"nudged/internal/resilience"
	"nudged/internal/schedq"
	"nudged/internal/sources"
	"nudged/internal/storage"
	"nudged/internal/timing"
	"nudged/pkg/logx"
)

type staticPrefs struct{}

func (staticPrefs) Current(context.Context) notify.Preferences { return notify.DefaultPreferences() }

func startTestServer(t *testing.T) (base string, items *sources.MemoryItems, store storage.Store) {
	t.Helper()
	log := logx.Nop()

	store = storage.NewMemory(storage.DefaultHistoryLimit)
	items = sources.NewMemoryItems()
	tracker := deadline.NewTracker(items, store, log)
	metrics := push.NewMetrics()
	policies := resilience.NewRegistry(resilience.Config{}, log)
	disp := orchestrator.NewDispatcher(push.NewLogChannel(log), push.Subscription{},
		staticPrefs{}, policies, metrics, 1000, store, log)
	cal := sources.NewMemoryCalendar()
	uctx := sources.NewStaticContext(notify.DefaultUserContext())
	engine := timing.NewEngine(cal, uctx, tracker, log)
	queue := schedq.New(store, log)
	orch := orchestrator.New(orchestrator.Config{}, queue, tracker, items, engine, uctx, disp, log)

	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, tracker, orch, store, metrics, policies, log)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start api: %v", err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })
	return "http://" + s.Addr(), items, store
}

func TestConfirmEndpoint(t *testing.T) {
	base, items, _ := startTestServer(t)
	items.Put(deadline.Item{ID: "hw-1", Title: "assignment", DueAt: time.Now().Add(-time.Hour)})

	body, _ := json.Marshal(map[string]any{"itemId": "hw-1", "completed": true})
	resp, err := http.Post(base+"/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status: %d", resp.StatusCode)
	}

	it, _ := items.Items(context.Background())
	if len(it) != 1 || !it[0].Completed {
		t.Fatalf("confirmation must flip the item: %v", it)
	}
}

func TestConfirmUnknownItem(t *testing.T) {
	base, _, _ := startTestServer(t)

	body, _ := json.Marshal(map[string]any{"itemId": "ghost", "completed": true})
	resp, err := http.Post(base+"/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown item must 404, got %d", resp.StatusCode)
	}
}

func TestConfirmRequiresItemID(t *testing.T) {
	base, _, _ := startTestServer(t)

	resp, err := http.Post(base+"/confirm", "application/json", bytes.NewReader([]byte(`{"completed":true}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing itemId must 400, got %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	base, _, _ := startTestServer(t)

	resp, err := http.Get(base + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var st struct {
		Producers map[string]string   `json:"producers"`
		Delivery  push.MetricsSnapshot `json:"delivery"`
		Circuits  []resilience.Snapshot `json:"circuits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("status body: %v", err)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	base, _, store := startTestServer(t)

	resp, err := http.Get(base + "/preferences")
	if err != nil {
		t.Fatal(err)
	}
	var p notify.Preferences
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if p.MinimumPriority != notify.PriorityLow {
		t.Fatalf("unwritten preferences must serve defaults: %+v", p)
	}

	p.MinimumPriority = notify.PriorityHigh
	body, _ := json.Marshal(p)
	req, _ := http.NewRequest(http.MethodPut, base+"/preferences", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put preferences: %d", resp.StatusCode)
	}

	stored, _ := store.Preferences(context.Background())
	if stored == nil || stored.MinimumPriority != notify.PriorityHigh {
		t.Fatalf("preferences not persisted: %+v", stored)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	base, _, store := startTestServer(t)

	n := notify.Notification{ID: "h1", Source: "test", Title: "t", Message: "m",
		Priority: notify.PriorityLow, Timestamp: time.Now()}
	if err := store.AppendHistory(context.Background(), n); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(base + "/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var hist []notify.Notification
	if err := json.NewDecoder(resp.Body).Decode(&hist); err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].ID != "h1" {
		t.Fatalf("history: %v", hist)
	}
}

func TestDisabledServerDoesNotListen(t *testing.T) {
	s := New(Config{Enabled: false}, nil, nil, nil, nil, nil, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Addr() != "" {
		t.Fatalf("disabled server must not bind, got %s", s.Addr())
	}
}
