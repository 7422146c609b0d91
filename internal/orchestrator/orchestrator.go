// Package orchestrator drives the notification pipeline: it runs producer
// agents on independent intervals, translates their events, routes urgent
// versus deferrable notifications, polls the scheduled queue, and sweeps
// overdue items for reminders.
package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"nudged/internal/deadline"
	"nudged/internal/notify"
	"nudged/internal/schedq"
	"nudged/internal/timing"
	"nudged/pkg/logx"
)

type Config struct {
	ReminderSweepInterval  time.Duration
	QueueSweepInterval     time.Duration
	ProactiveSweepInterval time.Duration // 0 disables the proactive sweep
	ReminderCooldown       time.Duration
	UpcomingLead           time.Duration
	EventBuffer            int
}

func (c Config) withDefaults() Config {
	if c.ReminderSweepInterval <= 0 {
		c.ReminderSweepInterval = 5 * time.Minute
	}
	if c.QueueSweepInterval <= 0 {
		c.QueueSweepInterval = time.Minute
	}
	if c.ReminderCooldown <= 0 {
		c.ReminderCooldown = 3 * time.Hour
	}
	if c.UpcomingLead <= 0 {
		c.UpcomingLead = 24 * time.Hour
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 128
	}
	return c
}

type Orchestrator struct {
	cfg        Config
	log        logx.Logger
	queue      *schedq.Queue
	tracker    *deadline.Tracker
	items      deadline.ItemSource
	engine     *timing.Engine
	usrCtx     timing.ContextSource
	dispatcher *Dispatcher
	now        func() time.Time

	mu        sync.Mutex
	agents    []Agent
	c         *cron.Cron
	started   int // timers armed by the current Start; Stop must cancel exactly this many
	health    map[string]HealthState
	inflight  map[string]bool
	events    chan notify.Event
	runCancel context.CancelFunc
	drainWG   sync.WaitGroup
	running   bool
}

func New(cfg Config, queue *schedq.Queue, tracker *deadline.Tracker, items deadline.ItemSource,
	engine *timing.Engine, usrCtx timing.ContextSource, dispatcher *Dispatcher, log logx.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		log:        log,
		queue:      queue,
		tracker:    tracker,
		items:      items,
		engine:     engine,
		usrCtx:     usrCtx,
		dispatcher: dispatcher,
		now:        time.Now,
		health:     map[string]HealthState{},
		inflight:   map[string]bool{},
	}
}

// WithNow overrides the orchestrator clock. Test hook.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Register adds producer agents. Agents registered after Start are picked
// up on the next Start.
func (o *Orchestrator) Register(agents ...Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range agents {
		o.agents = append(o.agents, a)
		o.health[a.Name()] = HealthIdle
	}
}

// Health returns a copy of the producer health map.
func (o *Orchestrator) Health() map[string]HealthState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]HealthState, len(o.health))
	for k, v := range o.health {
		out[k] = v
	}
	return out
}

// Start arms one periodic timer per producer plus the sweep timers, boots
// the event drain, and emits a one-time boot notification. Calling Start
// again after Stop behaves like the first call.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.startLocked(ctx); err != nil {
		return err
	}
	// Emitted outside the lock: emit takes o.mu itself, and the freshly
	// armed timers contend on the same mutex.
	o.emit(notify.Event{
		ID:        uuid.NewString(),
		Source:    "system",
		Type:      notify.EventSystemBoot,
		Priority:  notify.PriorityMedium,
		Timestamp: o.now(),
	})
	return nil
}

func (o *Orchestrator) startLocked(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return fmt.Errorf("orchestrator already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.runCancel = cancel
	o.events = make(chan notify.Event, o.cfg.EventBuffer)
	o.c = cron.New()
	o.started = 0
	o.inflight = map[string]bool{}
	for name := range o.health {
		o.health[name] = HealthIdle
	}

	for _, a := range o.agents {
		agent := a
		if err := o.armLocked(agent.Interval(), "agent:"+agent.Name(), func() {
			o.runAgent(runCtx, agent)
		}); err != nil {
			cancel()
			return err
		}
	}

	if err := o.armLocked(o.cfg.ReminderSweepInterval, "sweep:reminders", func() {
		o.reminderSweep(runCtx)
	}); err != nil {
		cancel()
		return err
	}
	if err := o.armLocked(o.cfg.QueueSweepInterval, "sweep:queue", func() {
		o.queueSweep(runCtx)
	}); err != nil {
		cancel()
		return err
	}
	if o.cfg.ProactiveSweepInterval > 0 {
		if err := o.armLocked(o.cfg.ProactiveSweepInterval, "sweep:proactive", func() {
			o.proactiveSweep(runCtx)
		}); err != nil {
			cancel()
			return err
		}
	}

	o.drainWG.Add(1)
	go o.drain(runCtx)

	o.c.Start()
	o.running = true
	o.log.Info("orchestrator started",
		logx.Int("agents", len(o.agents)), logx.Int("timers", o.started))
	return nil
}

// armLocked registers one periodic task with an in-flight guard: a tick is
// skipped while the previous run of the same task is still executing.
func (o *Orchestrator) armLocked(every time.Duration, name string, fn func()) error {
	spec := fmt.Sprintf("@every %s", every.String())
	_, err := o.c.AddFunc(spec, func() {
		o.mu.Lock()
		if o.inflight[name] {
			o.mu.Unlock()
			o.log.Debug("tick skipped, previous run still in flight", logx.String("task", name))
			return
		}
		o.inflight[name] = true
		o.mu.Unlock()

		defer func() {
			o.mu.Lock()
			o.inflight[name] = false
			o.mu.Unlock()
		}()
		fn()
	})
	if err != nil {
		return fmt.Errorf("arm %s: %w", name, err)
	}
	o.started++
	return nil
}

// Stop cancels every timer Start armed — exactly as many as were started —
// waits for in-flight runs to finish, and shuts the event drain. In-flight
// work may complete but nothing new is scheduled afterwards.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	c := o.c
	cancel := o.runCancel
	started := o.started
	o.c = nil
	o.runCancel = nil
	o.running = false
	o.mu.Unlock()

	// cron.Stop cancels all entries at once and reports when running jobs
	// have drained.
	<-c.Stop().Done()
	cancel()
	o.drainWG.Wait()

	o.log.Info("orchestrator stopped", logx.Int("timers_cancelled", started))
}

// emit hands an event to the drain loop. Drops (with a log line) when the
// buffer is full rather than blocking a producer.
func (o *Orchestrator) emit(ev notify.Event) {
	o.mu.Lock()
	ch := o.events
	o.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		o.log.Warn("event buffer full, dropping event",
			logx.String("type", ev.Type), logx.String("source", ev.Source))
	}
}

func (o *Orchestrator) drain(ctx context.Context) {
	defer o.drainWG.Done()
	o.mu.Lock()
	ch := o.events
	o.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			o.route(ctx, ev)
		}
	}
}

// runAgent executes one producer tick. A panic or error is contained: the
// producer is marked error (it recovers on its next tick) and a
// high-priority internal notification describes the failure.
func (o *Orchestrator) runAgent(ctx context.Context, a Agent) {
	o.setHealth(a.Name(), HealthRunning)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				o.log.Error("producer panicked",
					logx.String("producer", a.Name()),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
		}()
		err = a.Run(ctx, o.emit)
	}()

	if err != nil {
		o.setHealth(a.Name(), HealthError)
		o.log.Warn("producer failed", logx.String("producer", a.Name()), logx.Err(err))
		o.emit(notify.Event{
			ID:        uuid.NewString(),
			Source:    "system",
			Type:      notify.EventProducerError,
			Priority:  notify.PriorityHigh,
			Timestamp: o.now(),
			Payload:   map[string]any{"producer": a.Name(), "error": err.Error()},
		})
		return
	}
	o.setHealth(a.Name(), HealthIdle)
}

func (o *Orchestrator) setHealth(name string, st HealthState) {
	o.mu.Lock()
	o.health[name] = st
	o.mu.Unlock()
}

// route turns one event into zero or one notification and sends it down
// the urgent or the deferred path.
func (o *Orchestrator) route(ctx context.Context, ev notify.Event) {
	uctx, err := o.usrCtx.UserContext(ctx)
	if err != nil {
		uctx = notify.DefaultUserContext()
	}
	n := notify.Translate(ev, uctx)
	if n == nil {
		return
	}

	urgent := n.Priority.AtLeast(notify.PriorityHigh)
	if urgent {
		o.dispatcher.Dispatch(ctx, *n)
		return
	}

	at := o.engine.OptimalTime(ctx, false)
	now := o.now()
	if !at.After(now) {
		o.dispatcher.Dispatch(ctx, *n)
		return
	}

	// Deferred entries lose their id/timestamp; delivery stamps fresh ones.
	deferred := *n
	deferred.ID = ""
	deferred.Timestamp = time.Time{}
	_, err = o.queue.Schedule(ctx, deferred, at, schedq.Options{
		EventID:  ev.ID,
		Category: ev.Type,
		Digest:   !deferred.Priority.AtLeast(notify.PriorityHigh),
	})
	if err != nil {
		// Covers ErrInvalidSchedule too: the queue's clock may disagree
		// with ours, and a late delivery beats a lost one.
		o.log.Warn("scheduling failed, delivering now", logx.Err(err))
		o.dispatcher.Dispatch(ctx, *n)
	}
}
