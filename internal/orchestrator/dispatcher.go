package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"nudged/internal/notify"
	"nudged/internal/push"
	"nudged/internal/resilience"
	"nudged/internal/storage"
	"nudged/pkg/logx"
)

// PreferencesProvider yields the preferences in force right now. Dispatch
// reads them per call, never at notification creation time.
type PreferencesProvider interface {
	Current(ctx context.Context) notify.Preferences
}

// StorePreferences reads the preferences singleton from the store, falling
// back to defaults while nothing has been written yet.
type StorePreferences struct {
	Store storage.Store
	Log   logx.Logger
}

func (s StorePreferences) Current(ctx context.Context) notify.Preferences {
	p, err := s.Store.Preferences(ctx)
	if err != nil {
		s.Log.Warn("preferences read failed, using defaults", logx.Err(err))
		return notify.DefaultPreferences()
	}
	if p == nil {
		return notify.DefaultPreferences()
	}
	return *p
}

// Dispatcher is the single delivery path: gate check, circuit check, rate
// pacing, push, then resilience and metrics bookkeeping.
type Dispatcher struct {
	log       logx.Logger
	deliverer push.Deliverer
	sub       push.Subscription
	prefs     PreferencesProvider
	policy    *resilience.Policy
	metrics   *push.Metrics
	limiter   *rate.Limiter
	store     storage.Store
	now       func() time.Time
}

func NewDispatcher(deliverer push.Deliverer, sub push.Subscription, prefs PreferencesProvider,
	policies *resilience.Registry, metrics *push.Metrics, ratePerSec int,
	store storage.Store, log logx.Logger) *Dispatcher {
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	return &Dispatcher{
		log:       log,
		deliverer: deliverer,
		sub:       sub,
		prefs:     prefs,
		policy:    policies.For(deliverer.Name()),
		metrics:   metrics,
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		store:   store,
		now:     time.Now,
	}
}

// WithNow overrides the dispatcher clock. Test hook.
func (d *Dispatcher) WithNow(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch runs one notification through the gate and, if allowed, the
// push channel. Returns whether the user actually got it. Delivery
// failures are recorded, never propagated: the poll loops must not die
// because a channel is down.
func (d *Dispatcher) Dispatch(ctx context.Context, n notify.Notification) bool {
	now := d.now()

	if !notify.ShouldDispatch(n, d.prefs.Current(ctx), now) {
		d.metrics.Dropped()
		d.policy.RecordSkip("gated")
		d.log.Debug("notification suppressed",
			logx.String("source", n.Source), logx.String("priority", string(n.Priority)))
		return false
	}

	if att := d.policy.CanAttempt(now); !att.Allowed {
		d.metrics.Dropped()
		d.log.Debug("delivery declined", logx.String("reason", att.Reason))
		return false
	}

	d.metrics.Attempt()
	if err := d.limiter.Wait(ctx); err != nil {
		d.metrics.Failed(now, n.Source, push.CategoryUnknown, err)
		return false
	}

	res := d.deliverer.Deliver(ctx, n, d.sub)
	if !res.Delivered {
		d.policy.RecordFailure(now, res.Err)
		cat := res.Category
		if cat == "" {
			cat = push.CategoryUnknown
		}
		d.metrics.Failed(now, n.Source, cat, res.Err)
		d.log.Warn("delivery failed",
			logx.String("channel", d.deliverer.Name()),
			logx.String("category", string(cat)),
			logx.Int("status", res.StatusCode),
			logx.Err(res.Err))
		return false
	}

	d.policy.RecordSuccess()
	d.metrics.Delivered()
	if err := d.store.AppendHistory(ctx, n); err != nil {
		d.log.Warn("history append failed", logx.Err(err))
	}
	return true
}
