// Package app wires every service of the nudged binary together.
package app

import (
	"context"
	"fmt"

	"nudged/internal/agents"
	"nudged/internal/api"
	"nudged/internal/config"
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

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store    storage.Store
	items    *sources.MemoryItems
	tracker  *deadline.Tracker
	orch     *orchestrator.Orchestrator
	apiSrv   *api.Server
	metrics  *push.Metrics
	policies *resilience.Registry

	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	busyTimeout, err := cfg.Storage.BusyTimeoutDuration()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:       cfg.Storage.Driver,
		Path:         cfg.Storage.Path,
		BusyTimeout:  busyTimeout,
		HistoryLimit: cfg.Storage.HistoryLimit,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	base, max, err := cfg.Resilience.BackoffDurations()
	if err != nil {
		return nil, err
	}
	policies := resilience.NewRegistry(resilience.Config{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		BaseBackoff:      base,
		MaxBackoff:       max,
	}, log)
	metrics := push.NewMetrics()

	// Boundary providers. Real calendar/context/item providers are
	// external collaborators; the binary starts with in-process ones.
	items := sources.NewMemoryItems()
	calendar := sources.NewMemoryCalendar()
	usrCtx := sources.NewStaticContext(notify.DefaultUserContext())

	tracker := deadline.NewTracker(items, store, log)
	queue := schedq.New(store, log)
	engine := timing.NewEngine(calendar, usrCtx, tracker, log)

	deliverer, sub, err := buildChannel(cfg.Push, log)
	if err != nil {
		return nil, err
	}
	dispatcher := orchestrator.NewDispatcher(deliverer, sub,
		orchestrator.StorePreferences{Store: store, Log: log},
		policies, metrics, cfg.Push.RatePerSec, store, log)

	reminder, queueIv, proactive, cooldown, lead, err := cfg.Orchestrator.Durations()
	if err != nil {
		return nil, err
	}
	orch := orchestrator.New(orchestrator.Config{
		ReminderSweepInterval:  reminder,
		QueueSweepInterval:     queueIv,
		ProactiveSweepInterval: proactive,
		ReminderCooldown:       cooldown,
		UpcomingLead:           lead,
		EventBuffer:            cfg.Orchestrator.EventBuffer,
	}, queue, tracker, items, engine, usrCtx, dispatcher, log)

	orch.Register(agents.NewCalendar(calendar, 0, lead))

	apiSrv := api.New(api.Config{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		tracker, orch, store, metrics, policies, log)

	return &App{
		cfgm:     cfgm,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		items:    items,
		tracker:  tracker,
		orch:     orch,
		apiSrv:   apiSrv,
		metrics:  metrics,
		policies: policies,
	}, nil
}

func buildChannel(cfg config.PushConfig, log logx.Logger) (push.Deliverer, push.Subscription, error) {
	switch cfg.Channel {
	case "", "log":
		return push.NewLogChannel(log), push.Subscription{Channel: "log"}, nil
	case "telegram":
		tg, err := push.NewTelegram(cfg.Telegram.Token, log)
		if err != nil {
			return nil, push.Subscription{}, fmt.Errorf("telegram channel: %w", err)
		}
		return tg, push.Subscription{Channel: "telegram", ChatID: cfg.Telegram.ChatID}, nil
	default:
		return nil, push.Subscription{}, fmt.Errorf("unknown push.channel: %s", cfg.Channel)
	}
}

func (a *App) Start(ctx context.Context) error {
	if err := a.orch.Start(ctx); err != nil {
		return err
	}
	if err := a.apiSrv.Start(ctx); err != nil {
		a.orch.Stop()
		return err
	}

	// Hot-reload: logging config applies live; everything else takes
	// effect on restart. Preferences are read from the store per dispatch
	// and need no reload plumbing.
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go func() {
		_ = a.cfgm.Watch(wctx, func(cfg *config.Config) {
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.ConsoleEnabled(),
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
		})
	}()
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.orch.Stop()
	a.apiSrv.Stop(ctx)
	err := a.store.Close()
	_ = a.logSvc.Close()
	return err
}

// Logger exposes the root logger (used by main for fatal reporting).
func (a *App) Logger() logx.Logger { return a.log }
