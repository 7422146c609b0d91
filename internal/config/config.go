// Package config loads and watches the nudged configuration file.
//
// Config files are JSON or YAML; YAML is coerced to JSON so both go
// through the same strict decoder. Unknown fields are rejected.
package config

import (
	"time"
)

type Config struct {
	Logging      LoggingConfig      `json:"logging"`
	Storage      StorageConfig      `json:"storage"`
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	Push         PushConfig         `json:"push"`
	Resilience   ResilienceConfig   `json:"resilience"`
	API          APIConfig          `json:"api,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"`
	File    struct {
		Enabled bool   `json:"enabled,omitempty"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

func (c LoggingConfig) ConsoleEnabled() bool {
	return c.Console == nil || *c.Console
}

type StorageConfig struct {
	Driver       string `json:"driver,omitempty"`
	Path         string `json:"path,omitempty"`
	BusyTimeout  string `json:"busy_timeout,omitempty"`
	HistoryLimit int    `json:"history_limit,omitempty"`
}

// OrchestratorConfig holds the sweep intervals and reminder cooldown.
// All durations are Go duration strings (e.g. "90s", "5m", "1h").
type OrchestratorConfig struct {
	ReminderSweepInterval  string `json:"reminder_sweep_interval,omitempty"`
	QueueSweepInterval     string `json:"queue_sweep_interval,omitempty"`
	ProactiveSweepInterval string `json:"proactive_sweep_interval,omitempty"`
	ReminderCooldown       string `json:"reminder_cooldown,omitempty"`
	UpcomingLead           string `json:"upcoming_lead,omitempty"`
	EventBuffer            int    `json:"event_buffer,omitempty"`
}

type PushConfig struct {
	// Channel selects the delivery channel: "log" (default) or "telegram".
	Channel    string         `json:"channel,omitempty"`
	RatePerSec int            `json:"rate_per_sec,omitempty"`
	Telegram   TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}

type ResilienceConfig struct {
	FailureThreshold int    `json:"failure_threshold,omitempty"`
	BaseBackoff      string `json:"base_backoff,omitempty"`
	MaxBackoff       string `json:"max_backoff,omitempty"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
}

// Durations resolves every duration field of the orchestrator block,
// applying defaults for unset fields.
func (c OrchestratorConfig) Durations() (reminder, queue, proactive, cooldown, lead time.Duration, err error) {
	if reminder, err = parseDurationOr("orchestrator.reminder_sweep_interval", c.ReminderSweepInterval, 5*time.Minute); err != nil {
		return
	}
	if queue, err = parseDurationOr("orchestrator.queue_sweep_interval", c.QueueSweepInterval, time.Minute); err != nil {
		return
	}
	if proactive, err = parseDuration("orchestrator.proactive_sweep_interval", c.ProactiveSweepInterval); err != nil {
		return
	}
	if cooldown, err = parseDurationOr("orchestrator.reminder_cooldown", c.ReminderCooldown, 3*time.Hour); err != nil {
		return
	}
	lead, err = parseDurationOr("orchestrator.upcoming_lead", c.UpcomingLead, 24*time.Hour)
	return
}

// BusyTimeoutDuration parses storage.busy_timeout with a 1s default.
func (c StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return parseDurationOr("storage.busy_timeout", c.BusyTimeout, time.Second)
}

// BackoffDurations parses the resilience backoff fields.
func (c ResilienceConfig) BackoffDurations() (base, max time.Duration, err error) {
	if base, err = parseDurationOr("resilience.base_backoff", c.BaseBackoff, 5*time.Second); err != nil {
		return
	}
	max, err = parseDurationOr("resilience.max_backoff", c.MaxBackoff, 2*time.Minute)
	return
}
