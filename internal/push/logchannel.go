package push

import (
	"context"

	"nudged/internal/notify"
	"nudged/pkg/logx"
)

// LogChannel writes notifications to the log instead of a real channel.
// Used when no push channel is configured, so the pipeline stays
// observable end to end.
type LogChannel struct {
	log logx.Logger
}

func NewLogChannel(log logx.Logger) *LogChannel { return &LogChannel{log: log} }

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Deliver(_ context.Context, n notify.Notification, _ Subscription) Result {
	l.log.Info("notification",
		logx.String("source", n.Source),
		logx.String("priority", string(n.Priority)),
		logx.String("title", n.Title),
		logx.String("message", n.Message))
	return Result{Delivered: true}
}
