package push

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"nudged/internal/notify"
	"nudged/pkg/logx"
	"nudged/pkg/tgui"
)

// Telegram delivers notifications as Telegram messages. Send-only: no
// poller is attached, the bot is used purely as an outbound channel.
type Telegram struct {
	bot *tele.Bot
	log logx.Logger
}

func NewTelegram(token string, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, log: log}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, n notify.Notification, sub Subscription) Result {
	select {
	case <-ctx.Done():
		return Result{Category: CategoryNetwork, Err: ctx.Err()}
	default:
	}

	text := formatText(n)
	_, err := t.bot.Send(&tele.Chat{ID: sub.ChatID}, text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return Result{Category: categorize(err), Err: err, StatusCode: statusCode(err)}
	}
	return Result{Delivered: true, StatusCode: 200}
}

func formatText(n notify.Notification) string {
	prefix := "ℹ️ "
	switch n.Priority {
	case notify.PriorityCritical:
		prefix = "🚨 "
	case notify.PriorityHigh:
		prefix = "⚠️ "
	}
	parts := []tgui.H{tgui.H(prefix) + tgui.B(n.Title)}
	if n.Message != "" {
		parts = append(parts, tgui.Esc(n.Message))
	}
	if n.URL != "" {
		parts = append(parts, tgui.Link("Open", n.URL))
	}
	return tgui.TruncRunes(tgui.JoinH("\n", parts...).String(), tgui.MaxMessageLen)
}

func categorize(err error) Category {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return CategoryRateLimit
	}
	var terr *tele.Error
	if errors.As(err, &terr) {
		switch {
		case terr.Code == 401 || terr.Code == 403:
			return CategoryAuth
		case terr.Code == 400:
			return CategoryValidation
		case terr.Code >= 500:
			return CategoryProvider
		default:
			return CategoryProvider
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryNetwork
	}
	return CategoryUnknown
}

func statusCode(err error) int {
	var terr *tele.Error
	if errors.As(err, &terr) {
		return terr.Code
	}
	return 0
}
