package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/use-agent/jobscout/models"
)

// Telegram posts a run summary to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, chatID, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API endpoint
// (format "https://host/bot%s/%s").
func NewTelegramWithEndpoint(token string, chatID int64, endpoint string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Notify sends one HTML message listing the run's records.
func (t *Telegram) Notify(ctx context.Context, run *models.RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatRun(run))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// FormatRun renders a run as Telegram HTML.
func FormatRun(run *models.RunResult) string {
	var b strings.Builder
	q := run.Query
	fmt.Fprintf(&b, "🔎 <b>%d jobs for %s in %s</b>\n",
		len(run.Records), html.EscapeString(q.Keyword), html.EscapeString(q.Location))
	if run.Readiness != nil && run.Readiness.Fallback {
		b.WriteString("⚠️ page never signalled ready\n")
	}
	for i, r := range run.Records {
		fmt.Fprintf(&b, "\n%d. <b>%s</b>\n🏢 %s\n📍 %s\n🔗 <a href=\"%s\">View Job</a>\n",
			i+1,
			html.EscapeString(r.Title),
			html.EscapeString(r.Company),
			html.EscapeString(r.Location),
			html.EscapeString(r.Link),
		)
	}
	return b.String()
}
