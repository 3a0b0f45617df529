// Package telegram sends operator alerts for failed sync passes.
package telegram

import (
	"context"
	"strings"

	"WooWithBizimHesap/pkg/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
)

// maxText is Telegram's message length limit.
const maxText = 4096

type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    Sender
	chatID int64
	logger *logging.Logger
}

// NewBot logs in with token. Messages go to chatID.
func NewBot(token string, chatID int64, logger *logging.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed tgbotapi.NewBotAPI")
	}
	logger.Infof("telegram: authorized as %s", api.Self.UserName)
	return NewBotWithSender(api, chatID, logger), nil
}

func NewBotWithSender(api Sender, chatID int64, logger *logging.Logger) *Bot {
	return &Bot{api: api, chatID: chatID, logger: logger}
}

// Notify never fails the caller; delivery errors are logged.
func (b *Bot) Notify(_ context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > maxText {
		text = text[:maxText-3] + "..."
	}
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warnf("telegram: failed to send alert: %v", err)
	}
}

// Noop is used when no bot token is configured.
type Noop struct{}

func (Noop) Notify(context.Context, string) {}
