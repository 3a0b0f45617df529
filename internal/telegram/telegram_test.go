package telegram

import (
	"context"
	"strings"
	"testing"

	"WooWithBizimHesap/pkg/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func TestNotify(t *testing.T) {
	f := &fakeSender{}
	bot := NewBotWithSender(f, 99, logging.Discard())

	bot.Notify(context.Background(), "  product sync failed  ")
	bot.Notify(context.Background(), "")
	bot.Notify(context.Background(), strings.Repeat("x", maxText+10))

	require.Len(t, f.sent, 2)
	assert.EqualValues(t, 99, f.sent[0].ChatID)
	assert.Equal(t, "product sync failed", f.sent[0].Text)
	assert.Len(t, f.sent[1].Text, maxText)
}

func TestNotifySwallowsErrors(t *testing.T) {
	bot := NewBotWithSender(&fakeSender{err: errors.New("forbidden")}, 1, logging.Discard())
	assert.NotPanics(t, func() { bot.Notify(context.Background(), "x") })
}
