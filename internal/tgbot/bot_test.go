package tgbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/internal/engine"
)

func TestDecodeCallbackProduct(t *testing.T) {
	ev, err := decodeCallback(&tele.Callback{Data: "\fprod|P1"})
	require.NoError(t, err)
	assert.Equal(t, engine.MenuSelection{ProductID: "P1"}, ev)
}

func TestDecodeCallbackPayload(t *testing.T) {
	data := "\fev|" + engine.Payload{Kind: engine.KindRemoveItem, CartItemID: "line-3"}.Encode()
	ev, err := decodeCallback(&tele.Callback{Data: data})
	require.NoError(t, err)
	assert.Equal(t, engine.Postback{Payload: engine.Payload{
		Kind:       engine.KindRemoveItem,
		CartItemID: "line-3",
	}}, ev)
}

func TestDecodeCallbackRejectsUnknown(t *testing.T) {
	_, err := decodeCallback(&tele.Callback{Data: "\fstale|whatever"})
	assert.Error(t, err)

	_, err = decodeCallback(&tele.Callback{Data: "\fev|not~a~payload"})
	assert.Error(t, err)
}

// A callback gets exactly one answer: whoever takes the pending entry
// first answers it, the other side sees nothing left to answer.
func TestTakeCallbackConsumesPendingEntry(t *testing.T) {
	b := &Bot{pending: map[string]*tele.Callback{"42": {ID: "cb-1"}}}

	cb, ok := b.takeCallback("42")
	require.True(t, ok)
	assert.Equal(t, "cb-1", cb.ID)

	_, ok = b.takeCallback("42")
	assert.False(t, ok)

	_, ok = b.takeCallback("7")
	assert.False(t, ok)
}

func TestBuildPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Telegram.LongPollTimeoutSeconds = 25
	lp, ok := buildPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, float64(25), lp.Timeout.Seconds())

	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example/hook"
	wh, ok := buildPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
}
