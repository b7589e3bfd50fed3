// Package tgbot adapts the conversation engine to the Telegram Bot API:
// it decodes updates into engine events and renders engine views as
// Telegram messages, keyboards and invoices.
package tgbot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/core/netutil"
	"github.com/grepto/pizza-bot/internal/engine"
)

// Namespace prefixes Telegram user keys in the state store so the same
// human on another platform gets an independent conversation.
const Namespace = "telegram"

// Callback uniques. "ev" carries an encoded engine payload, "prod" a bare
// product id for menu selection.
const (
	cbEvent   = "ev"
	cbProduct = "prod"
)

// Bot runs the Telegram side of the conversation.
type Bot struct {
	bot    *tele.Bot
	cfg    *coreconfig.Config
	engine *engine.Engine

	mu       sync.Mutex
	lastMenu map[int64]*tele.Message
	pending  map[string]*tele.Callback
}

// New builds the bot with a poller derived from config. Call Attach to
// bind an engine before Run.
func New(cfg *coreconfig.Config) (*Bot, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		Client: netutil.BuildHTTPClient(),
	}
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("tgbot: bot initialization failed: %w", err)
	}
	return &Bot{
		bot:      b,
		cfg:      cfg,
		lastMenu: make(map[int64]*tele.Message),
		pending:  make(map[string]*tele.Callback),
	}, nil
}

func buildPoller(cfg *coreconfig.Config) tele.Poller {
	if strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	timeoutSec := cfg.Telegram.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second}
}

// Attach binds the engine and registers update routes. The engine in turn
// holds this bot as its renderer, so construction happens in two steps.
func (b *Bot) Attach(e *engine.Engine) {
	b.engine = e

	b.bot.Use(recoverMiddleware)
	b.bot.Use(loggingMiddleware)

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		return b.dispatch(c, engine.TextMessage{Body: c.Text()})
	})
	b.bot.Handle(tele.OnLocation, func(c tele.Context) error {
		loc := c.Message().Location
		return b.dispatch(c, engine.LocationShared{
			Lon: float64(loc.Lng),
			Lat: float64(loc.Lat),
		})
	})
	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		ev, err := decodeCallback(c.Callback())
		if err != nil {
			// Stale buttons from old messages answer silently.
			return c.Respond(&tele.CallbackResponse{})
		}
		b.rememberCallback(c)
		defer b.forgetCallback(c)
		if err := b.dispatch(c, ev); err != nil {
			return err
		}
		// Ack may already have answered this callback with a toast,
		// and Telegram rejects a second answer. Taking the pending
		// entry succeeds only when nobody answered yet.
		if sender := c.Sender(); sender != nil {
			if _, ok := b.takeCallback(strconv.FormatInt(sender.ID, 10)); !ok {
				return nil
			}
		}
		return c.Respond(&tele.CallbackResponse{})
	})
	b.bot.Handle(tele.OnCheckout, func(c tele.Context) error {
		pre := c.PreCheckoutQuery()
		return b.dispatch(c, engine.PaymentPrecheck{
			ID:             pre.ID,
			InvoicePayload: pre.Payload,
		})
	})
	b.bot.Handle(tele.OnPayment, func(c tele.Context) error {
		return b.dispatch(c, engine.PaymentCompleted{})
	})
}

func (b *Bot) dispatch(c tele.Context, ev engine.Event) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := requestContext(c)
	return b.engine.HandleEvent(ctx, strconv.FormatInt(sender.ID, 10), ev)
}

// decodeCallback maps "\f<unique>|<data>" callback data to an engine event.
func decodeCallback(cb *tele.Callback) (engine.Event, error) {
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, data, _ := strings.Cut(raw, "|")
	switch strings.TrimSpace(unique) {
	case cbProduct:
		return engine.MenuSelection{ProductID: data}, nil
	case cbEvent:
		payload, err := engine.DecodePayload(data)
		if err != nil {
			return nil, err
		}
		return engine.Postback{Payload: payload}, nil
	default:
		return nil, fmt.Errorf("tgbot: unknown callback key %q", unique)
	}
}

func (b *Bot) rememberCallback(c tele.Context) {
	sender := c.Sender()
	if sender == nil {
		return
	}
	b.mu.Lock()
	b.pending[strconv.FormatInt(sender.ID, 10)] = c.Callback()
	b.mu.Unlock()
}

func (b *Bot) forgetCallback(c tele.Context) {
	sender := c.Sender()
	if sender == nil {
		return
	}
	b.mu.Lock()
	delete(b.pending, strconv.FormatInt(sender.ID, 10))
	b.mu.Unlock()
}

// takeCallback removes and returns the pending callback for a user, so a
// callback is answered at most once no matter who answers it.
func (b *Bot) takeCallback(userID string) (*tele.Callback, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.pending[userID]
	if ok {
		delete(b.pending, userID)
	}
	return cb, ok
}

func recipient(userID string) (tele.Recipient, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tgbot: invalid user id %q: %w", userID, err)
	}
	return tele.ChatID(id), nil
}
