package tgbot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/grepto/pizza-bot/core/logger"
)

const component = "tgbot"

// recoverMiddleware catches panics in handlers and keeps the bot running.
func recoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(context.Background(), component, "panic_recovered",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}

// loggingMiddleware builds the request id, stores the request context on
// the telebot context, and logs one receipt line per update.
func loggingMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		chatID, userID := int64(0), int64(0)
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}

		rid := logger.BuildRID(upd.ID, chatID, userID)
		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithLogger(ctx, logger.Component(component))
		c.Set("ctx", ctx)

		attrs := []slog.Attr{
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
			slog.Int64("user_id", userID),
		}
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
		if cb := c.Callback(); cb != nil {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(cb.Data, 256)))
		}
		logger.Debug(ctx, component, "update_received", attrs...)

		start := time.Now()
		err := next(c)
		logger.Debug(ctx, component, "update_handled",
			slog.String("rid", logger.RIDFrom(ctx)),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))))
		return err
	}
}

// requestContext returns the context stored by loggingMiddleware.
func requestContext(c tele.Context) context.Context {
	if ctx, ok := c.Get("ctx").(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}
