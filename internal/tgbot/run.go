package tgbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/core/logger"
)

// Run starts the poller and blocks until ctx is cancelled. Before a
// long-poll start it drops any registered webhook, otherwise Telegram
// refuses getUpdates.
func (b *Bot) Run(ctx context.Context) error {
	if b.engine == nil {
		return errors.New("tgbot: Run called before Attach")
	}

	if !strings.EqualFold(b.cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		if err := deleteWebhook(b.cfg.Telegram.Token, false); err != nil {
			logger.Warn(ctx, component, "webhook_cleanup_failed", slog.Any("error", err))
		}
	}

	logger.Info(ctx, component, "bot_started",
		slog.String("run_mode", b.cfg.Telegram.RunMode))

	done := make(chan struct{})
	go func() {
		b.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-done
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-done:
		return nil
	}
}

func deleteWebhook(token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
