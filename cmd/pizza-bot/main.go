// Command pizza-bot runs the ordering conversation over Telegram and,
// when a page token is configured, Facebook Messenger.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/core/logger"
	"github.com/grepto/pizza-bot/core/netutil"
	"github.com/grepto/pizza-bot/internal/delivery"
	"github.com/grepto/pizza-bot/internal/engine"
	"github.com/grepto/pizza-bot/internal/fbbot"
	"github.com/grepto/pizza-bot/internal/geo"
	"github.com/grepto/pizza-bot/internal/moltin"
	"github.com/grepto/pizza-bot/internal/state"
	"github.com/grepto/pizza-bot/internal/tgbot"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("pizza-bot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return err
	}
	defer rdb.Close()

	store := state.NewRedisStore(rdb)
	httpClient := netutil.BuildHTTPClient()
	commerce := moltin.NewClient(cfg.Moltin.Endpoint, cfg.Moltin.ClientID, cfg.Moltin.ClientSecret, httpClient)
	geocoder := geo.NewGeocoder(cfg.Geocoder.Endpoint, cfg.Geocoder.APIKey, httpClient)
	tiers := delivery.TiersFromConfig(cfg.Delivery.Tiers)
	followUpDelay := time.Duration(cfg.Delivery.FollowUpDelaySeconds) * time.Second

	bot, err := tgbot.New(cfg)
	if err != nil {
		return err
	}
	bot.Attach(engine.New(engine.Config{
		Namespace:     tgbot.Namespace,
		Store:         store,
		Catalog:       commerce,
		Carts:         commerce,
		Locations:     commerce,
		Geocoder:      geocoder,
		Renderer:      bot,
		Tiers:         tiers,
		FollowUpDelay: followUpDelay,
	}))

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	if cfg.Facebook.PageToken != "" {
		fbRenderer := fbbot.NewRenderer(
			fbbot.NewClient("", cfg.Facebook.PageToken, httpClient),
			store,
		)
		webhook := fbbot.NewWebhook(cfg, engine.New(engine.Config{
			Namespace:         fbbot.Namespace,
			Store:             store,
			Catalog:           commerce,
			Carts:             commerce,
			Locations:         commerce,
			Geocoder:          geocoder,
			Renderer:          fbRenderer,
			Tiers:             tiers,
			FollowUpDelay:     followUpDelay,
			DefaultCategoryID: cfg.Facebook.CommonCategoryID,
		}))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webhook.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		stop()
		<-done
		return err
	case <-done:
	}

	logger.Info(context.Background(), "main", "stopped", slog.String("reason", "signal"))
	return nil
}
