package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Moltin.ClientID = "client"
	cfg.Moltin.ClientSecret = "secret"
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "RUB", cfg.Telegram.Currency)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "https://api.moltin.com", cfg.Moltin.Endpoint)
	assert.Equal(t, DefaultTiers, cfg.Delivery.Tiers)
	assert.Equal(t, 3600, cfg.Delivery.FollowUpDelaySeconds)
}

func TestNormalizeRequiresCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.Moltin.ClientSecret = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeRunModes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling" // legacy alias
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	assert.Error(t, Normalize(cfg), "webhook mode without url/listen/port")

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook.URL = "https://bot.example/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	assert.NoError(t, Normalize(cfg))

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeFacebookRequiresVerifyToken(t *testing.T) {
	cfg := validConfig()
	cfg.Facebook.PageToken = "page-token"
	assert.Error(t, Normalize(cfg))

	cfg.Facebook.VerifyToken = "verify"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, ":8080", cfg.Facebook.Listen)
}

func TestValidateTiers(t *testing.T) {
	cfg := validConfig()
	cfg.Delivery.Tiers = []DeliveryTier{
		{MaxDistanceKm: 5, PriceMinor: 100},
		{MaxDistanceKm: 2, PriceMinor: 300},
	}
	assert.Error(t, Normalize(cfg), "distances out of order")

	cfg = validConfig()
	cfg.Delivery.Tiers = []DeliveryTier{
		{MaxDistanceKm: 2, PriceMinor: 300},
		{MaxDistanceKm: 5, PriceMinor: 100},
	}
	assert.Error(t, Normalize(cfg), "prices must be non-decreasing")

	cfg = validConfig()
	cfg.Delivery.Tiers = []DeliveryTier{
		{MaxDistanceKm: 0.5, PriceMinor: 0},
		{MaxDistanceKm: 5, PriceMinor: 100},
	}
	assert.NoError(t, Normalize(cfg))
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: "123:abc"
  currency: USD
moltin:
  client_id: client
  client_secret: secret
delivery:
  tiers:
    - max_distance_km: 1
      price_minor: 0
    - max_distance_km: 10
      price_minor: 2500
  followup_delay_seconds: 60
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Telegram.Currency)
	require.Len(t, cfg.Delivery.Tiers, 2)
	assert.Equal(t, int64(2500), cfg.Delivery.Tiers[1].PriceMinor)
	assert.Equal(t, 60, cfg.Delivery.FollowUpDelaySeconds)
}
