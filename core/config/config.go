package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot and payment provider settings.
type TelegramConfig struct {
	Token            string `yaml:"token" envconfig:"TELEGRAM_TOKEN"`
	PaymentToken     string `yaml:"payment_token" envconfig:"TELEGRAM_PAYMENT_TOKEN"`
	PaymentParameter string `yaml:"payment_parameter" envconfig:"TELEGRAM_PAYMENT_PARAMETER"`
	Currency         string `yaml:"currency" envconfig:"TELEGRAM_CURRENCY"`
	RunMode          string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// FacebookConfig holds Messenger webhook and Graph API settings.
// The Facebook transport is optional and enabled when PageToken is set.
type FacebookConfig struct {
	PageToken        string `yaml:"page_token" envconfig:"FACEBOOK_PAGE_TOKEN"`
	VerifyToken      string `yaml:"verify_token" envconfig:"FACEBOOK_VERIFY_TOKEN"`
	Listen           string `yaml:"listen" envconfig:"FACEBOOK_LISTEN"`
	CommonCategoryID string `yaml:"common_category_id" envconfig:"FACEBOOK_COMMON_CATEGORY_ID"`
}

// RedisConfig describes the conversation state store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// MoltinConfig holds commerce API credentials.
type MoltinConfig struct {
	ClientID     string `yaml:"client_id" envconfig:"MOLTIN_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"MOLTIN_SECRET"`
	Endpoint     string `yaml:"endpoint" envconfig:"MOLTIN_ENDPOINT"`
}

// GeocoderConfig holds geocoding provider settings.
type GeocoderConfig struct {
	APIKey   string `yaml:"api_key" envconfig:"GEOCODER_API_KEY"`
	Endpoint string `yaml:"endpoint" envconfig:"GEOCODER_ENDPOINT"`
}

// DeliveryTier maps an upper distance bound (inclusive) to a delivery price in minor units.
type DeliveryTier struct {
	MaxDistanceKm float64 `yaml:"max_distance_km"`
	PriceMinor    int64   `yaml:"price_minor"`
}

// DeliveryConfig describes the delivery pricing table and post-payment follow-up.
type DeliveryConfig struct {
	Tiers []DeliveryTier `yaml:"tiers"`
	// FollowUpDelaySeconds defines the fixed delay before the post-payment
	// follow-up message is sent to the customer.
	FollowUpDelaySeconds int `yaml:"followup_delay_seconds" envconfig:"DELIVERY_FOLLOWUP_DELAY_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Config aggregates the bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Facebook FacebookConfig `yaml:"facebook"`
	Redis    RedisConfig    `yaml:"redis"`
	Moltin   MoltinConfig   `yaml:"moltin"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultTiers is the delivery pricing table applied when the config omits one.
var DefaultTiers = []DeliveryTier{
	{MaxDistanceKm: 0.5, PriceMinor: 0},
	{MaxDistanceKm: 5, PriceMinor: 10000},
	{MaxDistanceKm: 20, PriceMinor: 30000},
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Moltin.ClientID == "" || cfg.Moltin.ClientSecret == "" {
		return fmt.Errorf("moltin client_id and client_secret are required")
	}
	if cfg.Moltin.Endpoint == "" {
		cfg.Moltin.Endpoint = "https://api.moltin.com"
	}
	if cfg.Geocoder.Endpoint == "" {
		cfg.Geocoder.Endpoint = "https://geocode-maps.yandex.ru/1.x"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Telegram.Currency == "" {
		cfg.Telegram.Currency = "RUB"
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Facebook.PageToken != "" {
		if cfg.Facebook.VerifyToken == "" {
			return fmt.Errorf("facebook.verify_token is required when facebook.page_token is set")
		}
		if cfg.Facebook.Listen == "" {
			cfg.Facebook.Listen = ":8080"
		}
	}

	if len(cfg.Delivery.Tiers) == 0 {
		cfg.Delivery.Tiers = append([]DeliveryTier(nil), DefaultTiers...)
	}
	if err := validateTiers(cfg.Delivery.Tiers); err != nil {
		return err
	}
	if cfg.Delivery.FollowUpDelaySeconds <= 0 {
		cfg.Delivery.FollowUpDelaySeconds = 3600
	}

	return nil
}

// validateTiers enforces strictly ascending distance bounds and
// non-decreasing prices so that a quote is monotonic in distance.
func validateTiers(tiers []DeliveryTier) error {
	for i, tier := range tiers {
		if tier.MaxDistanceKm <= 0 {
			return fmt.Errorf("delivery.tiers[%d].max_distance_km must be > 0", i)
		}
		if tier.PriceMinor < 0 {
			return fmt.Errorf("delivery.tiers[%d].price_minor must be >= 0", i)
		}
		if i == 0 {
			continue
		}
		if tier.MaxDistanceKm <= tiers[i-1].MaxDistanceKm {
			return fmt.Errorf("delivery.tiers must be sorted by ascending max_distance_km")
		}
		if tier.PriceMinor < tiers[i-1].PriceMinor {
			return fmt.Errorf("delivery.tiers prices must be non-decreasing")
		}
	}
	return nil
}
