package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Payment  PaymentConfig
	Sweeper  SweeperConfig
	Secrets  SecretsConfig
	Gateways GatewaysConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type PaymentConfig struct {
	// FallbackFee is used when the platform_fee setting is absent or unreadable.
	FallbackFee     string
	FeeCacheTTL     time.Duration
	ProviderTimeout time.Duration
	// WebhookBaseURL is the public base providers deliver callbacks to,
	// e.g. https://pay.example.com
	WebhookBaseURL string
}

type SweeperConfig struct {
	ExpireSchedule string
	RemindSchedule string
	RemindDays     int
}

type SecretsConfig struct {
	// Key is 32 bytes, hex-encoded, for sealing gateway credentials at rest.
	Key string
}

// GatewaysConfig carries provider base URL overrides (sandbox endpoints in
// development, empty = production defaults).
type GatewaysConfig struct {
	MercadoPagoBaseURL string
	PushinPayBaseURL   string
	AsaasBaseURL       string
	PayPalBaseURL      string
	OpenPixBaseURL     string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8090"),
			Env:          envOr("ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DATABASE_DSN", "memberly:memberly@tcp(localhost:3306)/memberly?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Payment: PaymentConfig{
			FallbackFee:     envOr("PLATFORM_FEE", "0.55"),
			FeeCacheTTL:     30 * time.Second,
			ProviderTimeout: envDurationOr("PROVIDER_TIMEOUT", 25*time.Second),
			WebhookBaseURL:  envOr("WEBHOOK_BASE_URL", "https://pay.memberly.app"),
		},
		Sweeper: SweeperConfig{
			ExpireSchedule: envOr("SWEEP_SCHEDULE", "*/5 * * * *"),
			RemindSchedule: envOr("REMIND_SCHEDULE", "0 9 * * *"),
			RemindDays:     envIntOr("REMIND_DAYS", 3),
		},
		Secrets: SecretsConfig{
			Key: os.Getenv("CREDENTIALS_KEY"),
		},
		Gateways: GatewaysConfig{
			MercadoPagoBaseURL: os.Getenv("MERCADOPAGO_BASE_URL"),
			PushinPayBaseURL:   os.Getenv("PUSHINPAY_BASE_URL"),
			AsaasBaseURL:       os.Getenv("ASAAS_BASE_URL"),
			PayPalBaseURL:      os.Getenv("PAYPAL_BASE_URL"),
			OpenPixBaseURL:     os.Getenv("OPENPIX_BASE_URL"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
