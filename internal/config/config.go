// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"SERVICE_ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	// PublicBaseURL prefixes the tracking pixel URL injected into emails.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:""`

	DB       DBConfig
	AMQP     AMQPConfig
	Dispatch DispatchConfig

	EncryptionSecret string `env:"ENCRYPTION_SECRET"`
	// BillingWebhookSecret signs plan-change notifications; empty rejects them all.
	BillingWebhookSecret string `env:"BILLING_WEBHOOK_SECRET"`
	OpenAIModel          string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

type DBConfig struct {
	URL          string `env:"DATABASE_URL"`
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         string `env:"DB_PORT" envDefault:"5432"`
	Name         string `env:"DB_NAME" envDefault:"outreach"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

// DSN returns DATABASE_URL when set, otherwise builds one from the parts.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

type AMQPConfig struct {
	URL               string `env:"AMQP_URL"`
	NotificationQueue string `env:"AMQP_NOTIFICATION_QUEUE" envDefault:"user_notifications"`
}

type DispatchConfig struct {
	BatchSize            int           `env:"DISPATCH_BATCH_SIZE" envDefault:"25"`
	ClaimLease           time.Duration `env:"DISPATCH_CLAIM_LEASE" envDefault:"10m"`
	PollInterval         time.Duration `env:"DISPATCH_POLL_INTERVAL" envDefault:"1m"`
	AggregateInterval    time.Duration `env:"AGGREGATE_INTERVAL" envDefault:"1h"`
	NotifyInterval       time.Duration `env:"NOTIFY_INTERVAL" envDefault:"1h"`
	DefaultEmailsPerHour int           `env:"EMAILS_PER_HOUR_DEFAULT" envDefault:"20"`
	DueActionsLimit      int           `env:"DUE_ACTIONS_LIMIT" envDefault:"200"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	// A missing .env is fine; the process environment is authoritative.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.Dispatch.BatchSize <= 0 {
		return nil, fmt.Errorf("DISPATCH_BATCH_SIZE must be positive")
	}
	intervals := []struct {
		name  string
		value time.Duration
	}{
		{"DISPATCH_POLL_INTERVAL", cfg.Dispatch.PollInterval},
		{"AGGREGATE_INTERVAL", cfg.Dispatch.AggregateInterval},
		{"NOTIFY_INTERVAL", cfg.Dispatch.NotifyInterval},
	}
	for _, iv := range intervals {
		if iv.value <= 0 {
			return nil, fmt.Errorf("%s must be positive", iv.name)
		}
	}
	if cfg.Dispatch.DefaultEmailsPerHour <= 0 {
		cfg.Dispatch.DefaultEmailsPerHour = 20
	}
	return &cfg, nil
}
