package config

import (
	"fmt"
	"os"
)

// Config holds settings for the partner tooling, loaded from the
// environment.
type Config struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string

	HTTPListenAddr string
	DatabaseURL    string
	LogLevel       string
	ServiceName    string

	// MockWebhookURL is where the mock Partner API delivers signed events.
	MockWebhookURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		APIKey:         getEnv("OPENMOOVE_API_KEY", ""),
		BaseURL:        getEnv("OPENMOOVE_BASE_URL", ""),
		WebhookSecret:  getEnv("OPENMOOVE_WEBHOOK_SECRET", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8090"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceName:    getEnv("SERVICE_NAME", ""),
		MockWebhookURL: getEnv("MOCK_WEBHOOK_URL", ""),
	}

	return cfg, nil
}

// Validate checks that the fields required by the named service are set.
func (c *Config) Validate(service string) error {
	switch service {
	case "webhook-relay":
		if c.WebhookSecret == "" {
			return fmt.Errorf("OPENMOOVE_WEBHOOK_SECRET is required")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
