package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath     string
	LedgerPath string // empty disables the ledger mirror

	// Source and delivery
	NewsURL    string
	WebhookURL string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Polling settings
	Interval time.Duration // 0 means one-shot
	DryRun   bool

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:     DefaultDBPath,
		LedgerPath: DefaultLedgerPath,
		NewsURL:    DefaultNewsURL,
		WebhookURL: GetEnvString("NEWSWATCH_WEBHOOK_URL", ""),
		ServerHost: DefaultServerHost,
		ServerPort: DefaultServerPort,
		APIKey:     GetEnvString("NEWSWATCH_API_KEY", ""),
		Interval:   time.Duration(DefaultIntervalSeconds) * time.Second,
		LogLevel:   logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
