// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package config loads the service configuration from defaults, an optional
// YAML file, and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/database"
	"github.com/synzen/MonitoRSS-sub001/internal/dedupcache"
	"github.com/synzen/MonitoRSS-sub001/internal/eventprocessor"
	"github.com/synzen/MonitoRSS-sub001/internal/logging"
)

// Config is the full service configuration.
type Config struct {
	Logging    LoggingConfig         `koanf:"logging"`
	Database   database.Config       `koanf:"database"`
	DedupCache dedupcache.Config     `koanf:"dedup_cache"`
	NATS       NATSConfig            `koanf:"nats"`
	Topics     eventprocessor.Topics `koanf:"topics"`
	Server     ServerConfig          `koanf:"server"`
	Delivery   DeliveryConfig        `koanf:"delivery"`
}

// LoggingConfig holds the log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ToLogging converts to the logging package's config.
func (c LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	cfg.Caller = c.Caller
	return cfg
}

// NATSConfig holds the broker settings. When EmbeddedServer is set the
// process runs its own JetStream server and URL is ignored.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`

	Server     eventprocessor.ServerConfig     `koanf:"server"`
	Publisher  eventprocessor.PublisherConfig  `koanf:"publisher"`
	Subscriber eventprocessor.SubscriberConfig `koanf:"subscriber"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DeliveryConfig holds the pipeline tuning knobs.
type DeliveryConfig struct {
	// UserAgent identifies feed fetches to origin servers.
	UserAgent string `koanf:"user_agent"`

	// RequestTimeout bounds one feed fetch.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// PruneInterval is how often old delivery records are swept.
	PruneInterval time.Duration `koanf:"prune_interval"`

	// Retention is how long delivery records are kept for rate-limit
	// accounting and debugging.
	Retention time.Duration `koanf:"retention"`
}

// defaultConfig returns the configuration applied before file and env layers.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database:   database.DefaultConfig(),
		DedupCache: dedupcache.DefaultConfig(),
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Server:         eventprocessor.DefaultServerConfig(),
			Publisher:      eventprocessor.DefaultPublisherConfig(""),
			Subscriber:     eventprocessor.DefaultSubscriberConfig(""),
		},
		Topics: eventprocessor.DefaultTopics(),
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Delivery: DeliveryConfig{
			UserAgent:      "MonitoRSS/1.0",
			RequestTimeout: 15 * time.Second,
			PruneInterval:  time.Hour,
			Retention:      14 * 24 * time.Hour,
		},
	}
}

// Validate checks the loaded configuration for values the service cannot
// start with.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.DedupCache.Path == "" && !c.DedupCache.InMemory {
		return fmt.Errorf("dedup_cache.path must not be empty")
	}
	if c.DedupCache.TTL < 0 {
		return fmt.Errorf("dedup_cache.ttl must not be negative")
	}

	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.embedded_server is false")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Delivery.RequestTimeout <= 0 {
		return fmt.Errorf("delivery.request_timeout must be positive")
	}
	if c.Delivery.PruneInterval <= 0 {
		return fmt.Errorf("delivery.prune_interval must be positive")
	}
	if c.Delivery.Retention <= 0 {
		return fmt.Errorf("delivery.retention must be positive")
	}

	for name, topic := range map[string]string{
		"topics.feed_deliver":     c.Topics.FeedDeliver,
		"topics.delivery_result":  c.Topics.DeliveryResult,
		"topics.medium_disable":   c.Topics.MediumDisable,
		"topics.delivery_enqueue": c.Topics.DeliveryEnqueue,
	} {
		if topic == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	return nil
}
