// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/monitorss/config.yaml",
	"/etc/monitorss/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from three layers: struct defaults, an
// optional YAML file, and environment variables, each overriding the last.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	// The broker URL propagates into the publisher and subscriber unless
	// those were overridden explicitly.
	if cfg.NATS.Publisher.URL == "" {
		cfg.NATS.Publisher.URL = cfg.NATS.URL
	}
	if cfg.NATS.Subscriber.URL == "" {
		cfg.NATS.Subscriber.URL = cfg.NATS.URL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps known environment variables to koanf config paths.
// Unknown variables map to "" and are skipped, so stray environment entries
// cannot pollute the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		"dedup_path": "dedup_cache.path",
		"dedup_ttl":  "dedup_cache.ttl",

		"nats_url":             "nats.url",
		"nats_embedded":        "nats.embedded_server",
		"nats_store_dir":       "nats.server.store_dir",
		"nats_max_memory":      "nats.server.jetstream_max_mem",
		"nats_max_store":       "nats.server.jetstream_max_store",
		"nats_durable_name":    "nats.subscriber.durable_name",
		"nats_queue_group":     "nats.subscriber.queue_group",
		"nats_subscribers":     "nats.subscriber.subscribers_count",
		"nats_max_deliver":     "nats.subscriber.max_deliver",
		"nats_ack_wait":        "nats.subscriber.ack_wait_timeout",
		"nats_max_ack_pending": "nats.subscriber.max_ack_pending",

		"topic_feed_deliver":     "topics.feed_deliver",
		"topic_delivery_result":  "topics.delivery_result",
		"topic_medium_disable":   "topics.medium_disable",
		"topic_delivery_enqueue": "topics.delivery_enqueue",

		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		"feed_user_agent":       "delivery.user_agent",
		"feed_request_timeout":  "delivery.request_timeout",
		"record_prune_interval": "delivery.prune_interval",
		"record_retention":      "delivery.retention",
	}

	if mapped, ok := mappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
