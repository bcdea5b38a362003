// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package main is the entry point for the article delivery service.
//
// The service consumes FeedDeliverEvent messages from NATS JetStream, runs
// each event through the delivery pipeline (fetch, extract, novelty
// selection, filters, formatting, rate limits, dedup), enqueues provider
// jobs back onto the broker, and reconciles asynchronous delivery results
// onto the persisted records.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file, env)
//  2. Logging: zerolog, JSON by default
//  3. Database: DuckDB for delivery records and comparison hashes
//  4. Dedup cache: BadgerDB TTL store for enqueue claims
//  5. NATS: embedded JetStream server (default) or external broker
//  6. Supervisor tree: consumers, record pruner, HTTP listener
//
// Shutdown on SIGINT/SIGTERM drains the supervisor tree, then closes the
// broker connections, cache, and database in reverse order.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/api"
	"github.com/synzen/MonitoRSS-sub001/internal/articles"
	"github.com/synzen/MonitoRSS-sub001/internal/comparisons"
	"github.com/synzen/MonitoRSS-sub001/internal/config"
	"github.com/synzen/MonitoRSS-sub001/internal/database"
	"github.com/synzen/MonitoRSS-sub001/internal/dedupcache"
	"github.com/synzen/MonitoRSS-sub001/internal/delivery"
	"github.com/synzen/MonitoRSS-sub001/internal/eventprocessor"
	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/format"
	"github.com/synzen/MonitoRSS-sub001/internal/logging"
	"github.com/synzen/MonitoRSS-sub001/internal/payload"
	"github.com/synzen/MonitoRSS-sub001/internal/ratelimit"
	"github.com/synzen/MonitoRSS-sub001/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(cfg.Logging.ToLogging())
	logging.Info().
		Str("log_level", cfg.Logging.Level).
		Bool("embedded_broker", cfg.NATS.EmbeddedServer).
		Msg("Starting article delivery service")

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Database close failed")
		}
	}()

	dedup, err := dedupcache.New(cfg.DedupCache)
	if err != nil {
		return fmt.Errorf("open dedup cache: %w", err)
	}
	defer func() {
		if err := dedup.Close(); err != nil {
			logging.Warn().Err(err).Msg("Dedup cache close failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Broker: either run JetStream in-process or point at an external
	// cluster. The embedded server keeps single-node deployments to one
	// binary.
	var embedded *eventprocessor.EmbeddedServer
	brokerURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		embedded, err = eventprocessor.NewEmbeddedServer(cfg.NATS.Server)
		if err != nil {
			return fmt.Errorf("start embedded broker: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded broker shutdown failed")
			}
		}()
		brokerURL = embedded.ClientURL()
		logging.Info().Str("url", brokerURL).Msg("Embedded JetStream server started")
	}

	wmLogger := eventprocessor.NewWatermillLogger()

	pubCfg := cfg.NATS.Publisher
	pubCfg.URL = brokerURL
	publisher, err := eventprocessor.NewPublisher(pubCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	publisher.SetCircuitBreaker(eventprocessor.NewPublishBreaker())
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Publisher close failed")
		}
	}()

	subCfg := cfg.NATS.Subscriber
	subCfg.URL = brokerURL
	subscriber, err := eventprocessor.NewSubscriber(subCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("Subscriber close failed")
		}
	}()

	// Delivery pipeline wiring.
	evaluator := filters.NewEvaluator()
	orchestrator := delivery.NewOrchestrator(delivery.Deps{
		Fetcher:   delivery.NewHTTPFetcher(cfg.Delivery.RequestTimeout, cfg.Delivery.UserAgent),
		Parser:    articles.NewParser(),
		Extractor: articles.NewExtractor(),
		Selector:  comparisons.NewStore(db),
		Formatter: format.NewArticleFormatter(),
		Evaluator: evaluator,
		Limiter:   ratelimit.NewLimiter(db),
		Dedup:     dedup,
		Builder:   payload.NewBuilder(evaluator),
		Transport: eventprocessor.NewJobPublisher(publisher, cfg.Topics.DeliveryEnqueue),
		Records:   delivery.NewDatabaseRecordStore(db),
	})

	feedHandler := eventprocessor.NewFeedEventHandler(orchestrator)
	resultHandler := eventprocessor.NewDeliveryResultHandler(db, publisher, cfg.Topics)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(subscriber.NewConsumerLoop(cfg.Topics.FeedDeliver, feedHandler.Handle))
	tree.AddPipelineService(subscriber.NewConsumerLoop(cfg.Topics.DeliveryResult, resultHandler.Handle))
	tree.AddPipelineService(delivery.NewPruner(db, cfg.Delivery.PruneInterval, cfg.Delivery.Retention))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	var brokerStatus api.BrokerStatus
	if embedded != nil {
		brokerStatus = embedded
	}
	router := api.NewRouter(db, brokerStatus)
	tree.AddAPIService(api.NewServer(addr, cfg.Server.Timeout, router.Handler()))

	logging.Info().
		Str("http_addr", addr).
		Str("feed_topic", cfg.Topics.FeedDeliver).
		Str("result_topic", cfg.Topics.DeliveryResult).
		Msg("Service started")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
