// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package metrics holds the Prometheus instruments shared across the
// pipeline. Instruments are registered at init via promauto on the default
// registry, which the ops router exposes under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts inbound feed-deliver events by outcome.
	// outcome: processed, dropped, invalid
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitorss_feed_events_total",
			Help: "Total number of feed delivery events consumed",
		},
		[]string{"outcome"},
	)

	// DeliveriesTotal counts per-(article, medium) delivery states by status.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitorss_deliveries_total",
			Help: "Total number of article delivery states produced",
		},
		[]string{"status"},
	)

	// DeliveryResultsTotal counts async provider results by classification.
	// classification: sent, rejected, failed, unmatched
	DeliveryResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitorss_delivery_results_total",
			Help: "Total number of async delivery results consumed",
		},
		[]string{"classification"},
	)

	// ArticlesSelectedTotal counts articles that passed novelty selection.
	ArticlesSelectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitorss_articles_selected_total",
			Help: "Total number of articles selected for delivery",
		},
	)

	// EventDuration observes end-to-end processing time of one event.
	EventDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitorss_event_duration_seconds",
			Help:    "Feed delivery event processing duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RecordsPrunedTotal counts delivery records removed by retention.
	RecordsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitorss_delivery_records_pruned_total",
			Help: "Total number of delivery records pruned by retention",
		},
	)

	// HTTPRequestsTotal counts operational HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitorss_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monitorss_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
