// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package models

// FeedDeliverEvent is the inbound broker event that drives one delivery
// pass: every article of the named feed is evaluated against every medium.
type FeedDeliverEvent struct {
	Feed            DeliveryFeed `json:"feed" validate:"required"`
	Mediums         []Medium     `json:"mediums" validate:"required,min=1,dive"`
	ArticleDayLimit int          `json:"articleDayLimit" validate:"gte=0"`

	// Timestamp is the broker-assigned event time, used for debounce
	// logging only.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// DeliveryFeed describes the feed a delivery event belongs to.
type DeliveryFeed struct {
	ID  string `json:"id" validate:"required"`
	URL string `json:"url" validate:"required,url"`

	// PassingComparisons name fields whose changed value re-qualifies a seen
	// article for delivery. BlockingComparisons name fields whose unchanged
	// value blocks an otherwise-new article.
	PassingComparisons  []string `json:"passingComparisons,omitempty"`
	BlockingComparisons []string `json:"blockingComparisons,omitempty"`

	FormatOptions *FormatOptions `json:"formatOptions,omitempty"`
}

// DeliveryResult is the asynchronous provider outcome for one enqueued job.
// Job.ID matches ArticleDeliveryState.ID.
type DeliveryResult struct {
	Job    DeliveryJobRef    `json:"job" validate:"required"`
	Result DeliveryJobResult `json:"result" validate:"required"`
}

// DeliveryJobRef identifies the job a result belongs to.
type DeliveryJobRef struct {
	ID string `json:"id" validate:"required"`
}

// DeliveryJobResult is the transport-reported outcome. State is "success"
// when an HTTP response was obtained (Status then carries the code) and
// "error" when the transport itself failed.
type DeliveryJobResult struct {
	State   string `json:"state" validate:"required,oneof=success error"`
	Status  int    `json:"status,omitempty"`
	Body    string `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
}

// DisableDestinationEvent is published when the provider permanently rejects
// deliveries for a medium (bad request, forbidden, or missing destination),
// signalling the control plane to disable it.
type DisableDestinationEvent struct {
	RejectedCode DeliveryErrorCode `json:"rejectedCode"`
	Medium       DisabledMedium    `json:"medium"`
	Feed         DisabledFeed      `json:"feed"`
}

type DisabledMedium struct {
	ID string `json:"id"`
}

type DisabledFeed struct {
	ID string `json:"id"`
}
