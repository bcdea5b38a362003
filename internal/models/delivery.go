// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package models

import "time"

// DeliveryStatus classifies one article's delivery attempt to one medium.
type DeliveryStatus string

const (
	// StatusPendingDelivery means the payload was enqueued to the delivery
	// transport and the provider outcome has not arrived yet. This is the
	// only status the async result consumer may transition away from.
	StatusPendingDelivery DeliveryStatus = "pending-delivery"

	// StatusSent means the provider accepted the payload (2xx).
	StatusSent DeliveryStatus = "sent"

	// StatusFailed means a transient or internal failure; the article may be
	// retried by a future event.
	StatusFailed DeliveryStatus = "failed"

	// StatusRejected means the provider permanently rejected the payload
	// (configuration-class 4xx) or processing raised a per-article error.
	StatusRejected DeliveryStatus = "rejected"

	// StatusFilteredOut means the medium's filter expression evaluated false.
	StatusFilteredOut DeliveryStatus = "filtered-out"

	// StatusRateLimited means the feed-scope budget was exhausted.
	StatusRateLimited DeliveryStatus = "rate-limited"

	// StatusMediumRateLimitedByUser means a user-configured medium limit was
	// exhausted.
	StatusMediumRateLimitedByUser DeliveryStatus = "medium-rate-limited-by-user"
)

// DeliveryErrorCode refines failed/rejected states.
type DeliveryErrorCode string

const (
	ErrorCodeInternal             DeliveryErrorCode = "internal-error"
	ErrorCodeArticleProcessing    DeliveryErrorCode = "article-processing-error"
	ErrorCodeThirdPartyInternal   DeliveryErrorCode = "third-party-internal"
	ErrorCodeThirdPartyBadRequest DeliveryErrorCode = "third-party-bad-request"
	ErrorCodeThirdPartyForbidden  DeliveryErrorCode = "third-party-forbidden"
	ErrorCodeThirdPartyNotFound   DeliveryErrorCode = "third-party-not-found"
)

// DeliveryContentType tags which payload family a delivery carried.
type DeliveryContentType string

const (
	ContentTypeText         DeliveryContentType = "text"
	ContentTypeThreadCreate DeliveryContentType = "thread-create"
)

// ArticleDeliveryState records the outcome of one article delivered to one
// medium. One event may produce several states per (article, medium) pair
// when split text yields multiple payloads; children carry ParentID.
type ArticleDeliveryState struct {
	// ID is the opaque delivery id, also used as the transport job id.
	ID string

	MediumID      string
	Status        DeliveryStatus
	ErrorCode     DeliveryErrorCode
	InternalError string
	ContentType   DeliveryContentType
	ParentID      string
	ArticleIDHash string

	// ExternalDetail is an opaque blob from the provider response, kept for
	// operator diagnostics.
	ExternalDetail string

	CreatedAt time.Time
}

// IsTerminal reports whether the status will never change again.
func (s *ArticleDeliveryState) IsTerminal() bool {
	return s.Status != StatusPendingDelivery
}
