// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package eventprocessor

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/synzen/MonitoRSS-sub001/internal/database"
	"github.com/synzen/MonitoRSS-sub001/internal/logging"
	"github.com/synzen/MonitoRSS-sub001/internal/metrics"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// maxExternalDetailBytes caps the provider response blob stored with a
// delivery record.
const maxExternalDetailBytes = 1024

// Deliverer runs the delivery pipeline for one event. Satisfied by
// *delivery.Orchestrator.
type Deliverer interface {
	Deliver(ctx context.Context, event *models.FeedDeliverEvent) ([]models.ArticleDeliveryState, error)
}

// FeedEventHandler consumes FeedDeliverEvent messages.
type FeedEventHandler struct {
	deliverer Deliverer
	validate  *validator.Validate
}

// NewFeedEventHandler returns a handler driving the given deliverer.
func NewFeedEventHandler(deliverer Deliverer) *FeedEventHandler {
	return &FeedEventHandler{
		deliverer: deliverer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handle processes one inbound event. Malformed events and feed-level
// failures are acked and dropped: redelivering them cannot help, and the
// next poll cycle produces a fresh event.
func (h *FeedEventHandler) Handle(ctx context.Context, msg *message.Message) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)

	var event models.FeedDeliverEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		metrics.EventsTotal.WithLabelValues("invalid").Inc()
		log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed feed event")
		return nil
	}
	if err := h.validate.Struct(&event); err != nil {
		metrics.EventsTotal.WithLabelValues("invalid").Inc()
		log.Warn().Err(err).Str("feed_id", event.Feed.ID).Msg("dropping invalid feed event")
		return nil
	}

	states, err := h.deliverer.Deliver(ctx, &event)
	if err != nil {
		metrics.EventsTotal.WithLabelValues("dropped").Inc()
		log.Warn().Err(err).Str("feed_id", event.Feed.ID).
			Msg("feed event dropped, awaiting next poll cycle")
		return nil
	}

	metrics.EventsTotal.WithLabelValues("processed").Inc()
	log.Info().Str("feed_id", event.Feed.ID).
		Int("mediums", len(event.Mediums)).
		Int("states", len(states)).
		Msg("feed event processed")
	return nil
}

// ResultStore is the persistence surface the result handler needs.
// Satisfied by *database.DB.
type ResultStore interface {
	GetDeliveryRecord(ctx context.Context, id string) (*database.DeliveryRecord, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, errorCode models.DeliveryErrorCode, externalDetail string) (bool, error)
}

// DeliveryResultHandler consumes async provider outcomes and reconciles
// them onto the persisted delivery records. There is no in-memory
// correlation with the enqueue side; the record id is the only link.
type DeliveryResultHandler struct {
	store     ResultStore
	publisher EventPublisher
	topics    Topics
	validate  *validator.Validate
}

// NewDeliveryResultHandler returns a result handler. The publisher emits
// DisableDestinationEvent signals on permanent rejections.
func NewDeliveryResultHandler(store ResultStore, publisher EventPublisher, topics Topics) *DeliveryResultHandler {
	return &DeliveryResultHandler{
		store:     store,
		publisher: publisher,
		topics:    topics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handle reconciles one result. Store errors are returned so the broker
// redelivers; everything else acks.
func (h *DeliveryResultHandler) Handle(ctx context.Context, msg *message.Message) error {
	log := logging.Ctx(ctx)

	var result models.DeliveryResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		metrics.DeliveryResultsTotal.WithLabelValues("unmatched").Inc()
		log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed delivery result")
		return nil
	}
	if err := h.validate.Struct(&result); err != nil {
		metrics.DeliveryResultsTotal.WithLabelValues("unmatched").Inc()
		log.Warn().Err(err).Str("job_id", result.Job.ID).Msg("dropping invalid delivery result")
		return nil
	}

	status, errorCode := classifyResult(&result.Result)
	detail := result.Result.Body
	if result.Result.State != "success" {
		detail = result.Result.Message
	}
	detail = truncateDetail(detail)

	updated, err := h.store.UpdateDeliveryStatus(ctx, result.Job.ID, status, errorCode, detail)
	if err != nil {
		return fmt.Errorf("update delivery %s: %w", result.Job.ID, err)
	}
	if !updated {
		// Unknown id or already terminal; duplicate callbacks are no-ops.
		metrics.DeliveryResultsTotal.WithLabelValues("unmatched").Inc()
		log.Debug().Str("job_id", result.Job.ID).Msg("delivery result did not match a pending record")
		return nil
	}

	metrics.DeliveryResultsTotal.WithLabelValues(resultClassification(status)).Inc()

	if status == models.StatusRejected {
		if err := h.publishDisable(ctx, result.Job.ID, errorCode); err != nil {
			// The record is already reconciled; the disable signal is an
			// advisory for the control plane, so failure only logs.
			log.Error().Err(err).Str("job_id", result.Job.ID).Msg("failed to publish disable signal")
		}
	}
	return nil
}

// publishDisable emits a DisableDestinationEvent for the rejected record.
func (h *DeliveryResultHandler) publishDisable(ctx context.Context, jobID string, errorCode models.DeliveryErrorCode) error {
	record, err := h.store.GetDeliveryRecord(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load rejected record: %w", err)
	}

	event := models.DisableDestinationEvent{
		RejectedCode: errorCode,
		Medium:       models.DisabledMedium{ID: record.MediumID},
		Feed:         models.DisabledFeed{ID: record.FeedID},
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal disable event: %w", err)
	}

	return h.publisher.Publish(ctx, h.topics.MediumDisable, message.NewMessage(jobID+":disable", data))
}

// classifyResult maps a provider outcome to a terminal status. 2xx is sent;
// configuration-class 4xx is a permanent rejection; everything else,
// including transport-level errors, is a transient failure.
func classifyResult(result *models.DeliveryJobResult) (models.DeliveryStatus, models.DeliveryErrorCode) {
	if result.State != "success" {
		return models.StatusFailed, models.ErrorCodeInternal
	}

	switch {
	case result.Status >= 200 && result.Status <= 299:
		return models.StatusSent, ""
	case result.Status == 400:
		return models.StatusRejected, models.ErrorCodeThirdPartyBadRequest
	case result.Status == 403:
		return models.StatusRejected, models.ErrorCodeThirdPartyForbidden
	case result.Status == 404:
		return models.StatusRejected, models.ErrorCodeThirdPartyNotFound
	default:
		return models.StatusFailed, models.ErrorCodeThirdPartyInternal
	}
}

// truncateDetail caps the stored provider blob, backing off to the nearest
// rune boundary so a multi-byte character is never cut in half.
func truncateDetail(detail string) string {
	if len(detail) <= maxExternalDetailBytes {
		return detail
	}
	cut := maxExternalDetailBytes
	for cut > 0 && !utf8.RuneStart(detail[cut]) {
		cut--
	}
	return detail[:cut]
}

func resultClassification(status models.DeliveryStatus) string {
	switch status {
	case models.StatusSent:
		return "sent"
	case models.StatusRejected:
		return "rejected"
	default:
		return "failed"
	}
}
