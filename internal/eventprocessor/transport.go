// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/synzen/MonitoRSS-sub001/internal/delivery"
)

// EventPublisher publishes broker messages. Satisfied by *Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// JobPublisher implements the delivery transport by publishing jobs to the
// enqueue topic, where delivery workers pick them up. The job id doubles as
// the broker message id, so a redelivered publish is deduplicated broker-side.
type JobPublisher struct {
	publisher EventPublisher
	topic     string
}

// NewJobPublisher returns a transport publishing to topic.
func NewJobPublisher(publisher EventPublisher, topic string) *JobPublisher {
	return &JobPublisher{publisher: publisher, topic: topic}
}

// Enqueue publishes one provider job.
func (p *JobPublisher) Enqueue(ctx context.Context, job delivery.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal delivery job: %w", err)
	}

	msg := message.NewMessage(job.ID, data)
	msg.Metadata.Set("feed_id", job.FeedID)
	msg.Metadata.Set("medium_id", job.MediumID)

	if err := p.publisher.Publish(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish delivery job %s: %w", job.ID, err)
	}
	return nil
}
