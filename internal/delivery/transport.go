// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package delivery

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// providerAPIBase is the provider REST base. Var so tests can point jobs at
// a stub server.
var providerAPIBase = "https://discord.com/api/v10"

// Job is one enqueued provider request. The transport delivers it
// asynchronously; the outcome arrives later as a DeliveryResult carrying the
// same ID.
type Job struct {
	ID       string          `json:"id"`
	FeedID   string          `json:"feedId"`
	MediumID string          `json:"mediumId"`
	Method   string          `json:"method"`
	URL      string          `json:"url"`
	Body     json.RawMessage `json:"body"`
}

// Transport accepts jobs for asynchronous provider delivery.
type Transport interface {
	Enqueue(ctx context.Context, job Job) error
}

// jobURL resolves the provider endpoint for a medium. Thread-creating
// channels post to the thread creation endpoint; webhooks carry their token
// in the path.
func jobURL(details *models.MediumDetails) (string, error) {
	switch {
	case details.Channel != nil:
		id := details.Channel.ID
		switch details.Channel.Type {
		case models.ChannelTypeForum, models.ChannelTypeNewThread:
			return fmt.Sprintf("%s/channels/%s/threads", providerAPIBase, id), nil
		default:
			return fmt.Sprintf("%s/channels/%s/messages", providerAPIBase, id), nil
		}
	case details.Webhook != nil:
		return fmt.Sprintf("%s/webhooks/%s/%s?wait=true", providerAPIBase, details.Webhook.ID, details.Webhook.Token), nil
	default:
		return "", fmt.Errorf("medium has neither channel nor webhook")
	}
}

// continuationJobURL resolves the endpoint for split parts after the lead.
// Only the lead part of a thread-creating channel may hit the thread
// creation endpoint; continuations post plain messages to the channel.
// Webhook continuations reuse the webhook path.
func continuationJobURL(details *models.MediumDetails) (string, error) {
	if details.Channel != nil {
		return fmt.Sprintf("%s/channels/%s/messages", providerAPIBase, details.Channel.ID), nil
	}
	return jobURL(details)
}
