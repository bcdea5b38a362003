// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package delivery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/synzen/MonitoRSS-sub001/internal/articles"
	"github.com/synzen/MonitoRSS-sub001/internal/dedupcache"
	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/format"
	"github.com/synzen/MonitoRSS-sub001/internal/logging"
	"github.com/synzen/MonitoRSS-sub001/internal/metrics"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
	"github.com/synzen/MonitoRSS-sub001/internal/payload"
	"github.com/synzen/MonitoRSS-sub001/internal/ratelimit"
)

// ArticleSelector classifies extracted articles and returns the deliverable
// ones. Satisfied by *comparisons.Store.
type ArticleSelector interface {
	SelectArticlesForDelivery(ctx context.Context, feed *models.DeliveryFeed, list []*models.Article) ([]*models.Article, error)
}

// BudgetChecker answers rate-limit questions. Satisfied by
// *ratelimit.Limiter.
type BudgetChecker interface {
	UnderLimit(ctx context.Context, limits []ratelimit.Limit) (ratelimit.Verdict, error)
	RecordEnqueued(limits []ratelimit.Limit)
}

// DedupCache claims (feed, medium, article) keys. Satisfied by
// *dedupcache.Cache.
type DedupCache interface {
	CheckAndSet(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Deps wires an Orchestrator. All fields are required.
type Deps struct {
	Fetcher   Fetcher
	Parser    *articles.Parser
	Extractor *articles.Extractor
	Selector  ArticleSelector
	Formatter *format.ArticleFormatter
	Evaluator *filters.Evaluator
	Limiter   BudgetChecker
	Dedup     DedupCache
	Builder   *payload.Builder
	Transport Transport
	Records   RecordStore
}

// Orchestrator runs the delivery pipeline for one event at a time.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator returns an orchestrator over the given collaborators.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Deliver processes one feed-deliver event and returns the produced states.
// A returned error means the whole event was dropped before any delivery
// was attempted (fetch, parse, or selection failed); the caller acks and
// relies on the next poll cycle.
func (o *Orchestrator) Deliver(ctx context.Context, event *models.FeedDeliverEvent) ([]models.ArticleDeliveryState, error) {
	start := time.Now()
	defer func() { metrics.EventDuration.Observe(time.Since(start).Seconds()) }()

	log := logging.Ctx(ctx)

	body, err := o.deps.Fetcher.Fetch(ctx, event.Feed.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", event.Feed.ID, err)
	}

	feed, err := o.deps.Parser.Parse(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", event.Feed.ID, err)
	}

	extracted, err := o.deps.Extractor.ExtractAll(feed, event.Feed.FormatOptions)
	if err != nil {
		return nil, fmt.Errorf("extract articles of feed %s: %w", event.Feed.ID, err)
	}

	selected, err := o.deps.Selector.SelectArticlesForDelivery(ctx, &event.Feed, extracted)
	if err != nil {
		return nil, fmt.Errorf("select articles of feed %s: %w", event.Feed.ID, err)
	}
	if len(selected) == 0 {
		log.Debug().Str("feed_id", event.Feed.ID).Msg("no deliverable articles")
		return nil, nil
	}
	metrics.ArticlesSelectedTotal.Add(float64(len(selected)))

	feedLimits := ratelimit.FeedDailyLimit(event.Feed.ID, event.ArticleDayLimit)
	feedVerdict, err := o.deps.Limiter.UnderLimit(ctx, feedLimits)
	if err != nil {
		return nil, fmt.Errorf("check feed budget for %s: %w", event.Feed.ID, err)
	}
	feedRemaining := verdictBudget(feedVerdict)

	var states []models.ArticleDeliveryState
	for mi := range event.Mediums {
		medium := &event.Mediums[mi]
		mediumLimits := ratelimit.MediumLimits(medium.ID, medium.Details.RateLimits)

		mediumRemaining := math.MaxInt
		mediumVerdict, budgetErr := o.deps.Limiter.UnderLimit(ctx, mediumLimits)
		if budgetErr == nil {
			mediumRemaining = verdictBudget(mediumVerdict)
		}

		// Filters are parsed once per medium; a malformed expression rejects
		// every pair of this medium, not the other mediums.
		expr, exprErr := filters.ParseMediumFilters(medium.Details.Filters)

		for _, article := range selected {
			pairStates := o.deliverPair(ctx, event, medium, article, pairInput{
				expr:            expr,
				exprErr:         errors.Join(exprErr, budgetErr),
				feedLimits:      feedLimits,
				mediumLimits:    mediumLimits,
				feedRemaining:   &feedRemaining,
				mediumRemaining: &mediumRemaining,
			})
			states = append(states, pairStates...)
		}
	}

	for i := range states {
		metrics.DeliveriesTotal.WithLabelValues(string(states[i].Status)).Inc()
	}

	o.flush(ctx, event.Feed.ID, states)
	return states, nil
}

type pairInput struct {
	expr            filters.Expression
	exprErr         error
	feedLimits      []ratelimit.Limit
	mediumLimits    []ratelimit.Limit
	feedRemaining   *int
	mediumRemaining *int
}

// deliverPair runs steps for one (article, medium) pair. Any failure is
// converted to a terminal state; it never aborts other pairs. A dedup hit
// returns no states at all.
func (o *Orchestrator) deliverPair(ctx context.Context, event *models.FeedDeliverEvent, medium *models.Medium, article *models.Article, in pairInput) []models.ArticleDeliveryState {
	if *in.feedRemaining <= 0 {
		return []models.ArticleDeliveryState{newState(medium.ID, article.IDHash, models.StatusRateLimited)}
	}
	if *in.mediumRemaining <= 0 {
		return []models.ArticleDeliveryState{newState(medium.ID, article.IDHash, models.StatusMediumRateLimitedByUser)}
	}

	if in.exprErr != nil {
		return []models.ArticleDeliveryState{failureState(medium.ID, article.IDHash, in.exprErr)}
	}

	formatted, err := o.deps.Formatter.FormatForMedium(ctx, article, medium)
	if err != nil {
		return []models.ArticleDeliveryState{failureState(medium.ID, article.IDHash, err)}
	}

	if in.expr != nil {
		pass, trace, err := o.deps.Evaluator.EvaluateWithTrace(ctx, in.expr, &filters.References{Article: formatted.Flattened})
		if err != nil {
			return []models.ArticleDeliveryState{failureState(medium.ID, article.IDHash, err)}
		}
		if !pass {
			state := newState(medium.ID, article.IDHash, models.StatusFilteredOut)
			// Keep the per-node explain trace so operators can see which
			// clause blocked the article.
			if traceJSON, err := json.Marshal(trace); err == nil {
				state.ExternalDetail = string(traceJSON)
			}
			return []models.ArticleDeliveryState{state}
		}
	}

	dedupKey := dedupcache.DeliveryKey(event.Feed.ID, medium.ID, article.IDHash)
	existed, err := o.deps.Dedup.CheckAndSet(ctx, dedupKey)
	if err != nil {
		return []models.ArticleDeliveryState{failureState(medium.ID, article.IDHash, err)}
	}
	if existed {
		logger := logging.Ctx(ctx)
		logger.Debug().
			Str("feed_id", event.Feed.ID).
			Str("medium_id", medium.ID).
			Str("article_hash", article.IDHash).
			Msg("duplicate delivery suppressed")
		return nil
	}

	states, err := o.enqueue(ctx, event, medium, formatted, article.IDHash)
	if err != nil {
		// Release the claim so a redelivered event can retry the pair.
		if delErr := o.deps.Dedup.Delete(ctx, dedupKey); delErr != nil {
			logger := logging.Ctx(ctx)
			logger.Warn().Err(delErr).Str("key", dedupKey).Msg("failed to release dedup claim")
		}
		return []models.ArticleDeliveryState{failureState(medium.ID, article.IDHash, err)}
	}

	*in.feedRemaining--
	*in.mediumRemaining--
	o.deps.Limiter.RecordEnqueued(in.feedLimits)
	o.deps.Limiter.RecordEnqueued(in.mediumLimits)

	return states
}

// enqueue builds the provider messages and hands each to the transport. The
// first message is the parent delivery; split continuations reference it.
func (o *Orchestrator) enqueue(ctx context.Context, event *models.FeedDeliverEvent, medium *models.Medium, article *models.Article, articleIDHash string) ([]models.ArticleDeliveryState, error) {
	messages, err := o.deps.Builder.Build(ctx, article, medium)
	if err != nil {
		return nil, err
	}

	url, err := jobURL(&medium.Details)
	if err != nil {
		return nil, err
	}
	contentType := contentTypeFor(&medium.Details)

	states := make([]models.ArticleDeliveryState, 0, len(messages))
	parentID := ""
	for _, message := range messages {
		body, err := json.Marshal(message)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}

		state := newState(medium.ID, articleIDHash, models.StatusPendingDelivery)
		state.ContentType = contentType
		state.ParentID = parentID

		job := Job{
			ID:       state.ID,
			FeedID:   event.Feed.ID,
			MediumID: medium.ID,
			Method:   http.MethodPost,
			URL:      url,
			Body:     body,
		}
		if err := o.deps.Transport.Enqueue(ctx, job); err != nil {
			return nil, fmt.Errorf("enqueue delivery: %w", err)
		}

		if parentID == "" {
			parentID = state.ID
			// Only the lead message of a thread-creating medium opens the
			// thread; continuations post as plain channel messages.
			contentType = models.ContentTypeText
			if url, err = continuationJobURL(&medium.Details); err != nil {
				return nil, err
			}
		}
		states = append(states, state)
	}
	return states, nil
}

// flush writes the buffered states in one transaction. A flush failure is
// logged, not returned: the enqueued deliveries are already in flight.
func (o *Orchestrator) flush(ctx context.Context, feedID string, states []models.ArticleDeliveryState) {
	if len(states) == 0 {
		return
	}
	if err := o.deps.Records.FlushStates(ctx, feedID, states); err != nil {
		logger := logging.Ctx(ctx)
		logger.Error().Err(err).
			Str("feed_id", feedID).
			Int("states", len(states)).
			Msg("failed to flush delivery states")
	}
}

func newState(mediumID, articleIDHash string, status models.DeliveryStatus) models.ArticleDeliveryState {
	return models.ArticleDeliveryState{
		ID:            uuid.NewString(),
		MediumID:      mediumID,
		Status:        status,
		ContentType:   models.ContentTypeText,
		ArticleIDHash: articleIDHash,
		CreatedAt:     time.Now().UTC(),
	}
}

// failureState classifies an error per the taxonomy: expression and
// bounded-evaluation errors reject only this pair as a processing error;
// anything else is a transient internal failure.
func failureState(mediumID, articleIDHash string, err error) models.ArticleDeliveryState {
	status := models.StatusFailed
	code := models.ErrorCodeInternal

	var invalidExpr *filters.InvalidExpressionError
	var regexErr *filters.RegexEvaluationError
	var placeholderErr *format.CustomPlaceholderError
	if errors.As(err, &invalidExpr) || errors.As(err, &regexErr) || errors.As(err, &placeholderErr) {
		status = models.StatusRejected
		code = models.ErrorCodeArticleProcessing
	}

	state := newState(mediumID, articleIDHash, status)
	state.ErrorCode = code
	state.InternalError = err.Error()
	return state
}

func contentTypeFor(details *models.MediumDetails) models.DeliveryContentType {
	if details.Channel != nil {
		t := details.Channel.Type
		if t == models.ChannelTypeForum || t == models.ChannelTypeNewThread {
			return models.ContentTypeThreadCreate
		}
	}
	if details.Webhook != nil && details.Webhook.Type == models.ChannelTypeForum {
		return models.ContentTypeThreadCreate
	}
	return models.ContentTypeText
}

func verdictBudget(v ratelimit.Verdict) int {
	if !v.UnderLimit {
		return 0
	}
	return v.Remaining
}
