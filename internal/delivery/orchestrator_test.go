// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package delivery

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/synzen/MonitoRSS-sub001/internal/articles"
	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/format"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
	"github.com/synzen/MonitoRSS-sub001/internal/payload"
	"github.com/synzen/MonitoRSS-sub001/internal/ratelimit"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <guid>guid-1</guid>
      <title>alpha</title>
      <link>https://example.com/1</link>
    </item>
    <item>
      <guid>guid-2</guid>
      <title>beta</title>
      <link>https://example.com/2</link>
    </item>
  </channel>
</rss>`

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.body, f.err
}

// passthroughSelector treats every extracted article as deliverable.
type passthroughSelector struct{}

func (passthroughSelector) SelectArticlesForDelivery(_ context.Context, _ *models.DeliveryFeed, list []*models.Article) ([]*models.Article, error) {
	return list, nil
}

type fakeLimiter struct {
	feedRemaining   int
	mediumRemaining int
	enqueued        int
}

func (f *fakeLimiter) UnderLimit(_ context.Context, limits []ratelimit.Limit) (ratelimit.Verdict, error) {
	if len(limits) == 0 {
		return ratelimit.Verdict{UnderLimit: true, Remaining: math.MaxInt}, nil
	}
	remaining := f.feedRemaining
	if limits[0].Scope == ratelimit.ScopeMedium {
		remaining = f.mediumRemaining
	}
	if remaining <= 0 {
		return ratelimit.Verdict{UnderLimit: false, Remaining: 0}, nil
	}
	return ratelimit.Verdict{UnderLimit: true, Remaining: remaining}, nil
}

func (f *fakeLimiter) RecordEnqueued(limits []ratelimit.Limit) {
	f.enqueued += len(limits)
}

type fakeDedup struct {
	keys map[string]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{keys: make(map[string]bool)}
}

func (d *fakeDedup) CheckAndSet(_ context.Context, key string) (bool, error) {
	if d.keys[key] {
		return true, nil
	}
	d.keys[key] = true
	return false, nil
}

func (d *fakeDedup) Delete(_ context.Context, key string) error {
	delete(d.keys, key)
	return nil
}

type fakeTransport struct {
	jobs []Job
	err  error
}

func (t *fakeTransport) Enqueue(_ context.Context, job Job) error {
	if t.err != nil {
		return t.err
	}
	t.jobs = append(t.jobs, job)
	return nil
}

type fakeRecords struct {
	flushed []models.ArticleDeliveryState
}

func (r *fakeRecords) FlushStates(_ context.Context, _ string, states []models.ArticleDeliveryState) error {
	r.flushed = append(r.flushed, states...)
	return nil
}

type testRig struct {
	orchestrator *Orchestrator
	limiter      *fakeLimiter
	dedup        *fakeDedup
	transport    *fakeTransport
	records      *fakeRecords
}

func newTestRig(t *testing.T, fetcher Fetcher) *testRig {
	t.Helper()

	evaluator := filters.NewEvaluator()
	rig := &testRig{
		limiter:   &fakeLimiter{feedRemaining: 100, mediumRemaining: 100},
		dedup:     newFakeDedup(),
		transport: &fakeTransport{},
		records:   &fakeRecords{},
	}
	rig.orchestrator = NewOrchestrator(Deps{
		Fetcher:   fetcher,
		Parser:    articles.NewParser(),
		Extractor: articles.NewExtractor(),
		Selector:  passthroughSelector{},
		Formatter: format.NewArticleFormatter(),
		Evaluator: evaluator,
		Limiter:   rig.limiter,
		Dedup:     rig.dedup,
		Builder:   payload.NewBuilder(evaluator),
		Transport: rig.transport,
		Records:   rig.records,
	})
	return rig
}

func testEvent(mediums ...models.Medium) *models.FeedDeliverEvent {
	return &models.FeedDeliverEvent{
		Feed:    models.DeliveryFeed{ID: "feed-1", URL: "https://example.com/rss"},
		Mediums: mediums,
	}
}

func channelMedium(id string) models.Medium {
	return models.Medium{
		ID:  id,
		Key: models.MediumKeyDiscord,
		Details: models.MediumDetails{
			Channel: &models.Channel{ID: "chan-" + id},
			Content: "{{title}}",
		},
	}
}

func TestDeliverEnqueuesNewArticles(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})
	event := testEvent(channelMedium("m1"))

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}
	for _, state := range states {
		if state.Status != models.StatusPendingDelivery {
			t.Errorf("expected pending-delivery, got %s", state.Status)
		}
	}
	if len(rig.transport.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(rig.transport.jobs))
	}

	var msg map[string]any
	if err := json.Unmarshal(rig.transport.jobs[0].Body, &msg); err != nil {
		t.Fatalf("unmarshal job body: %v", err)
	}
	if msg["content"] != "alpha" {
		t.Errorf("expected substituted title, got %v", msg["content"])
	}
	if len(rig.records.flushed) != 2 {
		t.Errorf("expected flushed states, got %d", len(rig.records.flushed))
	}
}

func TestDeliverFeedRateLimitedSkipsEnqueue(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})
	rig.limiter.feedRemaining = 0
	event := testEvent(channelMedium("m1"))
	event.ArticleDayLimit = 5

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected one state per article, got %d", len(states))
	}
	for _, state := range states {
		if state.Status != models.StatusRateLimited {
			t.Errorf("expected rate-limited, got %s", state.Status)
		}
	}
	if len(rig.transport.jobs) != 0 {
		t.Errorf("rate-limited articles must not be enqueued")
	}
	if len(rig.dedup.keys) != 0 {
		t.Errorf("rate-limited articles must not claim dedup keys")
	}
}

func TestDeliverMediumRateLimited(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})
	rig.limiter.mediumRemaining = 0

	medium := channelMedium("m1")
	medium.Details.RateLimits = []models.MediumRateLimit{{Limit: 1, TimeWindowSeconds: 60}}
	event := testEvent(medium)

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	for _, state := range states {
		if state.Status != models.StatusMediumRateLimitedByUser {
			t.Errorf("expected medium-rate-limited-by-user, got %s", state.Status)
		}
	}
	if len(rig.transport.jobs) != 0 {
		t.Errorf("limited articles must not be enqueued")
	}
}

func TestDeliverDedupIdempotence(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})
	event := testEvent(channelMedium("m1"))

	first, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 states, got %d", len(first))
	}

	second, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("duplicate event must produce no states, got %d", len(second))
	}
	if len(rig.transport.jobs) != 2 {
		t.Errorf("duplicate event must not enqueue again, got %d jobs", len(rig.transport.jobs))
	}
}

func TestDeliverFilteredOut(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})

	medium := channelMedium("m1")
	medium.Details.Filters = json.RawMessage(`{"expression":{
		"type":"RELATIONAL","op":"EQ",
		"left":{"type":"ARTICLE","value":"title"},
		"right":{"type":"STRING","value":"alpha"}
	}}`)
	event := testEvent(medium)

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	byStatus := map[models.DeliveryStatus]int{}
	for _, state := range states {
		byStatus[state.Status]++
	}
	if byStatus[models.StatusPendingDelivery] != 1 {
		t.Errorf("expected 1 delivered article, got %d", byStatus[models.StatusPendingDelivery])
	}
	if byStatus[models.StatusFilteredOut] != 1 {
		t.Errorf("expected 1 filtered article, got %d", byStatus[models.StatusFilteredOut])
	}
	for _, state := range states {
		if state.Status == models.StatusFilteredOut && !strings.Contains(state.ExternalDetail, `"EQ"`) {
			t.Errorf("filtered state missing explain trace, got %q", state.ExternalDetail)
		}
	}
	if len(rig.transport.jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(rig.transport.jobs))
	}
}

func TestDeliverFaultIsolationAcrossMediums(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})

	broken := channelMedium("m-broken")
	broken.Details.Filters = json.RawMessage(`{"expression":{"type":"HOLOGRAM"}}`)
	healthy := channelMedium("m-healthy")
	event := testEvent(broken, healthy)

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	for _, state := range states {
		switch state.MediumID {
		case "m-broken":
			if state.Status != models.StatusRejected || state.ErrorCode != models.ErrorCodeArticleProcessing {
				t.Errorf("broken medium: expected rejected/article-processing, got %s/%s", state.Status, state.ErrorCode)
			}
		case "m-healthy":
			if state.Status != models.StatusPendingDelivery {
				t.Errorf("healthy medium: expected pending-delivery, got %s", state.Status)
			}
		}
	}
	if len(rig.transport.jobs) != 2 {
		t.Errorf("healthy medium must still deliver both articles, got %d jobs", len(rig.transport.jobs))
	}
}

func TestDeliverSplitProducesParentAndChildren(t *testing.T) {
	t.Parallel()

	longFeed := strings.Replace(sampleFeed,
		"<title>alpha</title>",
		"<title>"+strings.Repeat("sentence one. ", 20)+"</title>", 1)
	rig := newTestRig(t, &fakeFetcher{body: []byte(longFeed)})

	medium := channelMedium("m1")
	medium.Details.SplitOptions = &models.SplitOptions{IsEnabled: true, Limit: 80}
	event := testEvent(medium)

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	var parents, children int
	parentIDs := map[string]bool{}
	for _, state := range states {
		if state.ParentID == "" {
			parents++
			parentIDs[state.ID] = true
		} else {
			children++
		}
	}
	if parents != 2 {
		t.Errorf("expected 2 parent states, got %d", parents)
	}
	if children == 0 {
		t.Error("expected split continuation states")
	}
	for _, state := range states {
		if state.ParentID != "" && !parentIDs[state.ParentID] {
			t.Errorf("child %s references unknown parent %s", state.ID, state.ParentID)
		}
	}
	if len(rig.transport.jobs) != len(states) {
		t.Errorf("expected one job per state, got %d jobs for %d states", len(rig.transport.jobs), len(states))
	}
}

func TestDeliverForumSplitRoutesContinuations(t *testing.T) {
	t.Parallel()

	longFeed := strings.Replace(sampleFeed,
		"<title>alpha</title>",
		"<title>"+strings.Repeat("sentence one. ", 20)+"</title>", 1)
	rig := newTestRig(t, &fakeFetcher{body: []byte(longFeed)})

	medium := channelMedium("m1")
	medium.Details.Channel.Type = models.ChannelTypeForum
	medium.Details.SplitOptions = &models.SplitOptions{IsEnabled: true, Limit: 80}
	event := testEvent(medium)

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	jobByID := map[string]Job{}
	for _, job := range rig.transport.jobs {
		jobByID[job.ID] = job
	}

	var children int
	for _, state := range states {
		job, ok := jobByID[state.ID]
		if !ok {
			t.Fatalf("no job for state %s", state.ID)
		}
		var body map[string]any
		if err := json.Unmarshal(job.Body, &body); err != nil {
			t.Fatalf("unmarshal job body: %v", err)
		}

		if state.ParentID == "" {
			if !strings.Contains(job.URL, "/threads") {
				t.Errorf("lead part must target the thread endpoint, got %s", job.URL)
			}
			if state.ContentType != models.ContentTypeThreadCreate {
				t.Errorf("lead part content type = %s", state.ContentType)
			}
			if _, ok := body["thread_name"]; !ok {
				t.Error("lead part must carry the thread name")
			}
		} else {
			children++
			if !strings.Contains(job.URL, "/messages") {
				t.Errorf("continuation part must target the message endpoint, got %s", job.URL)
			}
			if state.ContentType != models.ContentTypeText {
				t.Errorf("continuation content type = %s", state.ContentType)
			}
			if _, ok := body["thread_name"]; ok {
				t.Error("continuation part must not carry a thread name")
			}
		}
	}
	if children == 0 {
		t.Fatal("expected split continuation parts")
	}
}

func TestDeliverEnqueueFailureReleasesDedupClaim(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})
	rig.transport.err = errors.New("broker unavailable")
	event := testEvent(channelMedium("m1"))

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	for _, state := range states {
		if state.Status != models.StatusFailed || state.ErrorCode != models.ErrorCodeInternal {
			t.Errorf("expected failed/internal-error, got %s/%s", state.Status, state.ErrorCode)
		}
	}
	if len(rig.dedup.keys) != 0 {
		t.Errorf("failed enqueues must release their dedup claims, got %d", len(rig.dedup.keys))
	}
}

func TestDeliverDropsEventOnFetchError(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{err: &FetchStatusError{StatusCode: 500}})
	event := testEvent(channelMedium("m1"))

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err == nil {
		t.Fatal("expected error for fetch failure")
	}
	if len(states) != 0 {
		t.Errorf("dropped event must produce no states")
	}
	if len(rig.transport.jobs) != 0 {
		t.Errorf("dropped event must not enqueue")
	}
}

func TestDeliverThreadCreatingContentType(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeFetcher{body: []byte(sampleFeed)})

	medium := channelMedium("m1")
	medium.Details.Channel.Type = models.ChannelTypeForum
	event := testEvent(medium)

	states, err := rig.orchestrator.Deliver(context.Background(), event)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	for _, state := range states {
		if state.ContentType != models.ContentTypeThreadCreate {
			t.Errorf("expected thread-create content type, got %s", state.ContentType)
		}
	}
	if got := rig.transport.jobs[0].URL; !strings.Contains(got, "/threads") {
		t.Errorf("forum medium must target the thread endpoint, got %s", got)
	}
}
