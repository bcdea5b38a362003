// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package articles

import (
	"context"
	"errors"
	"testing"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Sample Feed</title>
    <link>https://example.com</link>
    <item>
      <guid>guid-1</guid>
      <title>First Article</title>
      <link>https://example.com/1</link>
      <description>&lt;p&gt;Hello &lt;img src="https://example.com/a.png"/&gt;&lt;a href="https://example.com/x"&gt;details&lt;/a&gt;&lt;/p&gt;</description>
      <pubDate>Tue, 10 Jun 2025 04:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Second Article</title>
      <link>https://example.com/2</link>
      <description>plain text</description>
    </item>
  </channel>
</rss>`

func TestParseAndExtract(t *testing.T) {
	t.Parallel()

	feed, err := NewParser().Parse(context.Background(), []byte(sampleRSS))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	extractor := NewExtractor()
	articles, err := extractor.ExtractAll(feed, nil)
	if err != nil {
		t.Fatalf("unexpected extract error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.ID != "guid-1" {
		t.Errorf("expected GUID identity, got %q", first.ID)
	}
	if first.IDHash != HashValue("guid-1") {
		t.Errorf("expected deterministic id hash, got %q", first.IDHash)
	}
	if first.Flattened["title"] != "First Article" {
		t.Errorf("expected flattened title, got %q", first.Flattened["title"])
	}

	// The second item has no GUID; identity falls back to the link.
	if articles[1].ID != "https://example.com/2" {
		t.Errorf("expected link fallback identity, got %q", articles[1].ID)
	}
}

func TestExtractEmbeddedImagesAndAnchors(t *testing.T) {
	t.Parallel()

	feed, err := NewParser().Parse(context.Background(), []byte(sampleRSS))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	article, err := NewExtractor().Extract(feed.Items[0], nil)
	if err != nil {
		t.Fatalf("unexpected extract error: %v", err)
	}

	if got := article.Flattened["extracted::description::image1"]; got != "https://example.com/a.png" {
		t.Errorf("expected extracted image URL, got %q", got)
	}
	if got := article.Flattened["extracted::description::anchor1"]; got != "https://example.com/x" {
		t.Errorf("expected extracted anchor URL, got %q", got)
	}
}

func TestExtractNormalizesDates(t *testing.T) {
	t.Parallel()

	feed, err := NewParser().Parse(context.Background(), []byte(sampleRSS))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	article, err := NewExtractor().Extract(feed.Items[0], &models.FormatOptions{DateFormat: "2006-01-02"})
	if err != nil {
		t.Fatalf("unexpected extract error: %v", err)
	}

	if got := article.Flattened["published"]; got != "2025-06-10" {
		t.Errorf("expected normalized published date, got %q", got)
	}
}

func TestFlattenDropsEmptyValues(t *testing.T) {
	t.Parallel()

	out := make(map[string]string)
	err := flattenInto(out, "", map[string]any{
		"keep":   "value",
		"empty":  "",
		"blank":  "   ",
		"isNull": nil,
		"nested": map[string]any{
			"inner": "x",
			"empty": map[string]any{},
		},
		"list":  []any{"a", ""},
		"none":  []any{},
		"count": float64(3),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"keep":          "value",
		"nested::inner": "x",
		"list::0":       "a",
		"count":         "3",
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), out)
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("key %q: got %q, want %q", k, out[k], v)
		}
	}
}

func TestParseInvalidFeed(t *testing.T) {
	t.Parallel()

	_, err := NewParser().Parse(context.Background(), []byte("not a feed at all"))
	if !errors.Is(err, ErrInvalidFeed) {
		t.Fatalf("expected ErrInvalidFeed, got %v", err)
	}
}

func TestHashValueDeterministic(t *testing.T) {
	t.Parallel()

	if HashValue("abc") != HashValue("abc") {
		t.Error("expected identical hashes for identical inputs")
	}
	if HashValue("abc") == HashValue("abd") {
		t.Error("expected different hashes for different inputs")
	}
	if len(HashValue("abc")) != 64 {
		t.Errorf("expected 64-char hex hash, got %d", len(HashValue("abc")))
	}
}
