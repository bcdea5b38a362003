// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package articles

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mmcdole/gofeed"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// keyDelimiter joins nested keys in the flattened map.
const keyDelimiter = "::"

// StructuralError reports a flattened value that is not a primitive. This is
// a defensive invariant check; the flattener should never produce one.
type StructuralError struct {
	Key  string
	Kind string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("flattened key %q holds non-primitive %s value", e.Key, e.Kind)
}

// dateLayouts are tried in order when normalizing date-bearing string fields.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Extractor normalizes parsed feed entries into Articles.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractAll converts every entry of feed into an Article, preserving feed
// order.
func (e *Extractor) ExtractAll(feed *gofeed.Feed, opts *models.FormatOptions) ([]*models.Article, error) {
	out := make([]*models.Article, 0, len(feed.Items))
	for i, item := range feed.Items {
		article, err := e.Extract(item, opts)
		if err != nil {
			return nil, fmt.Errorf("extract article %d: %w", i, err)
		}
		out = append(out, article)
	}
	return out, nil
}

// Extract normalizes one feed entry. Nested objects and arrays flatten into
// "::"-delimited keys, null and whitespace-only values are dropped, dates
// are rendered with the feed's format options, numbers become decimal
// strings, and image/anchor URLs inside HTML-bearing fields are exposed as
// synthetic extracted:: keys.
func (e *Extractor) Extract(item *gofeed.Item, opts *models.FormatOptions) (*models.Article, error) {
	raw, err := itemToMap(item)
	if err != nil {
		return nil, fmt.Errorf("decompose feed item: %w", err)
	}

	flattened := make(map[string]string)
	if err := flattenInto(flattened, "", raw, opts); err != nil {
		return nil, err
	}

	extractEmbedded(flattened)

	id := articleID(item)
	article := &models.Article{
		ID:        id,
		IDHash:    HashValue(id),
		Flattened: flattened,
		Raw:       raw,
	}

	return article, nil
}

// HashValue returns the hex SHA-256 of value. Used for article ids and for
// comparison-field values before persistence.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// articleID picks the provider-stable identity of an entry: the GUID when
// present, otherwise the link, otherwise the title.
func articleID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	if item.Link != "" {
		return item.Link
	}
	return item.Title
}

// itemToMap decomposes a parsed entry into a generic map via a JSON
// round-trip so custom and extension fields flatten uniformly.
func itemToMap(item *gofeed.Item) (map[string]any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func flattenInto(out map[string]string, prefix string, value any, opts *models.FormatOptions) error {
	switch v := value.(type) {
	case nil:
		return nil

	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		out[prefix] = normalizeDate(trimmed, opts)
		return nil

	case bool:
		out[prefix] = strconv.FormatBool(v)
		return nil

	case float64:
		out[prefix] = strconv.FormatFloat(v, 'f', -1, 64)
		return nil

	case json.Number:
		out[prefix] = v.String()
		return nil

	case map[string]any:
		for key, child := range v {
			if err := flattenInto(out, joinKey(prefix, key), child, opts); err != nil {
				return err
			}
		}
		return nil

	case []any:
		for i, child := range v {
			if err := flattenInto(out, joinKey(prefix, strconv.Itoa(i)), child, opts); err != nil {
				return err
			}
		}
		return nil

	default:
		return &StructuralError{Key: prefix, Kind: fmt.Sprintf("%T", value)}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + keyDelimiter + key
}

// normalizeDate re-renders value with the feed's date options when it parses
// as a date, and returns it unchanged otherwise.
func normalizeDate(value string, opts *models.FormatOptions) string {
	parsed, ok := parseDate(value)
	if !ok {
		return value
	}

	layout := time.RFC822
	loc := time.UTC
	if opts != nil {
		if opts.DateFormat != "" {
			layout = opts.DateFormat
		}
		if opts.DateTimezone != "" {
			if l, err := time.LoadLocation(opts.DateTimezone); err == nil {
				loc = l
			}
		}
	}

	return parsed.In(loc).Format(layout)
}

func parseDate(value string) (time.Time, bool) {
	// Cheap rejection: all known layouts carry digits and separators.
	if len(value) < 8 || len(value) > 40 {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
