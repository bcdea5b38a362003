// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package models

// Article is the normalized, flattened representation of one feed entry.
//
// Flattened holds every primitive field of the source entry under a
// "::"-delimited key (for example "media::thumbnail::url"), plus synthetic
// keys injected during extraction ("extracted::description::image1") and
// delivery ("discord::mentions"). The map is never mutated after extraction
// except for those documented synthetic injections.
//
// Raw preserves the structured source record for diagnostics only; it is
// never persisted wholesale.
type Article struct {
	// ID is the provider-stable identity of the entry (GUID or link).
	ID string

	// IDHash is the hex SHA-256 of ID. Two articles with the same ID within
	// a feed are the same delivery identity.
	IDHash string

	Flattened map[string]string
	Raw       map[string]any
}

// Field returns the flattened value for key, and whether it exists.
func (a *Article) Field(key string) (string, bool) {
	v, ok := a.Flattened[key]
	return v, ok
}

// Title returns the article title, or an empty string when absent.
func (a *Article) Title() string {
	return a.Flattened["title"]
}

// Clone returns a deep copy of the article's flattened map wrapped in a new
// Article. Raw is shared; it is read-only by convention.
func (a *Article) Clone() *Article {
	flattened := make(map[string]string, len(a.Flattened))
	for k, v := range a.Flattened {
		flattened[k] = v
	}

	return &Article{
		ID:        a.ID,
		IDHash:    a.IDHash,
		Flattened: flattened,
		Raw:       a.Raw,
	}
}

// FormatOptions carries per-feed normalization settings applied during
// extraction.
type FormatOptions struct {
	// DateFormat is a Go reference-time layout for normalized dates.
	// Empty means time.RFC822.
	DateFormat string `json:"dateFormat" koanf:"date_format"`

	// DateTimezone is an IANA timezone name. Empty means UTC.
	DateTimezone string `json:"dateTimezone" koanf:"date_timezone"`

	// DateLocale is accepted for compatibility with stored feed settings
	// but only English month/day names are rendered.
	DateLocale string `json:"dateLocale" koanf:"date_locale"`
}
