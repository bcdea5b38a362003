// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package format

import "strings"

// DefaultSplitLimit is the per-message character cap applied when a medium
// does not configure its own.
const DefaultSplitLimit = 2000

// SplitSettings is the resolved configuration for one Split call.
type SplitSettings struct {
	// Limit is the total per-part cap including prepend/append decorations.
	Limit int

	// SplitChars are the sentence-terminator characters tried after newline
	// splitting. Defaults to ". ", "!", "?" equivalents.
	SplitChars []string

	AppendChar  string
	PrependChar string

	// Enabled selects real splitting. When false only the first produced
	// chunk is returned and the remainder is dropped.
	Enabled bool

	// IncludeAppendInFirstPart also attaches AppendChar to the first part,
	// for mediums that want the separator boundary visible on every lead
	// message.
	IncludeAppendInFirstPart bool
}

var defaultSplitChars = []string{".", "!", "?"}

// Split divides text into ordered parts that each fit the configured limit.
//
// The text is first divided on newlines, then oversized chunks are divided
// on sentence terminators, then on whitespace, and as a last resort into
// fixed-length character runs. Adjacent chunks are greedily re-merged while
// their combined length stays within budget, so parts are as large as
// possible without reordering. PrependChar is attached to the first part and
// AppendChar to the last.
func Split(text string, settings SplitSettings) []string {
	limit := settings.Limit
	if limit <= 0 {
		limit = DefaultSplitLimit
	}

	budget := limit - len(settings.AppendChar) - len(settings.PrependChar)
	if budget < 1 {
		budget = 1
	}

	splitChars := settings.SplitChars
	if len(splitChars) == 0 {
		splitChars = defaultSplitChars
	}

	chunks := splitOnNewlines(text)
	chunks = subdivide(chunks, budget, func(chunk string) []string {
		return splitAfterAny(chunk, splitChars)
	})
	chunks = subdivide(chunks, budget, func(chunk string) []string {
		return splitAfterAny(chunk, []string{" "})
	})
	chunks = subdivide(chunks, budget, func(chunk string) []string {
		return splitFixed(chunk, budget)
	})

	merged := mergeAdjacent(chunks, budget)

	parts := make([]string, 0, len(merged))
	for _, chunk := range merged {
		trimmed := strings.TrimSpace(chunk)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		parts = []string{""}
	}

	if !settings.Enabled {
		// Truncation path: everything past the first chunk is dropped.
		parts = parts[:1]
	}

	parts[0] = settings.PrependChar + parts[0]
	parts[len(parts)-1] += settings.AppendChar
	if settings.IncludeAppendInFirstPart && len(parts) > 1 {
		parts[0] += settings.AppendChar
	}

	return parts
}

// splitOnNewlines divides text after each newline, keeping the newline with
// the preceding chunk so no characters are lost.
func splitOnNewlines(text string) []string {
	var chunks []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			chunks = append(chunks, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}

// subdivide applies split to every chunk that exceeds budget, leaving
// fitting chunks untouched.
func subdivide(chunks []string, budget int, split func(string) []string) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) <= budget {
			out = append(out, chunk)
			continue
		}
		out = append(out, split(chunk)...)
	}
	return out
}

// splitAfterAny divides text immediately after any occurrence of the given
// separator characters, keeping the separator with the preceding chunk.
func splitAfterAny(text string, separators []string) []string {
	var chunks []string
	start := 0
	for i := 0; i < len(text); i++ {
		for _, sep := range separators {
			if sep != "" && strings.HasPrefix(text[i:], sep) {
				end := i + len(sep)
				chunks = append(chunks, text[start:end])
				start = end
				i = end - 1
				break
			}
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	if len(chunks) == 0 {
		chunks = []string{text}
	}
	return chunks
}

// splitFixed divides text into runs of at most budget bytes. This is the
// last resort for unbroken character runs and the only case where a part may
// not end on a natural boundary.
func splitFixed(text string, budget int) []string {
	var chunks []string
	for len(text) > budget {
		chunks = append(chunks, text[:budget])
		text = text[budget:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// mergeAdjacent greedily joins neighboring chunks while the combined length
// stays within budget, preserving order.
func mergeAdjacent(chunks []string, budget int) []string {
	var merged []string
	current := ""
	for _, chunk := range chunks {
		if current == "" {
			current = chunk
			continue
		}
		if len(current)+len(chunk) <= budget {
			current += chunk
			continue
		}
		merged = append(merged, current)
		current = chunk
	}
	if current != "" {
		merged = append(merged, current)
	}
	return merged
}
