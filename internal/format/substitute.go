// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package format

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{token}} occurrences, non-greedily so adjacent
// tokens resolve independently.
var placeholderPattern = regexp.MustCompile(`\{\{(.+?)\}\}`)

// literalFallbackPrefix marks a fallback candidate as a literal value rather
// than a field path.
const literalFallbackPrefix = "text::"

// SubstituteOptions controls template rendering.
type SubstituteOptions struct {
	// SupportFallbacks enables "||"-separated candidate chains inside
	// tokens, tried in order until one resolves to a non-empty value.
	SupportFallbacks bool
}

// Substitute replaces every {{field}} token in template with the referenced
// value. Unresolvable tokens render as an empty string.
func Substitute(reference map[string]string, template string, opts SubstituteOptions) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		content := strings.TrimSpace(token[2 : len(token)-2])
		if content == "" {
			return ""
		}

		if !opts.SupportFallbacks {
			return reference[content]
		}

		for _, candidate := range strings.Split(content, "||") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if literal, ok := strings.CutPrefix(candidate, literalFallbackPrefix); ok {
				return literal
			}
			if value := reference[candidate]; value != "" {
				return value
			}
		}
		return ""
	})
}
