// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package format

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// customPlaceholderPrefix namespaces derived fields in the flattened map.
const customPlaceholderPrefix = "custom::"

// CustomPlaceholderError reports a failed placeholder derivation. The
// underlying cause is usually a *filters.RegexEvaluationError.
type CustomPlaceholderError struct {
	PlaceholderID string
	Cause         error
}

func (e *CustomPlaceholderError) Error() string {
	return fmt.Sprintf("custom placeholder %s failed: %v", e.PlaceholderID, e.Cause)
}

func (e *CustomPlaceholderError) Unwrap() error { return e.Cause }

// ApplyCustomPlaceholders derives each configured placeholder by running its
// regex steps in order against the source field and stores the result under
// "custom::<referenceName>" in the article's flattened map.
//
// A failing step aborts only that placeholder's pipeline; the remaining
// placeholders are still derived. All failures are joined into the returned
// error.
func ApplyCustomPlaceholders(ctx context.Context, article *models.Article, placeholders []models.CustomPlaceholder, timeout time.Duration) error {
	var errs []error

	for _, placeholder := range placeholders {
		value := article.Flattened[placeholder.SourceField]

		failed := false
		for _, step := range placeholder.Steps {
			out, err := filters.ReplaceAllBounded(ctx, step.Regex, step.RegexFlags, step.Replacement, value, timeout)
			if err != nil {
				errs = append(errs, &CustomPlaceholderError{PlaceholderID: placeholder.ID, Cause: err})
				failed = true
				break
			}
			value = out
		}
		if failed {
			continue
		}

		article.Flattened[customPlaceholderPrefix+placeholder.ReferenceName] = value
	}

	return errors.Join(errs...)
}

// ApplyPlaceholderLimits truncates the named placeholder values to their
// configured caps, reusing the splitter's first-part semantics so truncation
// prefers sentence and word boundaries. AppendString is only attached when
// truncation actually happened.
func ApplyPlaceholderLimits(article *models.Article, limits []models.PlaceholderLimit) {
	for _, limit := range limits {
		value, ok := article.Flattened[limit.Placeholder]
		if !ok || len(value) <= limit.CharacterCount {
			continue
		}

		parts := Split(value, SplitSettings{
			Limit:      limit.CharacterCount,
			AppendChar: limit.AppendString,
			Enabled:    false,
		})
		article.Flattened[limit.Placeholder] = parts[0]
	}
}
