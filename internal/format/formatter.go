// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package format

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// ArticleFormatter prepares one article for one medium: HTML-bearing fields
// are converted to destination markup, custom placeholders are derived, and
// placeholder length limits are applied.
type ArticleFormatter struct {
	// RegexTimeout bounds each custom-placeholder regex step.
	RegexTimeout time.Duration
}

// NewArticleFormatter returns a formatter with the default regex deadline.
func NewArticleFormatter() *ArticleFormatter {
	return &ArticleFormatter{RegexTimeout: filters.DefaultRegexTimeout}
}

// FormatForMedium returns a formatted copy of article tailored to medium.
// The input article is never mutated; mediums with different formatter
// options see independent copies.
func (f *ArticleFormatter) FormatForMedium(ctx context.Context, article *models.Article, medium *models.Medium) (*models.Article, error) {
	formatted := article.Clone()

	for key, value := range formatted.Flattened {
		if !strings.Contains(value, "<") {
			continue
		}
		converted, err := FormatHTML(value, medium.Details.Formatter)
		if err != nil {
			return nil, fmt.Errorf("format field %q: %w", key, err)
		}
		formatted.Flattened[key] = converted
	}

	if err := ApplyCustomPlaceholders(ctx, formatted, medium.Details.CustomPlaceholders, f.RegexTimeout); err != nil {
		return nil, err
	}

	ApplyPlaceholderLimits(formatted, medium.Details.PlaceholderLimits)

	return formatted, nil
}
