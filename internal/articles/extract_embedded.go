// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package articles

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractedPrefix namespaces synthetic keys derived from HTML-bearing
// fields.
const extractedPrefix = "extracted"

// extractEmbedded scans HTML-bearing flattened fields for embedded image
// sources and anchor targets and exposes them as
// "extracted::<field>::imageN" and "extracted::<field>::anchorN" keys, so
// templates can reference media without re-parsing HTML.
func extractEmbedded(flattened map[string]string) {
	// Collect first: the map must not grow while ranging.
	additions := make(map[string]string)

	for key, value := range flattened {
		if !strings.Contains(value, "<") {
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
		if err != nil {
			continue
		}

		imageCount := 0
		doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
			src, _ := sel.Attr("src")
			if strings.TrimSpace(src) == "" {
				return
			}
			imageCount++
			additions[fmt.Sprintf("%s%s%s%simage%d", extractedPrefix, keyDelimiter, key, keyDelimiter, imageCount)] = src
		})

		anchorCount := 0
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if strings.TrimSpace(href) == "" {
				return
			}
			anchorCount++
			additions[fmt.Sprintf("%s%s%s%sanchor%d", extractedPrefix, keyDelimiter, key, keyDelimiter, anchorCount)] = href
		})
	}

	for key, value := range additions {
		flattened[key] = value
	}
}
