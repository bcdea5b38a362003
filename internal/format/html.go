// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package format

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// FormatHTML converts an HTML fragment into destination markup: headings and
// strong become bold, em italic, u underline, code/pre code fences, anchors
// markdown links, images bare URLs, tables monospaced blocks, and lists
// bullet lines. Remaining structure collapses to plain text with newlines
// between block elements.
func FormatHTML(fragment string, opts models.FormatterOptions) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse html fragment: %w", err)
	}

	var b strings.Builder
	body := doc.Find("body")
	for _, node := range body.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderNode(&b, child, opts)
		}
	}

	return tidyWhitespace(b.String()), nil
}

// blockElements force a line break before and after their content.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "pre": true, "blockquote": true,
	"figure": true, "header": true, "footer": true,
}

func renderNode(b *strings.Builder, n *html.Node, opts models.FormatterOptions) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpaces(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	if blockElements[n.Data] {
		b.WriteString("\n")
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6", "strong", "b":
		b.WriteString("**")
		renderChildren(b, n, opts)
		b.WriteString("**")
	case "em", "i":
		b.WriteString("*")
		renderChildren(b, n, opts)
		b.WriteString("*")
	case "u":
		b.WriteString("__")
		renderChildren(b, n, opts)
		b.WriteString("__")
	case "code":
		b.WriteString("`")
		renderChildren(b, n, opts)
		b.WriteString("`")
	case "pre":
		b.WriteString("```\n")
		b.WriteString(rawText(n))
		b.WriteString("\n```")
	case "a":
		renderAnchor(b, n, opts)
	case "img":
		renderImage(b, n, opts)
	case "br":
		b.WriteString("\n")
	case "hr":
		b.WriteString("\n")
	case "ul", "ol":
		renderList(b, n, opts)
	case "table":
		if opts.FormatTables {
			renderTable(b, n)
		} else {
			renderChildren(b, n, opts)
		}
	case "script", "style", "head":
		// Dropped entirely.
	default:
		renderChildren(b, n, opts)
	}

	if blockElements[n.Data] {
		b.WriteString("\n")
	}
}

func renderChildren(b *strings.Builder, n *html.Node, opts models.FormatterOptions) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		renderNode(b, child, opts)
	}
}

func renderAnchor(b *strings.Builder, n *html.Node, opts models.FormatterOptions) {
	href := attr(n, "href")
	text := strings.TrimSpace(textContent(n, opts))

	switch {
	case href == "":
		b.WriteString(text)
	case text == "" || text == href:
		b.WriteString(href)
	default:
		fmt.Fprintf(b, "[%s](%s)", text, href)
	}
}

func renderImage(b *strings.Builder, n *html.Node, opts models.FormatterOptions) {
	if opts.StripImages {
		return
	}

	src := attr(n, "src")
	if src == "" {
		return
	}

	if opts.DisableImageLinkPreviews {
		// Angle brackets suppress the provider's automatic link preview.
		fmt.Fprintf(b, "<%s>", src)
		return
	}
	b.WriteString(src)
}

func renderList(b *strings.Builder, n *html.Node, opts models.FormatterOptions) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.Data != "li" {
			continue
		}
		var item strings.Builder
		renderChildren(&item, child, opts)
		b.WriteString("* ")
		b.WriteString(strings.TrimSpace(item.String()))
		b.WriteString("\n")
	}
}

// renderTable renders a fixed-width, column-aligned text block wrapped in a
// code fence so the provider displays it monospaced.
func renderTable(b *strings.Builder, n *html.Node) {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			var cells []string
			for cell := node.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
					cells = append(cells, strings.TrimSpace(rawText(cell)))
				}
			}
			rows = append(rows, cells)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	if len(rows) == 0 {
		return
	}

	widths := make([]int, 0)
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	b.WriteString("```\n")
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteString("\n")
	}
	b.WriteString("```")
}

// textContent renders inline children to plain text (used for anchor labels).
func textContent(n *html.Node, opts models.FormatterOptions) string {
	var b strings.Builder
	renderChildren(&b, n, opts)
	return b.String()
}

// rawText concatenates the text nodes under n without markup.
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// collapseSpaces folds runs of whitespace (including newlines inside text
// nodes) into single spaces, mirroring HTML rendering rules. Boundary
// whitespace is preserved as a single space so words around inline markup
// stay separated.
func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}

	out := strings.Join(fields, " ")
	if strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\n") || strings.HasPrefix(s, "\t") {
		out = " " + out
	}
	if strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\t") {
		out += " "
	}
	return out
}

// tidyWhitespace trims the result and folds runs of 3+ newlines into 2.
func tidyWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
