// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package payload assembles outbound provider messages for one formatted
// article and one medium: substituted text split into parts, capped embeds,
// legacy button rows or a rich component tree, webhook identity, and
// forum-thread naming and tags.
package payload

import (
	"context"
	"fmt"

	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/format"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// Provider length caps.
const (
	maxEmbeds           = 10
	capEmbedTitle       = 256
	capEmbedDescription = 4096
	capEmbedFieldName   = 256
	capEmbedFieldValue  = 1024
	capEmbedFooterText  = 2048
	capEmbedAuthorName  = 256
	capWebhookUsername  = 80
	capButtonLabel      = 80
	capAltText          = 1024
	capThreadName       = 100
)

// mentionsField is the synthetic flattened key templates use to place the
// resolved mention string.
const mentionsField = "discord::mentions"

// defaultThreadTitle names forum threads after the article when no template
// is configured.
const defaultThreadTitle = "{{title}}"

// Builder assembles provider messages. Mention targets and forum tags run
// their own filter expressions through the shared evaluator.
type Builder struct {
	evaluator *filters.Evaluator
}

// NewBuilder returns a builder using the given filter evaluator.
func NewBuilder(evaluator *filters.Evaluator) *Builder {
	return &Builder{evaluator: evaluator}
}

// Build produces the ordered provider messages for one article and medium.
// The article must already be formatted for the medium; its flattened map
// gains the synthetic mentions field during the build.
func (b *Builder) Build(ctx context.Context, article *models.Article, medium *models.Medium) ([]Message, error) {
	details := &medium.Details

	mentions, err := b.resolveMentions(ctx, article, details.Mentions)
	if err != nil {
		return nil, fmt.Errorf("resolve mentions: %w", err)
	}
	article.Flattened[mentionsField] = mentions

	subOpts := format.SubstituteOptions{SupportFallbacks: details.EnablePlaceholderFallback}
	render := func(template string) string {
		return format.Substitute(article.Flattened, template, subOpts)
	}

	embeds := buildEmbeds(details.Embeds, render)

	var messages []Message
	if len(details.ComponentsV2) > 0 {
		// Rich layout: no plain content and no legacy buttons, ever.
		components, err := buildRichComponents(details.ComponentsV2, render)
		if err != nil {
			return nil, err
		}
		messages = []Message{{
			Embeds:     embeds,
			Components: components,
			Flags:      RichLayoutFlag,
		}}
	} else {
		parts := splitContent(render(details.Content), details.SplitOptions)
		messages = make([]Message, 0, len(parts))
		for _, part := range parts {
			messages = append(messages, Message{Content: part})
		}

		// Embeds and buttons ride only on the last part.
		last := &messages[len(messages)-1]
		last.Embeds = embeds
		last.Components = buildLegacyComponents(details.Components, render)
	}

	if details.Webhook != nil {
		username := capFirst(render(details.Webhook.Name), capWebhookUsername)
		avatar := render(details.Webhook.IconURL)
		for i := range messages {
			messages[i].Username = username
			messages[i].AvatarURL = avatar
		}
	}

	if isThreadCreating(details) {
		if err := b.applyThreadFields(ctx, &messages[0], article, details, render); err != nil {
			return nil, err
		}
	}

	return messages, nil
}

// resolveMentions reduces the configured targets to one inline mention
// string. A target with a filter expression is included only when it
// evaluates true against the article.
func (b *Builder) resolveMentions(ctx context.Context, article *models.Article, cfg *models.MentionConfig) (string, error) {
	if cfg == nil || len(cfg.Targets) == 0 {
		return "", nil
	}

	refs := &filters.References{Article: article.Flattened}
	out := ""
	for _, target := range cfg.Targets {
		expr, err := filters.ParseMediumFilters(target.Filters)
		if err != nil {
			return "", fmt.Errorf("mention target %s: %w", target.ID, err)
		}
		pass, err := b.evaluator.Evaluate(ctx, expr, refs)
		if err != nil {
			return "", fmt.Errorf("mention target %s: %w", target.ID, err)
		}
		if !pass {
			continue
		}

		if out != "" {
			out += " "
		}
		if target.Type == "role" {
			out += "<@&" + target.ID + ">"
		} else {
			out += "<@" + target.ID + ">"
		}
	}
	return out, nil
}

// applyThreadFields sets the thread name and resolved tag ids on the lead
// message of a thread-creating medium.
func (b *Builder) applyThreadFields(ctx context.Context, msg *Message, article *models.Article, details *models.MediumDetails, render func(string) string) error {
	template := details.ForumThreadTitle
	if template == "" {
		template = defaultThreadTitle
	}
	name := capFirst(render(template), capThreadName)
	if name == "" {
		name = "New Article"
	}
	msg.ThreadName = name

	refs := &filters.References{Article: article.Flattened}
	for _, tag := range details.ForumThreadTags {
		expr, err := filters.ParseMediumFilters(tag.Filters)
		if err != nil {
			return fmt.Errorf("forum tag %s: %w", tag.ID, err)
		}
		pass, err := b.evaluator.Evaluate(ctx, expr, refs)
		if err != nil {
			return fmt.Errorf("forum tag %s: %w", tag.ID, err)
		}
		if pass {
			msg.AppliedTags = append(msg.AppliedTags, tag.ID)
		}
	}
	return nil
}

// isThreadCreating reports whether deliveries to this medium open a thread
// and therefore need a thread name.
func isThreadCreating(details *models.MediumDetails) bool {
	if details.Channel != nil {
		t := details.Channel.Type
		return t == models.ChannelTypeForum || t == models.ChannelTypeNewThread
	}
	if details.Webhook != nil {
		return details.Webhook.Type == models.ChannelTypeForum
	}
	return false
}

// splitContent renders the medium's split settings and divides text. A
// medium without split options gets the truncating single-part default.
func splitContent(text string, opts *models.SplitOptions) []string {
	settings := format.SplitSettings{}
	if opts != nil {
		settings = format.SplitSettings{
			Limit:                    opts.Limit,
			AppendChar:               opts.AppendChar,
			PrependChar:              opts.PrependChar,
			Enabled:                  opts.IsEnabled,
			IncludeAppendInFirstPart: opts.IncludeAppendInFirstPart,
		}
		if opts.SplitChar != "" {
			settings.SplitChars = []string{opts.SplitChar}
		}
	}
	return format.Split(text, settings)
}

// capFirst truncates value to at most limit characters, preferring sentence
// and word boundaries via the splitter's first-part semantics.
func capFirst(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	parts := format.Split(value, format.SplitSettings{Limit: limit, Enabled: false})
	return parts[0]
}

// buildEmbeds renders and caps each embed, silently dropping any beyond the
// provider maximum.
func buildEmbeds(embeds []models.Embed, render func(string) string) []Embed {
	if len(embeds) == 0 {
		return nil
	}
	if len(embeds) > maxEmbeds {
		embeds = embeds[:maxEmbeds]
	}

	out := make([]Embed, 0, len(embeds))
	for _, e := range embeds {
		built := Embed{
			Title:       capFirst(render(e.Title), capEmbedTitle),
			Description: capFirst(render(e.Description), capEmbedDescription),
			URL:         render(e.URL),
			Color:       e.Color,
			Timestamp:   e.Timestamp,
		}
		if e.Footer != nil && e.Footer.Text != "" {
			built.Footer = &EmbedFooter{
				Text:    capFirst(render(e.Footer.Text), capEmbedFooterText),
				IconURL: render(e.Footer.IconURL),
			}
		}
		if e.Image != nil && e.Image.URL != "" {
			built.Image = &EmbedImage{URL: render(e.Image.URL)}
		}
		if e.Thumbnail != nil && e.Thumbnail.URL != "" {
			built.Thumbnail = &EmbedImage{URL: render(e.Thumbnail.URL)}
		}
		if e.Author != nil && e.Author.Name != "" {
			built.Author = &EmbedAuthor{
				Name:    capFirst(render(e.Author.Name), capEmbedAuthorName),
				URL:     render(e.Author.URL),
				IconURL: render(e.Author.IconURL),
			}
		}
		for _, f := range e.Fields {
			built.Fields = append(built.Fields, EmbedField{
				Name:   capFirst(render(f.Name), capEmbedFieldName),
				Value:  capFirst(render(f.Value), capEmbedFieldValue),
				Inline: f.Inline,
			})
		}
		out = append(out, built)
	}
	return out
}

// buildLegacyComponents converts legacy button rows to provider action rows.
func buildLegacyComponents(rows []models.LegacyComponentRow, render func(string) string) []Component {
	if len(rows) == 0 {
		return nil
	}

	out := make([]Component, 0, len(rows))
	for _, row := range rows {
		built := Component{Type: componentTypeActionRow}
		for _, button := range row.Buttons {
			built.Components = append(built.Components, Component{
				Type:  componentTypeButton,
				Style: buttonStyleLink,
				Label: capFirst(render(button.Label), capButtonLabel),
				URL:   render(button.URL),
			})
		}
		out = append(out, built)
	}
	return out
}

// buildRichComponents converts the configured rich tree to provider nodes.
// Unknown node types are an error, never a silent default.
func buildRichComponents(nodes []models.RichComponent, render func(string) string) ([]Component, error) {
	out := make([]Component, 0, len(nodes))
	for i := range nodes {
		built, err := buildRichComponent(&nodes[i], render)
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

func buildRichComponent(node *models.RichComponent, render func(string) string) (Component, error) {
	switch node.Type {
	case models.RichComponentTextDisplay:
		return Component{
			Type:    componentTypeTextDisplay,
			Content: render(node.Content),
		}, nil

	case models.RichComponentActionRow:
		children, err := buildRichComponents(node.Children, render)
		if err != nil {
			return Component{}, err
		}
		return Component{Type: componentTypeActionRow, Components: children}, nil

	case models.RichComponentButton:
		return Component{
			Type:  componentTypeButton,
			Style: buttonStyleLink,
			Label: capFirst(render(node.Label), capButtonLabel),
			URL:   render(node.URL),
		}, nil

	case models.RichComponentSeparator:
		return Component{
			Type:    componentTypeSeparator,
			Divider: node.Divider,
			Spacing: node.Spacing,
		}, nil

	case models.RichComponentContainer:
		children, err := buildRichComponents(node.Children, render)
		if err != nil {
			return Component{}, err
		}
		return Component{
			Type:        componentTypeContainer,
			AccentColor: node.AccentColor,
			Spoiler:     node.Spoiler,
			Components:  children,
		}, nil

	case models.RichComponentSection:
		section := Component{Type: componentTypeSection}
		for i := range node.Children {
			child := &node.Children[i]
			built, err := buildRichComponent(child, render)
			if err != nil {
				return Component{}, err
			}
			// A thumbnail child becomes the section accessory.
			if child.Type == models.RichComponentThumbnail && section.Accessory == nil {
				accessory := built
				section.Accessory = &accessory
				continue
			}
			section.Components = append(section.Components, built)
		}
		return section, nil

	case models.RichComponentMediaGallery:
		gallery := Component{Type: componentTypeMediaGallery}
		for i := range node.Children {
			child := &node.Children[i]
			gallery.Items = append(gallery.Items, MediaItem{
				Media:       MediaSource{URL: render(child.MediaURL)},
				Description: capFirst(render(child.AltText), capAltText),
				Spoiler:     child.Spoiler,
			})
		}
		return gallery, nil

	case models.RichComponentThumbnail:
		return Component{
			Type:        componentTypeThumbnail,
			Media:       &MediaSource{URL: render(node.MediaURL)},
			Description: capFirst(render(node.AltText), capAltText),
			Spoiler:     node.Spoiler,
		}, nil

	default:
		return Component{}, fmt.Errorf("unknown rich component type %q", node.Type)
	}
}
