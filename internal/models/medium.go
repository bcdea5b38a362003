// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package models

import "github.com/goccy/go-json"

// MediumKey discriminates delivery medium kinds on inbound events.
type MediumKey string

// MediumKeyDiscord is the only medium kind currently recognized.
const MediumKeyDiscord MediumKey = "discord"

// ChannelType distinguishes plain channels from thread-bearing ones.
type ChannelType string

const (
	ChannelTypePlain     ChannelType = ""
	ChannelTypeThread    ChannelType = "thread"
	ChannelTypeForum     ChannelType = "forum"
	ChannelTypeNewThread ChannelType = "new-thread"
)

// Channel identifies a provider channel target.
type Channel struct {
	ID   string      `json:"id" validate:"required"`
	Type ChannelType `json:"type,omitempty"`
}

// Webhook identifies a provider webhook target.
type Webhook struct {
	ID    string `json:"id" validate:"required"`
	Token string `json:"token" validate:"required"`
	// Name and IconURL are templated per article when set.
	Name    string      `json:"name,omitempty"`
	IconURL string      `json:"iconUrl,omitempty"`
	Type    ChannelType `json:"type,omitempty"`
}

// MediumRateLimit is one user-configured rolling-window limit for a medium.
type MediumRateLimit struct {
	Limit             int `json:"limit" validate:"gt=0"`
	TimeWindowSeconds int `json:"timeWindowSeconds" validate:"gt=0"`
}

// PlaceholderLimit caps the rendered length of one placeholder field.
type PlaceholderLimit struct {
	Placeholder    string `json:"placeholder" validate:"required"`
	CharacterCount int    `json:"characterCount" validate:"gt=0"`
	AppendString   string `json:"appendString,omitempty"`
}

// CustomPlaceholderStep is one regex search/replace applied while deriving a
// custom placeholder value.
type CustomPlaceholderStep struct {
	Regex       string `json:"regexSearch" validate:"required"`
	Replacement string `json:"replacementString,omitempty"`
	RegexFlags  string `json:"regexSearchFlags,omitempty"`
}

// CustomPlaceholder derives a synthetic article field from a source field by
// running an ordered list of regex steps.
type CustomPlaceholder struct {
	ID            string                  `json:"id" validate:"required"`
	ReferenceName string                  `json:"referenceName" validate:"required"`
	SourceField   string                  `json:"sourcePlaceholder" validate:"required"`
	Steps         []CustomPlaceholderStep `json:"steps" validate:"dive"`
}

// SplitOptions controls message text splitting for one medium.
type SplitOptions struct {
	IsEnabled                bool   `json:"isEnabled"`
	Limit                    int    `json:"limit,omitempty"`
	SplitChar                string `json:"splitChar,omitempty"`
	AppendChar               string `json:"appendChar,omitempty"`
	PrependChar              string `json:"prependChar,omitempty"`
	IncludeAppendInFirstPart bool   `json:"includeAppendInFirstPart,omitempty"`
}

// MentionTarget is one user or role to mention, optionally gated by its own
// filter expression.
type MentionTarget struct {
	ID      string          `json:"id" validate:"required"`
	Type    string          `json:"type" validate:"oneof=user role"`
	Filters json.RawMessage `json:"filters,omitempty"`
}

// ForumThreadTag resolves to an applied forum tag when its filter expression
// (if any) evaluates true.
type ForumThreadTag struct {
	ID      string          `json:"id" validate:"required"`
	Filters json.RawMessage `json:"filters,omitempty"`
}

// FormatterOptions carries the per-medium HTML conversion switches.
type FormatterOptions struct {
	FormatTables             bool `json:"formatTables"`
	StripImages              bool `json:"stripImages"`
	DisableImageLinkPreviews bool `json:"disableImageLinkPreviews"`
	IgnoreNewLines           bool `json:"ignoreNewLines,omitempty"`
}

// Medium is one configured delivery destination. Exactly one of
// Details.Channel or Details.Webhook must be set.
type Medium struct {
	ID  string    `json:"id" validate:"required"`
	Key MediumKey `json:"key" validate:"required,oneof=discord"`

	Details MediumDetails `json:"details"`
}

// MediumDetails holds the delivery configuration for a Medium.
type MediumDetails struct {
	Channel *Channel `json:"channel,omitempty"`
	Webhook *Webhook `json:"webhook,omitempty"`

	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`

	// Components holds legacy button rows. Mutually exclusive with
	// ComponentsV2.
	Components []LegacyComponentRow `json:"components,omitempty"`

	// ComponentsV2 holds the rich component tree. When present, the plain
	// Content field is not delivered and the rich-layout flag is set on the
	// payload.
	ComponentsV2 []RichComponent `json:"componentsV2,omitempty"`

	Mentions *MentionConfig `json:"mentions,omitempty"`

	// Filters wraps an optional filter expression tree under an
	// "expression" key. Parsed by the filters package.
	Filters json.RawMessage `json:"filters,omitempty"`

	RateLimits         []MediumRateLimit   `json:"rateLimits,omitempty"`
	PlaceholderLimits  []PlaceholderLimit  `json:"placeholderLimits,omitempty"`
	CustomPlaceholders []CustomPlaceholder `json:"customPlaceholders,omitempty"`

	Formatter FormatterOptions `json:"formatter"`

	SplitOptions *SplitOptions `json:"splitOptions,omitempty"`

	EnablePlaceholderFallback bool `json:"enablePlaceholderFallback,omitempty"`

	ForumThreadTitle string           `json:"forumThreadTitle,omitempty"`
	ForumThreadTags  []ForumThreadTag `json:"forumThreadTags,omitempty"`
}

// MentionConfig lists the mention targets for a medium.
type MentionConfig struct {
	Targets []MentionTarget `json:"targets,omitempty"`
}

// Embed mirrors the provider embed object. Field caps are enforced by the
// payload builder, not here.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       *int         `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"iconUrl,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"iconUrl,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// LegacyComponentRow is one row of legacy link buttons.
type LegacyComponentRow struct {
	Buttons []LegacyButton `json:"buttons"`
}

// LegacyButton is a legacy link-style button.
type LegacyButton struct {
	Label string `json:"label" validate:"required"`
	URL   string `json:"url,omitempty"`
}

// RichComponentType enumerates the rich component kinds.
type RichComponentType string

const (
	RichComponentTextDisplay  RichComponentType = "text-display"
	RichComponentActionRow    RichComponentType = "action-row"
	RichComponentButton       RichComponentType = "button"
	RichComponentSeparator    RichComponentType = "separator"
	RichComponentContainer    RichComponentType = "container"
	RichComponentSection      RichComponentType = "section"
	RichComponentMediaGallery RichComponentType = "media-gallery"
	RichComponentThumbnail    RichComponentType = "thumbnail"
)

// RichComponent is one node of the mutually-exclusive rich component tree.
// Which fields are meaningful depends on Type; the payload builder rejects
// unknown types.
type RichComponent struct {
	Type RichComponentType `json:"type" validate:"required"`

	// Content is the templated text of a text-display node.
	Content string `json:"content,omitempty"`

	// Label and URL configure a button node.
	Label string `json:"label,omitempty"`
	URL   string `json:"url,omitempty"`

	// Divider and Spacing configure a separator node. Spacing is 1 (small)
	// or 2 (large).
	Divider *bool `json:"divider,omitempty"`
	Spacing int   `json:"spacing,omitempty"`

	// AccentColor and Spoiler configure a container node.
	AccentColor *int `json:"accentColor,omitempty"`
	Spoiler     bool `json:"spoiler,omitempty"`

	// MediaURL and AltText configure media-gallery items and thumbnails.
	MediaURL string `json:"mediaUrl,omitempty"`
	AltText  string `json:"altText,omitempty"`

	Children []RichComponent `json:"children,omitempty"`
}
