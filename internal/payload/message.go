// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package payload

// RichLayoutFlag marks a message that carries a rich component tree instead
// of plain content. Provider contract value, do not change.
const RichLayoutFlag = 1 << 15

// Provider numeric component types.
const (
	componentTypeActionRow    = 1
	componentTypeButton       = 2
	componentTypeSection      = 9
	componentTypeTextDisplay  = 10
	componentTypeThumbnail    = 11
	componentTypeMediaGallery = 12
	componentTypeSeparator    = 14
	componentTypeContainer    = 17
)

// buttonStyleLink is the provider style for URL buttons.
const buttonStyleLink = 5

// Message is one outbound provider message. Key names are part of the
// provider contract and must not change.
type Message struct {
	Content     string      `json:"content,omitempty"`
	Embeds      []Embed     `json:"embeds,omitempty"`
	Components  []Component `json:"components,omitempty"`
	Flags       int         `json:"flags,omitempty"`
	Username    string      `json:"username,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	ThreadName  string      `json:"thread_name,omitempty"`
	AppliedTags []string    `json:"applied_tags,omitempty"`
}

// Embed is the outbound embed object.
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
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Component is one outbound component node, legacy or rich. Optional fields
// are pointers so zero values the provider rejects are omitted entirely.
type Component struct {
	Type        int          `json:"type"`
	Style       int          `json:"style,omitempty"`
	Label       string       `json:"label,omitempty"`
	URL         string       `json:"url,omitempty"`
	Content     string       `json:"content,omitempty"`
	Divider     *bool        `json:"divider,omitempty"`
	Spacing     int          `json:"spacing,omitempty"`
	AccentColor *int         `json:"accent_color,omitempty"`
	Spoiler     bool         `json:"spoiler,omitempty"`
	Media       *MediaSource `json:"media,omitempty"`
	Description string       `json:"description,omitempty"`
	Items       []MediaItem  `json:"items,omitempty"`
	Accessory   *Component   `json:"accessory,omitempty"`
	Components  []Component  `json:"components,omitempty"`
}

// MediaItem is one media-gallery entry or thumbnail media reference.
type MediaItem struct {
	Media       MediaSource `json:"media"`
	Description string      `json:"description,omitempty"`
	Spoiler     bool        `json:"spoiler,omitempty"`
}

type MediaSource struct {
	URL string `json:"url"`
}
