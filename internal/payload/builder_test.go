// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package payload

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/synzen/MonitoRSS-sub001/internal/filters"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

func newBuilder() *Builder {
	return NewBuilder(filters.NewEvaluator())
}

func testArticle(fields map[string]string) *models.Article {
	flattened := map[string]string{}
	for k, v := range fields {
		flattened[k] = v
	}
	return &models.Article{ID: "a1", IDHash: "hash-a1", Flattened: flattened}
}

func TestBuildSubstitutesContent(t *testing.T) {
	t.Parallel()

	article := testArticle(map[string]string{"title": "some-title-here"})
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1"},
		Content: "content {{title}}",
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Content != "content some-title-here" {
		t.Errorf("unexpected content: %q", messages[0].Content)
	}
}

func TestBuildRichComponentsOmitContentAndSetFlag(t *testing.T) {
	t.Parallel()

	article := testArticle(map[string]string{"title": "hello"})
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1"},
		Content: "plain content that must not appear",
		ComponentsV2: []models.RichComponent{
			{Type: models.RichComponentTextDisplay, Content: "rich {{title}}"},
		},
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if msg.Flags&RichLayoutFlag == 0 {
		t.Error("rich layout flag must be set")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"content":"plain`) {
		t.Errorf("payload must not carry plain content: %s", data)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["content"]; ok {
		t.Error("rich payload must have no content key")
	}
	if decoded["flags"] != float64(RichLayoutFlag) {
		t.Errorf("expected flags %d, got %v", RichLayoutFlag, decoded["flags"])
	}

	if len(msg.Components) != 1 || msg.Components[0].Content != "rich hello" {
		t.Errorf("unexpected components: %+v", msg.Components)
	}
}

func TestBuildSplitPartsAttachEmbedsToLast(t *testing.T) {
	t.Parallel()

	article := testArticle(map[string]string{
		"body": strings.Repeat("first sentence. ", 5),
	})
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel:      &models.Channel{ID: "c1"},
		Content:      "{{body}}",
		Embeds:       []models.Embed{{Title: "t"}},
		SplitOptions: &models.SplitOptions{IsEnabled: true, Limit: 60},
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(messages) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(messages))
	}
	for i, msg := range messages[:len(messages)-1] {
		if len(msg.Embeds) != 0 {
			t.Errorf("part %d must not carry embeds", i)
		}
	}
	if len(messages[len(messages)-1].Embeds) != 1 {
		t.Error("last part must carry the embeds")
	}
}

func TestBuildEmbedCaps(t *testing.T) {
	t.Parallel()

	article := testArticle(nil)
	long := strings.Repeat("x", 5000)
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1"},
		Embeds: []models.Embed{{
			Title:       long,
			Description: long,
			Footer:      &models.EmbedFooter{Text: long},
			Author:      &models.EmbedAuthor{Name: long},
			Fields:      []models.EmbedField{{Name: long, Value: long}},
		}},
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	embed := messages[0].Embeds[0]
	if len(embed.Title) > capEmbedTitle {
		t.Errorf("title %d exceeds cap", len(embed.Title))
	}
	if len(embed.Description) > capEmbedDescription {
		t.Errorf("description %d exceeds cap", len(embed.Description))
	}
	if len(embed.Footer.Text) > capEmbedFooterText {
		t.Errorf("footer %d exceeds cap", len(embed.Footer.Text))
	}
	if len(embed.Author.Name) > capEmbedAuthorName {
		t.Errorf("author %d exceeds cap", len(embed.Author.Name))
	}
	if len(embed.Fields[0].Name) > capEmbedFieldName {
		t.Errorf("field name %d exceeds cap", len(embed.Fields[0].Name))
	}
	if len(embed.Fields[0].Value) > capEmbedFieldValue {
		t.Errorf("field value %d exceeds cap", len(embed.Fields[0].Value))
	}
}

func TestBuildTruncatesExcessEmbeds(t *testing.T) {
	t.Parallel()

	article := testArticle(nil)
	embeds := make([]models.Embed, 12)
	for i := range embeds {
		embeds[i] = models.Embed{Title: "t"}
	}
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1"},
		Embeds:  embeds,
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(messages[0].Embeds) != maxEmbeds {
		t.Errorf("expected %d embeds, got %d", maxEmbeds, len(messages[0].Embeds))
	}
}

func TestBuildLegacyButtonLabelCap(t *testing.T) {
	t.Parallel()

	article := testArticle(nil)
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1"},
		Components: []models.LegacyComponentRow{{
			Buttons: []models.LegacyButton{{Label: strings.Repeat("b", 200), URL: "https://example.com"}},
		}},
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	row := messages[0].Components[0]
	if row.Type != componentTypeActionRow {
		t.Errorf("expected action row, got %d", row.Type)
	}
	button := row.Components[0]
	if len(button.Label) > capButtonLabel {
		t.Errorf("label %d exceeds cap", len(button.Label))
	}
	if button.Style != buttonStyleLink || button.URL == "" {
		t.Errorf("unexpected button: %+v", button)
	}
}

func TestBuildMentionsFilteredPerTarget(t *testing.T) {
	t.Parallel()

	onlyNews := json.RawMessage(`{"expression":{
		"type":"RELATIONAL","op":"EQ",
		"left":{"type":"ARTICLE","value":"category"},
		"right":{"type":"STRING","value":"news"}
	}}`)

	article := testArticle(map[string]string{"category": "sports"})
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1"},
		Content: "{{discord::mentions}} update",
		Mentions: &models.MentionConfig{Targets: []models.MentionTarget{
			{ID: "1", Type: "user"},
			{ID: "2", Type: "role", Filters: onlyNews},
		}},
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if messages[0].Content != "<@1> update" {
		t.Errorf("unexpected content: %q", messages[0].Content)
	}
}

func TestBuildForumThreadNameAndTags(t *testing.T) {
	t.Parallel()

	onlyNews := json.RawMessage(`{"expression":{
		"type":"RELATIONAL","op":"EQ",
		"left":{"type":"ARTICLE","value":"category"},
		"right":{"type":"STRING","value":"news"}
	}}`)

	article := testArticle(map[string]string{
		"title":    strings.Repeat("long title ", 20),
		"category": "news",
	})
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel: &models.Channel{ID: "c1", Type: models.ChannelTypeForum},
		Content: "body",
		ForumThreadTags: []models.ForumThreadTag{
			{ID: "tag-news", Filters: onlyNews},
			{ID: "tag-always"},
		},
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	msg := messages[0]
	if msg.ThreadName == "" || len(msg.ThreadName) > capThreadName {
		t.Errorf("unexpected thread name %q", msg.ThreadName)
	}
	if len(msg.AppliedTags) != 2 {
		t.Errorf("expected both tags applied, got %v", msg.AppliedTags)
	}
}

func TestBuildWebhookIdentity(t *testing.T) {
	t.Parallel()

	article := testArticle(map[string]string{"title": "hello"})
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Webhook: &models.Webhook{ID: "w1", Token: "tok", Name: "feed: {{title}}", IconURL: "https://icon"},
		Content: "body",
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if messages[0].Username != "feed: hello" {
		t.Errorf("unexpected username %q", messages[0].Username)
	}
	if messages[0].AvatarURL != "https://icon" {
		t.Errorf("unexpected avatar %q", messages[0].AvatarURL)
	}
}

func TestBuildWebhookUsernameCap(t *testing.T) {
	t.Parallel()

	article := testArticle(nil)
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Webhook: &models.Webhook{ID: "w1", Token: "tok", Name: strings.Repeat("n", 200)},
		Content: "body",
	}}

	messages, err := newBuilder().Build(context.Background(), article, medium)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := len(messages[0].Username); got > capWebhookUsername {
		t.Errorf("username %d exceeds cap %d", got, capWebhookUsername)
	}
}

func TestBuildUnknownRichComponentFails(t *testing.T) {
	t.Parallel()

	article := testArticle(nil)
	medium := &models.Medium{ID: "m1", Key: models.MediumKeyDiscord, Details: models.MediumDetails{
		Channel:      &models.Channel{ID: "c1"},
		ComponentsV2: []models.RichComponent{{Type: "holo-projection"}},
	}}

	if _, err := newBuilder().Build(context.Background(), article, medium); err == nil {
		t.Fatal("expected error for unknown rich component type")
	}
}
