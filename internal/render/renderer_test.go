package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"reminder-bot/internal/discord"
	"reminder-bot/internal/models"
	"reminder-bot/internal/prefs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	msg     *discord.Message
	err     error
	fetches int
}

func (f *fakeFetcher) FetchMessage(context.Context, string, string) (*discord.Message, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.msg, nil
}

type memCache struct {
	data map[string]string
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", errors.New("miss")
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.data[key] = value.(string)
	return nil
}

func strPtr(s string) *string { return &s }

func guildChannel() *discord.Channel {
	return &discord.Channel{ID: "c1", Type: 0}
}

func dmChannel() *discord.Channel {
	return &discord.Channel{ID: "c1", Type: discord.ChannelTypeDM}
}

func baseReminder() *models.Reminder {
	return &models.Reminder{
		ID: 1, OwnerID: "u1", TargetID: "u1",
		ChannelID: "c1", Body: "water the plants",
	}
}

func TestBuild_PlainReminder(t *testing.T) {
	r := New(testLogger(), &fakeFetcher{}, nil, 100, 150)

	payload := r.Build(context.Background(), baseReminder(), prefs.Defaults(), guildChannel())

	if !strings.Contains(payload.Content, "<@u1>") {
		t.Errorf("missing target mention: %q", payload.Content)
	}
	if !strings.Contains(payload.Content, ": water the plants") {
		t.Errorf("missing body suffix: %q", payload.Content)
	}
	if len(payload.Embeds) != 0 {
		t.Error("plain reminder should carry no embeds")
	}
	if payload.AllowedMentions == nil || len(payload.AllowedMentions.Users) != 1 {
		t.Error("payload should explicitly allow only the target mention")
	}
}

func TestBuild_EmptyBodyOmitsColon(t *testing.T) {
	rem := baseReminder()
	rem.Body = ""
	rem.AnchorMessageID = strPtr("m1")
	rem.AnchorMessageURL = strPtr("https://discord.com/channels/1/c1/m1")

	fetcher := &fakeFetcher{msg: &discord.Message{
		ID: "m1", Content: "context", Author: discord.User{Username: "alice"},
	}}
	r := New(testLogger(), fetcher, nil, 100, 150)

	payload := r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())
	if strings.Contains(payload.Content, ":") && strings.Contains(payload.Content, ">: ") {
		t.Errorf("empty body must not leave a dangling colon: %q", payload.Content)
	}
}

func TestBuild_Attribution(t *testing.T) {
	rem := baseReminder()
	rem.TargetID = "u2"

	r := New(testLogger(), &fakeFetcher{}, nil, 100, 150)
	payload := r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())

	if !strings.Contains(payload.Content, "<@u1>") {
		t.Errorf("missing creator attribution: %q", payload.Content)
	}
}

func TestBuild_SpanishLocale(t *testing.T) {
	r := New(testLogger(), &fakeFetcher{}, nil, 100, 150)

	p := prefs.Preferences{Locale: "es-ES", Timezone: "Europe/Madrid"}
	payload := r.Build(context.Background(), baseReminder(), p, guildChannel())

	if !strings.Contains(payload.Content, "Recordatorio") {
		t.Errorf("expected Spanish heading: %q", payload.Content)
	}
}

func TestBuild_GuildAnchorEmbed(t *testing.T) {
	rem := baseReminder()
	rem.AnchorMessageID = strPtr("m1")
	rem.AnchorMessageURL = strPtr("https://discord.com/channels/1/c1/m1")

	long := strings.Repeat("x", 160)
	fetcher := &fakeFetcher{msg: &discord.Message{
		ID: "m1", Content: long,
		Author: discord.User{Username: "alice", GlobalName: "Alice"},
	}}
	r := New(testLogger(), fetcher, nil, 100, 150)

	payload := r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())

	if len(payload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Author == nil || e.Author.Name != "Alice" {
		t.Errorf("embed author should prefer global name: %+v", e.Author)
	}
	if !strings.Contains(e.Description, strings.Repeat("x", 100)+"...") {
		t.Errorf("preview should truncate at 100 with ellipsis: %q", e.Description)
	}
	if strings.Contains(e.Description, strings.Repeat("x", 101)) {
		t.Error("preview exceeded truncation bound")
	}
	if !strings.Contains(e.Description, *rem.AnchorMessageURL) {
		t.Error("embed should carry the jump link")
	}
}

func TestBuild_DMAnchorIsPlainText(t *testing.T) {
	rem := baseReminder()
	rem.AnchorMessageID = strPtr("m1")
	rem.AnchorMessageURL = strPtr("https://discord.com/channels/@me/c1/m1")

	long := strings.Repeat("y", 200)
	fetcher := &fakeFetcher{msg: &discord.Message{
		ID: "m1", Content: long,
		Author: discord.User{Username: "bob"},
	}}
	r := New(testLogger(), fetcher, nil, 100, 150)

	payload := r.Build(context.Background(), rem, prefs.Defaults(), dmChannel())

	if len(payload.Embeds) != 0 {
		t.Fatal("DM payloads render text blocks, not embeds")
	}
	if !strings.Contains(payload.Content, "**bob**") {
		t.Errorf("missing author line: %q", payload.Content)
	}
	if !strings.Contains(payload.Content, strings.Repeat("y", 150)+"...") {
		t.Errorf("DM preview should truncate at 150: %q", payload.Content)
	}
}

func TestBuild_AnchorFetchFailureFallsBackToLink(t *testing.T) {
	rem := baseReminder()
	rem.AnchorMessageID = strPtr("m1")
	rem.AnchorMessageURL = strPtr("https://discord.com/channels/1/c1/m1")

	fetcher := &fakeFetcher{err: &discord.APIError{Status: 404, Code: discord.CodeUnknownMessage}}
	r := New(testLogger(), fetcher, nil, 100, 150)

	payload := r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())

	if len(payload.Embeds) != 0 {
		t.Error("failed anchor fetch must not produce an embed")
	}
	if !strings.Contains(payload.Content, *rem.AnchorMessageURL) {
		t.Errorf("fallback should still include the link: %q", payload.Content)
	}
	if !strings.Contains(payload.Content, "water the plants") {
		t.Error("base text must survive the degraded render")
	}
}

func TestBuild_AnchorWithoutContentUsesPlaceholder(t *testing.T) {
	rem := baseReminder()
	rem.AnchorMessageID = strPtr("m1")
	rem.AnchorMessageURL = strPtr("https://discord.com/channels/1/c1/m1")

	fetcher := &fakeFetcher{msg: &discord.Message{
		ID: "m1", Content: "", Author: discord.User{Username: "carol"},
	}}
	r := New(testLogger(), fetcher, nil, 100, 150)

	payload := r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())

	if len(payload.Embeds) != 1 {
		t.Fatal("expected an embed")
	}
	if !strings.Contains(payload.Embeds[0].Description, "Attachment/Media") {
		t.Errorf("empty content should use the attachment placeholder: %q", payload.Embeds[0].Description)
	}
}

func TestBuild_AnchorCacheAvoidsRefetch(t *testing.T) {
	rem := baseReminder()
	rem.AnchorMessageID = strPtr("m1")
	rem.AnchorMessageURL = strPtr("https://discord.com/channels/1/c1/m1")

	fetcher := &fakeFetcher{msg: &discord.Message{
		ID: "m1", Content: "cached once", Author: discord.User{Username: "alice"},
	}}
	cache := &memCache{data: make(map[string]string)}
	r := New(testLogger(), fetcher, cache, 100, 150)

	r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())
	r.Build(context.Background(), rem, prefs.Defaults(), guildChannel())

	if fetcher.fetches != 1 {
		t.Errorf("second build should hit the cache, got %d fetches", fetcher.fetches)
	}
}
