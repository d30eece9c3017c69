// Package render builds outbound notification payloads from reminder rows.
// Rendering never fails outright: an unreachable anchor message degrades the
// payload to a plain link instead of blocking the delivery.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"reminder-bot/internal/discord"
	"reminder-bot/internal/i18n"
	"reminder-bot/internal/models"
	"reminder-bot/internal/prefs"
)

// Discord's blurple, used for the anchor preview embed.
const embedColor = 0x5865f2

const anchorCacheTTL = 5 * time.Minute

type MessageFetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (*discord.Message, error)
}

// Cache is an optional read-through cache for anchor messages, so two
// reminders anchored to the same message within a tick fetch it once.
// Satisfied by the redis client; nil disables caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Renderer struct {
	log          *slog.Logger
	fetcher      MessageFetcher
	cache        Cache
	previewLen   int
	dmPreviewLen int
}

func New(log *slog.Logger, fetcher MessageFetcher, cache Cache, previewLen, dmPreviewLen int) *Renderer {
	if previewLen < 1 {
		previewLen = 100
	}
	if dmPreviewLen < 1 {
		dmPreviewLen = 150
	}
	return &Renderer{
		log:          log,
		fetcher:      fetcher,
		cache:        cache,
		previewLen:   previewLen,
		dmPreviewLen: dmPreviewLen,
	}
}

// Build renders the payload for one reminder addressed to its target, using
// the target's preferences and the already-resolved destination channel.
func (r *Renderer) Build(ctx context.Context, rem *models.Reminder, p prefs.Preferences, ch *discord.Channel) discord.SendPayload {
	loc := p.Locale

	text := fmt.Sprintf("%s <@%s>", i18n.T(loc, "reminder.heading"), rem.TargetID)
	if rem.Body != "" {
		text += ": " + rem.Body
	}
	if !rem.SelfReminder() {
		text += "\n" + i18n.T(loc, "reminder.from", rem.OwnerID)
	}

	payload := discord.SendPayload{
		Content: text,
		AllowedMentions: &discord.AllowedMentions{
			Parse: []string{},
			Users: []string{rem.TargetID},
		},
	}

	if !rem.HasAnchor() {
		return payload
	}

	anchor, err := r.fetchAnchor(ctx, rem.ChannelID, *rem.AnchorMessageID)
	if err != nil {
		// Degraded form: base text plus a bare jump link.
		r.log.Debug("anchor_fetch_failed",
			"reminder_id", rem.ID,
			"anchor_message_id", *rem.AnchorMessageID,
			"error", err,
		)
		payload.Content += "\n" + i18n.T(loc, "reminder.jump", *rem.AnchorMessageURL)
		return payload
	}

	preview := anchor.Content
	if preview == "" {
		preview = i18n.T(loc, "reminder.attachment")
	}

	if ch.IsDM() {
		// DMs get an inline text block instead of a structured embed.
		preview = truncate(preview, r.dmPreviewLen)
		payload.Content += fmt.Sprintf("\n\n**%s**\n%s\n%s",
			anchor.Author.DisplayName(),
			preview,
			i18n.T(loc, "reminder.jump", *rem.AnchorMessageURL),
		)
		return payload
	}

	preview = truncate(preview, r.previewLen)
	payload.Embeds = []discord.Embed{{
		Color:       embedColor,
		Author:      &discord.EmbedAuthor{Name: anchor.Author.DisplayName()},
		Description: preview + "\n\n" + i18n.T(loc, "reminder.jump", *rem.AnchorMessageURL),
	}}
	return payload
}

func (r *Renderer) fetchAnchor(ctx context.Context, channelID, messageID string) (*discord.Message, error) {
	key := "anchor_msg:" + channelID + ":" + messageID

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key); err == nil && cached != "" {
			var msg discord.Message
			if err := json.Unmarshal([]byte(cached), &msg); err == nil {
				return &msg, nil
			}
		}
	}

	msg, err := r.fetcher.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if raw, err := json.Marshal(msg); err == nil {
			_ = r.cache.Set(ctx, key, string(raw), anchorCacheTTL)
		}
	}
	return msg, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
