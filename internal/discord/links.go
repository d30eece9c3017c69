package discord

import "regexp"

// Message links look like
// https://discord.com/channels/<guild-or-@me>/<channel>/<message>.
var messageLinkRe = regexp.MustCompile(`^https://discord\.com/channels/(@me|\d+)/(\d+)/(\d+)$`)

type MessageLink struct {
	GuildID   string // "" for a DM link (@me)
	ChannelID string
	MessageID string
	URL       string
}

// ParseMessageLink validates and splits a copied message link. The second
// return is false when the URL is not a well-formed Discord message link.
func ParseMessageLink(url string) (MessageLink, bool) {
	m := messageLinkRe.FindStringSubmatch(url)
	if m == nil {
		return MessageLink{}, false
	}
	link := MessageLink{
		ChannelID: m[2],
		MessageID: m[3],
		URL:       url,
	}
	if m[1] != "@me" {
		link.GuildID = m[1]
	}
	return link, true
}
