package models

import "time"

type User struct {
	ID       string  `json:"id"`
	Timezone string  `json:"timezone"`
	Locale   *string `json:"locale,omitempty"`
}

// Reminder is one pending notification obligation. Rows are deleted on
// confirmed delivery; there is no completion flag.
type Reminder struct {
	ID               int64     `json:"id"`
	OwnerID          string    `json:"owner_id"`
	TargetID         string    `json:"target_id"`
	GuildID          *string   `json:"guild_id,omitempty"`
	ChannelID        string    `json:"channel_id"`
	Body             string    `json:"body"`
	DueAt            time.Time `json:"due_at"`
	CreationTimezone string    `json:"creation_timezone"`
	AnchorMessageID  *string   `json:"anchor_message_id,omitempty"`
	AnchorMessageURL *string   `json:"anchor_message_url,omitempty"`
}

// HasAnchor reports whether the reminder references an existing chat message.
// AnchorMessageID and AnchorMessageURL are always both set or both nil.
func (r *Reminder) HasAnchor() bool {
	return r.AnchorMessageID != nil && *r.AnchorMessageID != ""
}

// SelfReminder reports whether the creator is also the recipient.
func (r *Reminder) SelfReminder() bool {
	return r.OwnerID == r.TargetID
}
