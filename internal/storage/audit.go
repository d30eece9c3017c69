// Package storage keeps the append-only delivery audit trail. The live
// scheduling table deletes rows on completion, so delivered reminders are
// recorded here instead — one immutable object per delivery.
package storage

import (
	"context"
	"time"
)

type DeliveryRecord struct {
	ReminderID  int64     `json:"reminder_id"`
	OwnerID     string    `json:"owner_id"`
	TargetID    string    `json:"target_id"`
	GuildID     *string   `json:"guild_id,omitempty"`
	ChannelID   string    `json:"channel_id"`
	Body        string    `json:"body"`
	DueAt       time.Time `json:"due_at"`
	DeliveredAt time.Time `json:"delivered_at"`
	// MessageID is the id of the notification message the platform accepted.
	MessageID string `json:"message_id"`
}

// DeliveryLog appends one record per confirmed delivery and returns the
// stored object's location. Append failures never un-confirm a delivery;
// callers log and move on.
type DeliveryLog interface {
	AppendDelivery(ctx context.Context, rec DeliveryRecord) (string, error)
}
