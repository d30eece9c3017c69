package reminder

import (
	"context"
	"log/slog"
	"time"

	"reminder-bot/internal/models"
)

// MaxBodyLength matches the platform's message length ceiling.
const MaxBodyLength = 2000

type UserStore interface {
	Ensure(ctx context.Context, id, timezone string) error
	Get(ctx context.Context, id string) (*models.User, error)
	SetTimezone(ctx context.Context, id, timezone string) error
	SetLocale(ctx context.Context, id, locale string) error
}

type ReminderStore interface {
	Insert(ctx context.Context, r *models.Reminder) (int64, error)
	Get(ctx context.Context, id int64) (*models.Reminder, error)
	ListForUser(ctx context.Context, userID string) ([]models.Reminder, error)
	Due(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error)
	Upcoming(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteOwned(ctx context.Context, id int64, ownerID string) (int64, error)
}

// Service owns the invariants the raw stores do not: users exist before a
// reminder references them, bodies are never empty without an anchor, and
// only owners delete.
type Service struct {
	log       *slog.Logger
	users     UserStore
	reminders ReminderStore
}

func NewService(log *slog.Logger, users UserStore, reminders ReminderStore) *Service {
	return &Service{log: log, users: users, reminders: reminders}
}

type CreateParams struct {
	OwnerID          string
	TargetID         string // empty means self-reminder
	GuildID          *string
	ChannelID        string
	Body             string
	DueAt            time.Time
	Timezone         string
	AnchorMessageID  *string
	AnchorMessageURL *string
}

// CreateReminder validates, lazily creates both user rows, and inserts the
// reminder. Returns the new id, the user-facing delete handle.
func (s *Service) CreateReminder(ctx context.Context, p CreateParams) (int64, error) {
	if p.OwnerID == "" {
		return 0, &ValidationError{Field: "owner_id", Reason: "required"}
	}
	if p.ChannelID == "" {
		return 0, &ValidationError{Field: "channel_id", Reason: "required"}
	}
	if p.DueAt.IsZero() {
		return 0, &ValidationError{Field: "due_at", Reason: "not a valid instant"}
	}
	if len(p.Body) > MaxBodyLength {
		return 0, &ValidationError{Field: "body", Reason: "too long"}
	}

	hasID := p.AnchorMessageID != nil && *p.AnchorMessageID != ""
	hasURL := p.AnchorMessageURL != nil && *p.AnchorMessageURL != ""
	if hasID != hasURL {
		return 0, &ValidationError{Field: "anchor", Reason: "message id and url must be set together"}
	}
	if p.Body == "" && !hasID {
		return 0, &ValidationError{Field: "body", Reason: "empty body requires an anchor message"}
	}

	tz := p.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return 0, &ValidationError{Field: "timezone", Reason: "unknown timezone"}
	}

	target := p.TargetID
	if target == "" {
		target = p.OwnerID
	}

	// Users must exist before the insert so the delivery loop can always
	// resolve either side's preferences.
	if err := s.users.Ensure(ctx, p.OwnerID, tz); err != nil {
		return 0, err
	}
	if target != p.OwnerID {
		if err := s.users.Ensure(ctx, target, "UTC"); err != nil {
			return 0, err
		}
	}

	rem := &models.Reminder{
		OwnerID:          p.OwnerID,
		TargetID:         target,
		GuildID:          p.GuildID,
		ChannelID:        p.ChannelID,
		Body:             p.Body,
		DueAt:            p.DueAt.UTC(),
		CreationTimezone: tz,
		AnchorMessageID:  p.AnchorMessageID,
		AnchorMessageURL: p.AnchorMessageURL,
	}

	id, err := s.reminders.Insert(ctx, rem)
	if err != nil {
		return 0, err
	}

	s.log.Info("reminder_created",
		"reminder_id", id,
		"owner_id", p.OwnerID,
		"target_id", target,
		"due_at", rem.DueAt,
	)
	return id, nil
}

// ListForUser returns reminders where the user is owner or target, soonest
// first. No pagination; a single user's working set stays small.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Reminder, error) {
	return s.reminders.ListForUser(ctx, userID)
}

// DeleteOwned removes a reminder on behalf of requesterID. Only the owner
// may delete; a mere target gets 0 back, same as a missing id.
func (s *Service) DeleteOwned(ctx context.Context, id int64, requesterID string) (int64, error) {
	n, err := s.reminders.DeleteOwned(ctx, id, requesterID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("reminder_deleted", "reminder_id", id, "requester_id", requesterID)
	}
	return n, nil
}

// DueNow returns reminders due at or before asOf. Delivery loop only.
func (s *Service) DueNow(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error) {
	return s.reminders.Due(ctx, asOf, limit)
}

// Upcoming returns the next not-yet-due reminders for the operator surface.
func (s *Service) Upcoming(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error) {
	return s.reminders.Upcoming(ctx, asOf, limit)
}

// MarkDelivered discharges the obligation after a confirmed send by deleting
// the row. Called only once the platform has accepted the message.
func (s *Service) MarkDelivered(ctx context.Context, id int64) error {
	n, err := s.reminders.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		// Row already gone; a concurrent owner delete raced the delivery.
		s.log.Warn("mark_delivered_row_missing", "reminder_id", id)
	}
	return nil
}

// User returns the stored user row, or nil when never seen.
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	return s.users.Get(ctx, userID)
}

// SetUserTimezone validates the IANA name and upserts the preference.
func (s *Service) SetUserTimezone(ctx context.Context, userID, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return &ValidationError{Field: "timezone", Reason: "unknown timezone"}
	}
	return s.users.SetTimezone(ctx, userID, timezone)
}

// SetUserLocale upserts the locale preference. The caller normalizes the tag.
func (s *Service) SetUserLocale(ctx context.Context, userID, locale string) error {
	if locale == "" {
		return &ValidationError{Field: "locale", Reason: "required"}
	}
	return s.users.SetLocale(ctx, userID, locale)
}
