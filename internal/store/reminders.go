package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"reminder-bot/internal/db"
	"reminder-bot/internal/models"
)

const reminderColumns = `id, owner_id, target_id, guild_id, channel_id, body,
	due_at, creation_timezone, anchor_message_id, anchor_message_url`

// ReminderStore is the durable table of pending reminders. It does not hide
// storage failures; every error propagates to the caller.
type ReminderStore struct {
	db *db.DB
}

func NewReminderStore(dbConn *db.DB) *ReminderStore {
	return &ReminderStore{db: dbConn}
}

// Insert stores the reminder and returns the assigned id. Ids are assigned
// by the sequence and never reused.
func (s *ReminderStore) Insert(ctx context.Context, r *models.Reminder) (int64, error) {
	var id int64
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (
			owner_id, target_id, guild_id, channel_id, body,
			due_at, creation_timezone, anchor_message_id, anchor_message_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		r.OwnerID, r.TargetID, r.GuildID, r.ChannelID, r.Body,
		r.DueAt, r.CreationTimezone, r.AnchorMessageID, r.AnchorMessageURL,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a single reminder, or nil when the id does not exist.
func (s *ReminderStore) Get(ctx context.Context, id int64) (*models.Reminder, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id)
	r, err := scanReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListForUser returns every reminder where the user is owner or target,
// soonest first.
func (s *ReminderStore) ListForUser(ctx context.Context, userID string) ([]models.Reminder, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE owner_id = $1 OR target_id = $1
		 ORDER BY due_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

// Due returns reminders whose due_at is at or before asOf, oldest first.
// limit <= 0 means no cap.
func (s *ReminderStore) Due(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error) {
	q := `SELECT ` + reminderColumns + ` FROM reminders
		 WHERE due_at <= $1
		 ORDER BY due_at ASC`
	args := []interface{}{asOf}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

// Upcoming returns not-yet-due reminders, soonest first. Operator surface
// only; the delivery loop never calls this.
func (s *ReminderStore) Upcoming(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE due_at > $1
		 ORDER BY due_at ASC
		 LIMIT $2`,
		asOf, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

// Delete removes a reminder unconditionally. Used by the delivery loop after
// a confirmed send.
func (s *ReminderStore) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteOwned removes a reminder only when ownerID matches. Returns the
// affected-row count so callers can tell "not found" from "removed"; owning
// nothing is not an error here.
func (s *ReminderStore) DeleteOwned(ctx context.Context, id int64, ownerID string) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var r models.Reminder
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.TargetID, &r.GuildID, &r.ChannelID, &r.Body,
		&r.DueAt, &r.CreationTimezone, &r.AnchorMessageID, &r.AnchorMessageURL,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReminders(rows pgx.Rows) ([]models.Reminder, error) {
	var out []models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
