package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"reminder-bot/internal/db"
	"reminder-bot/internal/models"
)

// UserStore persists per-user reminder preferences. Rows are created lazily
// the first time a reminder or preference update touches an id, and are
// never deleted.
type UserStore struct {
	db *db.DB
}

func NewUserStore(dbConn *db.DB) *UserStore {
	return &UserStore{db: dbConn}
}

// Ensure creates the user row if it does not exist yet. Existing rows keep
// their preferences untouched, so calling it repeatedly is safe.
func (s *UserStore) Ensure(ctx context.Context, id, timezone string) error {
	if timezone == "" {
		timezone = "UTC"
	}
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users (id, timezone) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		id, timezone,
	)
	return err
}

// Get returns the user row, or nil when the id has never been seen.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, timezone, locale FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Timezone, &u.Locale)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) SetTimezone(ctx context.Context, id, timezone string) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users (id, timezone) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET timezone = EXCLUDED.timezone`,
		id, timezone,
	)
	return err
}

func (s *UserStore) SetLocale(ctx context.Context, id, locale string) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users (id, timezone, locale) VALUES ($1, 'UTC', $2)
		 ON CONFLICT (id) DO UPDATE SET locale = EXCLUDED.locale`,
		id, locale,
	)
	return err
}
