package db

import "context"

// EnsureSchema creates the two tables and their indexes if they are missing.
// Runs at startup; safe to call on every boot.
func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id       TEXT PRIMARY KEY,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			locale   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id                 BIGSERIAL PRIMARY KEY,
			owner_id           TEXT NOT NULL REFERENCES users (id),
			target_id          TEXT NOT NULL REFERENCES users (id),
			guild_id           TEXT,
			channel_id         TEXT NOT NULL,
			body               TEXT NOT NULL DEFAULT '',
			due_at             TIMESTAMPTZ NOT NULL,
			creation_timezone  TEXT NOT NULL DEFAULT 'UTC',
			anchor_message_id  TEXT,
			anchor_message_url TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_due_at ON reminders (due_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_owner_id ON reminders (owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_target_id ON reminders (target_id)`,
	}

	for _, stmt := range stmts {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
