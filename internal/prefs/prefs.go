// Package prefs resolves a user's locale and timezone once per operation and
// hands them around as an explicit value. Nothing here is ambient state;
// render and format calls receive Preferences as a parameter.
package prefs

import (
	"context"
	"log/slog"

	"reminder-bot/internal/i18n"
	"reminder-bot/internal/models"
)

type Preferences struct {
	Locale   string
	Timezone string
}

func Defaults() Preferences {
	return Preferences{Locale: i18n.DefaultLocale, Timezone: "UTC"}
}

type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

type Resolver struct {
	log   *slog.Logger
	users UserLookup
}

func NewResolver(log *slog.Logger, users UserLookup) *Resolver {
	return &Resolver{log: log, users: users}
}

// Resolve returns the stored preferences for the user, defaulting any
// missing field. A lookup failure degrades to defaults rather than blocking
// a delivery over a preference read.
func (r *Resolver) Resolve(ctx context.Context, userID string) Preferences {
	p := Defaults()

	u, err := r.users.Get(ctx, userID)
	if err != nil {
		r.log.Warn("prefs_lookup_failed", "user_id", userID, "error", err)
		return p
	}
	if u == nil {
		return p
	}

	if u.Timezone != "" {
		p.Timezone = u.Timezone
	}
	if u.Locale != nil && *u.Locale != "" {
		p.Locale = i18n.Normalize(*u.Locale)
	}
	return p
}
