// Package timeparse turns a free-text time expression plus a timezone into
// an absolute UTC instant. It is deliberately small: callers treat a nil
// result as "ask the user to rephrase", never as a fatal error.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxInputLength = 100

type Resolved struct {
	At      time.Time // always UTC
	Display string    // the instant rendered in the requesting timezone
}

var (
	relativeRe = regexp.MustCompile(`^in\s+(\d+)\s*(second|minute|hour|day|week)s?$`)
	clockRe    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// Resolve parses expressions like "in 2 hours", "tomorrow at 3pm",
// "at 17:30", or "2025-03-20 14:30" relative to now in the given timezone.
// Returns nil when the text cannot be parsed or names an instant in the
// past. Clock-only forms that already passed today roll to tomorrow.
func Resolve(text, timezone string, now time.Time) *Resolved {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || len(text) > maxInputLength {
		return nil
	}

	loc := loadLocation(timezone)
	if loc == nil {
		return nil
	}
	localNow := now.In(loc)

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		var d time.Duration
		switch m[2] {
		case "second":
			d = time.Duration(n) * time.Second
		case "minute":
			d = time.Duration(n) * time.Minute
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		}
		return resolved(now.Add(d), loc)
	}

	if text == "tomorrow" {
		at := time.Date(localNow.Year(), localNow.Month(), localNow.Day()+1, 9, 0, 0, 0, loc)
		return resolved(at, loc)
	}

	if rest, ok := strings.CutPrefix(text, "tomorrow at "); ok {
		h, m, ok := parseClock(rest)
		if !ok {
			return nil
		}
		at := time.Date(localNow.Year(), localNow.Month(), localNow.Day()+1, h, m, 0, 0, loc)
		return resolved(at, loc)
	}

	clockText := strings.TrimPrefix(text, "at ")
	if h, m, ok := parseClock(clockText); ok {
		at := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), h, m, 0, 0, loc)
		if !at.After(localNow) {
			at = at.AddDate(0, 0, 1)
		}
		return resolved(at, loc)
	}

	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if at, err := time.ParseInLocation(layout, text, loc); err == nil {
			if !at.After(localNow) {
				return nil
			}
			return resolved(at, loc)
		}
	}
	if at, err := time.Parse(time.RFC3339, strings.ToUpper(text)); err == nil {
		if !at.After(now) {
			return nil
		}
		return resolved(at, loc)
	}

	return nil
}

// FormatRelative renders an instant as a short human distance from now, or
// an absolute timestamp when it is more than a week away.
func FormatRelative(at time.Time, timezone string, now time.Time) string {
	loc := loadLocation(timezone)
	if loc == nil {
		loc = time.UTC
	}

	d := at.Sub(now)
	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	}
	return at.In(loc).Format("Jan 2, 2006 at 3:04 PM MST")
}

// ValidTimezone reports whether tz is a loadable IANA timezone name.
func ValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil
	}
	return loc
}

func resolved(at time.Time, loc *time.Location) *Resolved {
	return &Resolved{
		At:      at.UTC(),
		Display: at.In(loc).Format("2006-01-02 15:04 MST"),
	}
}

func parseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		// 24h clock needs an explicit minute part ("17:30", not "17")
		if m[2] == "" {
			return 0, 0, false
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("in 1 %s", unit)
	}
	return fmt.Sprintf("in %d %ss", n, unit)
}
