package timeparse

import (
	"strings"
	"testing"
	"time"
)

// Fixed reference instant: 2025-03-15 12:00 UTC, a Saturday.
var refNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func TestResolve_RelativeDurations(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{"in 30 seconds", refNow.Add(30 * time.Second)},
		{"in 5 minutes", refNow.Add(5 * time.Minute)},
		{"in 2 hours", refNow.Add(2 * time.Hour)},
		{"in 1 hour", refNow.Add(time.Hour)},
		{"in 3 days", refNow.Add(72 * time.Hour)},
		{"in 1 week", refNow.Add(7 * 24 * time.Hour)},
		{"IN 2 HOURS", refNow.Add(2 * time.Hour)},
		{"  in 10 minutes  ", refNow.Add(10 * time.Minute)},
	}
	for _, tc := range cases {
		got := Resolve(tc.input, "UTC", refNow)
		if got == nil {
			t.Errorf("Resolve(%q) = nil, want %v", tc.input, tc.want)
			continue
		}
		if !got.At.Equal(tc.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tc.input, got.At, tc.want)
		}
	}
}

func TestResolve_Tomorrow(t *testing.T) {
	got := Resolve("tomorrow", "UTC", refNow)
	if got == nil {
		t.Fatal("tomorrow should parse")
	}
	want := time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("tomorrow = %v, want %v (09:00 next day)", got.At, want)
	}
}

func TestResolve_TomorrowAt(t *testing.T) {
	got := Resolve("tomorrow at 3pm", "UTC", refNow)
	if got == nil {
		t.Fatal("tomorrow at 3pm should parse")
	}
	want := time.Date(2025, 3, 16, 15, 0, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("got %v, want %v", got.At, want)
	}
}

func TestResolve_ClockRollsToNextDay(t *testing.T) {
	// 08:00 has already passed at refNow (12:00), so it means tomorrow.
	got := Resolve("at 8am", "UTC", refNow)
	if got == nil {
		t.Fatal("at 8am should parse")
	}
	want := time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("passed clock should roll forward: got %v, want %v", got.At, want)
	}

	// 17:30 is still ahead today.
	got = Resolve("17:30", "UTC", refNow)
	if got == nil {
		t.Fatal("17:30 should parse")
	}
	want = time.Date(2025, 3, 15, 17, 30, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("got %v, want %v", got.At, want)
	}
}

func TestResolve_TimezoneOffset(t *testing.T) {
	// 14:30 in Madrid (CET, UTC+1 on this date) is 13:30 UTC.
	got := Resolve("at 14:30", "Europe/Madrid", refNow)
	if got == nil {
		t.Fatal("should parse in Madrid")
	}
	want := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("got %v, want %v", got.At, want)
	}
	if !strings.Contains(got.Display, "14:30") {
		t.Errorf("display should render local wall time: %q", got.Display)
	}
}

func TestResolve_AbsoluteLayouts(t *testing.T) {
	got := Resolve("2025-03-20 14:30", "UTC", refNow)
	if got == nil || !got.At.Equal(time.Date(2025, 3, 20, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("datetime layout failed: %+v", got)
	}

	got = Resolve("2025-04-01", "UTC", refNow)
	if got == nil || !got.At.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date-only layout failed: %+v", got)
	}

	if Resolve("2025-03-01 10:00", "UTC", refNow) != nil {
		t.Error("absolute timestamps in the past must be rejected")
	}
}

func TestResolve_Unparseable(t *testing.T) {
	for _, input := range []string{
		"",
		"whenever",
		"in five minutes",
		"in 2 fortnights",
		"at 25:00",
		"at 12:75",
		"at 17", // bare 24h hour needs minutes
		"at 0am",
		"at 13pm",
		strings.Repeat("x", 101),
	} {
		if got := Resolve(input, "UTC", refNow); got != nil {
			t.Errorf("Resolve(%q) = %+v, want nil", input, got)
		}
	}
}

func TestResolve_BadTimezone(t *testing.T) {
	if Resolve("in 1 hour", "Not/AZone", refNow) != nil {
		t.Error("unknown timezone should fail the parse")
	}
	// Empty timezone falls back to UTC.
	if Resolve("in 1 hour", "", refNow) == nil {
		t.Error("empty timezone should default to UTC")
	}
}

func TestFormatRelative(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{refNow.Add(30 * time.Second), "in 30 seconds"},
		{refNow.Add(time.Minute), "in 1 minute"},
		{refNow.Add(45 * time.Minute), "in 45 minutes"},
		{refNow.Add(2 * time.Hour), "in 2 hours"},
		{refNow.Add(3 * 24 * time.Hour), "in 3 days"},
	}
	for _, tc := range cases {
		if got := FormatRelative(tc.at, "UTC", refNow); got != tc.want {
			t.Errorf("FormatRelative(+%v) = %q, want %q", tc.at.Sub(refNow), got, tc.want)
		}
	}

	far := FormatRelative(refNow.Add(30*24*time.Hour), "UTC", refNow)
	if !strings.Contains(far, "2025") {
		t.Errorf("distant instants should render absolutely: %q", far)
	}
}

func TestValidTimezone(t *testing.T) {
	if !ValidTimezone("America/Sao_Paulo") {
		t.Error("real zone rejected")
	}
	if ValidTimezone("") || ValidTimezone("Mars/Olympus") {
		t.Error("bogus zone accepted")
	}
}
