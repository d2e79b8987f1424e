// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire format of tracking timestamps.
const TimestampLayout = time.RFC3339

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimestamp parses an RFC 3339 timestamp, with or without fractional
// seconds.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}

// FormatDate prints t as an Indonesian long date with a 24 hour clock,
// e.g. "10 Maret 2025 09.00".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d %02d.%02d", t.Day(), monthNames[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// Relative describes how long before now t happened: "Baru saja" under a
// minute, then minutes, hours and days, and the full date from a week on.
// Timestamps in the future count as just now.
func Relative(t, now time.Time) string {
	diff := now.Sub(t)
	minutes := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case minutes < 1:
		return "Baru saja"
	case minutes < 60:
		return fmt.Sprintf("%d menit yang lalu", minutes)
	case hours < 24:
		return fmt.Sprintf("%d jam yang lalu", hours)
	case days < 7:
		return fmt.Sprintf("%d hari yang lalu", days)
	}
	return FormatDate(t)
}
