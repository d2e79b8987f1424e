package datetime

import (
	"testing"
	"time"
)

func TestMustParseTime(t *testing.T) {
	result := MustParseTime(TimestampLayout, "2025-03-10T09:00:00Z")
	if result.Format(TimestampLayout) != "2025-03-10T09:00:00Z" {
		t.Errorf("MustParseTime() = %s", result.Format(TimestampLayout))
	}
}

func TestMustParseTimePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParseTime to panic with invalid date")
		}
	}()

	MustParseTime(TimestampLayout, "invalid-date")
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "UTC",
			input:    "2025-03-10T09:00:00Z",
			expected: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "Fractional seconds",
			input:    "2025-03-10T09:00:00.123Z",
			expected: time.Date(2025, 3, 10, 9, 0, 0, 123000000, time.UTC),
		},
		{
			name:     "Offset and whitespace",
			input:    " 2025-03-10T16:00:00+07:00 ",
			expected: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "Date only",
			input:   "2025-03-10",
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTimestamp(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseTimestamp(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input    time.Time
		expected string
	}{
		{time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC), "10 Maret 2025 09.05"},
		{time.Date(2024, 12, 1, 23, 59, 0, 0, time.UTC), "1 Desember 2024 23.59"},
		{time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), "31 Januari 2026 00.00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatDate(tt.input); got != tt.expected {
				t.Errorf("FormatDate() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestRelative(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ago      time.Duration
		expected string
	}{
		{"Seconds ago", 30 * time.Second, "Baru saja"},
		{"In the future", -time.Hour, "Baru saja"},
		{"One minute", time.Minute, "1 menit yang lalu"},
		{"Just under an hour", 59*time.Minute + 59*time.Second, "59 menit yang lalu"},
		{"One hour", time.Hour, "1 jam yang lalu"},
		{"Just under a day", 23*time.Hour + 59*time.Minute, "23 jam yang lalu"},
		{"One day", 24 * time.Hour, "1 hari yang lalu"},
		{"Six days", 6*24*time.Hour + 23*time.Hour, "6 hari yang lalu"},
		{"One week", 7 * 24 * time.Hour, "13 Maret 2025 12.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Relative(now.Add(-tt.ago), now); got != tt.expected {
				t.Errorf("Relative() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
