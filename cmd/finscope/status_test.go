package main

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"zero", 0, "0s"},
		{"seconds", 45 * time.Second, "45s"},
		{"rounds down to minutes", 90 * time.Second, "1m"},
		{"minutes", 30 * time.Minute, "30m"},
		{"whole hours", 2 * time.Hour, "2h"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "2h30m"},
		{"days", 36 * time.Hour, "1d"},
		{"multiple days", 72 * time.Hour, "3d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatDuration(tt.d)
			if result != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, result, tt.expected)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		n        int64
		expected string
	}{
		{"zero", 0, "0"},
		{"under a thousand", 999, "999"},
		{"exactly a thousand", 1000, "1,000"},
		{"five digits", 12345, "12,345"},
		{"millions", 1234567, "1,234,567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatNumber(tt.n)
			if result != tt.expected {
				t.Errorf("formatNumber(%d) = %q, want %q", tt.n, result, tt.expected)
			}
		})
	}
}

func TestTruncateLine(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		max      int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exactly max unchanged", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello w…"},
		{"newlines become spaces", "line one\nline two", 40, "line one line two"},
		{"tiny max", "hello", 1, "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncateLine(tt.s, tt.max)
			if result != tt.expected {
				t.Errorf("truncateLine(%q, %d) = %q, want %q", tt.s, tt.max, result, tt.expected)
			}
		})
	}
}
