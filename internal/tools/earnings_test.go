package tools

import (
	"strings"
	"testing"
	"time"
)

func TestResolveYear(t *testing.T) {
	april := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	february := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		year string
		now  time.Time
		want string
	}{
		{"explicit year passes through", "2023", april, "2023"},
		{"latest after february", "latest", april, "2026"},
		{"latest before march backs off a year", "latest", february, "2025"},
		{"empty treated as latest", "", february, "2025"},
		{"case insensitive", "LATEST", april, "2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveYear(tt.year, tt.now); got != tt.want {
				t.Errorf("resolveYear(%q) = %q, want %q", tt.year, got, tt.want)
			}
		})
	}
}

func TestTranscriptCache_KeyedBySessionAndTicker(t *testing.T) {
	cache := NewTranscriptCache()
	cache.Put("session-a", "MSFT", "transcript a")

	if _, ok := cache.Get("session-b", "MSFT"); ok {
		t.Error("transcript leaked across sessions")
	}
	if _, ok := cache.Get("session-a", "AAPL"); ok {
		t.Error("transcript leaked across tickers")
	}
	if got, ok := cache.Get("session-a", "msft"); !ok || got != "transcript a" {
		t.Errorf("ticker lookup should be case insensitive, got %q ok=%v", got, ok)
	}
}

func TestEarningsTools_FetchPopulatesSessionCache(t *testing.T) {
	cache := NewTranscriptCache()
	catalog := earningsCatalog("session-a", cache)

	out := runTool(t, catalog, "get_earning_calls_transcript", `{"ticker_symbol": "MSFT", "year": "2025"}`)
	if !strings.HasPrefix(out, "##### Get Earning Calls\n") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, ok := cache.Get("session-a", "MSFT"); !ok {
		t.Fatal("transcript not cached for the fetching session")
	}
	if _, ok := cache.Get("session-b", "MSFT"); ok {
		t.Error("transcript visible to another session")
	}
}

func TestEarningsTools_SummaryComesFromCachedTranscript(t *testing.T) {
	cache := NewTranscriptCache()
	cache.Put("session-a", "MSFT", "Operator: welcome.\nCEO Morgan: revenue grew nicely.\nQ&A: questions.")
	catalog := earningsCatalog("session-a", cache)

	out := runTool(t, catalog, "summarize_transcripts", `{"ticker_symbol": "MSFT", "year": "2025"}`)
	if !strings.Contains(out, "CEO Morgan: revenue grew nicely.") {
		t.Errorf("summary ignored the cached transcript:\n%s", out)
	}
	if strings.Contains(out, "Operator: welcome.") {
		t.Errorf("summary kept the operator framing:\n%s", out)
	}
}

func TestEarningsTools_OutlooksDependOnTranscript(t *testing.T) {
	cache := NewTranscriptCache()
	catalog := earningsCatalog("session-a", cache)

	positive := runTool(t, catalog, "management_positive_outlook", `{"ticker_symbol": "MSFT", "year": "2025"}`)
	negative := runTool(t, catalog, "management_negative_outlook", `{"ticker_symbol": "MSFT", "year": "2025"}`)

	if !strings.HasPrefix(positive, "##### Management Positive Outlook\n") {
		t.Errorf("unexpected positive heading:\n%s", positive)
	}
	if !strings.HasPrefix(negative, "##### Management Negative Outlook\n") {
		t.Errorf("unexpected negative heading:\n%s", negative)
	}
	if positive == negative {
		t.Error("positive and negative outlooks are identical")
	}

	// Same session and ticker reuse the cached transcript, so outputs repeat.
	again := runTool(t, catalog, "management_positive_outlook", `{"ticker_symbol": "MSFT", "year": "2025"}`)
	if positive != again {
		t.Error("repeated call returned different output")
	}
}

func TestSummarizeTranscript_EmptyFallsBack(t *testing.T) {
	transcript := "Operator: only framing.\nQ&A: only questions."
	if got := summarizeTranscript(transcript); got != transcript {
		t.Errorf("expected fallback to full transcript, got %q", got)
	}
}
