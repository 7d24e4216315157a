package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TranscriptCache stores fetched earnings-call transcripts keyed by
// session and ticker, so one session's fetch is never visible to another.
// One instance is shared across all agents of a process.
type TranscriptCache struct {
	mu sync.Mutex
	m  map[string]string
}

// NewTranscriptCache returns an empty cache.
func NewTranscriptCache() *TranscriptCache {
	return &TranscriptCache{m: make(map[string]string)}
}

func transcriptKey(sessionID, ticker string) string {
	return sessionID + "/" + strings.ToUpper(ticker)
}

// Get returns the cached transcript for a session and ticker.
func (c *TranscriptCache) Get(sessionID, ticker string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.m[transcriptKey(sessionID, ticker)]
	return t, ok
}

// Put stores a transcript for a session and ticker.
func (c *TranscriptCache) Put(sessionID, ticker, transcript string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[transcriptKey(sessionID, ticker)] = transcript
}

// resolveYear turns "latest" (or an empty year) into the most recent year
// with a published transcript: the current year, or the prior year before
// March when the current year's call has not happened yet.
func resolveYear(year string, now time.Time) string {
	year = strings.TrimSpace(year)
	if year != "" && !strings.EqualFold(year, "latest") {
		return year
	}
	y := now.Year()
	if now.Month() < time.March {
		y--
	}
	return strconv.Itoa(y)
}

func fetchTranscript(cache *TranscriptCache, sessionID, ticker, year string) string {
	if t, ok := cache.Get(sessionID, ticker); ok {
		return t
	}
	t := sampleTranscript(ticker, year)
	cache.Put(sessionID, ticker, t)
	return t
}

// summarizeTranscript keeps the management commentary and drops the
// operator framing and Q&A tail.
func summarizeTranscript(transcript string) string {
	var kept []string
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Operator:") || strings.HasPrefix(line, "Q&A:") {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return transcript
	}
	return strings.Join(kept, " ")
}

func topicSummary(transcript, topic string) string {
	seed := sampleSeed(transcript, topic)
	switch topic {
	case "positive":
		return fmt.Sprintf("Management emphasized %s and reiterated full-year guidance, citing %s demand in core segments.",
			samplePick(seed, "margin resilience", "record bookings", "strong cash generation"),
			samplePick(seed>>8, "steady", "improving", "broad-based"))
	case "negative":
		return fmt.Sprintf("Management flagged %s and noted %s as a watch item for the coming quarters.",
			samplePick(seed, "FX headwinds", "input cost inflation", "softer enterprise spend"),
			samplePick(seed>>8, "inventory normalization", "pricing pressure", "longer sales cycles"))
	default:
		return fmt.Sprintf("Growth plans center on %s, with management sizing the opportunity around %s expansion.",
			samplePick(seed, "adjacent-market expansion", "new product lines", "international rollout"),
			samplePick(seed>>8, "mid-single-digit", "double-digit", "steady"))
	}
}

var yearParam = Param{
	Name:        "year",
	Type:        "string",
	Description: "The fiscal year of the earnings call, or \"latest\"",
	Required:    true,
}

func earningsCatalog(sessionID string, cache *TranscriptCache) []Tool {
	return []Tool{
		{
			Name:        "get_earning_calls_transcript",
			Description: "get a earning call's transcript for a company",
			Params:      []Param{tickerParam, yearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				fetchTranscript(cache, sessionID, ticker, year)
				return "##### Get Earning Calls\n" + formattingInstructions, nil
			},
		},
		{
			Name:        "summarize_transcripts",
			Description: "summarize the earning call's transcript for a company",
			Params:      []Param{tickerParam, yearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				transcript := fetchTranscript(cache, sessionID, ticker, year)
				return fmt.Sprintf("##### Summarized transcripts\n"+
					"**Company Name:** %s\n"+
					"**Summary:** %s\n%s",
					ticker, summarizeTranscript(transcript), formattingInstructions), nil
			},
		},
		{
			Name:        "management_positive_outlook",
			Description: "From the extracted earning call's transcript, identify the management's positive outlook for a company",
			Params:      []Param{tickerParam, yearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				transcript := fetchTranscript(cache, sessionID, ticker, year)
				return fmt.Sprintf("##### Management Positive Outlook\n"+
					"**Company Name:** %s\n"+
					"**Topic Summary:** %s\n%s",
					ticker, topicSummary(transcript, "positive"), formattingInstructions), nil
			},
		},
		{
			Name:        "management_negative_outlook",
			Description: "From the extracted earning call's transcript, identify the management's negative outlook for a company",
			Params:      []Param{tickerParam, yearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				transcript := fetchTranscript(cache, sessionID, ticker, year)
				return fmt.Sprintf("##### Management Negative Outlook\n"+
					"**Company Name:** %s\n"+
					"**Topic Summary:** %s\n%s",
					ticker, topicSummary(transcript, "negative"), formattingInstructions), nil
			},
		},
		{
			Name:        "future_growth_opportunity",
			Description: "From the extracted earning call's transcript, identify the future growth and opportunities for a company",
			Params:      []Param{tickerParam, yearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				transcript := fetchTranscript(cache, sessionID, ticker, year)
				return fmt.Sprintf("##### Future Growth and Opportunities\n"+
					"**Company Name:** %s\n\n"+
					"**Topic Summary:** %s\n%s",
					ticker, topicSummary(transcript, "growth"), formattingInstructions), nil
			},
		},
	}
}
