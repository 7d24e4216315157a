package tools

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// The market-data tools return placeholder figures instead of calling a
// live provider. Values are derived from the ticker so repeated calls in
// a session, and assertions in tests, see the same numbers.

func sampleSeed(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(strings.ToUpper(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func samplePick(seed uint64, options ...string) string {
	return options[seed%uint64(len(options))]
}

// sampleRange maps a seed onto [lo, hi] with two decimal places.
func sampleRange(seed uint64, lo, hi float64) float64 {
	frac := float64(seed%10000) / 9999.0
	v := lo + frac*(hi-lo)
	return float64(int(v*100)) / 100
}

func sampleInt(seed uint64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(seed%uint64(hi-lo+1))
}

func sampleSector(ticker string) string {
	return samplePick(sampleSeed(ticker, "sector"),
		"Technology", "Healthcare", "Financial Services",
		"Consumer Cyclical", "Energy", "Industrials", "Utilities")
}

func sampleCompanyProfile(ticker string) string {
	seed := sampleSeed(ticker, "profile")
	sector := sampleSector(ticker)
	employees := sampleInt(sampleSeed(ticker, "employees"), 800, 250000)
	hq := samplePick(seed, "New York, NY", "San Francisco, CA", "Austin, TX",
		"Seattle, WA", "Chicago, IL", "Boston, MA")
	return fmt.Sprintf("%s operates in the %s sector with approximately %d employees, headquartered in %s. "+
		"The company is listed on a major US exchange and reports on a calendar fiscal year.",
		strings.ToUpper(ticker), sector, employees, hq)
}

func sampleQuote(ticker string) (price, low, high float64) {
	base := sampleRange(sampleSeed(ticker, "price"), 8, 480)
	return base, float64(int(base*0.71*100)) / 100, float64(int(base*1.24*100)) / 100
}

func sampleStockTable(ticker string, start, end time.Time) string {
	price, low, high := sampleQuote(ticker)
	vol := sampleInt(sampleSeed(ticker, "volume"), 400_000, 60_000_000)
	var b strings.Builder
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Close (%s) | %.2f |\n", end.Format("2006-01-02"), price)
	fmt.Fprintf(&b, "| 52-week low (since %s) | %.2f |\n", start.Format("2006-01-02"), low)
	fmt.Fprintf(&b, "| 52-week high | %.2f |\n", high)
	fmt.Fprintf(&b, "| Average daily volume | %d |", vol)
	return b.String()
}

func sampleRecommendations(ticker string) string {
	seed := sampleSeed(ticker, "recs")
	buy := sampleInt(seed, 2, 18)
	hold := sampleInt(seed>>8, 1, 12)
	sell := sampleInt(seed>>16, 0, 5)
	return fmt.Sprintf("Buy %d / Hold %d / Sell %d over the trailing quarter; consensus leans %s.",
		buy, hold, sell, samplePick(seed>>24, "buy", "hold", "accumulate"))
}

func sampleFinancialMetrics(ticker string, years int) string {
	var b strings.Builder
	b.WriteString("| Year | Revenue ($M) | Net Margin | EPS |\n|---|---|---|---|\n")
	thisYear := time.Now().Year()
	for i := 0; i < years; i++ {
		y := thisYear - i
		seed := sampleSeed(ticker, "fin", fmt.Sprint(y))
		rev := sampleInt(seed, 120, 95000)
		margin := sampleRange(seed>>8, 2, 34)
		eps := sampleRange(seed>>16, 0.2, 18)
		fmt.Fprintf(&b, "| %d | %d | %.1f%% | %.2f |\n", y, rev, margin, eps)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sampleNews(ticker string, start, end time.Time) string {
	seed := sampleSeed(ticker, "news")
	items := []string{
		fmt.Sprintf("- %s: %s announces quarterly results, %s expectations.",
			end.AddDate(0, 0, -1).Format("2006-01-02"), strings.ToUpper(ticker),
			samplePick(seed, "beating", "meeting", "trailing")),
		fmt.Sprintf("- %s: analysts revise price targets after %s guidance update.",
			end.AddDate(0, 0, -3).Format("2006-01-02"),
			samplePick(seed>>8, "upbeat", "cautious", "mixed")),
		fmt.Sprintf("- %s: sector coverage highlights %s positioning in %s.",
			start.Format("2006-01-02"), strings.ToUpper(ticker), sampleSector(ticker)),
	}
	return strings.Join(items, "\n")
}

func sampleSentiment(ticker string) string {
	score := sampleRange(sampleSeed(ticker, "sentiment"), -1, 1)
	tone := "neutral"
	if score > 0.25 {
		tone = "positive"
	} else if score < -0.25 {
		tone = "negative"
	}
	return fmt.Sprintf("Aggregate news and analyst tone is %s (score %.2f on a -1.0 to +1.0 scale).", tone, score)
}

func sampleTranscript(ticker, year string) string {
	seed := sampleSeed(ticker, "transcript", year)
	ceo := samplePick(seed, "Morgan", "Riley", "Jordan", "Casey", "Avery")
	growth := sampleRange(seed>>8, 1, 24)
	return fmt.Sprintf(
		"Operator: Welcome to the %s fiscal %s earnings call.\n"+
			"CEO %s: Revenue grew %.1f%% year over year, driven by our core segments. "+
			"We remain disciplined on costs while investing in the product roadmap.\n"+
			"CFO: Gross margin held steady; we are watching input costs and FX headwinds closely. "+
			"Guidance assumes a stable demand environment.\n"+
			"Q&A: Management fielded questions on capacity expansion, pricing, and capital returns.",
		strings.ToUpper(ticker), year, ceo, growth)
}
