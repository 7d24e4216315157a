package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

type technicalDecision struct {
	Score            int     `json:"score"`
	MaxScorePossible int     `json:"max_score_possible"`
	Probability      float64 `json:"probability"`
	Rating           string  `json:"rating"`
}

type technicalAnalysis struct {
	TickerSymbol        string            `json:"ticker_symbol"`
	CandlestickPatterns map[string]string `json:"candlestick_patterns"`
	Indicators          map[string]any    `json:"indicators"`
	Fundamentals        map[string]any    `json:"fundamentals"`
	NewsSentiment       float64           `json:"news_sentiment"`
	FinalDecision       technicalDecision `json:"final_decision"`
}

// buildTechnicalAnalysis derives an indicator bundle for the ticker. Each
// bullish signal adds a point; the probability is the share of the
// maximum score and drives the naive buy/hold/sell rating.
func buildTechnicalAnalysis(ticker string) technicalAnalysis {
	seed := sampleSeed(ticker, "technical")
	price, low, high := sampleQuote(ticker)

	rsi := sampleRange(seed, 22, 78)
	macdHist := sampleRange(seed>>8, -3, 3)
	stochK := sampleRange(seed>>16, 5, 95)
	adx := sampleRange(seed>>24, 10, 55)
	atr := sampleRange(seed>>32, 0.4, 12)
	emaSignal := samplePick(seed>>40, "bullish_crossover", "bearish_crossover", "neutral")
	pattern := samplePick(seed>>48, "hammer", "engulfing_bullish", "doji", "shooting_star", "none")

	score := 0
	const maxScore = 6
	if emaSignal == "bullish_crossover" {
		score++
	}
	if rsi < 30 {
		score++ // oversold, mean-reversion entry
	}
	if macdHist > 0 {
		score++
	}
	if stochK < 20 {
		score++
	}
	if adx > 25 && macdHist > 0 {
		score++
	}
	if pattern == "hammer" || pattern == "engulfing_bullish" {
		score++
	}

	probability := float64(score) / float64(maxScore)
	rating := "hold"
	switch {
	case probability >= 0.6:
		rating = "buy"
	case probability <= 0.2:
		rating = "sell"
	}

	return technicalAnalysis{
		TickerSymbol: ticker,
		CandlestickPatterns: map[string]string{
			"latest": pattern,
		},
		Indicators: map[string]any{
			"ema_crossover": emaSignal,
			"rsi":           rsi,
			"macd_hist":     macdHist,
			"bollinger": map[string]any{
				"close": price,
				"lower": low,
				"upper": high,
			},
			"stochastics_k": stochK,
			"atr":           atr,
			"adx":           adx,
		},
		Fundamentals: map[string]any{
			"trailing_pe": sampleRange(seed>>56, 6, 52),
			"forward_pe":  sampleRange(seed>>60, 5, 44),
			"sector":      sampleSector(ticker),
		},
		NewsSentiment: sampleRange(sampleSeed(ticker, "sentiment"), -1, 1),
		FinalDecision: technicalDecision{
			Score:            score,
			MaxScorePossible: maxScore,
			Probability:      float64(int(probability*100)) / 100,
			Rating:           rating,
		},
	}
}

func technicalCatalog() []Tool {
	return []Tool{
		{
			Name: "run_enhanced_technical_analysis",
			Description: "Perform multiple technical analysis strategies. " +
				"Calculates EMA crossover, RSI, MACD, Bollinger Bands, Stochastics, ATR, ADX, " +
				"and detects basic candlestick patterns. Returns JSON with analysis and a naive 'overall_rating'.",
			Params: []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				out, err := json.MarshalIndent(buildTechnicalAnalysis(ticker), "", "  ")
				if err != nil {
					return "", fmt.Errorf("encode analysis: %w", err)
				}
				return string(out), nil
			},
		},
	}
}
