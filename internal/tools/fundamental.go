package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type fundamentalsReport struct {
	TickerSymbol     string           `json:"ticker_symbol"`
	FinancialMetrics []map[string]any `json:"financial_metrics"`
	Ratings          map[string]any   `json:"ratings"`
	FinancialScores  []map[string]any `json:"financial_scores"`
	Notes            []string         `json:"notes"`
}

func buildFundamentals(ticker string) fundamentalsReport {
	thisYear := time.Now().Year()
	metrics := make([]map[string]any, 0, 5)
	for i := 0; i < 5; i++ {
		y := thisYear - i
		seed := sampleSeed(ticker, "fundamentals", fmt.Sprint(y))
		metrics = append(metrics, map[string]any{
			"year":           y,
			"revenue_m":      sampleInt(seed, 120, 95000),
			"net_income_m":   sampleInt(seed>>8, -400, 18000),
			"roe":            sampleRange(seed>>16, -5, 38),
			"roa":            sampleRange(seed>>24, -2, 22),
			"current_ratio":  sampleRange(seed>>32, 0.6, 3.2),
			"debt_to_equity": sampleRange(seed>>40, 0.1, 2.8),
		})
	}

	rseed := sampleSeed(ticker, "ratings")
	sseed := sampleSeed(ticker, "scores")
	return fundamentalsReport{
		TickerSymbol:     ticker,
		FinancialMetrics: metrics,
		Ratings: map[string]any{
			"rating":         samplePick(rseed, "A-", "B+", "B", "B-", "C+"),
			"recommendation": samplePick(rseed>>8, "buy", "hold", "accumulate", "reduce"),
			"dcf_vs_price":   samplePick(rseed>>16, "undervalued", "fair", "overvalued"),
		},
		FinancialScores: []map[string]any{
			{
				"altman_z":    sampleRange(sseed, 0.8, 8),
				"piotroski_f": sampleInt(sseed>>8, 2, 9),
			},
		},
		Notes: []string{},
	}
}

func fundamentalCatalog() []Tool {
	return []Tool{
		{
			Name: "fetch_and_analyze_fundamentals",
			Description: "Fetch fundamental data (Income, Balance, Cash Flow) and compute ratios " +
				"(ROE, ROA, Altman Z, Piotroski, etc.) for a given ticker.",
			Params: []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				out, err := json.MarshalIndent(buildFundamentals(ticker), "", "  ")
				if err != nil {
					return "", fmt.Errorf("encode fundamentals: %w", err)
				}
				return string(out), nil
			},
		},
	}
}
