package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// confidenceDescriptor maps the analysis probability onto the wording the
// forecast prompt uses.
func confidenceDescriptor(probability float64) string {
	switch {
	case probability <= 0.33:
		return "low"
	case probability >= 0.66:
		return "high"
	default:
		return "moderate"
	}
}

func forecasterCatalog() []Tool {
	return []Tool{
		{
			Name: "analyze_and_predict",
			Description: "Interprets the JSON output of the technical analysis. " +
				"Generates a final Buy/Sell/Hold recommendation with a structured rationale, " +
				"risk factors, disclaimers, and an explanation of the probability or confidence.",
			Params: []Param{
				{
					Name:        "analysis_result",
					Type:        "object",
					Description: "The combined technical analysis result to interpret",
					Required:    true,
				},
			},
			Run: func(ctx context.Context, args Args) (string, error) {
				result := args.Object("analysis_result")
				if result == nil {
					return "", fmt.Errorf("analysis_result is required")
				}
				encoded, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return "", fmt.Errorf("encode analysis_result: %w", err)
				}

				rating := "hold"
				probability := 0.5
				if fd, ok := result["final_decision"].(map[string]any); ok {
					if r, ok := fd["rating"].(string); ok && r != "" {
						rating = r
					}
					if p, ok := fd["probability"].(float64); ok {
						probability = p
					}
				}
				confidence := confidenceDescriptor(probability)

				// The reply is an instruction block: the model turns it
				// into the final report.
				return fmt.Sprintf(`You are a specialized financial analysis assistant. You have received a JSON structure
that represents an extended analysis of a stock: technical signals (RSI, MACD, Bollinger,
EMA crossover, Stochastics, ADX), candlestick patterns, basic fundamentals, news
sentiment, and a final numeric probability and rating.

The JSON data is:

%s

**Please return your answer in the following sections:**

1) **Introduction** - Briefly introduce the analysis.
2) **Technical Overview** - Summarize the key indicators and candlestick patterns and whether they are bullish, bearish, or neutral.
3) **Fundamental Overview** - Mention notable fundamental data (like forwardPE, trailingPE) and how it influences the outlook.
4) **News & Sentiment** - Highlight the sentiment score (range: -1.0 to +1.0) and whether it is a tailwind or headwind.
5) **Probability & Confidence** - The final probability is **%.2f** (range: 0.0 to 1.0). Interpret it as **%s** confidence and elaborate on conflicting signals or volatility.
6) **Final Recommendation** - Based on the final rating: **%s**. Explain briefly why you agree or disagree.
7) **Disclaimers** - Include "Past performance is not indicative of future results", remind the user this is not guaranteed investment advice, and encourage further research.

Please format your response in **Markdown**, with headings for each section and bullet
points where appropriate.`, string(encoded), probability, confidence, rating), nil
			},
		},
	}
}
