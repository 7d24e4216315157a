package tools

import (
	"context"
	"fmt"
	"time"
)

func requireTicker(args Args) (string, error) {
	t := args.String("ticker_symbol")
	if t == "" {
		return "", fmt.Errorf("ticker_symbol is required")
	}
	return t, nil
}

var tickerParam = Param{
	Name:        "ticker_symbol",
	Type:        "string",
	Description: "The ticker symbol of the company",
	Required:    true,
}

func companyCatalog() []Tool {
	return []Tool{
		{
			Name:        "get_company_info",
			Description: "get a company's profile information",
			Params:      []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("##### Get Company Information\n"+
					"**Company Name:** %s\n"+
					"**Company Information:** %s\n%s",
					ticker, sampleCompanyProfile(ticker), formattingInstructions), nil
			},
		},
		{
			Name:        "get_analyst_recommendations",
			Description: "get analyst recommendation for a designated company",
			Params:      []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("##### Get Company Recommendations\n"+
					"**Company Name:** %s\n"+
					"**Recommendations:** %s\n%s",
					ticker, sampleRecommendations(ticker), formattingInstructions), nil
			},
		},
		{
			Name:        "get_stock_data",
			Description: "retrieve stock price data for designated ticker symbol",
			Params:      []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				end := time.Now()
				start := end.AddDate(-1, 0, 0)
				return fmt.Sprintf("##### Stock Data\n"+
					"**Company Name:** %s\n\n"+
					"**Start Date:** %s\n"+
					"**End Date:** %s\n\n"+
					"**Stock Data:**\n%s\n%s",
					ticker, start.Format("2006-01-02"), end.Format("2006-01-02"),
					sampleStockTable(ticker, start, end), formattingInstructions), nil
			},
		},
		{
			Name:        "get_financial_metrics",
			Description: "get latest financial basics for a designated company",
			Params:      []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				const years = 4
				return fmt.Sprintf("##### Get Financial Information\n"+
					"**Company Name:** %s\n\n"+
					"**Years:** %d\n\n"+
					"**Financial Information:**\n%s\n%s",
					ticker, years, sampleFinancialMetrics(ticker, years), formattingInstructions), nil
			},
		},
		{
			Name:        "get_company_news",
			Description: "retrieve market news related to designated company",
			Params:      []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				end := time.Now()
				start := end.AddDate(0, 0, -7)
				return fmt.Sprintf("##### Get Company News\n"+
					"**Company Name:** %s\n\n"+
					"**Company News:**\n%s\n%s",
					ticker, sampleNews(ticker, start, end), formattingInstructions), nil
			},
		},
		{
			Name:        "get_sentiment_analysis",
			Description: "Analyze the data that you have access to like news and analyst recommendations and provide a sentiment analysis, positive or negative outlook",
			Params:      []Param{tickerParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("##### Get Sentiment Analysis\n"+
					"**Company Name:** %s\n"+
					"**Sentiment:** %s\n%s",
					ticker, sampleSentiment(ticker), formattingInstructions), nil
			},
		},
	}
}
