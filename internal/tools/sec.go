package tools

import (
	"context"
	"fmt"
	"time"
)

// filingAnalysis synthesizes the summarized take on one section of a
// company's annual filing. Composite tools reuse the same builders, so
// the standalone section tools and the assembled report always agree.
func filingAnalysis(section, ticker, year string) string {
	seed := sampleSeed(ticker, year, section)
	switch section {
	case "description":
		return fmt.Sprintf("The filing describes a %s-sector business with a %s market position and a strategy built around %s.",
			sampleSector(ticker),
			samplePick(seed, "leading", "challenger", "niche"),
			samplePick(seed>>8, "recurring revenue", "scale efficiencies", "platform breadth"))
	case "highlights":
		return fmt.Sprintf("Management highlights %s, expanded %s, and continued investment in %s.",
			samplePick(seed, "segment share gains", "record operating cash flow", "double-digit bookings growth"),
			samplePick(seed>>8, "international coverage", "the partner channel", "production capacity"),
			samplePick(seed>>16, "R&D", "go-to-market", "automation"))
	case "competitors":
		return fmt.Sprintf("Competition is characterized as %s, with pricing pressure most visible in %s offerings; the filing cites scale and switching costs as the main moats.",
			samplePick(seed, "fragmented", "concentrated among a few large players", "intensifying"),
			samplePick(seed>>8, "commodity", "entry-level", "legacy"))
	case "risk":
		return fmt.Sprintf("Principal risks include %s, %s, and supplier concentration; mitigations center on hedging and multi-sourcing.",
			samplePick(seed, "demand cyclicality", "regulatory exposure", "customer concentration"),
			samplePick(seed>>8, "FX volatility", "input cost inflation", "data-security incidents"))
	case "segments":
		return fmt.Sprintf("Segment reporting splits revenue roughly %d/%d between the core and growth segments, with the growth segment expanding faster.",
			55+int(seed%20), 45-int(seed%20))
	case "cashflow":
		return fmt.Sprintf("Operating cash flow of $%dM funded capex and buybacks; free cash flow conversion ran near %d%%.",
			sampleInt(seed, 80, 22000), sampleInt(seed>>8, 55, 98))
	case "balance":
		return fmt.Sprintf("The balance sheet carries $%dM cash against $%dM debt; leverage sits at %.1fx EBITDA.",
			sampleInt(seed, 100, 30000), sampleInt(seed>>8, 50, 25000), sampleRange(seed>>16, 0.2, 3.5))
	default: // income
		return fmt.Sprintf("Revenue of $%dM grew %.1f%% with a %.1f%% operating margin; EPS landed at %.2f.",
			sampleInt(seed, 150, 90000), sampleRange(seed>>8, -4, 28),
			sampleRange(seed>>16, 3, 32), sampleRange(seed>>24, 0.3, 16))
	}
}

func incomeSummarization(ticker, year string) string {
	return filingAnalysis("income", ticker, year) + " " +
		filingAnalysis("segments", ticker, year)
}

var secYearParam = Param{
	Name:        "year",
	Type:        "string",
	Description: "The fiscal year of the SEC report",
	Required:    true,
}

func secSectionTool(name, description, heading, label, section string) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Params:      []Param{tickerParam, secYearParam},
		Run: func(ctx context.Context, args Args) (string, error) {
			ticker, err := requireTicker(args)
			if err != nil {
				return "", err
			}
			year := resolveYear(args.String("year"), time.Now())
			return fmt.Sprintf("##### %s\n"+
				"**Company Name:** %s\n"+
				"**%s:** %s\n%s",
				heading, ticker, label, filingAnalysis(section, ticker, year),
				formattingInstructions), nil
		},
	}
}

func secCatalog() []Tool {
	return []Tool{
		secSectionTool("analyze_company_description",
			"analyze the company description for a company from the SEC report",
			"Company Description", "Company Analysis", "description"),
		secSectionTool("analyze_business_highlights",
			"analyze the business highlights for a company from the SEC report",
			"Business Highlights", "Business Highlights", "highlights"),
		secSectionTool("get_competitors_analysis",
			"analyze the competitors analysis for a company from the SEC report",
			"Competitor Analysis", "Competitor Analysis", "competitors"),
		secSectionTool("get_risk_assessment",
			"analyze the risk assessment for a company from the SEC report",
			"Risk Assessment", "Risk Assessment Analysis", "risk"),
		secSectionTool("analyze_segment_stmt",
			"analyze the segment statement for a company from the SEC report",
			"Segment Statement", "Segment Statement Analysis", "segments"),
		secSectionTool("analyze_cash_flow",
			"analyze the cash flow for a company from the SEC report",
			"Cash Flow", "Cash Flow Analysis", "cashflow"),
		secSectionTool("analyze_balance_sheet",
			"analyze the balance sheet for a company from the SEC report",
			"Balance Sheet", "Balance Sheet Analysis", "balance"),
		secSectionTool("analyze_income_stmt",
			"analyze the income statement for a company from the SEC report",
			"Income Statement", "Income Statement Analysis", "income"),
		{
			Name:        "income_summarization",
			Description: "analyze the income summarization for a company from the SEC report",
			Params:      []Param{tickerParam, secYearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				return fmt.Sprintf("##### Income Statement\n"+
					"**Company Name:** %s\n"+
					"**Income Statement Analysis:** %s\n%s",
					ticker, incomeSummarization(ticker, year), formattingInstructions), nil
			},
		},
		{
			Name:        "build_annual_report",
			Description: "build the annual report for a company from the SEC report",
			Params:      []Param{tickerParam, secYearParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				ticker, err := requireTicker(args)
				if err != nil {
					return "", err
				}
				year := resolveYear(args.String("year"), time.Now())
				seed := sampleSeed(ticker, year, "filing")
				filed := fmt.Sprintf("%s-%02d-%02d", year,
					sampleInt(seed, 1, 12), sampleInt(seed>>8, 1, 28))
				return fmt.Sprintf("##### Annual Report\n"+
					"**Company Name:** %s\n"+
					"**Fiscal Year:** %s\n"+
					"**Filing Date:** %s\n\n"+
					"**Business Overview:** %s\n\n"+
					"**Market Position:** %s\n\n"+
					"**Risk Assessment:** %s\n\n"+
					"**Income Summary:** %s\n%s",
					ticker, year, filed,
					filingAnalysis("highlights", ticker, year),
					filingAnalysis("description", ticker, year),
					filingAnalysis("risk", ticker, year),
					incomeSummarization(ticker, year),
					formattingInstructions), nil
			},
		},
	}
}
