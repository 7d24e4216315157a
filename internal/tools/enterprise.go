package tools

import (
	"context"
	"fmt"
)

// The enterprise tools do not search anything themselves. They shape the
// query and instruct the model to run it through the document-search
// capability bound to the agent's remote definition.

const defaultSanctionsIndex = "sanctionsdata-index"

func enterpriseCatalog() []Tool {
	return []Tool{
		{
			Name:        "get_internal_risk_details",
			Description: "This function retrieves sanctions and risk category details of a country using the internal document search index.",
			Params: []Param{
				{
					Name:        "country_name",
					Type:        "string",
					Description: "The name of the country to search for sanction and risk category details",
					Required:    true,
				},
			},
			Run: func(ctx context.Context, args Args) (string, error) {
				country := args.String("country_name")
				if country == "" {
					return "", fmt.Errorf("country_name is required")
				}
				query := fmt.Sprintf("country sanctions risk category %s", country)
				return fmt.Sprintf(`**EXECUTING SEARCH**: Searching for sanctions and risk category details for %s

**Using document search on %s with query:**
"%s"

**Looking for:**
- Sanctions Status
- Risk Category

This request should be executed through the document search tool.`, country, defaultSanctionsIndex, query), nil
			},
		},
		{
			Name:        "search_sanctions_data",
			Description: "Directly search the sanctions data index using the internal document search.",
			Params: []Param{
				{
					Name:        "query",
					Type:        "string",
					Description: "The search query to use for finding sanctions information",
					Required:    true,
				},
				{
					Name:        "index_name",
					Type:        "string",
					Description: "The index name to search in (default: sanctionsdata-index)",
					Required:    false,
				},
			},
			Run: func(ctx context.Context, args Args) (string, error) {
				query := args.String("query")
				if query == "" {
					return "", fmt.Errorf("query is required")
				}
				index := args.StringOr("index_name", defaultSanctionsIndex)
				return fmt.Sprintf(`**DIRECT SEARCH REQUEST**:

**Index:** %s
**Query:** %s

Please execute this search using the document search tool and format the results.`, index, query), nil
			},
		},
	}
}
