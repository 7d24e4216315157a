package tools

import (
	"context"
	"fmt"
)

// The web tools return research briefs for the grounded-search capability:
// each reply tells the model exactly which fields to find and cite.

var companyNameParam = Param{
	Name:        "company_name",
	Type:        "string",
	Description: "The name of the company to research",
	Required:    true,
}

func requireCompanyName(args Args) (string, error) {
	name := args.String("company_name")
	if name == "" {
		return "", fmt.Errorf("company_name is required")
	}
	return name, nil
}

func webCatalog() []Tool {
	return []Tool{
		{
			Name: "get_address_info",
			Description: "Get customer address and ownership information for a company " +
				"including ownership type, legal name, address, and address type.",
			Params: []Param{companyNameParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				name, err := requireCompanyName(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf(`Please search for comprehensive address and ownership information for %s and provide the following details:

**Required Information:**
- Ownership Type: Determine if this is Private, Public, or Government Sponsored Entity
- Legal Name: The official legal name of the entity
- Address: The complete registered business address
- Address Type: Specify if this is a Company address or Individual address

Please search for official business registrations, corporate filings, and reliable business directories to gather this information. Provide citations for all sources.`, name), nil
			},
		},
		{
			Name: "get_business_info",
			Description: "Get general business information for a company including public trading status, " +
				"legal entity details, and financial information.",
			Params: []Param{companyNameParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				name, err := requireCompanyName(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf(`Please search for comprehensive business information for %s and provide the following details:

**Required Information:**
- Publicly Traded: Yes/No
- Stock Ticker: (if publicly traded)
- Exchange Listed On: (if applicable)
- NAICS Code: North American Industry Classification System code
- Legal Entity is a Non-Operating Entity: Yes/No
- Type of Non-Operating entity: Disregarded Entity, Special Purpose Entity, Special Purpose Vehicle, Other, or Not Applicable
- Legal Entity Type: Corporation, Government Entity, Individual, or Sole Proprietor
- Country of Incorporation: Where the entity was legally formed
- Country of Headquarters: Where the main operations are based
- Estimated Annual Revenue: Latest available revenue figures

Please search SEC filings, business registries, financial databases, and corporate websites to gather this information. Provide citations for all sources.`, name), nil
			},
		},
		{
			Name: "get_funds_wealth_info",
			Description: "Get information about the legal entity's source of funds and wealth " +
				"for KYC compliance.",
			Params: []Param{companyNameParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				name, err := requireCompanyName(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf(`Please search for information about %s's source of funds and wealth and provide details on:

**Required Information:**
- Primary Revenue Sources: How the company generates income
- Business Model: Description of how the company operates and makes money
- Major Clients/Customers: Key sources of revenue (if publicly available)
- Investment Sources: Where the company gets its funding (investors, loans, etc.)
- Asset Base: Types of assets the company holds
- Financial History: Track record of revenue generation and wealth accumulation

Please search annual reports, SEC filings, investor presentations, business news, and financial databases. Focus on legitimate business activities and revenue streams. Provide citations for all sources.`, name), nil
			},
		},
		{
			Name: "get_activity_details",
			Description: "Get detailed business activity information to determine what specific " +
				"activities the customer is engaged in from a predefined list.",
			Params: []Param{companyNameParam},
			Run: func(ctx context.Context, args Args) (string, error) {
				name, err := requireCompanyName(args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf(`Please search for detailed information about %s's business activities and operations. Based on your findings, identify which of the following activities the company is engaged in:

**Business Activity Categories:**
Accountant, Aircraft Dealer, Arts or Antiques, ATM Owner/Servicer, Auto Parts/Repair/Service,
Auto/Truck Dealer, Beer/Wine/Liquor Store, Casino/Gaming Industry, Check Casher,
Cigarette Distributor, Computer Services, Construction/Plumbing/HVAC, Consulting Services,
Consumer Lender, Convenience Store/Gas Station, Debt Collector, Educational Services,
Farm/Farmer's Market, FinTech, Foreign Shell Bank, Gold Exch/Coins/Precious Metals,
Grocery/Supermarket, Guns/Weapons/Ammunition, Healthcare and Wellness, Import/Export/Shipping,
Internet Gambling, Internet/E-Commerce, Investment/Securities/Broker, Jewelry/Gems,
Lawyer/Legal Services, Leasing/Property Management, Marketing/Media, Money Exchange/Funds Transfer,
Online Pharmacy, Pawnshop, Payday Lender, Political Party/Campaign, Real Estate,
Restaurants/Bars/Grills, Retail Store, Salon/Beauty/Spas, Scrap Metal Dealer, Security Services,
Telemarketing, Third-Party Payment/Payroll Processors, Travel Agency, Trucking and Transportation,
Vending Machine Operator, Virtual Currency, None of the above

**Instructions:**
- List each activity the company is engaged in
- Provide evidence or citations supporting each identified activity
- If none of the listed activities apply, state "None of the above"`, name), nil
			},
		},
	}
}
