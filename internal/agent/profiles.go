package agent

import (
	"fmt"
	"strings"

	"github.com/kpenrose/finscope/pkg/models"
)

// Profile describes how one agent variant is constructed: its default
// instructions, whether it gets a remote definition at all, and which
// search capability its construction depends on.
type Profile struct {
	Type models.AgentType
	// Description is the one-line summary the planner uses to route steps.
	Description string
	// Instructions is the system message registered with the remote
	// definition. Deployments can override it per agent via the
	// instructions directory.
	Instructions string
	// Remote is false for variants that never get a remote definition.
	Remote bool
	// RequiresDocumentSearch marks the internal-document path: construction
	// must fail when the capability is unavailable.
	RequiresDocumentSearch bool
	// WantsWebSearch marks the grounded web-search path: construction must
	// fail when the capability is unavailable.
	WantsWebSearch bool
	// Preprocess optionally rewrites actions before dispatch.
	Preprocess Preprocessor
	// ResponseSchemaName and ResponseSchema, when set, constrain the remote
	// definition's replies to a JSON shape. Only the planner carries one.
	ResponseSchemaName string
	ResponseSchema     map[string]any
}

const companyInstructions = "You are an AI Agent. You have knowledge about stock market, " +
	"company information, company news, analyst recommendation and company's financial data and metrics."

const earningsInstructions = "You are an AI Agent. You analyze earnings-call transcripts: " +
	"you retrieve and summarize transcripts and identify the management's positive outlook, " +
	"negative outlook, and future growth opportunities for a company."

const fundamentalInstructions = "You are a Fundamental Analysis Agent. " +
	"Your role is to retrieve and analyze up to 5 years of fundamental data " +
	"(cash flow, income statements, balance sheets) for a given ticker. " +
	"You also compute basic ratios like ROE, ROA, and placeholders for " +
	"Altman Z-score and Piotroski F-score. " +
	"Return the data and computations in structured JSON."

const technicalInstructions = "You are a specialized Technical Analysis Agent. " +
	"You have access to historical stock price data and can detect " +
	"multiple technical strategies, signals, and candlestick patterns " +
	"(EMA crossover, RSI, MACD, Bollinger Bands, Stochastics, ATR, ADX, " +
	"hammer, engulfing, etc.). Provide a JSON-structured output of your findings, " +
	"including an overall (naive) rating. Other agents will consume your results."

const secInstructions = "You are an AI Agent specialized in SEC filings. " +
	"You analyze annual reports section by section: company description, business highlights, " +
	"competitors, risk assessment, segment statements, cash flow, balance sheet, and income " +
	"statement, and you can assemble a full annual report from those analyses."

const forecasterInstructions = "You are a Forecaster and Analysis Agent. " +
	"Your role is to interpret the output of an extended technical and fundamental " +
	"analysis pipeline along with business overviews, risk assessments, market position, " +
	"income and segment statements, earnings call transcripts, SEC reports, analyst " +
	"reports, news, and stock price data. " +
	"Produce a final recommendation (Buy, Sell, or Hold) with a structured format and " +
	"thorough, bullet-pointed explanation. You must mention the final probability, " +
	"interpret it as a confidence level, and provide disclaimers like " +
	"\"Past performance is not indicative of future results.\""

const enterpriseInstructions = `Role: Enterprise Information Specialist for KYC Compliance
Primary Responsibility: Access and analyze internal company documents for regulatory compliance

You are an Enterprise Agent that searches internal documents to provide accurate information for compliance purposes.

IMPORTANT: You MUST use the document search tool for all information requests.

When using the get_internal_risk_details function:
- You must provide the country name to search for
- The function will search internal documents for sanctions and risk information
Base your answers only on what the search returns and cite the matched documents.`

const genericInstructions = "You are a generic agent. You are used to handle generic tasks " +
	"that a general Large Language Model can assist with. You are being called a generic " +
	"agent because you are not a specialized agent."

const webInstructions = `You are an AI Agent that can help with searching the internet to answer general pre-KYC related questions about companies and their business.

You have access to web search capabilities to find information about:
- Company/Client Address Information
- Company/Client Business Information details
- Company/Client Business activity details
- Company/Client Business geography details
- Company/Client's AML and Risk Profile
Always cite the sources you used.`

const humanInstructions = "You represent the human reviewer in the conversation. " +
	"You handle steps that require human judgment."

const plannerInstructions = "You are a Planner agent responsible for breaking a financial " +
	"research goal into ordered steps. Each step names exactly one agent from the provided " +
	"roster and one concrete instruction for it. Respond only with the requested JSON."

const managerInstructions = "You are a GroupChatManager agent responsible for coordinating " +
	"the execution of an approved research plan across the agent roster, one step at a time."

// enterpriseSearchTriggers lists the substrings that mark an action as
// needing the internal document search.
var enterpriseSearchTriggers = []string{
	"search", "find", "look up", "research", "information", "details",
	"risk", "category", "sanction", "country", "internal", "document",
	"get internal risk details",
}

// enterprisePreprocess rewrites actions that look like document lookups so
// the remote run leads with the search instead of answering from memory.
func enterprisePreprocess(action string) string {
	lower := strings.ToLower(action)
	triggered := false
	for _, t := range enterpriseSearchTriggers {
		if strings.Contains(lower, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return action
	}
	return fmt.Sprintf(`=== CRITICAL INSTRUCTION ===
You MUST use the document search tool to search our internal database.

STEP 1: ALWAYS search with a query matching this request:
* For country risk details: use 'country sanctions risk category [country name]'
* For general sanctions: use 'sanctions [relevant terms]'

STEP 2: Show the search was performed by starting your response with "I searched our internal database..."

STEP 3: Format your final answer based on search results only.

Original request: %s`, action)
}

var profiles = map[models.AgentType]Profile{
	models.AgentTypeCompany: {
		Type:         models.AgentTypeCompany,
		Description:  "company profiles, stock data, news, analyst recommendations, and sentiment",
		Instructions: companyInstructions,
		Remote:       true,
	},
	models.AgentTypeEarningCalls: {
		Type:         models.AgentTypeEarningCalls,
		Description:  "earnings-call transcripts, summaries, and management outlook",
		Instructions: earningsInstructions,
		Remote:       true,
	},
	models.AgentTypeFundamental: {
		Type:         models.AgentTypeFundamental,
		Description:  "multi-year fundamental data and financial ratios",
		Instructions: fundamentalInstructions,
		Remote:       true,
	},
	models.AgentTypeTechnical: {
		Type:         models.AgentTypeTechnical,
		Description:  "technical indicators, candlestick patterns, and a naive rating",
		Instructions: technicalInstructions,
		Remote:       true,
	},
	models.AgentTypeSec: {
		Type:         models.AgentTypeSec,
		Description:  "SEC filing section analyses and assembled annual reports",
		Instructions: secInstructions,
		Remote:       true,
	},
	models.AgentTypeForecaster: {
		Type:         models.AgentTypeForecaster,
		Description:  "final buy/sell/hold recommendation from prior analyses",
		Instructions: forecasterInstructions,
		Remote:       true,
	},
	models.AgentTypeEnterprise: {
		Type:                   models.AgentTypeEnterprise,
		Description:            "internal document search for sanctions and risk categories",
		Instructions:           enterpriseInstructions,
		Remote:                 true,
		RequiresDocumentSearch: true,
		Preprocess:             enterprisePreprocess,
	},
	models.AgentTypeGeneric: {
		Type:         models.AgentTypeGeneric,
		Description:  "general requests no specialist covers",
		Instructions: genericInstructions,
		Remote:       true,
	},
	models.AgentTypeWeb: {
		Type:           models.AgentTypeWeb,
		Description:    "grounded web search for KYC research",
		Instructions:   webInstructions,
		Remote:         true,
		WantsWebSearch: true,
	},
	models.AgentTypeHuman: {
		Type:         models.AgentTypeHuman,
		Description:  "steps that require human judgment",
		Instructions: humanInstructions,
		Remote:       false,
	},
	models.AgentTypePlanner: {
		Type:               models.AgentTypePlanner,
		Description:        "decomposes research goals into agent-assigned steps",
		Instructions:       plannerInstructions,
		Remote:             true,
		ResponseSchemaName: "planner_response_plan",
		ResponseSchema:     PlannerResponseSchema(),
	},
	models.AgentTypeGroupChatManager: {
		Type:         models.AgentTypeGroupChatManager,
		Description:  "coordinates step execution across the roster",
		Instructions: managerInstructions,
		Remote:       true,
	},
}

// ProfileFor returns the construction profile for an agent type.
func ProfileFor(t models.AgentType) (Profile, bool) {
	p, ok := profiles[t]
	return p, ok
}

// RosterDescriptions renders "name: description" lines for every ordinary
// agent type, in construction order. The planner embeds this in its
// decomposition prompt.
func RosterDescriptions() string {
	var b strings.Builder
	for _, t := range models.OrdinaryAgentTypes() {
		p := profiles[t]
		fmt.Fprintf(&b, "- %s: %s\n", t, p.Description)
	}
	return b.String()
}
