package tools

import "github.com/kpenrose/finscope/pkg/models"

// Every tool reply carries this trailer so the model relays the payload
// verbatim before adding its own summary.
const formattingInstructions = "Instructions: returning the output of this function call verbatim to the user in markdown. Then write AGENT SUMMARY: and then include a summary of what you did."

// ForType returns the tool catalog bound to an agent type. Session-scoped
// state (the earnings transcript cache) is threaded in here so two
// sessions never share tool-level state. Types with no function tools
// (human, planner, manager) return nil.
func ForType(t models.AgentType, sessionID string, transcripts *TranscriptCache) []Tool {
	switch t {
	case models.AgentTypeCompany:
		return companyCatalog()
	case models.AgentTypeEarningCalls:
		return earningsCatalog(sessionID, transcripts)
	case models.AgentTypeFundamental:
		return fundamentalCatalog()
	case models.AgentTypeTechnical:
		return technicalCatalog()
	case models.AgentTypeSec:
		return secCatalog()
	case models.AgentTypeForecaster:
		return forecasterCatalog()
	case models.AgentTypeEnterprise:
		return enterpriseCatalog()
	case models.AgentTypeWeb:
		return webCatalog()
	case models.AgentTypeGeneric:
		return genericCatalog()
	default:
		return nil
	}
}
