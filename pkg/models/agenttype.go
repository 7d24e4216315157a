package models

import "fmt"

// AgentType identifies a specialized agent role. The value doubles as the
// remote definition name registered with the execution backend, so it is
// stable wire data: never rename a value without migrating remote state.
type AgentType string

const (
	// AgentTypeCompany handles company profiles, news and market data.
	AgentTypeCompany AgentType = "CompanyAgent"
	// AgentTypeEarningCalls handles earnings-call transcripts and analysis.
	AgentTypeEarningCalls AgentType = "EarningCallsAgent"
	// AgentTypeFundamental handles fundamental analysis.
	AgentTypeFundamental AgentType = "FundamentalAgent"
	// AgentTypeTechnical handles technical indicator analysis.
	AgentTypeTechnical AgentType = "TechnicalAgent"
	// AgentTypeSec handles SEC filing retrieval and analysis.
	AgentTypeSec AgentType = "SecAgent"
	// AgentTypeForecaster synthesizes prior findings into an outlook.
	AgentTypeForecaster AgentType = "ForecasterAgent"
	// AgentTypeEnterprise searches internal documents; requires the
	// document-search capability at construction time.
	AgentTypeEnterprise AgentType = "EnterpriseAgent"
	// AgentTypeGeneric handles requests no specialist covers.
	AgentTypeGeneric AgentType = "GenericAgent"
	// AgentTypeWeb performs grounded web search.
	AgentTypeWeb AgentType = "WebAgent"
	// AgentTypeHuman represents the human in the loop.
	AgentTypeHuman AgentType = "HumanAgent"
	// AgentTypePlanner decomposes goals into plans; built after all
	// ordinary agents so it knows the full roster.
	AgentTypePlanner AgentType = "PlannerAgent"
	// AgentTypeGroupChatManager coordinates step execution; built last,
	// after the planner.
	AgentTypeGroupChatManager AgentType = "GroupChatManager"
)

// Valid returns true if the agent type is a known value.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeCompany, AgentTypeEarningCalls, AgentTypeFundamental,
		AgentTypeTechnical, AgentTypeSec, AgentTypeForecaster,
		AgentTypeEnterprise, AgentTypeGeneric, AgentTypeWeb,
		AgentTypeHuman, AgentTypePlanner, AgentTypeGroupChatManager:
		return true
	default:
		return false
	}
}

// String returns the wire value.
func (t AgentType) String() string {
	return string(t)
}

// OrdinaryAgentTypes returns every agent type except the planner and the
// group chat manager, in the stable order the factory constructs them.
func OrdinaryAgentTypes() []AgentType {
	return []AgentType{
		AgentTypeCompany,
		AgentTypeEarningCalls,
		AgentTypeFundamental,
		AgentTypeTechnical,
		AgentTypeSec,
		AgentTypeForecaster,
		AgentTypeEnterprise,
		AgentTypeGeneric,
		AgentTypeWeb,
		AgentTypeHuman,
	}
}

// AllAgentTypes returns every known agent type, ordinary types first.
func AllAgentTypes() []AgentType {
	return append(OrdinaryAgentTypes(), AgentTypePlanner, AgentTypeGroupChatManager)
}

// ParseAgentType converts a wire value into an AgentType.
func ParseAgentType(s string) (AgentType, error) {
	t := AgentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown agent type %q", s)
	}
	return t, nil
}
