package capability

import "fmt"

// CapabilityUnavailableError reports that a capability an agent cannot work
// without is missing or failed its availability check. Construction of that
// agent must stop; there is no degraded mode.
type CapabilityUnavailableError struct {
	// Capability names what was unavailable ("document search", "grounded search").
	Capability string
	// AgentName is the agent whose construction required it.
	AgentName string
}

func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("capability %q required by %s is unavailable", e.Capability, e.AgentName)
}

// RemoteDefinitionError wraps a failure talking to the execution backend
// about an agent definition.
type RemoteDefinitionError struct {
	// Op is the definition operation that failed ("list", "get", "create",
	// "update", "delete", "run").
	Op string
	// Name identifies the definition, by name or ID.
	Name string
	Err  error
}

func (e *RemoteDefinitionError) Error() string {
	return fmt.Sprintf("%s agent definition %q: %v", e.Op, e.Name, e.Err)
}

func (e *RemoteDefinitionError) Unwrap() error {
	return e.Err
}
