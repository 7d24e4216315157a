package capability

import "sync"

// TokenUsage aggregates reported token counts.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Runs             int64
}

func (u *TokenUsage) add(prompt, completion int64) {
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.TotalTokens += prompt + completion
	u.Runs++
}

// TokenTracker accumulates backend-reported usage across runs, per agent
// and in total. Safe for concurrent use; a nil tracker discards records so
// callers can record unconditionally.
type TokenTracker struct {
	mu      sync.Mutex
	byAgent map[string]*TokenUsage
	total   TokenUsage
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{byAgent: make(map[string]*TokenUsage)}
}

// Record adds one run's reported usage under the given agent name.
func (t *TokenTracker) Record(agent string, prompt, completion int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	u := t.byAgent[agent]
	if u == nil {
		u = &TokenUsage{}
		t.byAgent[agent] = u
	}
	u.add(prompt, completion)
	t.total.add(prompt, completion)
}

// Usage returns the combined usage across all agents.
func (t *TokenTracker) Usage() TokenUsage {
	if t == nil {
		return TokenUsage{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// ByAgent returns a copy of the per-agent rollup.
func (t *TokenTracker) ByAgent() map[string]TokenUsage {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]TokenUsage, len(t.byAgent))
	for name, u := range t.byAgent {
		out[name] = *u
	}
	return out
}
