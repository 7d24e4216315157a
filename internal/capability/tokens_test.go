package capability

import (
	"sync"
	"testing"
)

func TestTokenTrackerRecord(t *testing.T) {
	tr := NewTokenTracker()

	tr.Record("company_analyst", 120, 40)

	usage := tr.Usage()
	if usage.PromptTokens != 120 {
		t.Errorf("PromptTokens = %d, want 120", usage.PromptTokens)
	}
	if usage.CompletionTokens != 40 {
		t.Errorf("CompletionTokens = %d, want 40", usage.CompletionTokens)
	}
	if usage.TotalTokens != 160 {
		t.Errorf("TotalTokens = %d, want 160", usage.TotalTokens)
	}
	if usage.Runs != 1 {
		t.Errorf("Runs = %d, want 1", usage.Runs)
	}

	// Record again (cumulative)
	tr.Record("company_analyst", 80, 20)

	usage = tr.Usage()
	if usage.TotalTokens != 260 {
		t.Errorf("TotalTokens after second record = %d, want 260", usage.TotalTokens)
	}
	if usage.Runs != 2 {
		t.Errorf("Runs after second record = %d, want 2", usage.Runs)
	}
}

func TestTokenTrackerByAgent(t *testing.T) {
	tr := NewTokenTracker()

	tr.Record("company_analyst", 100, 50)
	tr.Record("sec_analyst", 200, 100)
	tr.Record("sec_analyst", 10, 5)

	byAgent := tr.ByAgent()
	if len(byAgent) != 2 {
		t.Fatalf("len(ByAgent()) = %d, want 2", len(byAgent))
	}

	company := byAgent["company_analyst"]
	if company.TotalTokens != 150 || company.Runs != 1 {
		t.Errorf("company_analyst = %+v, want total 150 over 1 run", company)
	}

	sec := byAgent["sec_analyst"]
	if sec.TotalTokens != 315 || sec.Runs != 2 {
		t.Errorf("sec_analyst = %+v, want total 315 over 2 runs", sec)
	}

	// The returned map is a copy; mutating it must not leak back.
	byAgent["sec_analyst"] = TokenUsage{}
	if got := tr.ByAgent()["sec_analyst"].TotalTokens; got != 315 {
		t.Errorf("after mutating the copy, sec_analyst total = %d, want 315", got)
	}
}

func TestTokenTrackerEmpty(t *testing.T) {
	tr := NewTokenTracker()

	usage := tr.Usage()
	if usage.TotalTokens != 0 || usage.Runs != 0 {
		t.Errorf("empty tracker usage = %+v, want zero", usage)
	}
	if got := tr.ByAgent(); len(got) != 0 {
		t.Errorf("empty tracker ByAgent() has %d entries, want 0", len(got))
	}
}

func TestTokenTrackerNilIsSafe(t *testing.T) {
	var tr *TokenTracker

	tr.Record("company_analyst", 100, 50)

	if usage := tr.Usage(); usage.TotalTokens != 0 {
		t.Errorf("nil tracker usage = %+v, want zero", usage)
	}
	if got := tr.ByAgent(); got != nil {
		t.Errorf("nil tracker ByAgent() = %v, want nil", got)
	}
}

func TestTokenTrackerConcurrency(t *testing.T) {
	tr := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record("web_analyst", 10, 5)
			_ = tr.Usage()
			_ = tr.ByAgent()
		}()
	}
	wg.Wait()

	usage := tr.Usage()
	if usage.PromptTokens != 1000 {
		t.Errorf("after concurrent records, PromptTokens = %d, want 1000", usage.PromptTokens)
	}
	if usage.Runs != 100 {
		t.Errorf("after concurrent records, Runs = %d, want 100", usage.Runs)
	}
}
