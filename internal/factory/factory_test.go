package factory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/kpenrose/finscope/internal/capability"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/models"
)

var _ capability.ExecutionClient = (*fakeBackend)(nil)

// fakeBackend is an in-memory execution backend that records every
// definition operation it serves.
type fakeBackend struct {
	mu     sync.Mutex
	defs   []*capability.AgentDefinition
	nextID int
	ops    []string
	// raceOnCreate makes the next create fail after inserting the
	// definition, simulating a lost duplicate-create race.
	raceOnCreate bool
	createDelay  time.Duration
}

func fakeToolTypes(tools []openai.AssistantToolUnionParam, fileSearch bool) []string {
	var out []string
	for _, u := range tools {
		switch {
		case u.OfFunction != nil:
			out = append(out, "function")
		case u.OfFileSearch != nil:
			out = append(out, "file_search")
		}
	}
	if fileSearch {
		out = append(out, "file_search")
	}
	return out
}

func (b *fakeBackend) record(op, arg string) {
	b.ops = append(b.ops, op+":"+arg)
}

func (b *fakeBackend) seed(def capability.AgentDefinition) *capability.AgentDefinition {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := def
	if d.ID == "" {
		d.ID = fmt.Sprintf("def-%d", b.nextID)
		b.nextID++
	}
	b.defs = append(b.defs, &d)
	return &d
}

func (b *fakeBackend) ListAgentsByName(ctx context.Context, name string) ([]capability.AgentDefinition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("list", name)
	var out []capability.AgentDefinition
	for _, d := range b.defs {
		if d.Name == name {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetAgent(ctx context.Context, id string) (*capability.AgentDefinition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("get", id)
	for _, d := range b.defs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) CreateAgent(ctx context.Context, p capability.CreateAgentParams) (*capability.AgentDefinition, error) {
	if b.createDelay > 0 {
		time.Sleep(b.createDelay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("create", p.Name)
	def := &capability.AgentDefinition{
		ID:             fmt.Sprintf("def-%d", b.nextID),
		Name:           p.Name,
		Model:          p.Model,
		Instructions:   p.Instructions,
		Temperature:    p.Temperature,
		Metadata:       p.Metadata,
		ToolTypes:      fakeToolTypes(p.Tools, p.FileSearch),
		VectorStoreIDs: p.VectorStoreIDs,
	}
	b.nextID++
	b.defs = append(b.defs, def)
	if b.raceOnCreate {
		b.raceOnCreate = false
		return nil, &capability.RemoteDefinitionError{Op: "create", Name: p.Name, Err: errors.New("definition already exists")}
	}
	cp := *def
	return &cp, nil
}

func (b *fakeBackend) UpdateAgent(ctx context.Context, id string, p capability.UpdateAgentParams) (*capability.AgentDefinition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("update", id)
	for _, d := range b.defs {
		if d.ID != id {
			continue
		}
		if p.Instructions != "" {
			d.Instructions = p.Instructions
		}
		if p.Tools != nil {
			d.ToolTypes = fakeToolTypes(p.Tools, false)
		}
		if p.VectorStoreIDs != nil {
			d.VectorStoreIDs = p.VectorStoreIDs
		}
		cp := *d
		return &cp, nil
	}
	return nil, &capability.RemoteDefinitionError{Op: "update", Name: id, Err: errors.New("no such definition")}
}

func (b *fakeBackend) DeleteAgent(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("delete", id)
	for i, d := range b.defs {
		if d.ID == id {
			b.defs = append(b.defs[:i], b.defs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *fakeBackend) RunAgent(ctx context.Context, p capability.RunParams) (*capability.RunResult, error) {
	return &capability.RunResult{Output: "ok"}, nil
}

func (b *fakeBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.ops {
		if strings.HasPrefix(o, op+":") {
			n++
		}
	}
	return n
}

func (b *fakeBackend) creations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, o := range b.ops {
		if name, ok := strings.CutPrefix(o, "create:"); ok {
			out = append(out, name)
		}
	}
	return out
}

// fakeSearch hands out a fixed handle; nil models an unavailable
// capability.
type fakeSearch struct {
	handle *capability.SearchHandle
}

func (s *fakeSearch) Acquire(ctx context.Context) *capability.SearchHandle {
	return s.handle
}

func newTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "factory.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestFactory(t *testing.T, backend *fakeBackend, opts ...func(*Options)) *Factory {
	t.Helper()
	o := Options{
		Client: backend,
		Store:  newTestStore(t),
		GroundedSearch: &fakeSearch{handle: &capability.SearchHandle{
			Name:     "grounded search",
			Endpoint: "https://search.example",
		}},
		DocumentSearch: &fakeSearch{handle: &capability.SearchHandle{
			Name:           "document search",
			VectorStoreIDs: []string{"vs-main"},
		}},
		Model:       "gpt-4o",
		Temperature: 0.2,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

func TestCreateAgent_CachesPerSessionAndType(t *testing.T) {
	backend := &fakeBackend{}
	f := newTestFactory(t, backend)
	ctx := context.Background()

	first, err := f.CreateAgent(ctx, models.AgentTypeCompany, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	second, err := f.CreateAgent(ctx, models.AgentTypeCompany, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if first != second {
		t.Error("repeated creation returned a different instance")
	}
	if got := backend.count("create"); got != 1 {
		t.Errorf("backend saw %d creates, want 1", got)
	}

	otherType, err := f.CreateAgent(ctx, models.AgentTypeTechnical, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if otherType == first {
		t.Error("different types share an instance")
	}

	otherSession, err := f.CreateAgent(ctx, models.AgentTypeCompany, "sess-2", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if otherSession == first {
		t.Error("different sessions share an instance")
	}
	if otherSession.DefinitionID == first.DefinitionID {
		t.Error("different sessions share a remote definition")
	}
}

func TestCreateAgent_UnknownType(t *testing.T) {
	backend := &fakeBackend{}
	f := newTestFactory(t, backend)

	_, err := f.CreateAgent(context.Background(), models.AgentType("MysteryAgent"), "sess-1", "user-1")
	if !errors.Is(err, ErrUnknownAgentType) {
		t.Fatalf("err = %v, want ErrUnknownAgentType", err)
	}
	if got := backend.count("create"); got != 0 {
		t.Errorf("backend saw %d creates for an unknown type", got)
	}
	if _, ok := f.CachedAgent("sess-1", models.AgentType("MysteryAgent")); ok {
		t.Error("failed construction was cached")
	}
}

func TestCreateAgent_ReusesExistingDefinition(t *testing.T) {
	backend := &fakeBackend{}
	seeded := backend.seed(capability.AgentDefinition{
		Name:      "CompanyAgent-sess-1",
		ToolTypes: []string{"function"},
	})
	f := newTestFactory(t, backend)

	a, err := f.CreateAgent(context.Background(), models.AgentTypeCompany, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if a.DefinitionID != seeded.ID {
		t.Errorf("DefinitionID = %q, want the existing %q", a.DefinitionID, seeded.ID)
	}
	if got := backend.count("create"); got != 0 {
		t.Errorf("backend saw %d creates, want reuse", got)
	}
}

func TestCreateAgent_AdoptsWinnerOfDuplicateCreateRace(t *testing.T) {
	backend := &fakeBackend{raceOnCreate: true}
	f := newTestFactory(t, backend)

	a, err := f.CreateAgent(context.Background(), models.AgentTypeCompany, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed after a lost race: %v", err)
	}
	if a.DefinitionID != "def-0" {
		t.Errorf("DefinitionID = %q, want the concurrent winner's def-0", a.DefinitionID)
	}
}

func TestCreateAgent_HumanNeedsNoBackend(t *testing.T) {
	backend := &fakeBackend{}
	f := newTestFactory(t, backend)

	a, err := f.CreateAgent(context.Background(), models.AgentTypeHuman, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if a.DefinitionID != "" {
		t.Errorf("human agent got remote definition %q", a.DefinitionID)
	}
	for _, op := range []string{"list", "create", "update", "get"} {
		if got := backend.count(op); got != 0 {
			t.Errorf("backend saw %d %s ops for the local agent", got, op)
		}
	}
}

func TestCreateAgent_EnterpriseRequiresDocumentSearch(t *testing.T) {
	backend := &fakeBackend{}
	docs := &fakeSearch{}
	f := newTestFactory(t, backend, func(o *Options) {
		o.DocumentSearch = docs
	})
	ctx := context.Background()

	_, err := f.CreateAgent(ctx, models.AgentTypeEnterprise, "sess-1", "user-1")
	var unavailable *capability.CapabilityUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want CapabilityUnavailableError", err)
	}
	if unavailable.Capability != "document search" {
		t.Errorf("Capability = %q", unavailable.Capability)
	}
	if _, ok := f.CachedAgent("sess-1", models.AgentTypeEnterprise); ok {
		t.Error("agent was cached despite the capability failure")
	}

	// Once the capability comes back, the same call succeeds.
	docs.handle = &capability.SearchHandle{Name: "document search", VectorStoreIDs: []string{"vs-late"}}
	a, err := f.CreateAgent(ctx, models.AgentTypeEnterprise, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed after capability recovery: %v", err)
	}
	def, _ := backend.GetAgent(ctx, a.DefinitionID)
	if def == nil || !def.HasToolType("file_search") {
		t.Error("enterprise definition lacks document search")
	}
}

func TestCreateAgent_EnterpriseReplacesStaleDefinition(t *testing.T) {
	backend := &fakeBackend{}
	stale := backend.seed(capability.AgentDefinition{
		Name:      "EnterpriseAgent-sess-1",
		ToolTypes: []string{"function"},
	})
	f := newTestFactory(t, backend)
	ctx := context.Background()

	a, err := f.CreateAgent(ctx, models.AgentTypeEnterprise, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if a.DefinitionID == stale.ID {
		t.Error("stale definition without file_search survived")
	}
	if got := backend.count("delete"); got != 1 {
		t.Errorf("backend saw %d deletes, want the stale definition removed", got)
	}
	if gone, _ := backend.GetAgent(ctx, stale.ID); gone != nil {
		t.Error("stale definition still exists on the backend")
	}

	def, _ := backend.GetAgent(ctx, a.DefinitionID)
	if def == nil || !def.HasToolType("file_search") {
		t.Fatal("replacement definition lacks document search")
	}
	if len(def.VectorStoreIDs) == 0 || def.VectorStoreIDs[0] != "vs-main" {
		t.Errorf("replacement definition stores = %v, want the acquired handle's", def.VectorStoreIDs)
	}
}

func TestCreateAgent_EnterpriseKeepsHealthyDefinition(t *testing.T) {
	backend := &fakeBackend{}
	healthy := backend.seed(capability.AgentDefinition{
		Name:           "EnterpriseAgent-sess-1",
		ToolTypes:      []string{"function", "file_search"},
		VectorStoreIDs: []string{"vs-old"},
	})
	f := newTestFactory(t, backend)

	a, err := f.CreateAgent(context.Background(), models.AgentTypeEnterprise, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if a.DefinitionID != healthy.ID {
		t.Errorf("DefinitionID = %q, want the healthy %q kept", a.DefinitionID, healthy.ID)
	}
	if got := backend.count("delete"); got != 0 {
		t.Errorf("backend saw %d deletes for a healthy definition", got)
	}

	def, _ := backend.GetAgent(context.Background(), healthy.ID)
	if len(def.VectorStoreIDs) == 0 || def.VectorStoreIDs[0] != "vs-main" {
		t.Errorf("store binding = %v, want refreshed to vs-main", def.VectorStoreIDs)
	}
}

func TestCreateAgent_WebRequiresGroundedSearch(t *testing.T) {
	backend := &fakeBackend{}
	f := newTestFactory(t, backend, func(o *Options) {
		o.GroundedSearch = &fakeSearch{}
	})

	_, err := f.CreateAgent(context.Background(), models.AgentTypeWeb, "sess-1", "user-1")
	var unavailable *capability.CapabilityUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want CapabilityUnavailableError", err)
	}
	if unavailable.Capability != "grounded search" {
		t.Errorf("Capability = %q", unavailable.Capability)
	}
	if _, ok := f.CachedAgent("sess-1", models.AgentTypeWeb); ok {
		t.Error("agent was cached despite the capability failure")
	}
}

func TestCreateAgent_WebRegistersResearchTools(t *testing.T) {
	backend := &fakeBackend{}
	f := newTestFactory(t, backend)

	a, err := f.CreateAgent(context.Background(), models.AgentTypeWeb, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if got := backend.count("update"); got != 1 {
		t.Errorf("backend saw %d updates, want the tool registration", got)
	}
	def, _ := backend.GetAgent(context.Background(), a.DefinitionID)
	if def == nil || !def.HasToolType("function") {
		t.Error("web definition lacks its research tools")
	}
}

func TestCreateAgent_ConcurrentCallsShareOneConstruction(t *testing.T) {
	backend := &fakeBackend{createDelay: 10 * time.Millisecond}
	f := newTestFactory(t, backend)

	const callers = 8
	agents := make([]any, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := f.CreateAgent(context.Background(), models.AgentTypeSec, "sess-1", "user-1")
			if err != nil {
				t.Errorf("CreateAgent failed: %v", err)
				return
			}
			agents[i] = a
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if agents[i] != agents[0] {
			t.Fatalf("caller %d got a different instance", i)
		}
	}
	if got := backend.count("create"); got != 1 {
		t.Errorf("backend saw %d creates under concurrency, want 1", got)
	}
}

func TestClearCache(t *testing.T) {
	backend := &fakeBackend{}
	f := newTestFactory(t, backend)
	ctx := context.Background()

	first, err := f.CreateAgent(ctx, models.AgentTypeCompany, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if _, err := f.CreateAgent(ctx, models.AgentTypeCompany, "sess-2", "user-1"); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	f.ClearCache("sess-1")
	if _, ok := f.CachedAgent("sess-1", models.AgentTypeCompany); ok {
		t.Error("cleared session still has cached agents")
	}
	if _, ok := f.CachedAgent("sess-2", models.AgentTypeCompany); !ok {
		t.Error("clearing one session dropped another's cache")
	}

	rebuilt, err := f.CreateAgent(ctx, models.AgentTypeCompany, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if rebuilt == first {
		t.Error("creation after ClearCache returned the old instance")
	}

	f.ClearAllCaches()
	if _, ok := f.CachedAgent("sess-2", models.AgentTypeCompany); ok {
		t.Error("ClearAllCaches left a session cache behind")
	}
}
