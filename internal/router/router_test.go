package router

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ravenmarsh/compass/internal/registry"
	"go.uber.org/zap"
)

func snapshotOf(t *testing.T, descs ...registry.Descriptor) *registry.Snapshot {
	t.Helper()
	data, err := json.Marshal(map[string]any{"agents": descs})
	if err != nil {
		t.Fatalf("marshal agents: %v", err)
	}
	path := filepath.Join(t.TempDir(), "agents.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write agents: %v", err)
	}
	reg := registry.New(path, zap.NewNop())
	if err := reg.Load(); err != nil {
		t.Fatalf("load agents: %v", err)
	}
	return reg.Snapshot()
}

func agent(id, group string, priority int, keywords ...string) registry.Descriptor {
	return registry.Descriptor{
		ID:           id,
		DisplayName:  id,
		Keywords:     keywords,
		Capabilities: []string{group},
		Priority:     priority,
		Settings:     registry.ExecutionSettings{Temperature: 0.5, MaxTokens: 256, TimeoutSeconds: 10},
		Enabled:      true,
	}
}

func defaultWeights() Weights {
	return Weights{
		KeywordWeight:    1.0,
		SpecificityBonus: 0.25,
		ScoreThreshold:   0.3,
		MaxAgents:        3,
		DefaultAgentID:   "fallback",
	}
}

func TestRouteSingleIntent(t *testing.T) {
	snap := snapshotOf(t,
		agent("scenic", "scenery", 2, "scenic", "viewpoint", "landscape"),
		agent("dining", "dining", 2, "restaurant", "food", "cuisine"),
	)
	r := New(defaultWeights(), zap.NewNop())

	dec := r.Route("show me a scenic viewpoint", snap)
	if dec.PrimaryAgentID != "scenic" {
		t.Errorf("got primary %q, want scenic", dec.PrimaryAgentID)
	}
	if dec.MultiIntent {
		t.Error("single topic flagged as multi-intent")
	}
	if len(dec.AdditionalAgentIDs) != 0 {
		t.Errorf("unexpected additional agents: %v", dec.AdditionalAgentIDs)
	}
	// Two keyword hits: 2*1.0 + 1*0.25.
	if got := dec.Scores["scenic"]; got != 2.25 {
		t.Errorf("got score %g, want 2.25", got)
	}
}

func TestRouteDefaultFallback(t *testing.T) {
	snap := snapshotOf(t,
		agent("scenic", "scenery", 2, "scenic", "viewpoint"),
		agent("dining", "dining", 2, "restaurant", "food"),
	)
	r := New(defaultWeights(), zap.NewNop())

	dec := r.Route("completely unrelated query", snap)
	if dec.PrimaryAgentID != "fallback" {
		t.Errorf("got primary %q, want fallback", dec.PrimaryAgentID)
	}
	if dec.MultiIntent {
		t.Error("fallback decision flagged multi-intent")
	}
	if len(dec.Scores) != 2 {
		t.Errorf("scores map missing entries: %v", dec.Scores)
	}
}

func TestRouteEmptyQueryUsesDefault(t *testing.T) {
	snap := snapshotOf(t, agent("scenic", "scenery", 2, "scenic"))
	r := New(defaultWeights(), zap.NewNop())

	dec := r.Route("   ", snap)
	if dec.PrimaryAgentID != "fallback" {
		t.Errorf("got primary %q, want fallback", dec.PrimaryAgentID)
	}
}

func TestRouteMultiIntent(t *testing.T) {
	snap := snapshotOf(t,
		agent("scenic", "scenery", 2, "scenic", "viewpoint"),
		agent("dining", "dining", 2, "restaurant", "food"),
		agent("weather", "weather", 1, "weather", "forecast"),
	)
	r := New(defaultWeights(), zap.NewNop())

	dec := r.Route("scenic viewpoint with good food and weather forecast", snap)
	if !dec.MultiIntent {
		t.Fatal("expected multi-intent decision")
	}
	ids := dec.AgentIDs()
	if len(ids) != 3 {
		t.Fatalf("got plan %v, want 3 agents", ids)
	}
	// scenic and weather score 2.25 each; weather's lower priority
	// bucket breaks the tie.
	if ids[0] != "weather" {
		t.Errorf("got primary %q, want weather", ids[0])
	}
}

func TestRouteMultiIntentCappedAtMaxAgents(t *testing.T) {
	w := defaultWeights()
	w.MaxAgents = 2
	snap := snapshotOf(t,
		agent("scenic", "scenery", 2, "scenic"),
		agent("dining", "dining", 2, "food"),
		agent("weather", "weather", 1, "weather"),
	)
	r := New(w, zap.NewNop())

	dec := r.Route("scenic spot with food and weather", snap)
	if !dec.MultiIntent {
		t.Fatal("expected multi-intent decision")
	}
	if got := len(dec.AgentIDs()); got != 2 {
		t.Errorf("got %d agents in plan, want 2", got)
	}
}

func TestRouteSameGroupIsSingleIntent(t *testing.T) {
	// Two qualifying agents in the same capability group compete for one
	// slot; the lower priority bucket wins.
	snap := snapshotOf(t,
		agent("scenic-a", "scenery", 2, "scenic"),
		agent("scenic-b", "scenery", 1, "scenic"),
	)
	r := New(defaultWeights(), zap.NewNop())

	dec := r.Route("scenic places please", snap)
	if dec.MultiIntent {
		t.Error("same-group competition flagged as multi-intent")
	}
	if dec.PrimaryAgentID != "scenic-b" {
		t.Errorf("got primary %q, want scenic-b (lower priority bucket)", dec.PrimaryAgentID)
	}
}

func TestRouteSkipsDisabledAgents(t *testing.T) {
	disabled := agent("scenic", "scenery", 2, "scenic")
	disabled.Enabled = false
	snap := snapshotOf(t, disabled, agent("dining", "dining", 2, "food"))
	r := New(defaultWeights(), zap.NewNop())

	dec := r.Route("scenic views", snap)
	if dec.PrimaryAgentID != "fallback" {
		t.Errorf("disabled agent was routed to: %q", dec.PrimaryAgentID)
	}
	if _, ok := dec.Scores["scenic"]; ok {
		t.Error("disabled agent appears in scores")
	}
}

func TestRouteDeterministic(t *testing.T) {
	snap := snapshotOf(t,
		agent("scenic", "scenery", 2, "scenic", "lake"),
		agent("water", "hydrology", 2, "lake", "river"),
		agent("weather", "weather", 1, "weather"),
	)
	r := New(defaultWeights(), zap.NewNop())

	query := "scenic lake with good weather"
	first := r.Route(query, snap)
	for i := 0; i < 20; i++ {
		again := r.Route(query, snap)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("routing not deterministic: %+v vs %+v", first, again)
		}
	}
}
