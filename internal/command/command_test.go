package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ravenmarsh/compass/internal/memory"
	"github.com/ravenmarsh/compass/internal/registry"
)

type fakeService struct {
	agents    []registry.Descriptor
	reloadErr error
	issues    []string
}

func (f *fakeService) ListAgents() []registry.Descriptor { return f.agents }
func (f *fakeService) ReloadAgents() error               { return f.reloadErr }
func (f *fakeService) ValidateConfiguration() []string   { return f.issues }

type fakeHistory struct {
	recs []memory.Interaction
}

func (f *fakeHistory) RecentInteractions(ctx context.Context, userID string, limit int) ([]memory.Interaction, error) {
	if limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func newTestContext() *CommandContext {
	return &CommandContext{
		UserID: "u1",
		Service: &fakeService{
			agents: []registry.Descriptor{
				{ID: "scenic", DisplayName: "Scenic", Keywords: []string{"view"}, Priority: 2, Enabled: true},
				{ID: "dining", DisplayName: "Dining", Keywords: []string{"food"}, Priority: 2, Enabled: false},
			},
		},
		History: &fakeHistory{
			recs: []memory.Interaction{
				{AgentID: "scenic", Query: "views?", CreatedAt: time.Now()},
			},
		},
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name:        "ping",
		Description: "Ping test",
		Usage:       "/ping",
		Handler: func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
			return &CommandResult{Content: "pong: " + args}, nil
		},
	})

	ctx := context.Background()
	cc := newTestContext()

	result, err := reg.Dispatch(ctx, "/ping hello", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "pong: hello" {
		t.Errorf("got %q, want %q", result.Content, "pong: hello")
	}

	result, err = reg.Dispatch(ctx, "/unknown", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "Unknown command") {
		t.Error("expected error message for unknown command")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{Name: "beta"})
	reg.Register(&Command{Name: "alpha"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("got %d commands, want 2", len(list))
	}
	if list[0].Name != "alpha" {
		t.Errorf("got %q first, want %q", list[0].Name, "alpha")
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("/agents") {
		t.Error("slash input not recognized")
	}
	if IsCommand("plain query") {
		t.Error("plain query misread as command")
	}
}

func TestAgentsCommand(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	result, err := reg.Dispatch(context.Background(), "/agents", newTestContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"scenic", "enabled", "dining", "disabled", "view"} {
		if !strings.Contains(result.Content, want) {
			t.Errorf("output missing %q:\n%s", want, result.Content)
		}
	}
}

func TestHistoryCommand(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	result, err := reg.Dispatch(context.Background(), "/history 3", newTestContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "views?") {
		t.Errorf("history output missing query:\n%s", result.Content)
	}

	// No memory configured.
	cc := newTestContext()
	cc.History = nil
	result, err = reg.Dispatch(context.Background(), "/history", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "not configured") {
		t.Errorf("got %q, want memory-not-configured notice", result.Content)
	}
}

func TestReloadCommandReportsFailure(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	cc := newTestContext()
	cc.Service.(*fakeService).reloadErr = errors.New("invalid agent configuration (1 issues): boom")

	result, err := reg.Dispatch(context.Background(), "/reload", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "previous configuration kept") {
		t.Errorf("got %q, want rollback notice", result.Content)
	}
}

func TestValidateCommand(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	cc := newTestContext()
	result, err := reg.Dispatch(context.Background(), "/validate", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "valid") {
		t.Errorf("got %q, want valid notice", result.Content)
	}

	cc.Service.(*fakeService).issues = []string{"scenic: temperature must be within [0, 2]"}
	result, err = reg.Dispatch(context.Background(), "/validate", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "temperature") {
		t.Errorf("issues not listed:\n%s", result.Content)
	}
}

func TestHelpCommandListsAll(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	result, err := reg.Dispatch(context.Background(), "/help", newTestContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"/agents", "/history", "/reload", "/validate", "/help"} {
		if !strings.Contains(result.Content, want) {
			t.Errorf("help missing %q", want)
		}
	}
}
