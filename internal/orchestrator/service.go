package orchestrator

import (
	"context"

	"github.com/ravenmarsh/compass/internal/executor"
	"github.com/ravenmarsh/compass/internal/registry"
)

// The methods in this file are the caller-facing surface consumed by
// the HTTP API and the CLI.

// ExecuteSpecific runs exactly one named agent, bypassing routing.
// A missing agent comes back as a failed AgentResult, not an error.
func (o *Orchestrator) ExecuteSpecific(ctx context.Context, agentID, query, userID string) executor.AgentResult {
	snap := o.registry.Snapshot()
	return o.executor.Execute(ctx, snap, agentID, query, userID, make(map[string]string), "single")
}

// ExecuteByCapability runs every enabled agent carrying the given
// capability label, sequentially in registry order, sharing one scratch
// context.
func (o *Orchestrator) ExecuteByCapability(ctx context.Context, capability, query, userID string) []executor.AgentResult {
	snap := o.registry.Snapshot()
	shared := make(map[string]string)

	var matched []string
	for _, d := range snap.Agents() {
		if d.Enabled && d.HasCapability(capability) {
			matched = append(matched, d.ID)
		}
	}

	// The agent set is fixed upfront, so the interaction tag is too.
	tag := memoryType(len(matched))
	results := make([]executor.AgentResult, 0, len(matched))
	for _, id := range matched {
		results = append(results, o.executor.Execute(ctx, snap, id, query, userID, shared, tag))
	}
	return results
}

// ListAgents returns the active descriptors with prompt templates redacted.
func (o *Orchestrator) ListAgents() []registry.Descriptor {
	snap := o.registry.Snapshot()
	out := make([]registry.Descriptor, 0, snap.Len())
	for _, d := range snap.Agents() {
		out = append(out, d.Redacted())
	}
	return out
}

// AddAgent registers a descriptor at runtime. The change is not written
// back to the agents file and is lost on the next reload.
func (o *Orchestrator) AddAgent(desc registry.Descriptor) error {
	return o.registry.Add(desc)
}

// RemoveAgent drops a descriptor from the active set. Removing an
// unknown agent is a no-op.
func (o *Orchestrator) RemoveAgent(agentID string) {
	o.registry.Remove(agentID)
}

// ReloadAgents swaps in a freshly validated descriptor set. On failure
// the active set is untouched and the error carries every issue found.
func (o *Orchestrator) ReloadAgents() error {
	return o.registry.Reload()
}

// ValidateConfiguration checks the agents file without activating it.
// An empty slice means the configuration is valid.
func (o *Orchestrator) ValidateConfiguration() []string {
	return o.registry.Validate()
}
