package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/ravenmarsh/compass/internal/executor"
	"github.com/ravenmarsh/compass/internal/registry"
)

// synthesize merges the run's results into one FinalResponse.
//
// One successful result passes through untouched. Multiple results are
// merged into labelled sections with each agent's text kept verbatim,
// followed by a summary naming every agent that ran and a note for
// every agent that failed. Partial success is reported, never hidden.
func synthesize(query string, results []executor.AgentResult, snap *registry.Snapshot) *FinalResponse {
	resp := &FinalResponse{
		Timings: make(map[string]time.Duration, len(results)),
		Results: results,
	}
	for _, r := range results {
		resp.AgentsInvolved = append(resp.AgentsInvolved, r.AgentID)
		resp.Timings[r.AgentID] = r.Duration
	}

	switch len(results) {
	case 0:
		// The orchestrator's degrade-to-default policy should make
		// this unreachable; answer something rather than raise.
		resp.PrimaryAgent = "system"
		resp.Response = "No specialist was able to handle this request. Please try again."
		return resp
	case 1:
		r := results[0]
		resp.PrimaryAgent = r.AgentID
		resp.Response = r.Response
		return resp
	}

	resp.PrimaryAgent = PrimaryOrchestrated
	resp.Response = mergeResults(results, snap)
	return resp
}

func mergeResults(results []executor.AgentResult, snap *registry.Snapshot) string {
	var b strings.Builder

	var failed []executor.AgentResult
	var total time.Duration
	for _, r := range results {
		total += r.Duration
		if !r.Success {
			failed = append(failed, r)
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", displayName(snap, r.AgentID), r.Response)
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "Specialists consulted: %s\n", strings.Join(agentNames(snap, results), ", "))
	fmt.Fprintf(&b, "Total processing time: %s\n", total.Round(time.Millisecond))
	for _, f := range failed {
		fmt.Fprintf(&b, "Note: %s could not contribute (%s)\n", displayName(snap, f.AgentID), f.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}

// displayName resolves an agent's heading label, falling back to the
// raw id when the descriptor is gone.
func displayName(snap *registry.Snapshot, agentID string) string {
	if d, ok := snap.Get(agentID); ok && d.DisplayName != "" {
		return d.DisplayName
	}
	return agentID
}

func agentNames(snap *registry.Snapshot, results []executor.AgentResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, displayName(snap, r.AgentID))
	}
	return out
}
