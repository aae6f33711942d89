package orchestrator

import (
	"time"

	"github.com/ravenmarsh/compass/internal/executor"
	"github.com/ravenmarsh/compass/internal/router"
)

// runState tracks where a run is in its lifecycle.
type runState string

const (
	statePlanning     runState = "planning"
	stateExecuting    runState = "executing"
	stateSynthesizing runState = "synthesizing"
	stateDone         runState = "done"
	stateError        runState = "error"
)

// PrimaryOrchestrated is the primary-agent label used when more than
// one agent contributed to a response.
const PrimaryOrchestrated = "orchestrated"

// executionState is the mutable record threaded through one run. It is
// created in PLANNING, mutated during EXECUTING, and discarded once the
// synthesizer has produced the final response.
type executionState struct {
	query   string
	userID  string
	state   runState
	plan    []string          // remaining agent ids, in order
	ran     map[string]bool   // agent ids already executed or queued
	results []executor.AgentResult
	shared  map[string]string // scratch context flowing between agents
	partial bool              // run stopped early on the time budget
	started time.Time
}

// FinalResponse is what a completed run hands back to the caller.
type FinalResponse struct {
	PrimaryAgent   string                   `json:"primary_agent"`
	Response       string                   `json:"response"`
	AgentsInvolved []string                 `json:"agents_involved"`
	Timings        map[string]time.Duration `json:"timings"`
	Scores         map[string]float64       `json:"scores,omitempty"`
	Results        []executor.AgentResult   `json:"results,omitempty"`
	Partial        bool                     `json:"partial,omitempty"`
	TotalDuration  time.Duration            `json:"total_duration"`
}

// attachRouting copies routing transparency data onto the response.
func (f *FinalResponse) attachRouting(dec *router.Decision) {
	if dec != nil {
		f.Scores = dec.Scores
	}
}
