// Package orchestrator is the control loop for one query-handling run:
// plan via the router, execute agents sequentially (extending the plan
// from the trigger-rule table), then synthesize one response. Runs are
// independent and may proceed concurrently; each pins a registry
// snapshot for its lifetime.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ravenmarsh/compass/internal/executor"
	"github.com/ravenmarsh/compass/internal/registry"
	"github.com/ravenmarsh/compass/internal/router"
	"go.uber.org/zap"
)

// Orchestrator coordinates routing, execution and synthesis.
type Orchestrator struct {
	registry  *registry.Registry
	router    *router.QueryRouter
	executor  *executor.Executor
	maxAgents int
	runBudget time.Duration
	logger    *zap.Logger
}

// New creates an orchestrator. maxAgents caps the per-run plan length
// (trigger extensions included) and runBudget is the cooperative
// wall-clock ceiling for one run.
func New(reg *registry.Registry, qr *router.QueryRouter, exec *executor.Executor,
	maxAgents int, runBudget time.Duration, logger *zap.Logger) *Orchestrator {
	if maxAgents <= 0 {
		maxAgents = 3
	}
	if runBudget <= 0 {
		runBudget = 60 * time.Second
	}
	return &Orchestrator{
		registry:  reg,
		router:    qr,
		executor:  exec,
		maxAgents: maxAgents,
		runBudget: runBudget,
		logger:    logger,
	}
}

// RouteAndExecute handles one query end to end. The only hard failure
// is a planning failure (unusable registry); once execution starts the
// run always reaches synthesis, agent failures included.
func (o *Orchestrator) RouteAndExecute(ctx context.Context, query, userID string) (*FinalResponse, error) {
	run := &executionState{
		query:   query,
		userID:  userID,
		state:   statePlanning,
		ran:     make(map[string]bool),
		shared:  make(map[string]string),
		started: time.Now(),
	}

	// PLANNING
	snap := o.registry.Snapshot()
	if snap.Len() == 0 {
		run.state = stateError
		return nil, fmt.Errorf("router internal error: registry has no agents")
	}
	decision := o.router.Route(query, snap)
	if decision.PrimaryAgentID == "" {
		run.state = stateError
		return nil, fmt.Errorf("router internal error: no primary agent and no default configured")
	}

	run.plan = decision.AgentIDs()
	for _, id := range run.plan {
		run.ran[id] = true
	}
	run.state = stateExecuting

	o.logger.Info("routing decision",
		zap.String("user", userID),
		zap.String("primary", decision.PrimaryAgentID),
		zap.Strings("additional", decision.AdditionalAgentIDs),
		zap.Bool("multi_intent", decision.MultiIntent))

	// EXECUTING: strictly sequential, later agents read shared context
	// written by earlier ones.
	for len(run.plan) > 0 {
		if time.Since(run.started) > o.runBudget {
			o.logger.Warn("run budget exceeded, synthesizing partial results",
				zap.String("user", userID),
				zap.Int("skipped", len(run.plan)))
			run.partial = true
			break
		}

		agentID := run.plan[0]
		run.plan = run.plan[1:]

		result := o.executor.Execute(ctx, snap, agentID, query, userID, run.shared, "")
		run.results = append(run.results, result)

		o.applyTriggers(snap, run)
	}

	// The interaction tag depends on how many agents the run ultimately
	// spanned, and trigger rules can grow the plan mid-run. Records are
	// therefore written only after the plan has stopped growing, so a
	// single-intent run extended by a trigger tags every interaction
	// "orchestrated".
	tag := memoryType(len(run.results))
	for _, res := range run.results {
		if _, ok := snap.Get(res.AgentID); !ok {
			continue
		}
		o.executor.Record(ctx, query, userID, res, tag)
	}

	// SYNTHESIZING
	run.state = stateSynthesizing
	resp := synthesize(query, run.results, snap)
	resp.Partial = run.partial
	resp.TotalDuration = time.Since(run.started)
	resp.attachRouting(decision)
	run.state = stateDone

	return resp, nil
}

// applyTriggers walks the snapshot's rule table after each completed
// agent and appends newly triggered agents to the plan. The max-agent
// ceiling guarantees termination no matter what the table says.
func (o *Orchestrator) applyTriggers(snap *registry.Snapshot, run *executionState) {
	if len(run.results) == 0 {
		return
	}
	last := run.results[len(run.results)-1]
	if !last.Success {
		return
	}

	for _, rule := range snap.Triggers {
		if rule.AfterAgent != last.AgentID || rule.ThenAgent == "" {
			continue
		}
		if run.ran[rule.ThenAgent] {
			continue
		}
		if len(run.results)+len(run.plan) >= o.maxAgents {
			return
		}
		if !triggerMatches(rule, run) {
			continue
		}
		if _, ok := snap.Get(rule.ThenAgent); !ok {
			o.logger.Warn("trigger rule names unknown agent", zap.String("agent", rule.ThenAgent))
			continue
		}

		o.logger.Info("trigger rule fired",
			zap.String("after", rule.AfterAgent),
			zap.String("next", rule.ThenAgent))
		run.plan = append(run.plan, rule.ThenAgent)
		run.ran[rule.ThenAgent] = true
	}
}

// triggerMatches evaluates a rule's condition against the run state.
// An empty condition matches unconditionally.
func triggerMatches(rule registry.TriggerRule, run *executionState) bool {
	if rule.SharedKey != "" {
		if _, ok := run.shared[rule.SharedKey]; !ok {
			return false
		}
	}
	if len(rule.QueryAny) > 0 {
		q := strings.ToLower(run.query)
		found := false
		for _, kw := range rule.QueryAny {
			if strings.Contains(q, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// memoryType tags persisted interactions by how many agents the run spans.
func memoryType(agentCount int) string {
	if agentCount > 1 {
		return "orchestrated"
	}
	return "single"
}
