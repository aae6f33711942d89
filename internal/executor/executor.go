// Package executor wraps a single agent's business logic: prompt
// construction, memory enrichment, the generation call, post-processing
// and the interaction write. A failing agent never throws past this
// package; it comes back as an unsuccessful AgentResult.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ravenmarsh/compass/internal/memory"
	"github.com/ravenmarsh/compass/internal/provider"
	"github.com/ravenmarsh/compass/internal/registry"
	"go.uber.org/zap"
)

// AgentResult records one agent invocation. If Success is false, Error
// is non-empty and Response holds best-effort fallback text.
type AgentResult struct {
	AgentID   string        `json:"agent_id"`
	Response  string        `json:"response"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Limits bound how much stored context is pulled into a prompt.
type Limits struct {
	RecentItems  int
	SimilarItems int
}

// Executor runs individual agents against the LLM gateway.
type Executor struct {
	providers *provider.Router
	memory    memory.Gateway
	limits    Limits
	logger    *zap.Logger
}

// New creates an executor. mem may be nil when no memory stores are
// configured; prompts are then built without stored context.
func New(providers *provider.Router, mem memory.Gateway, limits Limits, logger *zap.Logger) *Executor {
	if limits.RecentItems <= 0 {
		limits.RecentItems = 5
	}
	if limits.SimilarItems <= 0 {
		limits.SimilarItems = 3
	}
	return &Executor{providers: providers, memory: mem, limits: limits, logger: logger}
}

// Execute runs one agent for one query. The descriptor is resolved
// against the snapshot the orchestrator planned with, so a reload
// mid-run cannot split a plan across two registry versions. The
// interactionType tags the persisted record ("single"|"orchestrated");
// an empty value skips the write so the caller can Record later, once
// the run's final agent count is known.
func (e *Executor) Execute(ctx context.Context, snap *registry.Snapshot, agentID, query, userID string,
	shared map[string]string, interactionType string) AgentResult {

	start := time.Now()
	desc, ok := snap.Get(agentID)
	if !ok {
		// Reported, not retried: the plan referenced an id that is
		// gone (removed between planning and execution, or a bad
		// trigger rule). The run continues with the other agents.
		return AgentResult{
			AgentID:   agentID,
			Response:  fallbackText,
			Success:   false,
			Error:     fmt.Sprintf("agent not found: %s", agentID),
			Duration:  time.Since(start),
			Timestamp: start.UTC(),
		}
	}

	prompt := e.buildPrompt(ctx, desc, query, userID, shared)

	genCtx, cancel := context.WithTimeout(ctx, desc.Settings.Timeout())
	defer cancel()

	resp, err := e.providers.Generate(genCtx, agentID, &provider.GenerateRequest{
		Model:       desc.Model,
		Prompt:      prompt,
		Temperature: desc.Settings.Temperature,
		MaxTokens:   desc.Settings.MaxTokens,
	})

	result := AgentResult{
		AgentID:   agentID,
		Timestamp: start.UTC(),
	}

	if err != nil {
		result.Success = false
		result.Response = fallbackText
		if provider.IsTimeout(err) || genCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Sprintf("generation timed out after %s", desc.Settings.Timeout())
		} else {
			result.Error = fmt.Sprintf("generation failed: %v", err)
		}
		e.logger.Warn("agent execution failed",
			zap.String("agent", agentID),
			zap.String("user", userID),
			zap.String("error", result.Error))
	} else {
		result.Success = true
		result.Response = postProcess(desc, resp.Content)
		extractSignals(query, result.Response, shared)
	}
	result.Duration = time.Since(start)

	if interactionType != "" {
		e.record(ctx, desc.ID, query, userID, result, interactionType)
	}
	return result
}

// Record persists a result whose interaction tag was not known at
// execution time. Results for agents missing from the snapshot carry
// no descriptor and are never persisted, matching Execute.
func (e *Executor) Record(ctx context.Context, query, userID string, result AgentResult, interactionType string) {
	e.record(ctx, result.AgentID, query, userID, result, interactionType)
}

// fallbackText is the best-effort reply returned for a failed agent.
const fallbackText = "I'm sorry, I couldn't complete that part of your request right now. Please try again in a moment or rephrase your question."

// record persists the interaction. Failures here are audit-relevant
// but never fatal to the run.
func (e *Executor) record(ctx context.Context, agentID, query, userID string, result AgentResult, interactionType string) {
	if e.memory == nil {
		return
	}
	rec := memory.NewInteraction(userID, agentID, query, result.Response, interactionType, result.Success)
	if err := e.memory.RecordInteraction(ctx, rec); err != nil {
		e.logger.Warn("interaction not recorded",
			zap.String("agent", agentID), zap.String("user", userID), zap.Error(err))
	}
}
