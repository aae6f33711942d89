// Package router turns a raw user query into an ordered execution plan
// against a registry snapshot. Routing is a pure function of
// (query, snapshot, weights): no randomness, no clock.
package router

import (
	"sort"
	"strings"

	"github.com/ravenmarsh/compass/internal/registry"
	"go.uber.org/zap"
)

// Weights are the tunable knobs of the scoring formula.
type Weights struct {
	KeywordWeight    float64 // added once per matched keyword
	SpecificityBonus float64 // added per distinct hit beyond the first
	ScoreThreshold   float64 // minimum score to qualify
	MaxAgents        int     // plan size ceiling, primary included
	DefaultAgentID   string  // used when nothing qualifies
}

// Decision is the routing outcome for one query. Immutable once produced.
type Decision struct {
	PrimaryAgentID     string             `json:"primary_agent_id"`
	AdditionalAgentIDs []string           `json:"additional_agent_ids"`
	Scores             map[string]float64 `json:"scores"`
	MultiIntent        bool               `json:"multi_intent"`
}

// AgentIDs returns the full ordered plan, primary first.
func (d *Decision) AgentIDs() []string {
	out := make([]string, 0, 1+len(d.AdditionalAgentIDs))
	out = append(out, d.PrimaryAgentID)
	return append(out, d.AdditionalAgentIDs...)
}

// QueryRouter scores queries against agent keyword sets.
type QueryRouter struct {
	weights Weights
	logger  *zap.Logger
}

// New creates a router with the given weights.
func New(weights Weights, logger *zap.Logger) *QueryRouter {
	if weights.MaxAgents <= 0 {
		weights.MaxAgents = 3
	}
	return &QueryRouter{weights: weights, logger: logger}
}

// candidate pairs a descriptor with its computed score.
type candidate struct {
	desc  *registry.Descriptor
	score float64
}

// Route analyzes the query against the snapshot and produces a plan.
// An empty or unmatched query degrades to the default agent; routing
// never fails outright.
func (r *QueryRouter) Route(query string, snap *registry.Snapshot) *Decision {
	normalized := normalize(query)

	scores := make(map[string]float64, snap.Len())
	var qualifying []candidate
	for _, d := range snap.Agents() {
		if !d.Enabled {
			continue
		}
		score := r.score(normalized, d)
		scores[d.ID] = score
		if score >= r.weights.ScoreThreshold && score > 0 {
			qualifying = append(qualifying, candidate{desc: d, score: score})
		}
	}

	if len(qualifying) == 0 {
		r.logger.Debug("no agent qualified, using default",
			zap.String("default", r.weights.DefaultAgentID))
		return &Decision{PrimaryAgentID: r.weights.DefaultAgentID, Scores: scores}
	}

	// Multi-intent only when qualifying agents span distinct
	// capability groups; several agents competing for the same topic
	// is still one intent and the best of them wins.
	groups := make(map[string]bool, len(qualifying))
	for _, c := range qualifying {
		groups[c.desc.CapabilityGroup()] = true
	}

	if len(groups) < 2 {
		best := pickSingle(qualifying)
		return &Decision{PrimaryAgentID: best.desc.ID, Scores: scores}
	}

	ordered := orderCandidates(qualifying)
	if len(ordered) > r.weights.MaxAgents {
		ordered = ordered[:r.weights.MaxAgents]
	}

	dec := &Decision{
		PrimaryAgentID: ordered[0].desc.ID,
		Scores:         scores,
		MultiIntent:    true,
	}
	for _, c := range ordered[1:] {
		dec.AdditionalAgentIDs = append(dec.AdditionalAgentIDs, c.desc.ID)
	}
	return dec
}

// score sums a fixed weight per matched keyword plus a specificity
// bonus for each distinct hit beyond the first: more distinct topical
// hits mean higher confidence the agent owns the query.
func (r *QueryRouter) score(normalized string, d *registry.Descriptor) float64 {
	if normalized == "" {
		return 0
	}
	distinct := 0
	for _, kw := range d.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(kw)) {
			distinct++
		}
	}
	if distinct == 0 {
		return 0
	}
	score := float64(distinct) * r.weights.KeywordWeight
	if distinct > 1 {
		score += float64(distinct-1) * r.weights.SpecificityBonus
	}
	return score
}

// pickSingle resolves a single-intent query: the lowest priority bucket
// that contains a qualifying agent short-circuits the rest, and within
// the bucket the highest score wins, ties broken by id.
func pickSingle(qualifying []candidate) candidate {
	best := qualifying[0]
	for _, c := range qualifying[1:] {
		if c.desc.Priority != best.desc.Priority {
			if c.desc.Priority < best.desc.Priority {
				best = c
			}
			continue
		}
		if c.score != best.score {
			if c.score > best.score {
				best = c
			}
			continue
		}
		if c.desc.ID < best.desc.ID {
			best = c
		}
	}
	return best
}

// orderCandidates sorts by descending score, then ascending priority,
// then id, so identical inputs always yield identical plans.
func orderCandidates(qualifying []candidate) []candidate {
	out := make([]candidate, len(qualifying))
	copy(out, qualifying)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.desc.Priority != b.desc.Priority {
			return a.desc.Priority < b.desc.Priority
		}
		return a.desc.ID < b.desc.ID
	})
	return out
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
