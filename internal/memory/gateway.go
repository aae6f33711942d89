package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Interaction types persisted with each record.
const (
	TypeSingle       = "single"
	TypeOrchestrated = "orchestrated"
)

// ErrUnavailable marks a memory sub-store that cannot be reached.
// Callers treat it as "no context available", never as a run failure.
var ErrUnavailable = fmt.Errorf("memory store unavailable")

// Interaction is one persisted exchange between a user and an agent.
// Records are append-only.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AgentID   string    `json:"agent_id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Type      string    `json:"type"` // "single" | "orchestrated"
	Success   bool      `json:"success"`
	Score     float32   `json:"score,omitempty"` // similarity score on search results
	CreatedAt time.Time `json:"created_at"`
}

// NewInteraction builds a record with a fresh id and timestamp.
func NewInteraction(userID, agentID, query, response, kind string, success bool) Interaction {
	return Interaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		AgentID:   agentID,
		Query:     query,
		Response:  response,
		Type:      kind,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}
}

// Gateway is the uniform interface over short-term, long-term and
// similarity memory. Implementations must be safe for concurrent use
// across runs. Every read may return empty results instead of failing;
// only RecordInteraction surfaces store errors, and callers are
// expected to log rather than abort.
type Gateway interface {
	RecordInteraction(ctx context.Context, rec Interaction) error
	RecentInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error)
	HistoricalInteractions(ctx context.Context, userID, agentID string, limit int) ([]Interaction, error)
	SimilaritySearch(ctx context.Context, userID, query string, k int) ([]Interaction, error)
}
