package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ravenmarsh/compass/internal/embedding"
	"github.com/ravenmarsh/compass/internal/vectorstore"
	"go.uber.org/zap"
)

const interactionsCollection = "compass_interactions"

// VectorIndex embeds interactions and serves similarity search over
// the user's history.
type VectorIndex struct {
	store    *vectorstore.Client
	embedder embedding.Provider
	logger   *zap.Logger
}

// NewVectorIndex wires the Qdrant client and embedding provider
// together and ensures the collection exists.
func NewVectorIndex(ctx context.Context, store *vectorstore.Client, embedder embedding.Provider, logger *zap.Logger) (*VectorIndex, error) {
	dim := embedder.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be configured")
	}
	if err := store.EnsureCollection(ctx, interactionsCollection, uint64(dim)); err != nil {
		return nil, err
	}
	return &VectorIndex{store: store, embedder: embedder, logger: logger}, nil
}

// Index embeds the interaction's query+response pair and upserts it.
func (v *VectorIndex) Index(ctx context.Context, rec Interaction) error {
	vecs, err := v.embedder.Embed(ctx, []string{rec.Query + "\n" + rec.Response})
	if err != nil {
		return fmt.Errorf("embed interaction: %w", err)
	}
	if len(vecs) == 0 {
		return fmt.Errorf("embedder returned no vector")
	}

	return v.store.Upsert(ctx, interactionsCollection, rec.ID, vecs[0], map[string]string{
		"user_id":    rec.UserID,
		"agent_id":   rec.AgentID,
		"query":      rec.Query,
		"response":   rec.Response,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
	})
}

// Search returns the k prior interactions most similar to the query,
// restricted to the given user.
func (v *VectorIndex) Search(ctx context.Context, userID, query string, k int) ([]Interaction, error) {
	if k <= 0 {
		k = 3
	}
	vecs, err := v.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	hits, err := v.store.Search(ctx, interactionsCollection, vecs[0], uint64(k),
		map[string]string{"user_id": userID})
	if err != nil {
		return nil, err
	}

	out := make([]Interaction, 0, len(hits))
	for _, h := range hits {
		rec := Interaction{
			ID:       h.ID,
			UserID:   h.Payload["user_id"],
			AgentID:  h.Payload["agent_id"],
			Query:    h.Payload["query"],
			Response: h.Payload["response"],
			Score:    h.Score,
			Success:  true,
		}
		if ts, err := time.Parse(time.RFC3339, h.Payload["created_at"]); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	return out, nil
}
