package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Manager implements Gateway over the three sub-stores. Any of them may
// be nil (store not configured) or unreachable; reads then degrade to
// empty results and writes go to whichever stores are up. The
// orchestration pipeline never fails because memory is down.
type Manager struct {
	stm    *ShortTermStore
	ltm    *LongTermStore
	vector *VectorIndex
	logger *zap.Logger
}

// NewManager builds a gateway over the configured sub-stores.
func NewManager(stm *ShortTermStore, ltm *LongTermStore, vector *VectorIndex, logger *zap.Logger) *Manager {
	return &Manager{stm: stm, ltm: ltm, vector: vector, logger: logger}
}

// RecordInteraction writes the record to every available store. A
// partial write is acceptable; errors are joined for the caller to log.
func (m *Manager) RecordInteraction(ctx context.Context, rec Interaction) error {
	var firstErr error
	if m.stm != nil {
		if err := m.stm.Append(ctx, rec); err != nil {
			m.logger.Warn("stm write failed", zap.String("user", rec.UserID), zap.Error(err))
			firstErr = err
		}
	}
	if m.ltm != nil {
		if err := m.ltm.Append(ctx, rec); err != nil {
			m.logger.Warn("ltm write failed", zap.String("user", rec.UserID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	// Failed interactions are kept for audit but not indexed for
	// similarity: an apology response is not useful recall material.
	if m.vector != nil && rec.Success {
		if err := m.vector.Index(ctx, rec); err != nil {
			m.logger.Warn("vector index failed", zap.String("user", rec.UserID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, firstErr)
	}
	return nil
}

// RecentInteractions returns the user's freshest exchanges from STM.
func (m *Manager) RecentInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	if m.stm == nil {
		return nil, nil
	}
	recs, err := m.stm.Recent(ctx, userID, limit)
	if err != nil {
		m.logger.Warn("stm read failed, continuing without recent context",
			zap.String("user", userID), zap.Error(err))
		return nil, nil
	}
	return recs, nil
}

// HistoricalInteractions returns durable history from LTM, optionally
// filtered by agent.
func (m *Manager) HistoricalInteractions(ctx context.Context, userID, agentID string, limit int) ([]Interaction, error) {
	if m.ltm == nil {
		return nil, nil
	}
	recs, err := m.ltm.History(ctx, userID, agentID, limit)
	if err != nil {
		m.logger.Warn("ltm read failed, continuing without history",
			zap.String("user", userID), zap.Error(err))
		return nil, nil
	}
	return recs, nil
}

// SimilaritySearch returns prior interactions ranked by vector similarity.
func (m *Manager) SimilaritySearch(ctx context.Context, userID, query string, k int) ([]Interaction, error) {
	if m.vector == nil {
		return nil, nil
	}
	recs, err := m.vector.Search(ctx, userID, query, k)
	if err != nil {
		m.logger.Warn("similarity search failed, continuing without matches",
			zap.String("user", userID), zap.Error(err))
		return nil, nil
	}
	return recs, nil
}

// Stores reports which sub-stores are configured, for health reporting.
func (m *Manager) Stores() map[string]bool {
	return map[string]bool{
		"short_term": m.stm != nil,
		"long_term":  m.ltm != nil,
		"vector":     m.vector != nil,
	}
}

// Close shuts down the owned sub-stores.
func (m *Manager) Close() {
	if m.stm != nil {
		_ = m.stm.Close()
	}
	if m.ltm != nil {
		m.ltm.Close()
	}
}
