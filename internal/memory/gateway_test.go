package memory

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewInteraction(t *testing.T) {
	rec := NewInteraction("u1", "scenic", "q", "r", TypeOrchestrated, true)

	if rec.ID == "" {
		t.Error("missing id")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("missing timestamp")
	}
	if rec.CreatedAt.Location() != rec.CreatedAt.UTC().Location() {
		t.Error("timestamp not UTC")
	}
	if rec.Type != TypeOrchestrated || !rec.Success {
		t.Errorf("fields not carried: %+v", rec)
	}

	other := NewInteraction("u1", "scenic", "q", "r", TypeSingle, false)
	if other.ID == rec.ID {
		t.Error("ids must be unique")
	}
}

func TestManagerWithNoStores(t *testing.T) {
	// Nothing configured: reads come back empty, writes are accepted.
	m := NewManager(nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	if err := m.RecordInteraction(ctx, NewInteraction("u", "a", "q", "r", TypeSingle, true)); err != nil {
		t.Fatalf("record with no stores: %v", err)
	}
	if recs, err := m.RecentInteractions(ctx, "u", 5); err != nil || len(recs) != 0 {
		t.Errorf("recent = (%v, %v), want empty", recs, err)
	}
	if recs, err := m.HistoricalInteractions(ctx, "u", "", 5); err != nil || len(recs) != 0 {
		t.Errorf("historical = (%v, %v), want empty", recs, err)
	}
	if recs, err := m.SimilaritySearch(ctx, "u", "q", 3); err != nil || len(recs) != 0 {
		t.Errorf("similar = (%v, %v), want empty", recs, err)
	}
	m.Close()
}
