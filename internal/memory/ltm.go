package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LongTermStore persists the durable interaction history in PostgreSQL.
type LongTermStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLongTermStore creates the store with a pgx connection pool.
func NewLongTermStore(dsn string, logger *zap.Logger) (*LongTermStore, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connected")
	return &LongTermStore{db: pool, logger: logger}, nil
}

// Migrate reads and executes all .up.sql files from the migrations directory.
func (s *LongTermStore) Migrate(ctx context.Context, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(migrationsDir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		s.logger.Info("migration applied", zap.String("file", f))
	}
	return nil
}

// Append stores one interaction. Records are never updated afterwards.
func (s *LongTermStore) Append(ctx context.Context, rec Interaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO interactions (id, user_id, agent_id, query, response, interaction_type, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.AgentID, rec.Query, rec.Response, rec.Type, rec.Success, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// History returns interactions for a user, newest first, optionally
// filtered by agent id.
func (s *LongTermStore) History(ctx context.Context, userID, agentID string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, agent_id, query, response, interaction_type, success, created_at
		FROM interactions
		WHERE user_id = $1`
	args := []any{userID}
	if agentID != "" {
		query += ` AND agent_id = $2`
		args = append(args, agentID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var rec Interaction
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.AgentID, &rec.Query,
			&rec.Response, &rec.Type, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns a single interaction by id.
func (s *LongTermStore) Get(ctx context.Context, id string) (*Interaction, error) {
	var rec Interaction
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, agent_id, query, response, interaction_type, success, created_at
		FROM interactions WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.UserID, &rec.AgentID, &rec.Query,
		&rec.Response, &rec.Type, &rec.Success, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get interaction %s: %w", id, err)
	}
	return &rec, nil
}

// Close shuts down the connection pool.
func (s *LongTermStore) Close() {
	s.db.Close()
}
