package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stmKeyPrefix = "compass:stm:"

// maxSTMEntries caps the per-user recency list regardless of TTL.
const maxSTMEntries = 50

// ShortTermStore keeps the most recent interactions per user in Redis.
// Entries expire with the configured TTL; the list is also length-capped
// so a chatty user cannot grow it without bound.
type ShortTermStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewShortTermStore connects to Redis and verifies the connection.
func NewShortTermStore(redisURL string, ttl time.Duration, logger *zap.Logger) (*ShortTermStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &ShortTermStore{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func stmKey(userID string) string {
	return stmKeyPrefix + userID
}

// Append pushes an interaction onto the user's recency list and
// refreshes the expiry window.
func (s *ShortTermStore) Append(ctx context.Context, rec Interaction) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	key := stmKey(rec.UserID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxSTMEntries-1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stm append %s: %w", key, err)
	}
	return nil
}

// Recent returns up to limit interactions, newest first.
func (s *ShortTermStore) Recent(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = maxSTMEntries
	}
	raw, err := s.rdb.LRange(ctx, stmKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("stm recent %s: %w", userID, err)
	}

	out := make([]Interaction, 0, len(raw))
	for _, item := range raw {
		var rec Interaction
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			s.logger.Warn("skipping malformed stm entry", zap.String("user", userID), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close shuts down the Redis connection.
func (s *ShortTermStore) Close() error {
	return s.rdb.Close()
}
