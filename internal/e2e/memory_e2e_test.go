//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/ravenmarsh/compass/internal/memory"
)

// Package-level shared state — set by TestMain, used by all subtests.
var (
	testLogger   *zap.Logger
	testRedisURL string
	testPGDSN    string
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("compass_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return "redis://" + endpoint, cleanup, nil
}

func TestMain(m *testing.M) {
	ctx := context.Background()
	testLogger = zap.NewNop()

	redisURL, redisCleanup, err := startRedis(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis container: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = redisURL

	dsn, pgCleanup, err := startPostgres(ctx)
	if err != nil {
		redisCleanup()
		fmt.Fprintf(os.Stderr, "postgres container: %v\n", err)
		os.Exit(1)
	}
	testPGDSN = dsn

	code := m.Run()
	pgCleanup()
	redisCleanup()
	os.Exit(code)
}

func TestShortTermStoreRoundTrip(t *testing.T) {
	stm, err := memory.NewShortTermStore(testRedisURL, time.Hour, testLogger)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer stm.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rec := memory.NewInteraction("stm-user", "scenic",
			fmt.Sprintf("query %d", i), fmt.Sprintf("answer %d", i),
			memory.TypeSingle, true)
		if err := stm.Append(ctx, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recent, err := stm.Recent(ctx, "stm-user", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}
	// Newest first.
	if recent[0].Query != "query 2" {
		t.Errorf("got %q first, want newest entry", recent[0].Query)
	}

	// Unknown user reads empty, not an error.
	empty, err := stm.Recent(ctx, "nobody", 5)
	if err != nil {
		t.Fatalf("recent for unknown user: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d entries for unknown user, want 0", len(empty))
	}
}

func TestLongTermStoreHistory(t *testing.T) {
	ltm, err := memory.NewLongTermStore(testPGDSN, testLogger)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	defer ltm.Close()

	ctx := context.Background()
	if err := ltm.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	recs := []memory.Interaction{
		memory.NewInteraction("ltm-user", "scenic", "views in Goa", "beach views", memory.TypeSingle, true),
		memory.NewInteraction("ltm-user", "dining", "food in Goa", "seafood shacks", memory.TypeSingle, true),
		memory.NewInteraction("ltm-user", "scenic", "views in Ooty", "tea gardens", memory.TypeOrchestrated, false),
	}
	for _, rec := range recs {
		if err := ltm.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := ltm.History(ctx, "ltm-user", "", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}

	scenicOnly, err := ltm.History(ctx, "ltm-user", "scenic", 10)
	if err != nil {
		t.Fatalf("history filtered: %v", err)
	}
	if len(scenicOnly) != 2 {
		t.Fatalf("got %d scenic records, want 2", len(scenicOnly))
	}
	for _, r := range scenicOnly {
		if r.AgentID != "scenic" {
			t.Errorf("agent filter leaked record for %q", r.AgentID)
		}
	}

	got, err := ltm.Get(ctx, recs[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Query != "views in Goa" || !got.Success {
		t.Errorf("got %+v, want original record", got)
	}
}

func TestManagerDegradesAndRecords(t *testing.T) {
	stm, err := memory.NewShortTermStore(testRedisURL, time.Hour, testLogger)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	ltm, err := memory.NewLongTermStore(testPGDSN, testLogger)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	ctx := context.Background()
	if err := ltm.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// No vector index configured: similarity search degrades to empty.
	mgr := memory.NewManager(stm, ltm, nil, testLogger)
	defer mgr.Close()

	rec := memory.NewInteraction("mgr-user", "scenic", "hills near Pune", "Sinhagad fort", memory.TypeSingle, true)
	if err := mgr.RecordInteraction(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	recent, err := mgr.RecentInteractions(ctx, "mgr-user", 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Query != "hills near Pune" {
		t.Errorf("got %+v, want the recorded interaction", recent)
	}

	hist, err := mgr.HistoricalInteractions(ctx, "mgr-user", "", 5)
	if err != nil {
		t.Fatalf("historical: %v", err)
	}
	if len(hist) != 1 {
		t.Errorf("got %d historical records, want 1", len(hist))
	}

	similar, err := mgr.SimilaritySearch(ctx, "mgr-user", "hills", 3)
	if err != nil {
		t.Fatalf("similarity search should degrade, got: %v", err)
	}
	if len(similar) != 0 {
		t.Errorf("got %d similar records without a vector index, want 0", len(similar))
	}
}
