package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ravenmarsh/compass/internal/api"
	"github.com/ravenmarsh/compass/internal/config"
	"github.com/ravenmarsh/compass/internal/embedding"
	"github.com/ravenmarsh/compass/internal/executor"
	"github.com/ravenmarsh/compass/internal/memory"
	"github.com/ravenmarsh/compass/internal/orchestrator"
	"github.com/ravenmarsh/compass/internal/provider"
	"github.com/ravenmarsh/compass/internal/registry"
	"github.com/ravenmarsh/compass/internal/router"
	"github.com/ravenmarsh/compass/internal/vectorstore"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Compass...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/compass.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	providers := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Models: pc.Models,
		}
		switch pc.Type {
		case "openai":
			providers.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "ollama":
			providers.Register(provider.NewOllamaProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Memory stores: each one is optional and the gateway degrades to
	// whatever subset came up.
	var stm *memory.ShortTermStore
	if cfg.Database.Redis.URL != "" {
		s, redisErr := memory.NewShortTermStore(cfg.Database.Redis.URL,
			time.Duration(cfg.Memory.STMTTLSeconds)*time.Second, logger)
		if redisErr != nil {
			logger.Warn("Redis unavailable, running without short-term memory", zap.Error(redisErr))
		} else {
			stm = s
		}
	}

	var ltm *memory.LongTermStore
	if cfg.Database.Postgres.DSN != "" {
		l, pgErr := memory.NewLongTermStore(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without long-term memory", zap.Error(pgErr))
		} else {
			if mErr := l.Migrate(context.Background(), cfg.MigrationsDir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			ltm = l
		}
	}

	var vector *memory.VectorIndex
	if cfg.Database.Qdrant.Host != "" {
		embedder, embErr := embedding.NewProvider(embedding.Config{
			Provider:  cfg.Embedding.Provider,
			Endpoint:  cfg.Embedding.Endpoint,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
		})
		if embErr != nil {
			logger.Warn("embedding provider misconfigured, running without similarity search", zap.Error(embErr))
		} else {
			store, qErr := vectorstore.NewClient(vectorstore.Config{
				Host: cfg.Database.Qdrant.Host,
				Port: cfg.Database.Qdrant.Port,
			})
			if qErr != nil {
				logger.Warn("Qdrant unavailable, running without similarity search", zap.Error(qErr))
			} else {
				v, vErr := memory.NewVectorIndex(context.Background(), store, embedder, logger)
				if vErr != nil {
					logger.Warn("vector index init failed, running without similarity search", zap.Error(vErr))
				} else {
					vector = v
				}
			}
		}
	}

	mem := memory.NewManager(stm, ltm, vector, logger)

	// Agent registry
	agentsPath := cfg.AgentsPath
	if agentsPath == "" {
		agentsPath = "configs/agents.json"
	}
	reg := registry.New(agentsPath, logger)
	if err := reg.Load(); err != nil {
		logger.Fatal("failed to load agents", zap.String("path", agentsPath), zap.Error(err))
	}

	// Routing + execution + orchestration
	qr := router.New(router.Weights{
		KeywordWeight:    cfg.Orchestration.KeywordWeight,
		SpecificityBonus: cfg.Orchestration.SpecificityBonus,
		ScoreThreshold:   cfg.Orchestration.ScoreThreshold,
		MaxAgents:        cfg.Orchestration.MaxAgents,
		DefaultAgentID:   cfg.Orchestration.DefaultAgentID,
	}, logger)

	exec := executor.New(providers, mem, executor.Limits{
		RecentItems:  cfg.Memory.RecentLimit,
		SimilarItems: cfg.Memory.SimilarLimit,
	}, logger)

	orch := orchestrator.New(reg, qr, exec,
		cfg.Orchestration.MaxAgents,
		time.Duration(cfg.Orchestration.MaxExecutionSeconds)*time.Second,
		logger)

	// Build HTTP handler
	handler := api.NewHandler(orch, mem, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Compass listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Compass...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	mem.Close()
}
