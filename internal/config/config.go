package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `json:"server"`
	Providers     []ProviderConfig    `json:"providers"`
	Database      DatabaseConfig      `json:"database"`
	Embedding     EmbeddingConfig     `json:"embedding"`
	Memory        MemoryConfig        `json:"memory"`
	Orchestration OrchestrationConfig `json:"orchestration"`
	AgentsPath    string              `json:"agents_path"`
	MigrationsDir string              `json:"migrations_dir"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"` // "openai" | "ollama"
	Name     string   `json:"name"`
	Endpoint string   `json:"endpoint"`
	APIKey   string   `json:"api_key"`
	Models   []string `json:"models,omitempty"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type EmbeddingConfig struct {
	Provider  string `json:"provider"` // "api" or "local"
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// MemoryConfig bounds how much stored context is pulled into prompts.
type MemoryConfig struct {
	STMTTLSeconds int `json:"stm_ttl_seconds"`
	RecentLimit   int `json:"recent_limit"`
	SimilarLimit  int `json:"similar_limit"`
}

// OrchestrationConfig holds the routing weights and run budgets.
// Scoring weights are tunable configuration, not constants.
type OrchestrationConfig struct {
	DefaultAgentID      string  `json:"default_agent_id"`
	MaxAgents           int     `json:"max_agents"`
	ScoreThreshold      float64 `json:"score_threshold"`
	KeywordWeight       float64 `json:"keyword_weight"`
	SpecificityBonus    float64 `json:"specificity_bonus"`
	MaxExecutionSeconds int     `json:"max_execution_seconds"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(substituteEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// substituteEnv replaces ${VAR} and ${VAR:default} with environment values.
func substituteEnv(data []byte) []byte {
	return envVarRe.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envVarRe.FindSubmatch(match)
		if v := os.Getenv(string(parts[1])); v != "" {
			return []byte(v)
		}
		return parts[2]
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Memory.STMTTLSeconds == 0 {
		c.Memory.STMTTLSeconds = 3600
	}
	if c.Memory.RecentLimit == 0 {
		c.Memory.RecentLimit = 5
	}
	if c.Memory.SimilarLimit == 0 {
		c.Memory.SimilarLimit = 3
	}
	if c.Orchestration.MaxAgents == 0 {
		c.Orchestration.MaxAgents = 3
	}
	if c.Orchestration.ScoreThreshold == 0 {
		c.Orchestration.ScoreThreshold = 0.3
	}
	if c.Orchestration.KeywordWeight == 0 {
		c.Orchestration.KeywordWeight = 1.0
	}
	if c.Orchestration.SpecificityBonus == 0 {
		c.Orchestration.SpecificityBonus = 0.25
	}
	if c.Orchestration.MaxExecutionSeconds == 0 {
		c.Orchestration.MaxExecutionSeconds = 60
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
}
