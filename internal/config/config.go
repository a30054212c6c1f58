// Package config loads Octobrain's configuration from an optional YAML file
// layered under environment-variable overrides, the env vars winning.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type EmbeddingConfig struct {
	Model             string `yaml:"model"`
	BatchSize         int    `yaml:"batch_size"`
	MaxTokensPerBatch int    `yaml:"max_tokens_per_batch"`
}

type RerankerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Model          string `yaml:"model"`
	TopKCandidates int    `yaml:"top_k_candidates"`
	FinalTopK      int    `yaml:"final_top_k"`
}

type HybridConfig struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

type SearchConfig struct {
	SimilarityThreshold float64        `yaml:"similarity_threshold"`
	MaxResults          int            `yaml:"max_results"`
	Reranker            RerankerConfig `yaml:"reranker"`
	Hybrid              HybridConfig   `yaml:"hybrid"`
}

type DecayConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days"`
}

type CleanupConfig struct {
	MinImportance float64 `yaml:"min_importance"`
	MaxAgeDays    int     `yaml:"max_age_days"`
}

type MemoryConfig struct {
	Decay   DecayConfig   `yaml:"decay"`
	Cleanup CleanupConfig `yaml:"cleanup"`
}

type KnowledgeConfig struct {
	TTLSeconds   int `yaml:"ttl_seconds"`
	ChunkTokens  int `yaml:"chunk_tokens"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type Config struct {
	Port          int    `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	LogLevel      string `yaml:"log_level"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Memory    MemoryConfig    `yaml:"memory"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
}

func defaults() *Config {
	return &Config{
		Port:          8741,
		DBPath:        "/data/octobrain.db",
		OllamaBaseURL: "http://localhost:11434",
		LogLevel:      "info",
		Embedding: EmbeddingConfig{
			Model:             "ollama:nomic-embed-text",
			BatchSize:         32,
			MaxTokensPerBatch: 100000,
		},
		Search: SearchConfig{
			SimilarityThreshold: 0.3,
			MaxResults:          50,
			Reranker: RerankerConfig{
				Enabled:        false,
				TopKCandidates: 50,
				FinalTopK:      10,
			},
			Hybrid: HybridConfig{
				Alpha: 0.7,
				Beta:  0.3,
			},
		},
		Memory: MemoryConfig{
			Decay:   DecayConfig{HalfLifeDays: 90},
			Cleanup: CleanupConfig{MinImportance: 0.2, MaxAgeDays: 180},
		},
		Knowledge: KnowledgeConfig{
			TTLSeconds:   86400,
			ChunkTokens:  512,
			ChunkOverlap: 64,
		},
	}
}

// Load reads path (if non-empty and present) as a YAML config file into the
// defaults, then applies environment-variable overrides on top, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(c *Config) {
	c.Port = envInt("OCTOBRAIN_PORT", c.Port)
	c.DBPath = envStr("OCTOBRAIN_DB_PATH", c.DBPath)
	c.OllamaBaseURL = envStr("OLLAMA_BASE_URL", c.OllamaBaseURL)
	c.LogLevel = envStr("OCTOBRAIN_LOG_LEVEL", c.LogLevel)

	c.Embedding.Model = envStr("OCTOBRAIN_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BatchSize = envInt("OCTOBRAIN_EMBEDDING_BATCH_SIZE", c.Embedding.BatchSize)
	c.Embedding.MaxTokensPerBatch = envInt("OCTOBRAIN_EMBEDDING_MAX_TOKENS_PER_BATCH", c.Embedding.MaxTokensPerBatch)

	c.Search.SimilarityThreshold = envFloat("OCTOBRAIN_SEARCH_SIMILARITY_THRESHOLD", c.Search.SimilarityThreshold)
	c.Search.MaxResults = envInt("OCTOBRAIN_SEARCH_MAX_RESULTS", c.Search.MaxResults)
	c.Search.Reranker.Enabled = envBool("OCTOBRAIN_SEARCH_RERANKER_ENABLED", c.Search.Reranker.Enabled)
	c.Search.Reranker.Model = envStr("OCTOBRAIN_SEARCH_RERANKER_MODEL", c.Search.Reranker.Model)
	c.Search.Reranker.TopKCandidates = envInt("OCTOBRAIN_SEARCH_RERANKER_TOP_K_CANDIDATES", c.Search.Reranker.TopKCandidates)
	c.Search.Reranker.FinalTopK = envInt("OCTOBRAIN_SEARCH_RERANKER_FINAL_TOP_K", c.Search.Reranker.FinalTopK)
	c.Search.Hybrid.Alpha = envFloat("OCTOBRAIN_SEARCH_HYBRID_ALPHA", c.Search.Hybrid.Alpha)
	c.Search.Hybrid.Beta = envFloat("OCTOBRAIN_SEARCH_HYBRID_BETA", c.Search.Hybrid.Beta)

	c.Memory.Decay.HalfLifeDays = envFloat("OCTOBRAIN_MEMORY_DECAY_HALF_LIFE_DAYS", c.Memory.Decay.HalfLifeDays)
	c.Memory.Cleanup.MinImportance = envFloat("OCTOBRAIN_MEMORY_CLEANUP_MIN_IMPORTANCE", c.Memory.Cleanup.MinImportance)
	c.Memory.Cleanup.MaxAgeDays = envInt("OCTOBRAIN_MEMORY_CLEANUP_MAX_AGE_DAYS", c.Memory.Cleanup.MaxAgeDays)

	c.Knowledge.TTLSeconds = envInt("OCTOBRAIN_KNOWLEDGE_TTL_SECONDS", c.Knowledge.TTLSeconds)
	c.Knowledge.ChunkTokens = envInt("OCTOBRAIN_KNOWLEDGE_CHUNK_TOKENS", c.Knowledge.ChunkTokens)
	c.Knowledge.ChunkOverlap = envInt("OCTOBRAIN_KNOWLEDGE_CHUNK_OVERLAP", c.Knowledge.ChunkOverlap)
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.OllamaBaseURL == "" {
		return fmt.Errorf("ollama_base_url must not be empty")
	}
	sum := c.Search.Hybrid.Alpha + c.Search.Hybrid.Beta
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("search.hybrid.alpha + search.hybrid.beta must equal 1.0, got %f", sum)
	}
	if c.Memory.Decay.HalfLifeDays <= 0 {
		return fmt.Errorf("memory.decay.half_life_days must be positive, got %f", c.Memory.Decay.HalfLifeDays)
	}
	if c.Memory.Cleanup.MinImportance < 0 || c.Memory.Cleanup.MinImportance > 1 {
		return fmt.Errorf("memory.cleanup.min_importance must be in [0,1], got %f", c.Memory.Cleanup.MinImportance)
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkTokens {
		return fmt.Errorf("knowledge.chunk_overlap must be smaller than knowledge.chunk_tokens")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
