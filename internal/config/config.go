package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath      string           `json:"db_path"`
	JWTSecret   string           `json:"jwt_secret"`
	Port        int              `json:"port"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	AI          AIConfig         `json:"ai"`
	Retrieval   RetrievalConfig  `json:"retrieval"`
	Retry       RetryConfig      `json:"retry"`
	Jobs        JobsConfig       `json:"jobs"`
	// AskRateLimitMs throttles question submission per (ip, user).
	// Zero disables the limiter.
	AskRateLimitMs int `json:"ask_ratelimit_ms"`
}

type AIConfig struct {
	Provider      string          `json:"provider"`
	Args          json.RawMessage `json:"args"`
	Model         string          `json:"model"`
	EmbedModel    string          `json:"embed_model"`
	TimeoutSecs   int             `json:"timeout_seconds"`
	MaxInputChars int             `json:"max_input_chars"`
}

type RetrievalConfig struct {
	// Index selects the similarity index implementation: "flat" or "hnsw".
	Index              string `json:"index"`
	Dimensions         int    `json:"dimensions"`
	CacheTTLSecs       int    `json:"cache_ttl_seconds"`
	ConversationWindow int    `json:"conversation_window"`
	EmbedCacheSize     int    `json:"embed_cache_size"`
	EmbedCacheTTLSecs  int    `json:"embed_cache_ttl_seconds"`
}

type RetryConfig struct {
	MaxAttempts int `json:"max_attempts"`
	BaseDelayMs int `json:"base_delay_ms"`
	MaxDelayMs  int `json:"max_delay_ms"`
	JitterMs    int `json:"jitter_ms"`
}

type JobsConfig struct {
	CacheSweepSpec string `json:"cache_sweep_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.Retrieval.Dimensions <= 0 {
		return nil, fmt.Errorf("retrieval.dimensions is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	switch cfg.Retrieval.Index {
	case "":
		cfg.Retrieval.Index = "flat"
	case "flat", "hnsw":
	default:
		return nil, fmt.Errorf("retrieval.index must be flat or hnsw")
	}
	if cfg.Retrieval.CacheTTLSecs <= 0 {
		cfg.Retrieval.CacheTTLSecs = 3600
	}
	if cfg.Retrieval.ConversationWindow <= 0 {
		cfg.Retrieval.ConversationWindow = 6
	}
	if cfg.Retrieval.EmbedCacheSize <= 0 {
		cfg.Retrieval.EmbedCacheSize = 4096
	}
	if cfg.Retrieval.EmbedCacheTTLSecs <= 0 {
		cfg.Retrieval.EmbedCacheTTLSecs = 2 * 3600
	}
	if cfg.AI.TimeoutSecs <= 0 {
		cfg.AI.TimeoutSecs = 60
	}
	if cfg.AI.MaxInputChars <= 0 {
		cfg.AI.MaxInputChars = 16000
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelayMs <= 0 {
		cfg.Retry.BaseDelayMs = 1000
	}
	if cfg.Retry.MaxDelayMs <= 0 {
		cfg.Retry.MaxDelayMs = 60000
	}
	if cfg.Retry.JitterMs < 0 {
		cfg.Retry.JitterMs = 0
	}
	if cfg.Jobs.CacheSweepSpec == "" {
		cfg.Jobs.CacheSweepSpec = "*/10 * * * *"
	}
	return &cfg, nil
}
