package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"folio/internal/chunker"
)

// ProviderConfig points at an OpenAI-compatible endpoint. The API key is
// named by env var, never stored in the file.
type ProviderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	ChatModel   string `yaml:"chat_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbeddingConfig configures the embedding adapter.
type EmbeddingConfig struct {
	Model       string `yaml:"model"`
	Dim         int    `yaml:"dim"`
	BatchSize   int    `yaml:"batch_size"`
	BatchGapMs  int    `yaml:"batch_gap_ms"`
	DeadlineSec int    `yaml:"deadline_secs"`
}

// RetrievalConfig holds the default ranking knobs.
type RetrievalConfig struct {
	Limit            int     `yaml:"limit"`
	Threshold        float64 `yaml:"threshold"`
	ReadingThreshold float64 `yaml:"reading_threshold"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Provider   string `yaml:"provider"` // memory | sqlite | pgvector
	SQLitePath string `yaml:"sqlite_path"`
	PgDSN      string `yaml:"pg_dsn"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Addr      string          `yaml:"addr"`
	Provider  ProviderConfig  `yaml:"provider"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  chunker.Config  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Store     StoreConfig     `yaml:"store"`
}

// APIKey resolves the provider key from the configured env var.
func (c *AppConfig) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

// Load reads a config file. A missing file yields defaults; environment
// variables override file values either way.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// DefaultPath is used when no --config flag is given.
const DefaultPath = "folio.yaml"

// LoadDefault loads from DefaultPath.
func LoadDefault() (*AppConfig, error) {
	return Load(DefaultPath)
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Addr: ":8089",
		Provider: ProviderConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			ChatModel:   "gpt-4o-mini",
			TimeoutSecs: 60,
		},
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-3-small",
			Dim:         1536,
			BatchSize:   20,
			BatchGapMs:  100,
			DeadlineSec: 120,
		},
		Chunking: chunker.DefaultConfig(),
		Retrieval: RetrievalConfig{
			Limit:            5,
			Threshold:        0.70,
			ReadingThreshold: 0.65,
		},
		Store: StoreConfig{Provider: "memory", SQLitePath: "folio.db"},
	}
}

func applyDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = def.Provider.BaseURL
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = def.Provider.APIKeyEnv
	}
	if cfg.Provider.ChatModel == "" {
		cfg.Provider.ChatModel = def.Provider.ChatModel
	}
	if cfg.Provider.TimeoutSecs <= 0 {
		cfg.Provider.TimeoutSecs = def.Provider.TimeoutSecs
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.Dim <= 0 {
		cfg.Embedding.Dim = def.Embedding.Dim
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Embedding.BatchGapMs < 0 {
		cfg.Embedding.BatchGapMs = def.Embedding.BatchGapMs
	}
	if cfg.Embedding.DeadlineSec <= 0 {
		cfg.Embedding.DeadlineSec = def.Embedding.DeadlineSec
	}
	if cfg.Chunking.TargetSize <= 0 {
		cfg.Chunking = def.Chunking
	}
	if cfg.Retrieval.Limit <= 0 {
		cfg.Retrieval.Limit = def.Retrieval.Limit
	}
	if cfg.Retrieval.Threshold <= 0 {
		cfg.Retrieval.Threshold = def.Retrieval.Threshold
	}
	if cfg.Retrieval.ReadingThreshold <= 0 {
		cfg.Retrieval.ReadingThreshold = def.Retrieval.ReadingThreshold
	}
	if cfg.Store.Provider == "" {
		cfg.Store.Provider = def.Store.Provider
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = def.Store.SQLitePath
	}
}

// applyEnv lets FOLIO_* variables override file values, mirroring how the
// server is configured in containers.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("FOLIO_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FOLIO_OPENAI_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("FOLIO_CHAT_MODEL"); v != "" {
		cfg.Provider.ChatModel = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embedding.Dim = n
		}
	}
	if v := os.Getenv("FOLIO_VECTOR_PROVIDER"); v != "" {
		cfg.Store.Provider = v
	}
	if v := os.Getenv("FOLIO_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("FOLIO_PGVECTOR_DSN"); v != "" {
		cfg.Store.PgDSN = v
	}
}
