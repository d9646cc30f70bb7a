package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Dim != 1536 || cfg.Retrieval.Threshold != 0.70 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Chunking.TargetSize != 600 || cfg.Chunking.Overlap != 150 {
		t.Fatalf("chunking defaults not applied: %+v", cfg.Chunking)
	}
}

func TestLoadFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	body := `
addr: ":9001"
embedding:
  model: custom-embed
  dim: 768
store:
  provider: sqlite
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9001" || cfg.Embedding.Model != "custom-embed" || cfg.Embedding.Dim != 768 {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.Store.Provider != "sqlite" {
		t.Fatalf("store provider lost: %+v", cfg.Store)
	}
	// untouched sections keep defaults
	if cfg.Embedding.BatchSize != 20 || cfg.Provider.ChatModel == "" {
		t.Fatalf("defaults not backfilled: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("FOLIO_EMBEDDING_DIM", "384")
	t.Setenv("FOLIO_VECTOR_PROVIDER", "pgvector")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Dim != 384 {
		t.Fatalf("env dim not applied: %d", cfg.Embedding.Dim)
	}
	if cfg.Store.Provider != "pgvector" {
		t.Fatalf("env provider not applied: %q", cfg.Store.Provider)
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_FOLIO_KEY", "sk-test")
	cfg, _ := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg.Provider.APIKeyEnv = "TEST_FOLIO_KEY"
	if cfg.APIKey() != "sk-test" {
		t.Fatalf("api key not resolved: %q", cfg.APIKey())
	}
}
