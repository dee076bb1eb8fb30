package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CANDIDATE_LIMIT", "")
	t.Setenv("RERANK_TOP_N", "")
	t.Setenv("RRF_K", "")
	t.Setenv("HYBRID_DENSE_WEIGHT", "")
	t.Setenv("HYBRID_SPARSE_WEIGHT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CandidateLimit != 20 {
		t.Fatalf("expected default candidate limit 20, got %d", cfg.CandidateLimit)
	}
	if cfg.RerankTopN != 10 {
		t.Fatalf("expected default rerank top n 10, got %d", cfg.RerankTopN)
	}
	if cfg.RRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.RRFK)
	}
	if cfg.DenseWeight != 1.0 || cfg.SparseWeight != 1.0 {
		t.Fatalf("expected default channel weights 1.0, got %v/%v", cfg.DenseWeight, cfg.SparseWeight)
	}
	if cfg.CacheTTLSeconds != 3600 {
		t.Fatalf("expected default cache ttl 3600, got %d", cfg.CacheTTLSeconds)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CANDIDATE_LIMIT", "40")
	t.Setenv("RRF_K", "75")
	t.Setenv("HYBRID_SPARSE_WEIGHT", "0.5")
	t.Setenv("SPARSE_ENABLED", "true")
	t.Setenv("DEFAULT_LLM", "DEEPSEEK")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CandidateLimit != 40 {
		t.Fatalf("expected candidate limit 40, got %d", cfg.CandidateLimit)
	}
	if cfg.RRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.RRFK)
	}
	if cfg.SparseWeight != 0.5 {
		t.Fatalf("expected sparse weight 0.5, got %v", cfg.SparseWeight)
	}
	if !cfg.SparseEnabled {
		t.Fatal("expected sparse enabled")
	}
	if cfg.DefaultLLM != "DEEPSEEK" {
		t.Fatalf("expected default llm override, got %q", cfg.DefaultLLM)
	}
}

func TestLoadYAMLFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "qdrant_collection: from_file\nrerank_top_n: 7\napi_port: \"9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9999")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("RERANK_TOP_N", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.QdrantCollection != "from_file" {
		t.Fatalf("expected collection from file, got %q", cfg.QdrantCollection)
	}
	if cfg.RerankTopN != 7 {
		t.Fatalf("expected rerank top n from file, got %d", cfg.RerankTopN)
	}
	if cfg.APIPort != "9999" {
		t.Fatalf("expected env to win over file, got %q", cfg.APIPort)
	}
}

func TestLoadBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
