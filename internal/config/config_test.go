package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("store type = %q", cfg.Store.Type)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 100 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 10 || cfg.Retrieval.HistoryWindow != 3 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
}

func TestLoad_FileOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9999"
store:
  type: sqlite
cache:
  type: redis
documents_dir: /srv/docs
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.DocumentsDir != "/srv/docs" {
		t.Errorf("documents dir = %q", cfg.DocumentsDir)
	}
	// Backend-specific defaults are filled in when the backend is selected.
	if cfg.Store.Path != "./data" {
		t.Errorf("sqlite path = %q", cfg.Store.Path)
	}
	if cfg.Cache.Redis == nil || cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("redis defaults not applied: %+v", cfg.Cache.Redis)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("server: [not: valid"), 0o644)

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCCHAT_ADDR", ":7070")
	t.Setenv("DOCCHAT_DOCUMENTS_DIR", "/tmp/envdocs")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.DocumentsDir != "/tmp/envdocs" {
		t.Errorf("documents dir = %q", cfg.DocumentsDir)
	}
}
