package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9000
storage:
  backend: bolt
  bolt_path: "/tmp/blocks.bolt"
embedding:
  provider: mock
  dimensions: 8
  timeout: 5s
search:
  k: 3
  index_type: bruteforce
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != BackendBolt || cfg.Storage.BoltPath != "/tmp/blocks.bolt" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Embedding.Provider != ProviderMock || cfg.Embedding.Dimensions != 8 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("timeout: got %v", cfg.Embedding.Timeout)
	}
	if cfg.Search.K != 3 || cfg.Search.IndexType != "bruteforce" {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/blocks.sqlite"
embedding:
  model_path: "./models/model.onnx"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "blocks.sqlite"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "models", "model.onnx"); cfg.Embedding.ModelPath != want {
		t.Errorf("model_path = %s, want %s", cfg.Embedding.ModelPath, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"backend", "storage:\n  backend: postgres\n"},
		{"driver", "storage:\n  driver: odbc\n"},
		{"provider", "embedding:\n  provider: openai\n"},
		{"index type", "search:\n  index_type: faiss\n"},
		{"port", "server:\n  port: 70000\n"},
		{"yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.Driver != DriverCGO {
		t.Errorf("default storage: got %+v", cfg.Storage)
	}
	if cfg.Embedding.Provider != ProviderONNX || cfg.Embedding.Dimensions != 384 {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if cfg.Search.K != 5 || cfg.Search.IndexType != "kdtree" {
		t.Errorf("default search: got %+v", cfg.Search)
	}
	if len(cfg.Parser.Excludes) != len(DefaultExcludes) {
		t.Errorf("default excludes: got %v", cfg.Parser.Excludes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.Server.Address() != "127.0.0.1:8080" {
		t.Errorf("Address: got %s", cfg.Server.Address())
	}
}

func TestApplyDefaults_keepsExplicitEmptyExcludes(t *testing.T) {
	cfg := &Config{Parser: ParserConfig{Excludes: []string{}}}
	ApplyDefaults(cfg)
	if len(cfg.Parser.Excludes) != 0 {
		t.Errorf("explicit empty excludes should stay empty, got %v", cfg.Parser.Excludes)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Storage.DatabasePath = "/tmp/db"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Embedding.Timeout != cfg.Embedding.Timeout {
		t.Errorf("timeout round trip: got %v, want %v", loaded.Embedding.Timeout, cfg.Embedding.Timeout)
	}
}
