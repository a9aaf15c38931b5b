package config

import "time"

const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"

	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"

	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// DefaultExcludes are skipped by the parser unless the config sets its own list.
var DefaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*_test.go",
	"**/*.min.js",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverCGO
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/blockdex/db/blocks.sqlite"
	}
	if cfg.Storage.BoltPath == "" {
		cfg.Storage.BoltPath = "/usr/local/var/blockdex/db/blocks.bolt"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/blockdex/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = "http://localhost:11434"
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "all-minilm"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 120 * time.Second
	}
	if cfg.Search.K == 0 {
		cfg.Search.K = 5
	}
	if cfg.Search.IndexType == "" {
		cfg.Search.IndexType = "kdtree"
	}
	if cfg.Parser.Excludes == nil {
		cfg.Parser.Excludes = append([]string(nil), DefaultExcludes...)
	}
	if cfg.Parser.MaxFileBytes == 0 {
		cfg.Parser.MaxFileBytes = 1 << 20
	}
}
