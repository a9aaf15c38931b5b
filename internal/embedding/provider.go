package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/config"
)

// NewFromConfig builds the embedder selected by cfg.Provider. The model is loaded once here
// and shared by every request. When the ONNX runtime is unavailable it falls back to the mock
// embedder and logs a warning, so the server still starts.
func NewFromConfig(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	case config.ProviderOllama:
		logger.Info("using ollama embedder",
			zap.String("url", cfg.OllamaURL),
			zap.String("model", cfg.OllamaModel))
		return NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel, cfg.Dimensions, cfg.CacheSize, cfg.Timeout), nil
	case config.ProviderONNX, "":
		e, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			CacheSize:  cfg.CacheSize,
			OutputName: cfg.OutputName,
		})
		if err != nil {
			logger.Warn("onnx embedder unavailable, falling back to mock embeddings",
				zap.String("model_path", cfg.ModelPath),
				zap.Error(err))
			return NewMockEmbedder(cfg.Dimensions), nil
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// ProviderName reports which provider e actually is. It differs from the configured provider
// when NewFromConfig fell back to the mock embedder.
func ProviderName(e Embedder) string {
	switch e.(type) {
	case *MockEmbedder:
		return config.ProviderMock
	case *OllamaEmbedder:
		return config.ProviderOllama
	case *ONNXEmbedder:
		return config.ProviderONNX
	default:
		return "custom"
	}
}
