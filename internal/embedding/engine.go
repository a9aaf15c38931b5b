package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/vector"
)

// Engine converts code text into vector points using an injected Embedder.
// It holds no mutable state and is safe for concurrent use if the Embedder is.
type Engine struct {
	embedder   Embedder
	dimensions int
}

// NewEngine wraps embedder. When dimensions is not positive the embedder's own dimension is used.
func NewEngine(embedder Embedder, dimensions int) *Engine {
	if dimensions <= 0 {
		dimensions = embedder.Dimensions()
	}
	return &Engine{embedder: embedder, dimensions: dimensions}
}

// Dimensions returns the vector length every point produced by the engine has.
func (e *Engine) Dimensions() int {
	return e.dimensions
}

// Provider names the embedder in use (see ProviderName).
func (e *Engine) Provider() string {
	return ProviderName(e.embedder)
}

// EmbedOne embeds text as a single-element batch.
func (e *Engine) EmbedOne(ctx context.Context, text string) (vector.Point, error) {
	points, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return vector.Point{}, err
	}
	return points[0], nil
}

// EmbedMany embeds texts in one capability call. result[i] corresponds to texts[i].
// Any failure, including a single vector of the wrong length, fails the whole batch.
func (e *Engine) EmbedMany(ctx context.Context, texts []string) ([]vector.Point, error) {
	if len(texts) == 0 {
		return []vector.Point{}, nil
	}
	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailure, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", models.ErrEmbeddingFailure, len(texts), len(vecs))
	}
	points := make([]vector.Point, len(texts))
	for i, v := range vecs {
		p, err := vector.NewPoint(v, texts[i], e.dimensions)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding %d: %w", models.ErrEmbeddingFailure, i, err)
		}
		points[i] = p
	}
	return points, nil
}

// Close releases the underlying embedder.
func (e *Engine) Close() error {
	return e.embedder.Close()
}
