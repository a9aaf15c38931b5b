// Package embedding turns code text into fixed-dimension vectors.
//
// An Embedder is the raw capability (ONNX Runtime, Ollama, or the deterministic mock).
// Engine wraps one and enforces the contract the index relies on: order-preserving,
// all-or-nothing batches with exactly the configured dimension.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
