package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/blockdex/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and for running without a model.
// Each code token is hashed into one signed coordinate, so blocks that share identifiers
// land near each other. The same text always gets the same unit-length vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder producing vectors of the given dimensions (384 if not positive).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed hashes the tokens of text into a vector.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	// weak whole-text term: texts with the same token bag still differ
	seed := HashString(text)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(seed*(i+1)))) * 0.05
	}
	for _, tok := range SplitCodeTokens(text) {
		h := uint(HashString(tok))
		sign := float32(1)
		if h&1 == 1 {
			sign = -1
		}
		emb[(h>>1)%uint(e.dimensions)] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text in order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (e *MockEmbedder) Dimensions() int { return e.dimensions }

func (e *MockEmbedder) Close() error { return nil }
