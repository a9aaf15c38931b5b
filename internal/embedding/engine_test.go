package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/vector"
)

// stubEmbedder returns canned vectors or a canned error.
type stubEmbedder struct {
	dims  int
	vecs  [][]float32
	err   error
	calls int
	last  []string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.last = texts
	if s.err != nil {
		return nil, s.err
	}
	return s.vecs, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Close() error    { return nil }

func TestEngine_EmbedManyPreservesOrder(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(16)
	engine := NewEngine(mock, 16)

	texts := []string{"func a() {}", "func b() {}", "func c() {}"}
	points, err := engine.EmbedMany(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != len(texts) {
		t.Fatalf("got %d points, want %d", len(points), len(texts))
	}
	for i, p := range points {
		if p.Text != texts[i] {
			t.Errorf("point %d text = %q, want %q", i, p.Text, texts[i])
		}
		want, _ := mock.Embed(ctx, texts[i])
		for j := range want {
			if p.Coordinates[j] != want[j] {
				t.Fatalf("point %d coordinate %d differs from single embedding", i, j)
			}
		}
	}
}

func TestEngine_EmbedOneUsesSingleElementBatch(t *testing.T) {
	stub := &stubEmbedder{dims: 2, vecs: [][]float32{{0.6, 0.8}}}
	engine := NewEngine(stub, 2)
	p, err := engine.EmbedOne(context.Background(), "query")
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 1 || len(stub.last) != 1 || stub.last[0] != "query" {
		t.Errorf("expected one batch call with [query], got %d calls with %v", stub.calls, stub.last)
	}
	if p.Text != "query" || p.Coordinates[1] != 0.8 {
		t.Errorf("unexpected point %+v", p)
	}
}

func TestEngine_CapabilityError(t *testing.T) {
	stub := &stubEmbedder{dims: 2, err: errors.New("model crashed")}
	engine := NewEngine(stub, 2)
	points, err := engine.EmbedMany(context.Background(), []string{"a", "b"})
	if !errors.Is(err, models.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
	if points != nil {
		t.Error("no partial results on failure")
	}
}

func TestEngine_WrongDimension(t *testing.T) {
	stub := &stubEmbedder{dims: 3, vecs: [][]float32{{1, 2, 3}, {1, 2}}}
	engine := NewEngine(stub, 3)
	_, err := engine.EmbedMany(context.Background(), []string{"a", "b"})
	if !errors.Is(err, models.ErrEmbeddingFailure) {
		t.Errorf("expected ErrEmbeddingFailure, got %v", err)
	}
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch in chain, got %v", err)
	}
}

func TestEngine_CountMismatch(t *testing.T) {
	stub := &stubEmbedder{dims: 1, vecs: [][]float32{{1}}}
	engine := NewEngine(stub, 1)
	if _, err := engine.EmbedMany(context.Background(), []string{"a", "b"}); !errors.Is(err, models.ErrEmbeddingFailure) {
		t.Errorf("expected ErrEmbeddingFailure, got %v", err)
	}
}

func TestEngine_EmptyBatch(t *testing.T) {
	stub := &stubEmbedder{dims: 1}
	engine := NewEngine(stub, 0)
	points, err := engine.EmbedMany(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 0 || stub.calls != 0 {
		t.Errorf("empty batch should not call the embedder: %d points, %d calls", len(points), stub.calls)
	}
	if engine.Dimensions() != 1 {
		t.Errorf("dimensions should fall back to embedder: got %d", engine.Dimensions())
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(32)
	a, _ := e.Embed(ctx, "same text")
	b, _ := e.Embed(ctx, "same text")
	c, _ := e.Embed(ctx, "other text")
	if len(a) != 32 {
		t.Fatalf("len=%d", len(a))
	}
	same, diff := true, false
	for i := range a {
		if a[i] != b[i] {
			same = false
		}
		if a[i] != c[i] {
			diff = true
		}
	}
	if !same {
		t.Error("same text should embed identically")
	}
	if !diff {
		t.Error("different text should embed differently")
	}
}

func TestMockEmbedder_SharedTokensAreCloser(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(64)
	base, _ := e.Embed(ctx, "func parseConfig(path string) error { return loadYAML(path) }")
	near, _ := e.Embed(ctx, "func parseConfig(p string) error { return loadYAML(p) }")
	far, _ := e.Embed(ctx, "SELECT name FROM users WHERE id = 7")
	if vector.SquaredDistance(base, near) >= vector.SquaredDistance(base, far) {
		t.Error("texts sharing identifiers should embed closer than unrelated text")
	}
}
