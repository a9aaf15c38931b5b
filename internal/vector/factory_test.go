package vector

import (
	"errors"
	"testing"

	"github.com/hyperjump/blockdex/internal/models"
)

func TestBuild_Types(t *testing.T) {
	for _, typ := range []string{"", "kdtree", "bruteforce"} {
		idx, err := Build(typ, toyPoints())
		if err != nil {
			t.Fatalf("Build(%q): %v", typ, err)
		}
		if idx.Len() != 3 {
			t.Errorf("Build(%q): Len=%d, want 3", typ, idx.Len())
		}
		best, err := idx.Nearest(Point{Coordinates: []float32{0.9, 0.1}})
		if err != nil {
			t.Fatal(err)
		}
		if best.Text != "b" {
			t.Errorf("Build(%q): nearest %q, want b", typ, best.Text)
		}
	}
}

func TestBuild_DefaultIsKDTree(t *testing.T) {
	idx, _ := Build("", nil)
	if idx.Type() != string(IndexTypeKDTree) {
		t.Errorf("Type=%s, want kdtree", idx.Type())
	}
}

func TestBuild_Unknown(t *testing.T) {
	if _, err := Build("faiss", toyPoints()); err == nil {
		t.Error("expected error for unknown index type")
	}
	if ValidIndexType("faiss") {
		t.Error("faiss should not be a valid index type")
	}
}

func TestBruteForce_Empty(t *testing.T) {
	idx, _ := BuildBruteForce(nil)
	if _, err := idx.Nearest(Point{Coordinates: []float32{0}}); !errors.Is(err, models.ErrEmptyIndex) {
		t.Errorf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint([]float32{1, 2, 3}, "x", 3)
	if err != nil {
		t.Fatal(err)
	}
	if p.Dim() != 3 || p.Text != "x" {
		t.Errorf("unexpected point %+v", p)
	}
	if _, err := NewPoint([]float32{1, 2}, "x", 3); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSquaredDistance(t *testing.T) {
	if d := SquaredDistance([]float32{0, 0}, []float32{3, 4}); d != 25 {
		t.Errorf("SquaredDistance=%v, want 25", d)
	}
	if d := Distance([]float32{0, 0}, []float32{3, 4}); d != 5 {
		t.Errorf("Distance=%v, want 5", d)
	}
}
