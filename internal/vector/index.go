// Package vector provides exact nearest-neighbor indexes over embedded code points.
package vector

import (
	"fmt"

	"github.com/hyperjump/blockdex/internal/models"
)

// Point is a fixed-dimension embedding paired with the text it was computed from.
type Point struct {
	Coordinates []float32
	Text        string
}

// NewPoint builds a Point, rejecting coordinates whose length is not dim.
func NewPoint(coords []float32, text string, dim int) (Point, error) {
	if len(coords) != dim {
		return Point{}, fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(coords), dim)
	}
	return Point{Coordinates: coords, Text: text}, nil
}

// Dim returns the number of coordinates.
func (p Point) Dim() int {
	return len(p.Coordinates)
}

// SpatialIndex answers exact nearest-neighbor queries by Euclidean distance.
// Results are ordered by ascending distance; equal distances keep build order.
type SpatialIndex interface {
	Nearest(query Point) (Point, error)
	KNearest(query Point, k int) ([]Point, error)
	Len() int
	Type() string
}

// neighbor is a candidate result: a point position and its squared distance to the query.
type neighbor struct {
	idx  int
	dist float64
}

// closer orders candidates by distance, then by position in the build input.
func closer(a, b neighbor) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.idx < b.idx
}

func checkDims(points []Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	dim := points[0].Dim()
	for i, p := range points {
		if p.Dim() != dim {
			return 0, fmt.Errorf("%w: point %d has %d coordinates, expected %d", models.ErrDimensionMismatch, i, p.Dim(), dim)
		}
	}
	return dim, nil
}

func checkQuery(query Point, dim, n int) error {
	if n > 0 && query.Dim() != dim {
		return fmt.Errorf("%w: query has %d coordinates, index has %d", models.ErrDimensionMismatch, query.Dim(), dim)
	}
	return nil
}
