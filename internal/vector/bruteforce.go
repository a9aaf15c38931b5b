package vector

import (
	"fmt"
	"sort"

	"github.com/hyperjump/blockdex/internal/models"
)

// BruteForce is an exact linear-scan index. It orders results exactly like KDTree
// and is used as a reference and for very small projects.
type BruteForce struct {
	points []Point
	dim    int
}

// BuildBruteForce returns a linear-scan index over points. The slice is not copied.
func BuildBruteForce(points []Point) (*BruteForce, error) {
	dim, err := checkDims(points)
	if err != nil {
		return nil, err
	}
	return &BruteForce{points: points, dim: dim}, nil
}

// Type returns the index type identifier.
func (b *BruteForce) Type() string {
	return string(IndexTypeBruteForce)
}

// Len returns the number of indexed points.
func (b *BruteForce) Len() int {
	return len(b.points)
}

// Nearest returns the closest point to query.
func (b *BruteForce) Nearest(query Point) (Point, error) {
	res, err := b.KNearest(query, 1)
	if err != nil {
		return Point{}, err
	}
	if len(res) == 0 {
		return Point{}, fmt.Errorf("nearest: %w", models.ErrEmptyIndex)
	}
	return res[0], nil
}

// KNearest scores every point and returns the min(k, Len()) closest.
func (b *BruteForce) KNearest(query Point, k int) ([]Point, error) {
	if err := checkQuery(query, b.dim, len(b.points)); err != nil {
		return nil, err
	}
	if k <= 0 || len(b.points) == 0 {
		return []Point{}, nil
	}
	scores := make([]neighbor, len(b.points))
	for i, p := range b.points {
		scores[i] = neighbor{idx: i, dist: SquaredDistance(query.Coordinates, p.Coordinates)}
	}
	sort.Slice(scores, func(i, j int) bool { return closer(scores[i], scores[j]) })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]Point, k)
	for i := 0; i < k; i++ {
		result[i] = b.points[scores[i].idx]
	}
	return result, nil
}
