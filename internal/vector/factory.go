package vector

import "fmt"

// IndexType selects the SpatialIndex implementation built per query.
type IndexType string

const (
	// IndexTypeKDTree builds a balanced k-d tree. Default.
	IndexTypeKDTree IndexType = "kdtree"
	// IndexTypeBruteForce scans every point. Same results, no build cost.
	IndexTypeBruteForce IndexType = "bruteforce"
)

// Build creates a spatial index of the given type over points.
// Supported types: "kdtree" (default), "bruteforce".
func Build(indexType string, points []Point) (SpatialIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeKDTree, "":
		return BuildKDTree(points)
	case IndexTypeBruteForce:
		return BuildBruteForce(points)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: kdtree, bruteforce)", indexType)
	}
}

// ValidIndexType reports whether Build accepts indexType.
func ValidIndexType(indexType string) bool {
	switch IndexType(indexType) {
	case IndexTypeKDTree, IndexTypeBruteForce, "":
		return true
	}
	return false
}
