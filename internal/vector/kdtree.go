package vector

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/hyperjump/blockdex/internal/models"
)

// KDTree is a balanced k-d tree over a fixed point set. It is built once and never mutated,
// so concurrent queries are safe.
type KDTree struct {
	points []Point
	nodes  []kdNode
	root   int
	dim    int
}

type kdNode struct {
	point int // position in points
	axis  int
	left  int // node index, -1 when empty
	right int
}

// BuildKDTree builds a tree over points. Each node splits on the axis with the widest
// spread among its points, at the median ordered by (coordinate, input position).
func BuildKDTree(points []Point) (*KDTree, error) {
	dim, err := checkDims(points)
	if err != nil {
		return nil, err
	}
	t := &KDTree{
		points: points,
		nodes:  make([]kdNode, 0, len(points)),
		dim:    dim,
	}
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	t.root = t.build(order)
	return t, nil
}

func (t *KDTree) build(order []int) int {
	if len(order) == 0 {
		return -1
	}
	axis := t.widestAxis(order)
	sort.Slice(order, func(i, j int) bool {
		a := t.points[order[i]].Coordinates[axis]
		b := t.points[order[j]].Coordinates[axis]
		if a != b {
			return a < b
		}
		return order[i] < order[j]
	})
	mid := len(order) / 2
	id := len(t.nodes)
	t.nodes = append(t.nodes, kdNode{point: order[mid], axis: axis, left: -1, right: -1})
	left := t.build(order[:mid])
	right := t.build(order[mid+1:])
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

func (t *KDTree) widestAxis(order []int) int {
	best, bestSpread := 0, -1.0
	for axis := 0; axis < t.dim; axis++ {
		lo := t.points[order[0]].Coordinates[axis]
		hi := lo
		for _, i := range order[1:] {
			v := t.points[i].Coordinates[axis]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if spread := float64(hi) - float64(lo); spread > bestSpread {
			best, bestSpread = axis, spread
		}
	}
	return best
}

// Type returns the index type identifier.
func (t *KDTree) Type() string {
	return string(IndexTypeKDTree)
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int {
	return len(t.points)
}

// Nearest returns the closest point to query, or ErrEmptyIndex when the tree is empty.
func (t *KDTree) Nearest(query Point) (Point, error) {
	res, err := t.KNearest(query, 1)
	if err != nil {
		return Point{}, err
	}
	if len(res) == 0 {
		return Point{}, fmt.Errorf("nearest: %w", models.ErrEmptyIndex)
	}
	return res[0], nil
}

// KNearest returns the min(k, Len()) closest points in ascending distance order.
func (t *KDTree) KNearest(query Point, k int) ([]Point, error) {
	if err := checkQuery(query, t.dim, len(t.points)); err != nil {
		return nil, err
	}
	if k <= 0 || len(t.points) == 0 {
		return []Point{}, nil
	}
	if k > len(t.points) {
		k = len(t.points)
	}
	h := make(farthestFirst, 0, k)
	t.search(t.root, query.Coordinates, k, &h)

	result := make([]Point, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		n := heap.Pop(&h).(neighbor)
		result[i] = t.points[n.idx]
	}
	return result, nil
}

func (t *KDTree) search(id int, q []float32, k int, h *farthestFirst) {
	if id < 0 {
		return
	}
	node := t.nodes[id]
	p := t.points[node.point]
	cand := neighbor{idx: node.point, dist: SquaredDistance(q, p.Coordinates)}
	if h.Len() < k {
		heap.Push(h, cand)
	} else if closer(cand, (*h)[0]) {
		(*h)[0] = cand
		heap.Fix(h, 0)
	}

	diff := float64(q[node.axis]) - float64(p.Coordinates[node.axis])
	near, far := node.left, node.right
	if diff >= 0 {
		near, far = node.right, node.left
	}
	t.search(near, q, k, h)
	// Points beyond the split plane are at least diff² away. Equal distance is still
	// visited so that ties resolve by input position.
	if h.Len() < k || diff*diff <= (*h)[0].dist {
		t.search(far, q, k, h)
	}
}

// farthestFirst is a max-heap of candidates; the root is the worst kept neighbor.
type farthestFirst []neighbor

func (h farthestFirst) Len() int            { return len(h) }
func (h farthestFirst) Less(i, j int) bool  { return closer(h[j], h[i]) }
func (h farthestFirst) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *farthestFirst) Push(x interface{}) { *h = append(*h, x.(neighbor)) }
func (h *farthestFirst) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
