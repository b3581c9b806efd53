package roadmap

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/bolt/statespace"
)

// vertexPoint is a roadmap vertex as stored in the kd-tree.
type vertexPoint struct {
	id     VertexID
	coords statespace.State
}

func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coords[d] - c.(vertexPoint).coords[d]
}

func (p vertexPoint) Dims() int {
	return len(p.coords)
}

// Distance is the squared euclidean distance, as the kd-tree prunes on squared plane offsets.
func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(vertexPoint)
	var sum float64
	for i, v := range p.coords {
		d := v - q.coords[i]
		sum += d * d
	}
	return sum
}

type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable {
	return p[i]
}

func (p vertexPoints) Len() int {
	return len(p)
}

func (p vertexPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p vertexPoints) Pivot(d kdtree.Dim) int {
	sort.Sort(vertexPlane{points: p, dim: d})
	return len(p) / 2
}

type vertexPlane struct {
	points vertexPoints
	dim    kdtree.Dim
}

func (p vertexPlane) Len() int {
	return len(p.points)
}

func (p vertexPlane) Less(i, j int) bool {
	return p.points[i].coords[p.dim] < p.points[j].coords[p.dim]
}

func (p vertexPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// rebuildIndex builds a balanced kd-tree over the current vertices. Must hold the write lock.
func (g *SparseGraph) rebuildIndex() {
	if !statespace.IsEuclidean(g.space) {
		g.index = nil
		return
	}
	points := make(vertexPoints, len(g.states))
	for i, s := range g.states {
		points[i] = vertexPoint{id: VertexID(i), coords: s}
	}
	g.index = kdtree.New(points, false)
}

// Query is the scratch space of a nearest neighbor search. A Query must not be shared between
// goroutines; each concurrent caller owns one.
type Query struct {
	keeper *kdtree.NKeeper
	found  []candidate
	out    []VertexID
}

type candidate struct {
	id   VertexID
	dist float64
}

// NewQuery returns an empty query scratch.
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) resetKeeper(k int) *kdtree.NKeeper {
	if q.keeper == nil || cap(q.keeper.Heap) != k {
		q.keeper = kdtree.NewNKeeper(k)
		return q.keeper
	}
	q.keeper.Heap = q.keeper.Heap[:1]
	q.keeper.Heap[0] = kdtree.ComparableDist{Dist: math.Inf(1)}
	return q.keeper
}

// NearestK returns up to k vertices ordered by increasing distance to state. The returned slice is
// backed by q and is only valid until q is used again.
func (g *SparseGraph) NearestK(q *Query, state statespace.State, k int) []VertexID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	q.found = q.found[:0]
	q.out = q.out[:0]
	if k <= 0 || len(g.states) == 0 {
		return q.out
	}
	if k > len(g.states) {
		k = len(g.states)
	}

	if g.index != nil {
		keeper := q.resetKeeper(k)
		g.index.NearestSet(keeper, vertexPoint{id: -1, coords: state})
		for _, cd := range keeper.Heap {
			if cd.Comparable == nil {
				continue
			}
			q.found = append(q.found, candidate{id: cd.Comparable.(vertexPoint).id, dist: cd.Dist})
		}
	} else {
		for i, s := range g.states {
			q.found = append(q.found, candidate{id: VertexID(i), dist: g.space.Distance(state, s)})
		}
	}

	sort.Slice(q.found, func(i, j int) bool {
		if q.found[i].dist == q.found[j].dist {
			return q.found[i].id < q.found[j].id
		}
		return q.found[i].dist < q.found[j].dist
	})
	if len(q.found) > k {
		q.found = q.found[:k]
	}
	for _, c := range q.found {
		q.out = append(q.out, c.id)
	}
	return q.out
}
