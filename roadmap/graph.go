// Package roadmap holds a sparse graph over a state space. Planners use it read-only, as a source
// of nearby states to bias their sampling; its contents are persisted through a Storage.
package roadmap

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/statespace"
)

// VertexID identifies a vertex of a SparseGraph.
type VertexID int

// Edge is an undirected edge weighted by the distance between its vertices.
type Edge struct {
	A      VertexID `json:"a"`
	B      VertexID `json:"b"`
	Weight float64  `json:"weight"`
}

var (
	errUnknownVertex = errors.New("unknown vertex")
	errSelfLoop      = errors.New("edge endpoints must differ")
	errNoStorage     = errors.New("no roadmap storage configured")
)

// SparseGraph is a roadmap of states connected by edges. Queries take a read lock and may run
// concurrently as long as every caller passes its own Query.
type SparseGraph struct {
	mu     sync.RWMutex
	space  statespace.Space
	logger logging.Logger

	id        uuid.UUID
	states    []statespace.State
	adjacency []map[VertexID]float64
	edges     []Edge

	criteria Criteria
	// nil when the space is not euclidean
	index *kdtree.Tree

	storage Storage
	changed bool
	setup   bool
}

// NewSparseGraph returns an empty roadmap over space.
func NewSparseGraph(space statespace.Space, logger logging.Logger) *SparseGraph {
	return &SparseGraph{
		space:    space,
		logger:   logger,
		id:       uuid.New(),
		criteria: NewDefaultCriteria(),
	}
}

// Setup prepares the nearest neighbor index.
func (g *SparseGraph) Setup() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.criteria.StretchFactor <= 1 {
		return errors.Errorf("stretch factor must be greater than 1, got %f", g.criteria.StretchFactor)
	}
	g.rebuildIndex()
	g.setup = true
	return nil
}

// IsSetup returns whether Setup has run.
func (g *SparseGraph) IsSetup() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.setup
}

// ID returns the identifier of the roadmap. It is persisted with the graph.
func (g *SparseGraph) ID() uuid.UUID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

// Space returns the space the roadmap lives in.
func (g *SparseGraph) Space() statespace.Space {
	return g.space
}

// Criteria returns the quality parameters of the roadmap.
func (g *SparseGraph) Criteria() Criteria {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.criteria
}

// SetCriteria replaces the quality parameters of the roadmap.
func (g *SparseGraph) SetCriteria(c Criteria) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.criteria = c
}

// SparseDelta is the sparse delta fraction scaled by the space's maximum extent.
func (g *SparseGraph) SparseDelta() float64 {
	return g.Criteria().SparseDelta(g.space)
}

// AddVertex copies state into a new vertex.
func (g *SparseGraph) AddVertex(state statespace.State) VertexID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addVertexLocked(g.space.CloneState(state))
}

func (g *SparseGraph) addVertexLocked(state statespace.State) VertexID {
	id := VertexID(len(g.states))
	g.states = append(g.states, state)
	g.adjacency = append(g.adjacency, map[VertexID]float64{})
	if g.index != nil {
		g.index.Insert(vertexPoint{id: id, coords: state}, false)
	}
	g.changed = true
	return id
}

// AddEdge connects two existing vertices. Adding an existing edge again is a no-op.
func (g *SparseGraph) AddEdge(a, b VertexID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasVertexLocked(a) || !g.hasVertexLocked(b) {
		return errors.Wrapf(errUnknownVertex, "edge %d-%d", a, b)
	}
	if a == b {
		return errSelfLoop
	}
	if _, ok := g.adjacency[a][b]; ok {
		return nil
	}
	weight := g.space.Distance(g.states[a], g.states[b])
	g.adjacency[a][b] = weight
	g.adjacency[b][a] = weight
	g.edges = append(g.edges, Edge{A: a, B: b, Weight: weight})
	g.changed = true
	return nil
}

func (g *SparseGraph) hasVertexLocked(v VertexID) bool {
	return v >= 0 && int(v) < len(g.states)
}

// NumVertices returns the number of vertices.
func (g *SparseGraph) NumVertices() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.states)
}

// NumEdges returns the number of edges.
func (g *SparseGraph) NumEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// IsEmpty returns whether the roadmap has no vertices.
func (g *SparseGraph) IsEmpty() bool {
	return g.NumVertices() == 0
}

// VertexState returns the state of a vertex. The returned state is owned by the graph and must
// not be modified. It is nil for unknown vertices.
func (g *SparseGraph) VertexState(v VertexID) statespace.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.hasVertexLocked(v) {
		return nil
	}
	return g.states[v]
}

// Neighbors returns the vertices adjacent to v.
func (g *SparseGraph) Neighbors(v VertexID) []VertexID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.hasVertexLocked(v) {
		return nil
	}
	out := make([]VertexID, 0, len(g.adjacency[v]))
	for n := range g.adjacency[v] {
		out = append(out, n)
	}
	return out
}

// Edges returns a copy of the edge list in insertion order.
func (g *SparseGraph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge{}, g.edges...)
}

// Clear removes every vertex and edge. The roadmap gets a new ID.
func (g *SparseGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
	g.changed = true
}

func (g *SparseGraph) clearLocked() {
	g.id = uuid.New()
	g.states = nil
	g.adjacency = nil
	g.edges = nil
	g.rebuildIndex()
}

// SetStorage sets the backend used by Save and Load.
func (g *SparseGraph) SetStorage(storage Storage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.storage = storage
}

// Storage returns the configured backend, if any.
func (g *SparseGraph) Storage() Storage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.storage
}

// Save writes the roadmap to its storage.
func (g *SparseGraph) Save(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveLocked(ctx)
}

// SaveIfChanged saves only when the roadmap was modified since the last save or load.
func (g *SparseGraph) SaveIfChanged(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.changed {
		g.logger.Debug("roadmap unchanged, not saving")
		return nil
	}
	return g.saveLocked(ctx)
}

func (g *SparseGraph) saveLocked(ctx context.Context) error {
	if g.storage == nil {
		return errNoStorage
	}
	snap := &Snapshot{
		ID:        g.id.String(),
		Dimension: g.space.Dimension(),
		Criteria:  g.criteria,
		Vertices:  make([][]float64, len(g.states)),
		Edges:     append([]Edge{}, g.edges...),
	}
	for i, s := range g.states {
		snap.Vertices[i] = s
	}
	if err := g.storage.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "saving roadmap")
	}
	g.logger.Infof("saved roadmap %s with %d vertices and %d edges", snap.ID, len(snap.Vertices), len(snap.Edges))
	g.changed = false
	return nil
}

// Load replaces the contents of the roadmap with the snapshot held by its storage. It returns
// false without error when the storage holds no snapshot.
func (g *SparseGraph) Load(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.storage == nil {
		return false, errNoStorage
	}
	snap, err := g.storage.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		g.logger.Infof("no roadmap found in %s", g.storage)
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "loading roadmap")
	}
	if snap.Dimension != g.space.Dimension() {
		return false, errors.Errorf("roadmap has dimension %d, space has %d", snap.Dimension, g.space.Dimension())
	}
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		return false, errors.Wrap(err, "roadmap id")
	}

	states := make([]statespace.State, 0, len(snap.Vertices))
	adjacency := make([]map[VertexID]float64, 0, len(snap.Vertices))
	for i, v := range snap.Vertices {
		if len(v) != snap.Dimension {
			return false, errors.Errorf("vertex %d has dimension %d", i, len(v))
		}
		states = append(states, statespace.State(v))
		adjacency = append(adjacency, map[VertexID]float64{})
	}
	for _, e := range snap.Edges {
		if e.A < 0 || e.B < 0 || int(e.A) >= len(states) || int(e.B) >= len(states) {
			return false, errors.Wrapf(errUnknownVertex, "loaded edge %d-%d", e.A, e.B)
		}
		adjacency[e.A][e.B] = e.Weight
		adjacency[e.B][e.A] = e.Weight
	}

	g.id = id
	g.criteria = snap.Criteria
	g.states = states
	g.adjacency = adjacency
	g.edges = snap.Edges
	g.rebuildIndex()
	g.changed = false
	g.logger.Infof("loaded roadmap %s with %d vertices and %d edges", snap.ID, len(g.states), len(g.edges))
	return true, nil
}
