package main

import (
	"context"

	"go.viam.com/bolt/motionplan"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
)

// seedLattice fills graph with the valid points of a square lattice, joining lattice neighbors
// whose motion is valid.
func seedLattice(si *statespace.Info, graph *roadmap.SparseGraph, spacing float64) error {
	n := int(worldSize / spacing)
	ids := make([][]roadmap.VertexID, n)
	for i := range ids {
		ids[i] = make([]roadmap.VertexID, n)
		for j := range ids[i] {
			ids[i][j] = -1
			s := statespace.State{spacing/2 + float64(i)*spacing, spacing/2 + float64(j)*spacing}
			if si.IsValid(s) {
				ids[i][j] = graph.AddVertex(s)
			}
		}
	}
	connect := func(a, b roadmap.VertexID) error {
		if a < 0 || b < 0 || !si.CheckMotion(graph.VertexState(a), graph.VertexState(b)) {
			return nil
		}
		return graph.AddEdge(a, b)
	}
	for i := range ids {
		for j := range ids[i] {
			if i+1 < n {
				if err := connect(ids[i][j], ids[i+1][j]); err != nil {
					return err
				}
			}
			if j+1 < n {
				if err := connect(ids[i][j], ids[i][j+1]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// chainInserter adds a solution path to the roadmap as a chain of vertices. A path state closer than
// the roadmap's sparse delta to an existing vertex reuses that vertex.
type chainInserter struct {
	si    *statespace.Info
	graph *roadmap.SparseGraph
	query *roadmap.Query
}

func newChainInserter(si *statespace.Info, graph *roadmap.SparseGraph) *chainInserter {
	return &chainInserter{si: si, graph: graph, query: roadmap.NewQuery()}
}

func (ci *chainInserter) InsertPath(ctx context.Context, path *motionplan.Path) error {
	space := ci.si.Space()
	delta := ci.graph.SparseDelta()
	prev := roadmap.VertexID(-1)
	for _, s := range path.States() {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := roadmap.VertexID(-1)
		if nearest := ci.graph.NearestK(ci.query, s, 1); len(nearest) == 1 {
			if space.Distance(ci.graph.VertexState(nearest[0]), s) < delta {
				v = nearest[0]
			}
		}
		if v < 0 {
			v = ci.graph.AddVertex(s)
		}
		if prev >= 0 && prev != v && ci.si.CheckMotion(ci.graph.VertexState(prev), ci.graph.VertexState(v)) {
			if err := ci.graph.AddEdge(prev, v); err != nil {
				return err
			}
		}
		prev = v
	}
	return nil
}
