package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/bolt/bolt"
	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/motionplan"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
)

var _ bolt.PathInserter = (*chainInserter)(nil)

func TestSeedLattice(t *testing.T) {
	si, _, err := newWorld()
	test.That(t, err, test.ShouldBeNil)
	graph := roadmap.NewSparseGraph(si.Space(), logging.NewTestLogger(t))
	test.That(t, seedLattice(si, graph, 1), test.ShouldBeNil)

	// 100 lattice points, 14 of them inside the walls
	test.That(t, graph.NumVertices(), test.ShouldEqual, 86)
	test.That(t, graph.NumEdges(), test.ShouldBeGreaterThan, 0)
	for _, e := range graph.Edges() {
		test.That(t, si.CheckMotion(graph.VertexState(e.A), graph.VertexState(e.B)), test.ShouldBeTrue)
		test.That(t, e.Weight, test.ShouldAlmostEqual, 1)
	}
}

func TestChainInserter(t *testing.T) {
	si, _, err := newWorld()
	test.That(t, err, test.ShouldBeNil)
	graph := roadmap.NewSparseGraph(si.Space(), logging.NewTestLogger(t))
	test.That(t, graph.Setup(), test.ShouldBeNil)
	inserter := newChainInserter(si, graph)

	path := motionplan.NewPath(si.Space(),
		statespace.State{1, 1},
		statespace.State{1, 9},
		statespace.State{5, 9},
	)
	test.That(t, inserter.InsertPath(context.Background(), path), test.ShouldBeNil)
	test.That(t, graph.NumVertices(), test.ShouldEqual, 3)
	test.That(t, graph.NumEdges(), test.ShouldEqual, 2)

	// states within the sparse delta of existing vertices are merged
	again := motionplan.NewPath(si.Space(), statespace.State{1.1, 1}, statespace.State{1, 8.9})
	test.That(t, inserter.InsertPath(context.Background(), again), test.ShouldBeNil)
	test.That(t, graph.NumVertices(), test.ShouldEqual, 3)
	test.That(t, graph.NumEdges(), test.ShouldEqual, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, inserter.InsertPath(ctx, path), test.ShouldBeError, context.Canceled)
}

func TestRunProblems(t *testing.T) {
	dir := t.TempDir()
	for _, storage := range []string{"file", "sqlite"} {
		t.Run(storage, func(t *testing.T) {
			basePath := filepath.Join(dir, storage)
			var out bytes.Buffer
			app := newApp()
			app.Writer = &out
			err := app.Run([]string{
				"bolt2d",
				"--problems", "4",
				"--parallel", "2",
				"--timeout", "10s",
				"--roadmap", basePath,
				"--storage", storage,
				"--png-dir", filepath.Join(dir, "png-"+storage),
			})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, bytes.Count(out.Bytes(), []byte("Bolt Framework Logging Results")), test.ShouldEqual, 2)

			ext := ".roadmap"
			if storage == "sqlite" {
				ext = ".db"
			}
			_, err = os.Stat(basePath + ext)
			test.That(t, err, test.ShouldBeNil)

			// a second run loads the saved roadmap instead of seeding a new one
			out.Reset()
			app = newApp()
			app.Writer = &out
			err = app.Run([]string{"bolt2d", "--problems", "1", "--roadmap", basePath, "--storage", storage})
			test.That(t, err, test.ShouldBeNil)
		})
	}
}

func TestRunProblemsRejectsBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"bolt2d", "--parallel", "0"},
		{"bolt2d", "--storage", "tape"},
	} {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		test.That(t, app.Run(args), test.ShouldNotBeNil)
	}
}
