package viz

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
	"go.viam.com/bolt/statespace"
)

var _ bolt.Visualizer = (*Plotter)(nil)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func TestPlotterRendersSolve(t *testing.T) {
	logger := logging.NewTestLogger(t)
	space, err := statespace.NewRealVectorSpace([]float64{0, 0}, []float64{10, 10})
	test.That(t, err, test.ShouldBeNil)
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(4, 0, 6, 7)
	si := statespace.NewInfo(space)
	si.SetValidityChecker(obstacles)

	b, err := bolt.New(si, logger, nil)
	test.That(t, err, test.ShouldBeNil)
	graph := b.Roadmap()
	v0 := graph.AddVertex(statespace.State{2, 8})
	v1 := graph.AddVertex(statespace.State{8, 8})
	test.That(t, graph.AddEdge(v0, v1), test.ShouldBeNil)

	dir := t.TempDir()
	p := NewPlotter(dir, "bolt", logger)
	p.SetRoadmap(graph)
	p.SetObstacles(obstacles)
	b.SetVisualizer(p)
	test.That(t, p.LastFile(), test.ShouldEqual, "")

	b.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 1}, 0)
	status, err := b.Solve(context.Background(), motionplan.IterationTermination(20000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, motionplan.ExactSolution)

	test.That(t, p.LastFile(), test.ShouldEqual, filepath.Join(dir, "bolt_000.png"))
	//nolint:gosec
	content, err := os.ReadFile(p.LastFile())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bytes.HasPrefix(content, pngSignature), test.ShouldBeTrue)

	// frames are numbered
	p.State(statespace.State{5, 9})
	test.That(t, p.Trigger(), test.ShouldBeNil)
	test.That(t, p.LastFile(), test.ShouldEqual, filepath.Join(dir, "bolt_001.png"))
}

func TestPlotterRejectsLineStates(t *testing.T) {
	p := NewPlotter(t.TempDir(), "line", logging.NewTestLogger(t))
	space, err := statespace.NewRealVectorSpace([]float64{0}, []float64{1})
	test.That(t, err, test.ShouldBeNil)
	p.Path(motionplan.NewPath(space, statespace.State{0}, statespace.State{1}))
	test.That(t, p.Trigger(), test.ShouldBeError, errNotPlanar)
	test.That(t, p.LastFile(), test.ShouldEqual, "")
}
