package motionplan

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/bolt/statespace"
)

func TestNearestNeighbor(t *testing.T) {
	space, err := statespace.NewRealVectorSpace([]float64{0}, []float64{2000})
	test.That(t, err, test.ShouldBeNil)
	nm := &neighborManager{nCPU: 2}

	var motions []motion
	// Fewer than neighborsBeforeParallelization candidates are evaluated in series.
	for i := 1.0; i < 110.0; i++ {
		motions = append(motions, motion{state: statespace.State{i}})
	}
	nn := nm.nearestNeighbor(space, motions, statespace.State{23.1})
	test.That(t, motions[nn.idx].state[0], test.ShouldAlmostEqual, 23.0)
	test.That(t, nn.dist, test.ShouldAlmostEqual, 0.1)

	// Trip the threshold so the scan is split across nCPU goroutines.
	for i := 120.0; i < 1100.0; i++ {
		motions = append(motions, motion{state: statespace.State{i}})
	}
	nn = nm.nearestNeighbor(space, motions, statespace.State{723.6})
	test.That(t, motions[nn.idx].state[0], test.ShouldAlmostEqual, 724.0)

	// Ties resolve to the earliest motion regardless of which worker saw it.
	motions = append(motions, motion{state: statespace.State{724}})
	nn = nm.parallelNearestNeighbor(space, motions, statespace.State{724})
	test.That(t, motions[nn.idx].state[0], test.ShouldEqual, 724.0)
	test.That(t, nn.idx, test.ShouldBeLessThan, len(motions)-1)

	nn = nm.nearestNeighbor(space, nil, statespace.State{1})
	test.That(t, nn.idx, test.ShouldEqual, noMotion)
}
