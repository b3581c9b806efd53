package motionplan

import (
	"math"
	"runtime"
	"sync"

	"go.viam.com/bolt/statespace"
)

// Trees smaller than this are scanned on the calling goroutine.
const neighborsBeforeParallelization = 1000

type neighbor struct {
	dist float64
	idx  int
}

// closer orders neighbors by distance, then by insertion order.
func (n neighbor) closer(o neighbor) bool {
	if n.dist != o.dist {
		return n.dist < o.dist
	}
	return n.idx < o.idx
}

type neighborManager struct {
	nCPU int
}

func newNeighborManager() *neighborManager {
	return &neighborManager{nCPU: int(math.Max(1, float64(runtime.NumCPU()/4)))}
}

// nearestNeighbor returns the index of the motion closest to seed, the earliest one on ties.
func (nm *neighborManager) nearestNeighbor(
	space statespace.Space,
	motions []motion,
	seed statespace.State,
) neighbor {
	if len(motions) > neighborsBeforeParallelization && nm.nCPU > 1 {
		return nm.parallelNearestNeighbor(space, motions, seed)
	}
	return scanNearest(space, motions, seed, 0)
}

func scanNearest(space statespace.Space, motions []motion, seed statespace.State, offset int) neighbor {
	best := neighbor{dist: math.Inf(1), idx: noMotion}
	for i := range motions {
		if d := space.Distance(motions[i].state, seed); d < best.dist {
			best = neighbor{dist: d, idx: offset + i}
		}
	}
	return best
}

func (nm *neighborManager) parallelNearestNeighbor(
	space statespace.Space,
	motions []motion,
	seed statespace.State,
) neighbor {
	chunk := (len(motions) + nm.nCPU - 1) / nm.nCPU
	results := make([]neighbor, nm.nCPU)
	var wg sync.WaitGroup
	for w := 0; w < nm.nCPU; w++ {
		start := w * chunk
		end := min(start+chunk, len(motions))
		results[w] = neighbor{dist: math.Inf(1), idx: noMotion}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			results[w] = scanNearest(space, motions[start:end], seed, start)
		}(w, start, end)
	}
	wg.Wait()

	best := neighbor{dist: math.Inf(1), idx: noMotion}
	for _, r := range results {
		if r.idx != noMotion && r.closer(best) {
			best = r
		}
	}
	return best
}
