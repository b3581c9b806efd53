package motionplan

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
)

type testProblem struct {
	si      *statespace.Info
	pdef    *ProblemDefinition
	planner *ERRTConnect
}

// newTestProblem builds a planner over the box [0, size]^2 with the given obstacles.
func newTestProblem(t *testing.T, size float64, obstacles *statespace.BoxObstacles2D, opts *PlannerOptions) *testProblem {
	t.Helper()
	space, err := statespace.NewRealVectorSpace([]float64{0, 0}, []float64{size, size})
	test.That(t, err, test.ShouldBeNil)
	si := statespace.NewInfo(space)
	if obstacles == nil {
		obstacles = statespace.NewBoxObstacles2D()
	}
	si.SetValidityChecker(obstacles)

	planner, err := NewERRTConnect(si, logging.NewTestLogger(t), opts)
	test.That(t, err, test.ShouldBeNil)
	pdef := NewProblemDefinition(si)
	test.That(t, planner.SetProblemDefinition(pdef), test.ShouldBeNil)
	return &testProblem{si: si, pdef: pdef, planner: planner}
}

func latticeRoadmap(t *testing.T, space statespace.Space, spacing, size float64) *roadmap.SparseGraph {
	t.Helper()
	g := roadmap.NewSparseGraph(space, logging.NewTestLogger(t))
	test.That(t, g.Setup(), test.ShouldBeNil)
	for x := spacing / 2; x < size; x += spacing {
		for y := spacing / 2; y < size; y += spacing {
			g.AddVertex(statespace.State{x, y})
		}
	}
	return g
}

func assertNoRepeatedStates(t *testing.T, space statespace.Space, path *Path) {
	t.Helper()
	for i := 1; i < path.StateCount(); i++ {
		test.That(t, space.EqualStates(path.State(i-1), path.State(i)), test.ShouldBeFalse)
	}
}

func TestSolveMisuse(t *testing.T) {
	space, err := statespace.NewRealVectorSpace([]float64{0, 0}, []float64{1, 1})
	test.That(t, err, test.ShouldBeNil)
	si := statespace.NewInfo(space)
	si.SetValidityChecker(statespace.AllValid)
	planner, err := NewERRTConnect(si, logging.NewTestLogger(t), nil)
	test.That(t, err, test.ShouldBeNil)

	_, err = planner.Solve(context.Background(), NeverTerminate)
	test.That(t, err, test.ShouldBeError, errNoProblemDefinition)
	test.That(t, planner.Setup(), test.ShouldBeError, errNoProblemDefinition)

	test.That(t, planner.SetProblemDefinition(NewProblemDefinition(statespace.NewInfo(space))), test.ShouldBeError, errSpaceMismatch)

	test.That(t, planner.SetProblemDefinition(NewProblemDefinition(si)), test.ShouldBeNil)
	_, err = planner.Solve(context.Background(), NeverTerminate)
	test.That(t, err, test.ShouldBeError, errPlannerNotSetup)

	_, err = NewERRTConnect(si, logging.NewTestLogger(t), &PlannerOptions{UniformSampleEvery: 0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSetupDerivesRange(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	test.That(t, tp.planner.Range(), test.ShouldEqual, 0.)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	test.That(t, tp.planner.IsSetup(), test.ShouldBeTrue)
	test.That(t, tp.si.IsSetup(), test.ShouldBeTrue)
	test.That(t, tp.planner.Range(), test.ShouldAlmostEqual, 0.2*10*math.Sqrt2)

	opts := NewBasicPlannerOptions()
	opts.Range = 0.5
	tp = newTestProblem(t, 10, nil, opts)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	test.That(t, tp.planner.Range(), test.ShouldEqual, 0.5)
}

func TestInvalidStart(t *testing.T) {
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(0, 0, 2, 2)
	tp := newTestProblem(t, 10, obstacles, nil)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	tp.pdef.SetGoal(NewGoalState(tp.si.Space(), statespace.State{9, 9}, 0))

	// No start states at all.
	status, err := tp.planner.Solve(context.Background(), NeverTerminate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, InvalidStart)

	// Only a start in collision.
	tp.pdef.AddStartState(statespace.State{1, 1})
	status, err = tp.planner.Solve(context.Background(), NeverTerminate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, InvalidStart)
}

func TestInvalidGoal(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	tp.pdef.AddStartState(statespace.State{1, 1})
	tp.pdef.SetGoal(NewGoalStates(tp.si.Space(), 0))

	status, err := tp.planner.Solve(context.Background(), NeverTerminate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, InvalidGoal)

	// No growth happened: only the start state was added.
	startSize, goalSize := tp.planner.TreeSizes()
	test.That(t, startSize, test.ShouldEqual, 1)
	test.That(t, goalSize, test.ShouldEqual, 0)
	test.That(t, tp.planner.TotalSamples(), test.ShouldEqual, 0)
}

func TestUnrecognizedGoalType(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	tp.pdef.AddStartState(statespace.State{1, 1})
	tp.pdef.SetGoal(GoalFunc(func(s statespace.State) bool { return s[0] > 9 }))

	status, err := tp.planner.Solve(context.Background(), NeverTerminate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, UnrecognizedGoalType)
}

func TestAbortWhenGoalNeverValid(t *testing.T) {
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(8, 8, 10, 10)
	tp := newTestProblem(t, 10, obstacles, nil)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 9}, 0)

	status, err := tp.planner.Solve(context.Background(), IterationTermination(1000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Abort)
	test.That(t, tp.pdef.HasSolution(), test.ShouldBeFalse)
}

func TestTimeoutWhenCancelled(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 9}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status, err := tp.planner.Solve(ctx, NeverTerminate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, Timeout)
	test.That(t, tp.pdef.HasSolution(), test.ShouldBeFalse)
}

func TestSolveOpenSpaceToBall(t *testing.T) {
	start := statespace.State{0, 0}
	center := statespace.State{10, 10}
	const radius = 1.
	straightLine := math.Hypot(10, 10)

	for seed := 0; seed < 10; seed++ {
		opts := NewBasicPlannerOptions()
		opts.RandomSeed = seed
		tp := newTestProblem(t, 12, nil, opts)
		tp.pdef.AddStartState(start)
		//nolint:gosec
		tp.pdef.SetGoal(NewGoalBall(tp.si.Space(), center, radius, rand.New(rand.NewSource(int64(seed)))))
		test.That(t, tp.planner.Setup(), test.ShouldBeNil)

		status, err := tp.planner.Solve(context.Background(), TimedTermination(clock.New(), 5*time.Second))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, ExactSolution)

		path, ok := tp.pdef.SolutionPath()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, path.StateCount(), test.ShouldBeGreaterThanOrEqualTo, 2)
		test.That(t, path.State(0), test.ShouldResemble, start)
		test.That(t, tp.pdef.Goal().IsSatisfied(path.State(path.StateCount()-1)), test.ShouldBeTrue)
		test.That(t, path.Length(), test.ShouldBeGreaterThanOrEqualTo, straightLine-radius)
		test.That(t, path.Length(), test.ShouldBeLessThanOrEqualTo, 3*straightLine)
		test.That(t, path.Check(tp.si), test.ShouldBeTrue)
		assertNoRepeatedStates(t, tp.si.Space(), path)
	}
}

func TestSolveAroundWall(t *testing.T) {
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(4, 0, 6, 8)
	opts := NewBasicPlannerOptions()
	opts.RandomSeed = 7
	tp := newTestProblem(t, 10, obstacles, opts)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 1}, 0)
	tp.planner.SetRoadmap(latticeRoadmap(t, tp.si.Space(), 1, 10))
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)

	status, err := tp.planner.Solve(context.Background(), TimedTermination(clock.New(), 5*time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)

	path, ok := tp.pdef.SolutionPath()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path.Check(tp.si), test.ShouldBeTrue)
	assertNoRepeatedStates(t, tp.si.Space(), path)
	test.That(t, path.State(0), test.ShouldResemble, statespace.State{1, 1})
	test.That(t, path.State(path.StateCount()-1), test.ShouldResemble, statespace.State{9, 1})
	// The path must climb over the wall.
	maxY := 0.
	for _, s := range path.States() {
		maxY = math.Max(maxY, s[1])
	}
	test.That(t, maxY, test.ShouldBeGreaterThan, 8)
}

func TestSolveStartIsGoal(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	g := roadmap.NewSparseGraph(tp.si.Space(), logging.NewTestLogger(t))
	test.That(t, g.Setup(), test.ShouldBeNil)
	g.AddVertex(statespace.State{5, 5})
	tp.planner.SetRoadmap(g)
	tp.pdef.SetStartAndGoalStates(statespace.State{5, 5}, statespace.State{5, 5}, 0)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)

	status, err := tp.planner.Solve(context.Background(), IterationTermination(1000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)

	path, ok := tp.pdef.SolutionPath()
	test.That(t, ok, test.ShouldBeTrue)
	assertNoRepeatedStates(t, tp.si.Space(), path)
	test.That(t, path.States(), test.ShouldResemble, []statespace.State{{5, 5}})

	data := tp.planner.PlannerData()
	test.That(t, data.NumVertices(), test.ShouldEqual, 2)
	test.That(t, data.NumEdges(), test.ShouldEqual, 0)
}

func TestNeighborLookupTimedWithPlannerClock(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	logger, logs := logging.NewObservedTestLogger(t)
	planner, err := NewERRTConnect(tp.si, logger, nil)
	test.That(t, err, test.ShouldBeNil)
	planner.SetClock(clock.NewMock())
	planner.SetRoadmap(latticeRoadmap(t, tp.si.Space(), 2, 10))
	test.That(t, planner.SetProblemDefinition(tp.pdef), test.ShouldBeNil)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 9}, 0)
	test.That(t, planner.Setup(), test.ShouldBeNil)

	status, err := planner.Solve(context.Background(), IterationTermination(100000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)
	// the mock clock never moves
	test.That(t, logs.FilterMessage("ERRTConnect: finding start and goal neighbors took 0s").Len(), test.ShouldEqual, 1)
}

func TestGrowTree(t *testing.T) {
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(1.8, 0, 3, 1)
	opts := NewBasicPlannerOptions()
	opts.Range = 1
	tp := newTestProblem(t, 10, obstacles, opts)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	space := tp.si.Space()

	tr := newTree(space)
	tr.add(statespace.State{0, 0.5}, noMotion)
	tgi := &treeGrowingInfo{xstate: space.AllocState(), xmotion: noMotion, start: true}

	// Truncated by the range.
	test.That(t, tp.planner.growTree(tr, tgi, statespace.State{0, 4.5}), test.ShouldEqual, advanced)
	test.That(t, tr.size(), test.ShouldEqual, 2)
	test.That(t, tr.state(tgi.xmotion), test.ShouldResemble, statespace.State{0, 1.5})
	test.That(t, tr.parent(tgi.xmotion), test.ShouldEqual, 0)
	test.That(t, tr.root(tgi.xmotion), test.ShouldEqual, 0)

	// Within range.
	test.That(t, tp.planner.growTree(tr, tgi, statespace.State{0.5, 2}), test.ShouldEqual, reached)
	test.That(t, tr.size(), test.ShouldEqual, 3)
	test.That(t, tr.state(tgi.xmotion), test.ShouldResemble, statespace.State{0.5, 2})

	// Into the obstacle.
	test.That(t, tp.planner.growTree(tr, tgi, statespace.State{1.5, 0.5}), test.ShouldEqual, advanced)
	test.That(t, tp.planner.growTree(tr, tgi, statespace.State{2.5, 0.5}), test.ShouldEqual, trapped)
	test.That(t, tr.size(), test.ShouldEqual, 4)

	// A state already in the tree is reached without adding a zero length motion.
	test.That(t, tp.planner.growTree(tr, tgi, statespace.State{0.5, 2}), test.ShouldEqual, reached)
	test.That(t, tr.size(), test.ShouldEqual, 4)
	test.That(t, tgi.xmotion, test.ShouldEqual, 2)

	// Goal trees check the new state itself before the reversed motion.
	goalTree := newTree(space)
	goalTree.add(statespace.State{3.5, 0.5}, noMotion)
	tgi.start = false
	test.That(t, tp.planner.growTree(goalTree, tgi, statespace.State{2.8, 0.5}), test.ShouldEqual, trapped)
	test.That(t, tp.planner.growTree(goalTree, tgi, statespace.State{3.5, 1.4}), test.ShouldEqual, reached)
	test.That(t, goalTree.size(), test.ShouldEqual, 2)
}

func TestNeighborCacheCapAndFallback(t *testing.T) {
	opts := NewBasicPlannerOptions()
	opts.NeighborCap = 3
	tp := newTestProblem(t, 10, nil, opts)
	space := tp.si.Space()

	g := roadmap.NewSparseGraph(space, logging.NewTestLogger(t))
	test.That(t, g.Setup(), test.ShouldBeNil)
	for x := 0.; x < 5; x++ {
		g.AddVertex(statespace.State{x, 0})
	}
	tp.planner.SetRoadmap(g)
	tp.pdef.SetStartAndGoalStates(statespace.State{0, 0.1}, statespace.State{9, 9}, 0)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)

	tp.planner.sampler = tp.si.AllocStateSampler(tp.planner.randseed)
	tp.planner.loadNeighbors(context.Background(), NeverTerminate)
	test.That(t, tp.planner.startNeighbors, test.ShouldResemble, []roadmap.VertexID{0, 1, 2})
	test.That(t, len(tp.planner.goalNeighbors), test.ShouldEqual, 3)

	var samples []statespace.State
	tp.planner.onSample = func(s statespace.State) {
		samples = append(samples, space.CloneState(s))
	}
	dst := space.AllocState()
	for i := 0; i < 10; i++ {
		tp.planner.sampleFromRoadmap(dst, true)
	}

	// Odd samples walk the start neighborhood until it runs out.
	test.That(t, samples[0], test.ShouldResemble, statespace.State{0, 0})
	test.That(t, samples[2], test.ShouldResemble, statespace.State{1, 0})
	test.That(t, samples[4], test.ShouldResemble, statespace.State{2, 0})
	test.That(t, tp.planner.startCursor, test.ShouldEqual, 3)
	test.That(t, tp.planner.goalCursor, test.ShouldEqual, 0)
	test.That(t, tp.planner.TotalSamples(), test.ShouldEqual, 10)
	for _, s := range samples {
		test.That(t, space.SatisfiesBounds(s), test.ShouldBeTrue)
	}
}

func TestNoRoadmapSamplesUniformly(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 9}, 0)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	tp.planner.sampler = tp.si.AllocStateSampler(tp.planner.randseed)
	tp.planner.loadNeighbors(context.Background(), NeverTerminate)
	test.That(t, len(tp.planner.startNeighbors), test.ShouldEqual, 0)

	dst := tp.si.Space().AllocState()
	tp.planner.sampleFromRoadmap(dst, true)
	tp.planner.sampleFromRoadmap(dst, false)
	test.That(t, tp.planner.TotalSamples(), test.ShouldEqual, 2)
}

func TestRoadmapBiasDeterminism(t *testing.T) {
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(4, 0, 6, 8)

	run := func() ([]statespace.State, *Path) {
		opts := NewBasicPlannerOptions()
		opts.RandomSeed = 42
		tp := newTestProblem(t, 10, obstacles, opts)
		tp.planner.SetRoadmap(latticeRoadmap(t, tp.si.Space(), 2, 10))
		tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 1}, 0)
		test.That(t, tp.planner.Setup(), test.ShouldBeNil)

		var samples []statespace.State
		tp.planner.onSample = func(s statespace.State) {
			samples = append(samples, tp.si.Space().CloneState(s))
		}
		status, err := tp.planner.Solve(context.Background(), IterationTermination(20000))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, ExactSolution)
		path, _ := tp.pdef.SolutionPath()
		return samples, path
	}

	samplesA, pathA := run()
	samplesB, pathB := run()
	test.That(t, len(samplesA), test.ShouldBeGreaterThan, 0)
	test.That(t, samplesB, test.ShouldResemble, samplesA)
	test.That(t, pathB.States(), test.ShouldResemble, pathA.States())
}

func TestClearBetweenSolves(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 9}, 0)
	tp.planner.SetRoadmap(latticeRoadmap(t, tp.si.Space(), 1, 10))
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)

	status, err := tp.planner.Solve(context.Background(), IterationTermination(5000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)
	startSize, goalSize := tp.planner.TreeSizes()
	test.That(t, startSize, test.ShouldBeGreaterThan, 1)
	test.That(t, goalSize, test.ShouldBeGreaterThan, 0)

	tp.planner.Clear()
	tp.pdef.ClearSolutionPaths()
	startSize, goalSize = tp.planner.TreeSizes()
	test.That(t, startSize, test.ShouldEqual, 0)
	test.That(t, goalSize, test.ShouldEqual, 0)
	test.That(t, tp.planner.PlannerData().NumEdges(), test.ShouldEqual, 0)

	status, err = tp.planner.Solve(context.Background(), IterationTermination(5000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)
	test.That(t, tp.pdef.SolutionCount(), test.ShouldEqual, 1)
	startSize, goalSize = tp.planner.TreeSizes()
	// Only the new search's motions: one start root and the goal roots it sampled.
	test.That(t, tp.planner.tStart.root(startSize-1), test.ShouldEqual, 0)
	test.That(t, goalSize, test.ShouldBeGreaterThan, 0)
}

func TestPlannerData(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	tp.pdef.SetStartAndGoalStates(statespace.State{1, 1}, statespace.State{9, 9}, 0)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)
	status, err := tp.planner.Solve(context.Background(), IterationTermination(5000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)

	startSize, goalSize := tp.planner.TreeSizes()
	data := tp.planner.PlannerData()
	test.That(t, data.NumVertices(), test.ShouldEqual, startSize+goalSize)
	test.That(t, data.StartVertices, test.ShouldResemble, []int{0})
	test.That(t, len(data.GoalVertices), test.ShouldBeGreaterThan, 0)
	// one edge per non-root motion, plus the bridge between the trees
	test.That(t, data.NumEdges(), test.ShouldEqual, startSize-1+goalSize-len(data.GoalVertices)+1)
	for i, v := range data.Vertices {
		if i < startSize {
			test.That(t, v.Tag, test.ShouldEqual, StartTreeTag)
		} else {
			test.That(t, v.Tag, test.ShouldEqual, GoalTreeTag)
		}
	}
	for _, e := range data.Edges[startSize-1 : len(data.Edges)-1] {
		// goal tree edges point from child to parent
		test.That(t, e.From, test.ShouldBeGreaterThan, e.To)
		test.That(t, e.To, test.ShouldBeGreaterThanOrEqualTo, startSize)
	}
	bridge := data.Edges[len(data.Edges)-1]
	test.That(t, bridge.From, test.ShouldBeLessThan, startSize)
	test.That(t, bridge.To, test.ShouldBeGreaterThanOrEqualTo, startSize)
}

func TestStartGoalPairValidator(t *testing.T) {
	tp := newTestProblem(t, 10, nil, nil)
	goals := NewGoalStates(tp.si.Space(), 0)
	goals.AddState(statespace.State{2, 2})
	goals.AddState(statespace.State{9, 9})
	goals.SetStartGoalPairValidator(func(start, goal statespace.State) bool {
		return goal[0] > 5
	})
	tp.pdef.AddStartState(statespace.State{1, 1})
	tp.pdef.SetGoal(goals)
	test.That(t, tp.planner.Setup(), test.ShouldBeNil)

	status, err := tp.planner.Solve(context.Background(), IterationTermination(20000))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExactSolution)
	path, _ := tp.pdef.SolutionPath()
	test.That(t, path.State(path.StateCount()-1), test.ShouldResemble, statespace.State{9, 9})
}
