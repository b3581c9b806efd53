package motionplan

import (
	"context"
	"math/rand"

	"github.com/benbjohnson/clock"
	"go.opencensus.io/trace"

	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
)

const errrtConnectName = "ERRTConnect"

// RoadmapIndex is the read-only view of a roadmap used to bias sampling. Callers pass their own
// Query so several planners can search one roadmap concurrently.
type RoadmapIndex interface {
	NumVertices() int
	VertexState(v roadmap.VertexID) statespace.State
	NearestK(q *roadmap.Query, s statespace.State, k int) []roadmap.VertexID
}

type growState int

const (
	// no progress was made.
	trapped growState = iota
	// progress was made toward the target but it was not reached.
	advanced
	// the target was reached.
	reached
)

type treeGrowingInfo struct {
	xstate  statespace.State
	xmotion int
	start   bool
}

// connectionPoint is where the two trees were joined. The motions index the start and goal tree.
type connectionPoint struct {
	startMotion int
	goalMotion  int
}

// ERRTConnect is a bidirectional RRT-Connect whose random samples are drawn, part of the time,
// from the roadmap vertices closest to the start and goal. Experience from earlier queries stored
// in the roadmap thus guides the search toward regions already known to be traversable.
type ERRTConnect struct {
	si      *statespace.Info
	pdef    *ProblemDefinition
	pis     *plannerInputStates
	roadmap RoadmapIndex
	query   *roadmap.Query

	logger   logging.Logger
	clk      clock.Clock
	planOpts *PlannerOptions
	randseed *rand.Rand
	sampler  statespace.Sampler

	tStart      *tree
	tGoal       *tree
	maxDistance float64
	setup       bool

	startNeighbors []roadmap.VertexID
	goalNeighbors  []roadmap.VertexID
	startCursor    int
	goalCursor     int
	totalSamples   int

	connection *connectionPoint

	// called with every biased sample, for tests.
	onSample func(statespace.State)
}

// NewERRTConnect creates a planner over si. Nil options select the defaults.
func NewERRTConnect(si *statespace.Info, logger logging.Logger, opts *PlannerOptions) (*ERRTConnect, error) {
	if opts == nil {
		opts = NewBasicPlannerOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &ERRTConnect{
		si:       si,
		query:    roadmap.NewQuery(),
		logger:   logger,
		clk:      clock.New(),
		planOpts: opts,
		//nolint:gosec
		randseed:    rand.New(rand.NewSource(int64(opts.RandomSeed))),
		tStart:      newTree(si.Space()),
		tGoal:       newTree(si.Space()),
		maxDistance: opts.Range,
	}, nil
}

// Name returns the name of the planner.
func (mp *ERRTConnect) Name() string {
	return errrtConnectName
}

// SetProblemDefinition sets the problem to solve. It must be defined over the planner's space
// information.
func (mp *ERRTConnect) SetProblemDefinition(pdef *ProblemDefinition) error {
	if pdef.SpaceInformation() != mp.si {
		return errSpaceMismatch
	}
	mp.pdef = pdef
	mp.pis = newPlannerInputStates(pdef, mp.logger)
	return nil
}

// SetClock replaces the clock the planner times itself with.
func (mp *ERRTConnect) SetClock(clk clock.Clock) {
	mp.clk = clk
}

// ProblemDefinition returns the problem being solved.
func (mp *ERRTConnect) ProblemDefinition() *ProblemDefinition {
	return mp.pdef
}

// SetRoadmap sets the roadmap used to bias sampling. Nil disables the bias.
func (mp *ERRTConnect) SetRoadmap(r RoadmapIndex) {
	mp.roadmap = r
}

// Range returns the maximum length of a growth step.
func (mp *ERRTConnect) Range() float64 {
	return mp.maxDistance
}

// SetRange sets the maximum length of a growth step. Zero lets Setup derive it from the space.
func (mp *ERRTConnect) SetRange(r float64) {
	mp.maxDistance = r
}

// Setup prepares the planner: the space information is set up if needed and the range is derived
// from the space when unset.
func (mp *ERRTConnect) Setup() error {
	if mp.pdef == nil {
		return errNoProblemDefinition
	}
	if !mp.si.IsSetup() {
		if err := mp.si.Setup(); err != nil {
			return err
		}
	}
	if mp.maxDistance <= 0 {
		mp.maxDistance = defaultRangeFraction * mp.si.Space().MaximumExtent()
		mp.logger.Debugf("%s: range computed to be %f", mp.Name(), mp.maxDistance)
	}
	mp.setup = true
	return nil
}

// IsSetup returns whether Setup has run.
func (mp *ERRTConnect) IsSetup() bool {
	return mp.setup
}

// Clear discards both trees, the sampler, the roadmap neighborhoods and the connection point.
func (mp *ERRTConnect) Clear() {
	mp.sampler = nil
	mp.tStart.clear()
	mp.tGoal.clear()
	mp.startNeighbors = mp.startNeighbors[:0]
	mp.goalNeighbors = mp.goalNeighbors[:0]
	mp.startCursor = 0
	mp.goalCursor = 0
	mp.totalSamples = 0
	mp.connection = nil
	if mp.pis != nil {
		mp.pis.clear()
	}
}

// TreeSizes returns the number of motions in the start and goal trees.
func (mp *ERRTConnect) TreeSizes() (int, int) {
	return mp.tStart.size(), mp.tGoal.size()
}

// TotalSamples returns the number of biased samples drawn by the last solve.
func (mp *ERRTConnect) TotalSamples() int {
	return mp.totalSamples
}

// Solve grows the two trees until they connect or ptc fires. On success the path is added to the
// problem definition. The returned error is only set when the planner is misused; every planning
// outcome is a status.
func (mp *ERRTConnect) Solve(ctx context.Context, ptc TerminationCondition) (PlannerStatus, error) {
	ctx, span := trace.StartSpan(ctx, "ERRTConnect.Solve")
	defer span.End()

	if mp.pdef == nil {
		return StatusUnknown, errNoProblemDefinition
	}
	if !mp.setup {
		return StatusUnknown, errPlannerNotSetup
	}
	ptc = AnyTermination(ptc, ContextTermination(ctx))
	space := mp.si.Space()

	goal, ok := mp.pdef.Goal().(GoalSampleableRegion)
	if !ok {
		mp.logger.Errorf("%s: unknown type of goal %T", mp.Name(), mp.pdef.Goal())
		return UnrecognizedGoalType, nil
	}

	for st := mp.pis.nextStart(); st != nil; st = mp.pis.nextStart() {
		mp.tStart.add(st, noMotion)
	}
	if mp.tStart.size() == 0 {
		mp.logger.Errorf("%s: motion planning start tree could not be initialized", mp.Name())
		return InvalidStart, nil
	}
	if !goal.CouldSample() {
		mp.logger.Errorf("%s: insufficient states in sampleable goal region", mp.Name())
		return InvalidGoal, nil
	}
	if mp.sampler == nil {
		mp.sampler = mp.si.AllocStateSampler(mp.randseed)
	}

	mp.logger.Infof("%s: starting planning with %d states already in datastructure",
		mp.Name(), mp.tStart.size()+mp.tGoal.size())

	mp.loadNeighbors(ctx, ptc)

	tgi := treeGrowingInfo{xstate: space.AllocState(), xmotion: noMotion}
	rstate := space.AllocState()
	startTree := true
	status := Timeout

	for !ptc() {
		active, other := mp.tGoal, mp.tStart
		if startTree {
			active, other = mp.tStart, mp.tGoal
		}
		if active.size()%100 == 0 {
			mp.logger.CDebugf(ctx, "start tree has %d motions, goal tree has %d", mp.tStart.size(), mp.tGoal.size())
		}

		tgi.start = startTree
		startTree = !startTree

		if mp.tGoal.size() == 0 || mp.pis.sampledGoalsCount() < mp.tGoal.size()/2 {
			var st statespace.State
			if mp.tGoal.size() == 0 {
				st = mp.pis.nextGoal(ptc)
			} else {
				st = mp.pis.nextGoalOnce()
			}
			if st != nil {
				mp.tGoal.add(st, noMotion)
			}
			if mp.tGoal.size() == 0 {
				mp.logger.Errorf("%s: unable to sample any valid states for goal tree", mp.Name())
				status = Abort
				break
			}
		}

		mp.sampleFromRoadmap(rstate, tgi.start)

		gs := mp.growTree(active, &tgi, rstate)
		if ptc() {
			break
		}
		if gs == trapped {
			continue
		}

		addedMotion := tgi.xmotion
		// when reached, rstate is already the added state
		if gs != reached {
			space.CopyState(rstate, tgi.xstate)
		}

		gsc := advanced
		tgi.start = startTree
		for gsc == advanced {
			gsc = mp.growTree(other, &tgi, rstate)
		}
		if gsc != reached {
			continue
		}

		startMotion, goalMotion := addedMotion, tgi.xmotion
		if startTree {
			startMotion, goalMotion = tgi.xmotion, addedMotion
		}
		if !goal.IsStartGoalPairValid(mp.tStart.state(mp.tStart.root(startMotion)), mp.tGoal.state(mp.tGoal.root(goalMotion))) {
			continue
		}
		if ptc() {
			break
		}

		// Both motions hold the same state. Step back on one side so it appears once in the path.
		// Two roots holding the same state leave the path with that single state.
		if p := mp.tStart.parent(startMotion); p != noMotion {
			startMotion = p
		} else if p := mp.tGoal.parent(goalMotion); p != noMotion {
			goalMotion = p
		} else if space.EqualStates(mp.tStart.state(startMotion), mp.tGoal.state(goalMotion)) {
			goalMotion = noMotion
		}
		mp.connection = &connectionPoint{startMotion: startMotion, goalMotion: goalMotion}

		mp.pdef.AddSolutionPath(mp.extractPath(startMotion, goalMotion), false, 0, mp.Name())
		status = ExactSolution
		break
	}

	mp.logger.Infof("%s: created %d states (%d start + %d goal)",
		mp.Name(), mp.tStart.size()+mp.tGoal.size(), mp.tStart.size(), mp.tGoal.size())
	mp.logger.Infof("%s: sampled %d states", mp.Name(), mp.totalSamples)
	return status, nil
}

// extractPath walks from the start side bridge motion back to its root, reverses it, and appends
// the goal side from its bridge motion to the goal root.
func (mp *ERRTConnect) extractPath(startMotion, goalMotion int) *Path {
	var startChain []int
	for m := startMotion; m != noMotion; m = mp.tStart.parent(m) {
		startChain = append(startChain, m)
	}
	path := NewPath(mp.si.Space())
	for i := len(startChain) - 1; i >= 0; i-- {
		path.Append(mp.tStart.state(startChain[i]))
	}
	for m := goalMotion; m != noMotion; m = mp.tGoal.parent(m) {
		path.Append(mp.tGoal.state(m))
	}
	return path
}

// growTree extends t toward target by at most the planner range. Goal tree motions are checked in
// reverse, from the new state toward the tree, as motion checks assume their first state is valid.
func (mp *ERRTConnect) growTree(t *tree, tgi *treeGrowingInfo, target statespace.State) growState {
	space := mp.si.Space()
	nmotion, d := t.nearest(target)
	nstate := t.state(nmotion)

	// Already in the tree. A zero length motion would put the same state twice on a path.
	if space.EqualStates(nstate, target) {
		tgi.xmotion = nmotion
		return reached
	}

	reach := true
	dstate := target
	if d > mp.maxDistance {
		space.Interpolate(nstate, target, mp.maxDistance/d, tgi.xstate)
		dstate = tgi.xstate
		reach = false
	}

	var validMotion bool
	if tgi.start {
		validMotion = mp.si.CheckMotion(nstate, dstate)
	} else {
		validMotion = mp.si.IsValid(dstate) && mp.si.CheckMotion(dstate, nstate)
	}
	if !validMotion {
		return trapped
	}

	tgi.xmotion = t.add(dstate, nmotion)
	if reach {
		return reached
	}
	return advanced
}

// loadNeighbors caches the roadmap vertices closest to the first valid start and goal. The input
// states are rewound afterwards so the search sees them again.
func (mp *ERRTConnect) loadNeighbors(ctx context.Context, ptc TerminationCondition) {
	ctx, span := trace.StartSpan(ctx, "ERRTConnect.loadNeighbors")
	defer span.End()
	start := mp.clk.Now()

	space := mp.si.Space()
	mp.pis.restart()
	var goalState, startState statespace.State
	if st := mp.pis.nextGoal(ptc); st != nil {
		goalState = space.CloneState(st)
	}
	if st := mp.pis.nextStart(); st != nil {
		startState = space.CloneState(st)
	}
	mp.pis.restart()

	mp.startNeighbors = mp.neighborsOf(startState, mp.startNeighbors[:0])
	mp.goalNeighbors = mp.neighborsOf(goalState, mp.goalNeighbors[:0])
	mp.startCursor = 0
	mp.goalCursor = 0
	mp.totalSamples = 0

	mp.logger.CDebugf(ctx, "%s: finding start and goal neighbors took %v", mp.Name(), mp.clk.Since(start))
}

func (mp *ERRTConnect) neighborsOf(s statespace.State, dst []roadmap.VertexID) []roadmap.VertexID {
	if s == nil || mp.roadmap == nil {
		return dst
	}
	k := mp.roadmap.NumVertices()
	if k > mp.planOpts.NeighborCap {
		k = mp.planOpts.NeighborCap
	}
	// copied out of the query scratch, which the next search reuses
	dst = append(dst, mp.roadmap.NearestK(mp.query, s, k)...)
	mp.logger.Debugf("%s: found %d neighbors", mp.Name(), len(dst))
	return dst
}

// sampleFromRoadmap writes the next biased sample for the active tree into dst. Every
// UniformSampleEvery-th sample, and every sample once the tree's neighborhood is used up, is
// uniform; the others are the next roadmap neighbor.
func (mp *ERRTConnect) sampleFromRoadmap(dst statespace.State, fromStart bool) {
	mp.totalSamples++

	neighbors, cursor := mp.goalNeighbors, &mp.goalCursor
	if fromStart {
		neighbors, cursor = mp.startNeighbors, &mp.startCursor
	}

	if *cursor >= len(neighbors) || mp.totalSamples%mp.planOpts.UniformSampleEvery == 0 {
		mp.sampler.SampleUniform(dst)
	} else {
		mp.si.Space().CopyState(dst, mp.roadmap.VertexState(neighbors[*cursor]))
		*cursor++
	}

	if mp.onSample != nil {
		mp.onSample(dst)
	}
}
