// Package bolt runs the experience-accelerated planner over a sparse roadmap: it sets the pieces
// up, solves problems, checks what comes back, keeps statistics and persists the roadmap.
package bolt

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"

	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/motionplan"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
)

// Extensions appended to the base path given to SetFilePath.
const (
	fileStorageExt   = ".roadmap"
	sqliteStorageExt = ".db"
)

// Bolt owns a space information, a problem definition, an ERRTConnect planner and the roadmap
// biasing it. Solve calls on one Bolt are serialized.
type Bolt struct {
	mu sync.Mutex

	si      *statespace.Info
	pdef    *motionplan.ProblemDefinition
	planner *motionplan.ERRTConnect
	graph   *roadmap.SparseGraph

	logger     logging.Logger
	opts       *Options
	clk        clock.Clock
	visualizer Visualizer
	inserter   PathInserter

	configured       bool
	lastStatus       motionplan.PlannerStatus
	lastPlanDuration time.Duration
	queued           []*motionplan.Path
	stats            counters
}

// New creates an orchestrator over si with its own empty roadmap. Nil options select the
// defaults.
func New(si *statespace.Info, logger logging.Logger, opts *Options) (*Bolt, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	graph := roadmap.NewSparseGraph(si.Space(), logger.Sublogger("roadmap"))
	graph.SetCriteria(opts.Criteria())
	return NewWithRoadmap(si, graph, logger, opts)
}

// NewWithRoadmap creates an orchestrator that plans over an existing roadmap. Several
// orchestrators may share one roadmap.
func NewWithRoadmap(si *statespace.Info, graph *roadmap.SparseGraph, logger logging.Logger, opts *Options) (*Bolt, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if graph.Space() != si.Space() {
		return nil, errors.New("roadmap and planner use different spaces")
	}

	planner, err := motionplan.NewERRTConnect(si, logger.Sublogger("errrtconnect"), opts.Planner)
	if err != nil {
		return nil, err
	}
	pdef := motionplan.NewProblemDefinition(si)
	if err := planner.SetProblemDefinition(pdef); err != nil {
		return nil, err
	}
	planner.SetRoadmap(graph)

	logger.Debug("initialized bolt framework")
	return &Bolt{
		si:         si,
		pdef:       pdef,
		planner:    planner,
		graph:      graph,
		logger:     logger,
		opts:       opts,
		clk:        clock.New(),
		visualizer: noopVisualizer{},
	}, nil
}

// SetClock replaces the clock used to measure planning and insertion times.
func (b *Bolt) SetClock(clk clock.Clock) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clk = clk
	b.planner.SetClock(clk)
}

// SetVisualizer installs v. Nil disables visualization.
func (b *Bolt) SetVisualizer(v Visualizer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v == nil {
		v = noopVisualizer{}
	}
	b.visualizer = v
}

// SetPathInserter installs the collaborator that DoPostProcessing hands queued paths to.
func (b *Bolt) SetPathInserter(inserter PathInserter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inserter = inserter
}

// SpaceInformation returns the space information planned in.
func (b *Bolt) SpaceInformation() *statespace.Info {
	return b.si
}

// ProblemDefinition returns the problem being solved.
func (b *Bolt) ProblemDefinition() *motionplan.ProblemDefinition {
	return b.pdef
}

// Planner returns the underlying planner.
func (b *Bolt) Planner() *motionplan.ERRTConnect {
	return b.planner
}

// Roadmap returns the roadmap biasing the planner.
func (b *Bolt) Roadmap() *roadmap.SparseGraph {
	return b.graph
}

// Options returns the options of the orchestrator.
func (b *Bolt) Options() *Options {
	return b.opts
}

// Setup prepares every owned object. It does nothing when everything already is set up.
func (b *Bolt) Setup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setupLocked()
}

func (b *Bolt) setupLocked() error {
	if b.configured && b.si.IsSetup() && b.planner.IsSetup() && b.graph.IsSetup() {
		return nil
	}
	if !b.si.IsSetup() {
		if err := b.si.Setup(); err != nil {
			return errors.Wrap(err, "setting up space information")
		}
	}
	if err := b.planner.SetProblemDefinition(b.pdef); err != nil {
		return err
	}
	if !b.planner.IsSetup() {
		if err := b.planner.Setup(); err != nil {
			return errors.Wrap(err, "setting up planner")
		}
	}
	if !b.graph.IsSetup() {
		if err := b.graph.Setup(); err != nil {
			return errors.Wrap(err, "setting up roadmap")
		}
	}
	b.configured = true
	return nil
}

// IsSetup returns whether Setup has completed.
func (b *Bolt) IsSetup() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configured
}

// SetStartAndGoalStates replaces the problem with a single start and goal state.
func (b *Bolt) SetStartAndGoalStates(start, goal statespace.State, threshold float64) {
	b.pdef.SetStartAndGoalStates(start, goal, threshold)
}

// AddStartState adds a start state to the problem.
func (b *Bolt) AddStartState(s statespace.State) {
	b.pdef.AddStartState(s)
}

// SetGoal sets the goal of the problem.
func (b *Bolt) SetGoal(goal motionplan.Goal) {
	b.pdef.SetGoal(goal)
}

// Solve runs the planner until it finds a path or ptc fires, then processes the result. The
// error is set when setup fails or when the planner produced a corrupt path, which is then
// dropped and reported with status Crash.
func (b *Bolt) Solve(ctx context.Context, ptc motionplan.TerminationCondition) (motionplan.PlannerStatus, error) {
	ctx, span := trace.StartSpan(ctx, "bolt::Solve")
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.solveLocked(ctx, ptc)
}

// SolveFor solves with a time limit. A non-positive duration uses the configured timeout. The
// limit starts once any concurrent solve has finished.
func (b *Bolt) SolveFor(ctx context.Context, d time.Duration) (motionplan.PlannerStatus, error) {
	ctx, span := trace.StartSpan(ctx, "bolt::SolveFor")
	defer span.End()

	if d <= 0 {
		d = time.Duration(b.opts.Timeout * float64(time.Second))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.solveLocked(ctx, motionplan.TimedTermination(b.clk, d))
}

func (b *Bolt) solveLocked(ctx context.Context, ptc motionplan.TerminationCondition) (motionplan.PlannerStatus, error) {
	if err := b.setupLocked(); err != nil {
		return motionplan.StatusUnknown, err
	}

	b.lastStatus = motionplan.StatusUnknown
	start := b.clk.Now()
	status, err := b.planner.Solve(ctx, ptc)
	b.lastPlanDuration = b.clk.Since(start)
	if err != nil {
		return motionplan.StatusUnknown, err
	}
	b.lastStatus = status

	if err := b.processResults(); err != nil {
		b.lastStatus = motionplan.Crash
		return b.lastStatus, err
	}
	return b.lastStatus, nil
}

func (b *Bolt) processResults() error {
	b.stats.planningTime.Add(b.lastPlanDuration)
	b.stats.problems.Inc()

	switch b.lastStatus {
	case motionplan.Timeout:
		b.stats.timedOut.Inc()
		b.logger.Errorf("solve: timeout, no solution found after %v", b.lastPlanDuration)
	case motionplan.Abort:
		b.stats.timedOut.Inc()
		b.logger.Errorf("solve: abort, no solution found after %v", b.lastPlanDuration)
	case motionplan.ApproximateSolution:
		b.stats.approximate.Inc()
		b.logger.Error("solve: approximate solution, the planner only returns exact ones")
	case motionplan.ExactSolution:
		path, ok := b.pdef.SolutionPath()
		if !ok {
			b.stats.failed.Inc()
			b.logger.Error("solve: exact solution reported without a solution path")
			return nil
		}
		b.logger.Infof("solution found in %v with %d states", b.lastPlanDuration, path.StateCount())

		b.visualize(path)

		if err := b.checkRepeatedStates(path); err != nil {
			b.stats.integrityViolations.Inc()
			b.pdef.ClearSolutionPaths()
			return err
		}
		if b.opts.CheckOptimality {
			if report := b.checkOptimality(path); report.Err != nil {
				b.stats.optimalityRegressions.Inc()
			}
		}

		b.stats.recall.Inc()
		if path.StateCount() < 2 {
			b.logger.Info("not queueing solution, it has less than 2 states")
			b.stats.tooShort.Inc()
		} else {
			b.queued = append(b.queued, path.Clone())
		}
	default:
		b.logger.Errorf("solve: %v", b.lastStatus)
		b.stats.failed.Inc()
	}
	return nil
}

func (b *Bolt) visualize(path *motionplan.Path) {
	if _, ok := b.visualizer.(noopVisualizer); ok {
		return
	}
	b.visualizer.PlannerData(b.planner.PlannerData())
	b.visualizer.Path(path)
	if err := b.visualizer.Trigger(); err != nil {
		b.logger.Warnw("visualization failed", "error", err)
	}
}

// CheckRepeatedStates returns an *IntegrityViolationError if two consecutive states of path are
// equal.
func (b *Bolt) CheckRepeatedStates(path *motionplan.Path) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkRepeatedStates(path)
}

func (b *Bolt) checkRepeatedStates(path *motionplan.Path) error {
	space := b.si.Space()
	for i := 1; i < path.StateCount(); i++ {
		if space.EqualStates(path.State(i-1), path.State(i)) {
			err := &IntegrityViolationError{Index: i, Count: path.StateCount()}
			b.logger.Error(err)
			b.visualizer.State(path.State(i))
			return err
		}
	}
	return nil
}

// Clear is a hard reset: the roadmap, the planner, the solutions, the queued paths and the
// statistics are all discarded. The start and goal are kept.
func (b *Bolt) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graph.Clear()
	b.planner.Clear()
	b.pdef.ClearSolutionPaths()
	b.queued = nil
	b.stats.reset()
	b.lastStatus = motionplan.StatusUnknown
	b.lastPlanDuration = 0
}

// ClearForNextPlan discards the planner's search and the solutions, keeping everything else.
func (b *Bolt) ClearForNextPlan() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.planner.Clear()
	b.pdef.ClearSolutionPaths()
}

// SolutionPath returns the best solution of the last solve.
func (b *Bolt) SolutionPath() (*motionplan.Path, bool) {
	return b.pdef.SolutionPath()
}

// LastStatus returns the status of the last solve.
func (b *Bolt) LastStatus() motionplan.PlannerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastStatus
}

// LastPlanDuration returns the time the last solve spent in the planner.
func (b *Bolt) LastPlanDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPlanDuration
}

// Stats returns a snapshot of the running statistics. It may be called during a solve.
func (b *Bolt) Stats() Stats {
	return b.stats.snapshot()
}

// QueuedSolutionPaths returns the solution paths waiting for insertion into the roadmap.
func (b *Bolt) QueuedSolutionPaths() []*motionplan.Path {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*motionplan.Path{}, b.queued...)
}

// DoPostProcessing hands every queued path to the path inserter. Without an inserter the paths stay
// queued. On error the failing path and those after it stay queued.
func (b *Bolt) DoPostProcessing(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inserter == nil {
		b.logger.Debugf("no path inserter, keeping %d queued paths", len(b.queued))
		return nil
	}
	b.logger.Infof("adding %d queued solution paths to the roadmap", len(b.queued))
	for len(b.queued) > 0 {
		start := b.clk.Now()
		if err := b.inserter.InsertPath(ctx, b.queued[0]); err != nil {
			return errors.Wrap(err, "inserting solution path")
		}
		b.stats.insertionTime.Add(b.clk.Since(start))
		b.stats.insertions.Inc()
		b.queued = b.queued[1:]
	}
	b.queued = nil
	return nil
}

// SetFilePath selects where the roadmap is saved and loaded from. The extension of the configured
// storage backend is appended to basePath.
func (b *Bolt) SetFilePath(basePath string) error {
	var storage roadmap.Storage
	switch b.opts.Storage {
	case StorageSQLite:
		ss, err := roadmap.NewSQLiteStorage(basePath + sqliteStorageExt)
		if err != nil {
			return err
		}
		storage = ss
	default:
		storage = roadmap.NewFileStorage(basePath + fileStorageExt)
	}

	var err error
	if old := b.graph.Storage(); old != nil {
		err = old.Close()
	}
	b.graph.SetStorage(storage)
	b.logger.Debugf("roadmap storage set to %s", storage)
	return err
}

// Save writes the roadmap to its storage.
func (b *Bolt) Save(ctx context.Context) error {
	return b.graph.Save(ctx)
}

// SaveIfChanged writes the roadmap only if it changed since it was last saved or loaded.
func (b *Bolt) SaveIfChanged(ctx context.Context) error {
	return b.graph.SaveIfChanged(ctx)
}

// Load reads the roadmap from its storage. It refuses, returning false, when the roadmap already
// holds vertices.
func (b *Bolt) Load(ctx context.Context) (bool, error) {
	if !b.graph.IsEmpty() {
		b.logger.Warnf("roadmap already loaded, vertices: %d, edges: %d", b.graph.NumVertices(), b.graph.NumEdges())
		return false, nil
	}
	return b.graph.Load(ctx)
}

// Close releases the roadmap storage.
func (b *Bolt) Close() error {
	var err error
	if storage := b.graph.Storage(); storage != nil {
		err = multierr.Combine(err, storage.Close())
	}
	return multierr.Combine(err, b.logger.Sync())
}

// PrintLogs writes a summary of the statistics and the roadmap to out.
func (b *Bolt) PrintLogs(out io.Writer) {
	s := b.Stats()
	fmt.Fprintln(out, "Bolt Framework Logging Results")
	fmt.Fprintf(out, "  Solutions Attempted:           %d\n", s.NumProblems)
	fmt.Fprintf(out, "    Solved:                      %d (%.2f%%)\n", s.NumSolutionsFromRecall, s.SolvedPercent())
	fmt.Fprintf(out, "    Failed:                      %d\n", s.NumSolutionsFailed)
	fmt.Fprintf(out, "    Timedout:                    %d\n", s.NumSolutionsTimedOut)
	fmt.Fprintf(out, "    Approximate:                 %d\n", s.NumSolutionsApproximate)
	fmt.Fprintf(out, "    Too Short:                   %d\n", s.NumSolutionsTooShort)
	fmt.Fprintf(out, "    Integrity Violations:        %d\n", s.NumIntegrityViolations)
	fmt.Fprintf(out, "    Optimality Regressions:      %d\n", s.NumOptimalityRegressions)
	fmt.Fprintln(out, "  SparseGraph")
	fmt.Fprintf(out, "    Vertices:                    %d\n", b.graph.NumVertices())
	fmt.Fprintf(out, "    Edges:                       %d\n", b.graph.NumEdges())
	fmt.Fprintf(out, "    Sparse Delta:                %f\n", b.graph.SparseDelta())
	fmt.Fprintf(out, "  Average planning time:         %f seconds\n", s.AveragePlanningTime().Seconds())
	fmt.Fprintf(out, "  Average insertion time:        %f seconds\n", s.AverageInsertionTime().Seconds())
	fmt.Fprintln(out)
}

// PrintResultsInfo writes one line per recorded solution to out.
func (b *Bolt) PrintResultsInfo(out io.Writer) {
	for i, sol := range b.pdef.Solutions() {
		fmt.Fprintf(out, "Solution %d\t | Length: %f\t | Approximate: %t\t | Planner: %s\n",
			i, sol.Path.Length(), sol.Approximate, sol.PlannerName)
	}
}
