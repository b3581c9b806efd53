package main

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/bolt/bolt"
	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
	"go.viam.com/bolt/viz"
)

const worldSize = 10.

// newWorld returns the 10x10 demo world: two offset walls forming an S-shaped corridor.
func newWorld() (*statespace.Info, *statespace.BoxObstacles2D, error) {
	space, err := statespace.NewRealVectorSpace([]float64{0, 0}, []float64{worldSize, worldSize})
	if err != nil {
		return nil, nil, err
	}
	obstacles := statespace.NewBoxObstacles2D()
	obstacles.AddBox(3, 0, 4, 7)
	obstacles.AddBox(6, 3, 7, 10)

	si := statespace.NewInfo(space)
	si.SetValidityChecker(obstacles)
	if err := si.Setup(); err != nil {
		return nil, nil, err
	}
	return si, obstacles, nil
}

func runProblems(c *cli.Context) (err error) {
	level := logging.INFO
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewWriterLogger("bolt2d", level, c.App.ErrWriter)
	ctx := c.Context

	parallel := c.Int(flagParallel)
	if parallel < 1 {
		return errors.Errorf("--%s must be at least 1", flagParallel)
	}

	si, obstacles, err := newWorld()
	if err != nil {
		return err
	}
	opts, err := bolt.NewOptionsFromExtra(map[string]interface{}{
		"timeout":          c.Duration(flagTimeout).Seconds(),
		"storage":          c.String(flagStorage),
		"check_optimality": c.Bool(flagOptimality),
		"rseed":            c.Int64(flagSeed),
	})
	if err != nil {
		return err
	}

	graph := roadmap.NewSparseGraph(si.Space(), logger.Sublogger("roadmap"))
	graph.SetCriteria(opts.Criteria())

	planners := make([]*bolt.Bolt, parallel)
	for i := range planners {
		plannerOpts := *opts
		po := *opts.Planner
		po.RandomSeed += i
		plannerOpts.Planner = &po
		if planners[i], err = bolt.NewWithRoadmap(si, graph, logger.Sublogger("bolt"), &plannerOpts); err != nil {
			return err
		}
		if c.Bool(flagInsertPaths) {
			planners[i].SetPathInserter(newChainInserter(si, graph))
		}
	}
	primary := planners[0]
	// the planners share the roadmap and its storage
	defer func() {
		err = multierr.Combine(err, primary.Close())
	}()

	if basePath := c.String(flagRoadmap); basePath != "" {
		if err := primary.SetFilePath(basePath); err != nil {
			return err
		}
		if _, err := primary.Load(ctx); err != nil {
			return err
		}
	}
	if graph.IsEmpty() && c.Float64(flagLatticeSpacing) > 0 {
		if err := seedLattice(si, graph, c.Float64(flagLatticeSpacing)); err != nil {
			return err
		}
		logger.Infof("seeded roadmap with %d vertices and %d edges", graph.NumVertices(), graph.NumEdges())
	}

	if dir := c.String(flagPNGDir); dir != "" {
		plotter := viz.NewPlotter(dir, "bolt2d", logger.Sublogger("viz"))
		plotter.SetObstacles(obstacles)
		plotter.SetRoadmap(graph)
		primary.SetVisualizer(plotter)
	}

	problems := c.Int(flagProblems)
	g, gctx := errgroup.WithContext(ctx)
	for w, b := range planners {
		w, b := w, b
		g.Go(func() error {
			//nolint:gosec
			rng := rand.New(rand.NewSource(c.Int64(flagSeed) + int64(w)))
			sampler := si.AllocStateSampler(rng)
			for i := w; i < problems; i += parallel {
				if err := solveOne(gctx, logger, b, si, sampler); err != nil {
					return errors.Wrapf(err, "problem %d", i)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, b := range planners {
		b.PrintLogs(c.App.Writer)
	}
	if c.String(flagRoadmap) != "" {
		return primary.SaveIfChanged(ctx)
	}
	return nil
}

func solveOne(ctx context.Context, logger logging.Logger, b *bolt.Bolt, si *statespace.Info, sampler statespace.Sampler) error {
	start := sampleValid(si, sampler)
	goal := sampleValid(si, sampler)
	b.ClearForNextPlan()
	b.SetStartAndGoalStates(start, goal, 0)

	status, err := b.SolveFor(ctx, 0)
	if err != nil {
		return err
	}
	if path, ok := b.SolutionPath(); ok {
		logger.Infow("solved", "status", status.String(), "states", path.StateCount(), "length", path.Length(),
			"duration", b.LastPlanDuration().String())
	} else {
		logger.Infow("not solved", "status", status.String())
	}
	return b.DoPostProcessing(ctx)
}

func sampleValid(si *statespace.Info, sampler statespace.Sampler) statespace.State {
	s := si.Space().AllocState()
	for {
		sampler.SampleUniform(s)
		if si.IsValid(s) {
			return s
		}
	}
}
