// Package main plans random problems in a 2-D world with walls, reusing and growing a roadmap
// across problems.
package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagProblems       = "problems"
	flagParallel       = "parallel"
	flagTimeout        = "timeout"
	flagSeed           = "seed"
	flagLatticeSpacing = "lattice-spacing"
	flagRoadmap        = "roadmap"
	flagStorage        = "storage"
	flagInsertPaths    = "insert-paths"
	flagOptimality     = "check-optimality"
	flagPNGDir         = "png-dir"
	flagDebug          = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bolt2d",
		Usage: "solve random 2-D planning problems over a reusable roadmap",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagProblems,
				Value: 10,
				Usage: "number of problems to solve",
			},
			&cli.IntFlag{
				Name:  flagParallel,
				Value: 1,
				Usage: "number of planners solving problems concurrently over the same roadmap",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: 5 * time.Second,
				Usage: "time allowed to each problem",
			},
			&cli.Int64Flag{
				Name:  flagSeed,
				Value: 1,
				Usage: "seed of the problem generator and planners",
			},
			&cli.Float64Flag{
				Name:  flagLatticeSpacing,
				Value: 1,
				Usage: "spacing of the lattice used to seed an empty roadmap, 0 disables seeding",
			},
			&cli.StringFlag{
				Name:  flagRoadmap,
				Usage: "load the roadmap from and save it to `PATH`, without extension",
			},
			&cli.StringFlag{
				Name:  flagStorage,
				Value: "file",
				Usage: "roadmap storage, file or sqlite",
			},
			&cli.BoolFlag{
				Name:  flagInsertPaths,
				Value: true,
				Usage: "add solution paths to the roadmap after each problem",
			},
			&cli.BoolFlag{
				Name:  flagOptimality,
				Usage: "check each solution against the roadmap's optimality guarantee",
			},
			&cli.StringFlag{
				Name:  flagPNGDir,
				Usage: "render the solutions of the first planner as PNG files into `DIR`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: runProblems,
	}
}
