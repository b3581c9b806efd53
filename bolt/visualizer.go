package bolt

import (
	"context"

	"go.viam.com/bolt/motionplan"
	"go.viam.com/bolt/statespace"
)

// Visualizer receives what the orchestrator wants shown. Trigger renders everything received since
// the last call.
type Visualizer interface {
	Path(path *motionplan.Path)
	State(s statespace.State)
	PlannerData(data *motionplan.PlannerData)
	Trigger() error
}

type noopVisualizer struct{}

func (noopVisualizer) Path(*motionplan.Path)               {}
func (noopVisualizer) State(statespace.State)              {}
func (noopVisualizer) PlannerData(*motionplan.PlannerData) {}
func (noopVisualizer) Trigger() error                      { return nil }

// PathInserter adds solution paths to a roadmap. The rules deciding what is kept belong to the
// inserter.
type PathInserter interface {
	InsertPath(ctx context.Context, path *motionplan.Path) error
}
