// Package viz renders 2-D planning problems to PNG files.
package viz

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/bolt/logging"
	"go.viam.com/bolt/motionplan"
	"go.viam.com/bolt/roadmap"
	"go.viam.com/bolt/statespace"
)

const plotSize = 8 * vg.Inch

var (
	obstacleColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	roadmapColor   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	startTreeColor = color.RGBA{R: 60, G: 170, B: 60, A: 255}
	goalTreeColor  = color.RGBA{R: 240, G: 150, B: 40, A: 255}
	pathColor      = color.RGBA{R: 30, G: 60, B: 220, A: 255}
	stateColor     = color.RGBA{R: 220, G: 30, B: 30, A: 255}
)

var errNotPlanar = errors.New("only the first two dimensions can be drawn, state has fewer")

// Plotter collects paths, states and search trees and writes them, over the obstacles and the
// roadmap, to a new PNG file on each Trigger. Only the first two coordinates of states are drawn.
type Plotter struct {
	mu        sync.Mutex
	outputDir string
	prefix    string
	logger    logging.Logger

	graph     *roadmap.SparseGraph
	obstacles []r2.Rect

	paths  []*motionplan.Path
	states []statespace.State
	data   *motionplan.PlannerData

	frame    int
	lastFile string
}

// NewPlotter returns a plotter writing <prefix>_<frame>.png files into outputDir.
func NewPlotter(outputDir, prefix string, logger logging.Logger) *Plotter {
	return &Plotter{outputDir: outputDir, prefix: prefix, logger: logger}
}

// SetRoadmap draws the edges of g underneath everything else.
func (p *Plotter) SetRoadmap(g *roadmap.SparseGraph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graph = g
}

// SetObstacles draws the boxes of o.
func (p *Plotter) SetObstacles(o *statespace.BoxObstacles2D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obstacles = o.Boxes()
}

// Path adds a path to the next frame.
func (p *Plotter) Path(path *motionplan.Path) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path.Clone())
}

// State highlights a state in the next frame.
func (p *Plotter) State(s statespace.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, append(statespace.State{}, s...))
}

// PlannerData sets the search trees of the next frame.
func (p *Plotter) PlannerData(data *motionplan.PlannerData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
}

// Trigger renders a frame and starts collecting the next one.
func (p *Plotter) Trigger() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	plt := plot.New()
	plt.Title.Text = fmt.Sprintf("%s %d", p.prefix, p.frame)
	plt.X.Label.Text = "x"
	plt.Y.Label.Text = "y"

	if err := p.addObstacles(plt); err != nil {
		return err
	}
	if err := p.addRoadmap(plt); err != nil {
		return err
	}
	if err := p.addPlannerData(plt); err != nil {
		return err
	}
	for _, path := range p.paths {
		if err := addPath(plt, path); err != nil {
			return err
		}
	}
	if len(p.states) > 0 {
		pts, err := toXYs(p.states)
		if err != nil {
			return err
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = stateColor
		scatter.GlyphStyle.Radius = vg.Points(4)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		plt.Add(scatter)
	}

	if err := os.MkdirAll(p.outputDir, 0o750); err != nil {
		return err
	}
	file := filepath.Join(p.outputDir, fmt.Sprintf("%s_%03d.png", p.prefix, p.frame))
	if err := plt.Save(plotSize, plotSize, file); err != nil {
		return errors.Wrapf(err, "saving %s", file)
	}
	p.logger.Debugf("wrote %s", file)

	p.frame++
	p.lastFile = file
	p.paths = nil
	p.states = nil
	p.data = nil
	return nil
}

// LastFile returns the file written by the last Trigger, or "" before the first one.
func (p *Plotter) LastFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFile
}

func (p *Plotter) addObstacles(plt *plot.Plot) error {
	for _, box := range p.obstacles {
		poly, err := plotter.NewPolygon(plotter.XYs{
			{X: box.X.Lo, Y: box.Y.Lo},
			{X: box.X.Hi, Y: box.Y.Lo},
			{X: box.X.Hi, Y: box.Y.Hi},
			{X: box.X.Lo, Y: box.Y.Hi},
		})
		if err != nil {
			return err
		}
		poly.Color = obstacleColor
		poly.LineStyle.Width = 0
		plt.Add(poly)
	}
	return nil
}

func (p *Plotter) addRoadmap(plt *plot.Plot) error {
	if p.graph == nil {
		return nil
	}
	for _, e := range p.graph.Edges() {
		if err := addSegment(plt, p.graph.VertexState(e.A), p.graph.VertexState(e.B), roadmapColor, 0.5); err != nil {
			return err
		}
	}
	if p.graph.NumVertices() == 0 {
		return nil
	}
	vertices := make([]statespace.State, 0, p.graph.NumVertices())
	for i := 0; i < p.graph.NumVertices(); i++ {
		vertices = append(vertices, p.graph.VertexState(roadmap.VertexID(i)))
	}
	pts, err := toXYs(vertices)
	if err != nil {
		return err
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = roadmapColor
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	plt.Add(scatter)
	return nil
}

func (p *Plotter) addPlannerData(plt *plot.Plot) error {
	if p.data == nil {
		return nil
	}
	for _, e := range p.data.Edges {
		c := startTreeColor
		if p.data.Vertices[e.From].Tag == motionplan.GoalTreeTag && p.data.Vertices[e.To].Tag == motionplan.GoalTreeTag {
			c = goalTreeColor
		}
		if err := addSegment(plt, p.data.Vertices[e.From].State, p.data.Vertices[e.To].State, c, 0.75); err != nil {
			return err
		}
	}
	return nil
}

func addPath(plt *plot.Plot, path *motionplan.Path) error {
	pts, err := toXYs(path.States())
	if err != nil {
		return err
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = pathColor
	line.Width = vg.Points(2)
	points.GlyphStyle.Color = pathColor
	points.GlyphStyle.Radius = vg.Points(2.5)
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	plt.Add(line, points)
	return nil
}

func addSegment(plt *plot.Plot, a, b statespace.State, c color.Color, width float64) error {
	pts, err := toXYs([]statespace.State{a, b})
	if err != nil {
		return err
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(width)
	plt.Add(line)
	return nil
}

func toXYs(states []statespace.State) (plotter.XYs, error) {
	pts := make(plotter.XYs, 0, len(states))
	for _, s := range states {
		if len(s) < 2 {
			return nil, errNotPlanar
		}
		pts = append(pts, plotter.XY{X: s[0], Y: s[1]})
	}
	return pts, nil
}
