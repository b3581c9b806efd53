package statespace

import (
	"github.com/golang/geo/r2"
)

// BoxObstacles2D is a validity checker for planar worlds: a state is valid when its first two
// coordinates fall outside every box.
type BoxObstacles2D struct {
	boxes []r2.Rect
}

// NewBoxObstacles2D returns a checker over the given boxes.
func NewBoxObstacles2D(boxes ...r2.Rect) *BoxObstacles2D {
	return &BoxObstacles2D{boxes: append([]r2.Rect{}, boxes...)}
}

// AddBox adds the axis aligned box spanned by the two corners.
func (b *BoxObstacles2D) AddBox(minX, minY, maxX, maxY float64) {
	b.boxes = append(b.boxes, r2.RectFromPoints(r2.Point{X: minX, Y: minY}, r2.Point{X: maxX, Y: maxY}))
}

// Boxes returns the obstacles.
func (b *BoxObstacles2D) Boxes() []r2.Rect {
	return b.boxes
}

// IsValid implements ValidityChecker.
func (b *BoxObstacles2D) IsValid(s State) bool {
	if len(s) < 2 {
		return false
	}
	p := r2.Point{X: s[0], Y: s[1]}
	for _, box := range b.boxes {
		if box.ContainsPoint(p) {
			return false
		}
	}
	return true
}
