package motionplan

import (
	"go.viam.com/bolt/statespace"
)

const noMotion = -1

// motion is a node of a search tree. parent and root are indexes into the same tree.
type motion struct {
	state  statespace.State
	parent int
	root   int
}

// tree is an arena of motions. Motions are only ever added; the whole tree is cleared at once.
type tree struct {
	space   statespace.Space
	motions []motion
	nm      *neighborManager
}

func newTree(space statespace.Space) *tree {
	return &tree{space: space, nm: newNeighborManager()}
}

// add appends a motion owning a copy of state. A root is its own root; any other motion inherits
// the root of its parent.
func (t *tree) add(state statespace.State, parent int) int {
	idx := len(t.motions)
	root := idx
	if parent != noMotion {
		root = t.motions[parent].root
	}
	t.motions = append(t.motions, motion{
		state:  t.space.CloneState(state),
		parent: parent,
		root:   root,
	})
	return idx
}

// nearest returns the motion closest to s, the earliest one on ties, or noMotion when empty.
func (t *tree) nearest(s statespace.State) (int, float64) {
	n := t.nm.nearestNeighbor(t.space, t.motions, s)
	return n.idx, n.dist
}

func (t *tree) size() int {
	return len(t.motions)
}

func (t *tree) state(i int) statespace.State {
	return t.motions[i].state
}

func (t *tree) parent(i int) int {
	return t.motions[i].parent
}

func (t *tree) root(i int) int {
	return t.motions[i].root
}

func (t *tree) clear() {
	t.motions = nil
}
