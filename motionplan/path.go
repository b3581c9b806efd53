package motionplan

import (
	"go.viam.com/bolt/statespace"
)

// Path is an ordered list of states of one space. The path owns copies of its states.
type Path struct {
	space  statespace.Space
	states []statespace.State
}

// NewPath returns a path through copies of states.
func NewPath(space statespace.Space, states ...statespace.State) *Path {
	p := &Path{space: space, states: make([]statespace.State, 0, len(states))}
	for _, s := range states {
		p.Append(s)
	}
	return p
}

// Append adds a copy of s to the end of the path.
func (p *Path) Append(s statespace.State) {
	p.states = append(p.states, p.space.CloneState(s))
}

// StateCount returns the number of states.
func (p *Path) StateCount() int {
	return len(p.states)
}

// State returns the i-th state. It is owned by the path.
func (p *Path) State(i int) statespace.State {
	return p.states[i]
}

// States returns the states of the path. They are owned by the path.
func (p *Path) States() []statespace.State {
	return p.states
}

// Length is the sum of the distances between consecutive states.
func (p *Path) Length() float64 {
	var length float64
	for i := 1; i < len(p.states); i++ {
		length += p.space.Distance(p.states[i-1], p.states[i])
	}
	return length
}

// Clone returns a deep copy of the path.
func (p *Path) Clone() *Path {
	return NewPath(p.space, p.states...)
}

// Reverse reverses the order of the states in place.
func (p *Path) Reverse() {
	for i, j := 0, len(p.states)-1; i < j; i, j = i+1, j-1 {
		p.states[i], p.states[j] = p.states[j], p.states[i]
	}
}

// Check reports whether every state and every motion of the path is valid in si.
func (p *Path) Check(si *statespace.Info) bool {
	for i, s := range p.states {
		if !si.IsValid(s) {
			return false
		}
		if i > 0 && !si.CheckMotion(p.states[i-1], s) {
			return false
		}
	}
	return true
}
