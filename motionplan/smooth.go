package motionplan

import "go.viam.com/bolt/statespace"

// ShortcutPath returns a copy of path in which every waypoint whose neighbors can be joined
// directly has been removed. Passes repeat until no waypoint can be dropped.
func ShortcutPath(si *statespace.Info, path *Path) *Path {
	states := append([]statespace.State{}, path.States()...)
	for {
		originalSize := len(states)
		// look at each triplet, see if we can remove the middle one
		for i := 2; i < len(states); i++ {
			if !si.CheckMotion(states[i-2], states[i]) {
				continue
			}
			states = append(states[:i-1], states[i:]...)
			i--
		}
		if len(states) == originalSize {
			break
		}
	}
	return NewPath(path.space, states...)
}
