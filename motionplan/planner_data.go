package motionplan

import "go.viam.com/bolt/statespace"

// Tags of planner data vertices.
const (
	StartTreeTag = 1
	GoalTreeTag  = 2
)

// PlannerDataVertex is a state explored by a planner.
type PlannerDataVertex struct {
	State statespace.State
	Tag   int
}

// PlannerDataEdge is a directed edge between two vertex indexes.
type PlannerDataEdge struct {
	From int
	To   int
}

// PlannerData is a snapshot of the trees explored by a planner. Every edge points away from the
// start: goal tree edges run from child to parent.
type PlannerData struct {
	Vertices      []PlannerDataVertex
	Edges         []PlannerDataEdge
	StartVertices []int
	GoalVertices  []int
}

// PlannerData returns the explored trees. The states are copies. When the trees were connected the
// bridging edge is included.
func (mp *ERRTConnect) PlannerData() *PlannerData {
	space := mp.si.Space()
	data := &PlannerData{}

	for i := 0; i < mp.tStart.size(); i++ {
		data.Vertices = append(data.Vertices, PlannerDataVertex{State: space.CloneState(mp.tStart.state(i)), Tag: StartTreeTag})
		if p := mp.tStart.parent(i); p == noMotion {
			data.StartVertices = append(data.StartVertices, i)
		} else {
			data.Edges = append(data.Edges, PlannerDataEdge{From: p, To: i})
		}
	}

	offset := mp.tStart.size()
	for i := 0; i < mp.tGoal.size(); i++ {
		data.Vertices = append(data.Vertices, PlannerDataVertex{State: space.CloneState(mp.tGoal.state(i)), Tag: GoalTreeTag})
		if p := mp.tGoal.parent(i); p == noMotion {
			data.GoalVertices = append(data.GoalVertices, offset+i)
		} else {
			data.Edges = append(data.Edges, PlannerDataEdge{From: offset + i, To: offset + p})
		}
	}

	// A start that is also the goal joins the trees without a bridge edge.
	if mp.connection != nil && mp.connection.goalMotion != noMotion {
		data.Edges = append(data.Edges, PlannerDataEdge{
			From: mp.connection.startMotion,
			To:   offset + mp.connection.goalMotion,
		})
	}
	return data
}

// NumVertices returns the number of vertices.
func (pd *PlannerData) NumVertices() int {
	return len(pd.Vertices)
}

// NumEdges returns the number of edges.
func (pd *PlannerData) NumEdges() int {
	return len(pd.Edges)
}
