package tracing

import "github.com/chainsimlab/chainsim/sim"

// A Task is a unit of work whose lifetime is traced, such as one production
// cycle or one shipment.
type Task struct {
	ID        string      `json:"id"`
	ParentID  string      `json:"parent_id"`
	Kind      string      `json:"kind"`
	What      string      `json:"what"`
	Where     string      `json:"where"`
	StartTime sim.VTime   `json:"start_time"`
	EndTime   sim.VTime   `json:"end_time"`
	Detail    interface{} `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this
// function returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// AnyTask is a TaskFilter that accepts every task.
func AnyTask(_ Task) bool {
	return true
}

// TaskKindIs returns a TaskFilter that accepts tasks of one kind.
func TaskKindIs(kind string) TaskFilter {
	return func(t Task) bool {
		return t.Kind == kind
	}
}
