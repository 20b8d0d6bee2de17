package tracing

import (
	"github.com/chainsimlab/chainsim/sim"
)

// TotalTimeTracer collects the total virtual time spent on a certain type
// of task. If the execution of two tasks overlaps, the overlap is counted
// twice.
type TotalTimeTracer struct {
	timeTeller    sim.TimeTeller
	filter        TaskFilter
	totalTime     sim.VTime
	inflightTasks map[string]Task
}

// NewTotalTimeTracer creates a new TotalTimeTracer.
func NewTotalTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *TotalTimeTracer {
	return &TotalTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// TotalTime returns the total time spent on the traced tasks.
func (t *TotalTimeTracer) TotalTime() sim.VTime {
	return t.totalTime
}

// StartTask records the task start time.
func (t *TotalTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if !t.filter(task) {
		return
	}

	t.inflightTasks[task.ID] = task
}

// EndTask records the end of the task.
func (t *TotalTimeTracer) EndTask(task Task) {
	original, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, task.ID)

	t.totalTime += t.timeTeller.CurrentTime() - original.StartTime
}
