package tracing

import (
	"github.com/chainsimlab/chainsim/sim"
)

// AverageTimeTracer can collect the average virtual time of a certain type
// of task.
type AverageTimeTracer struct {
	timeTeller    sim.TimeTeller
	filter        TaskFilter
	totalTime     sim.VTime
	taskCount     int64
	inflightTasks map[string]Task
}

// NewAverageTimeTracer creates a new AverageTimeTracer.
func NewAverageTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	return &AverageTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// AverageTime returns the average time of the traced tasks, zero if none
// completed.
func (t *AverageTimeTracer) AverageTime() sim.VTime {
	if t.taskCount == 0 {
		return 0
	}

	return t.totalTime / sim.VTime(t.taskCount)
}

// TaskCount returns the number of completed traced tasks.
func (t *AverageTimeTracer) TaskCount() int64 {
	return t.taskCount
}

// StartTask records the task start time.
func (t *AverageTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if !t.filter(task) {
		return
	}

	t.inflightTasks[task.ID] = task
}

// EndTask records the end of the task.
func (t *AverageTimeTracer) EndTask(task Task) {
	original, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, task.ID)

	t.totalTime += t.timeTeller.CurrentTime() - original.StartTime
	t.taskCount++
}
