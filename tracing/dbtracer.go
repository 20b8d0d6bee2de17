package tracing

import (
	"github.com/chainsimlab/chainsim/datarecording"
	"github.com/chainsimlab/chainsim/sim"
)

// taskRow is the flat shape a task is recorded as.
type taskRow struct {
	ID       string
	ParentID string
	Kind     string
	What     string
	Where    string
	Start    int64
	End      int64
}

// DBTracer stores completed tasks in the simulation's data recorder.
type DBTracer struct {
	timeTeller sim.TimeTeller
	recorder   datarecording.DataRecorder

	inflight map[string]Task
}

// NewDBTracer creates a DBTracer writing into the given recorder.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	recorder datarecording.DataRecorder,
) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		recorder:   recorder,
		inflight:   make(map[string]Task),
	}

	recorder.CreateTable("trace", taskRow{})

	return t
}

// StartTask records the start time of a task.
func (t *DBTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()
	t.inflight[task.ID] = task
}

// EndTask completes a task and inserts it into the trace table.
func (t *DBTracer) EndTask(task Task) {
	original, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)

	t.recorder.InsertData("trace", taskRow{
		ID:       original.ID,
		ParentID: original.ParentID,
		Kind:     original.Kind,
		What:     original.What,
		Where:    original.Where,
		Start:    int64(original.StartTime),
		End:      int64(t.timeTeller.CurrentTime()),
	})
}
