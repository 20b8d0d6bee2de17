package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/chainsimlab/chainsim/sim"
)

// CSVTraceWriter is a tracer that stores completed tasks in a CSV file.
type CSVTraceWriter struct {
	timeTeller sim.TimeTeller
	path       string
	file       *os.File

	inflight   map[string]Task
	tasks      []Task
	bufferSize int
}

// NewCSVTraceWriter creates a CSVTraceWriter writing to the given path. An
// empty path picks a generated file name.
func NewCSVTraceWriter(timeTeller sim.TimeTeller, path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		timeTeller: timeTeller,
		path:       path,
		inflight:   make(map[string]Task),
		bufferSize: 1000,
	}
}

// Init creates the tracing CSV file. If the file already exists, Init
// panics rather than overwrite it.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "chainsim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "ID, ParentID, Kind, What, Where, Start, End\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// StartTask records the start time of a task.
func (t *CSVTraceWriter) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()
	t.inflight[task.ID] = task
}

// EndTask completes a task and buffers it for writing.
func (t *CSVTraceWriter) EndTask(task Task) {
	original, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	original.EndTime = t.timeTeller.CurrentTime()

	t.tasks = append(t.tasks, original)
	if len(t.tasks) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered tasks to the CSV file.
func (t *CSVTraceWriter) Flush() {
	for _, task := range t.tasks {
		fmt.Fprintf(t.file, "%s, %s, %s, %s, %s, %d, %d\n",
			task.ID,
			task.ParentID,
			task.Kind,
			task.What,
			task.Where,
			task.StartTime,
			task.EndTime,
		)
	}

	t.tasks = nil
}
