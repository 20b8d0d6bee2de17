// Package monitoring turns a running simulation into a small web server
// that allows external observation and control: pausing and continuing the
// engine, inspecting location fill levels and process states, progress
// bars, and host resource usage.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/chainsimlab/chainsim/sim"
)

// A LevelReporter exposes the fill level of a storage. Locations implement
// it.
type LevelReporter interface {
	Name() string
	Size() int
	Capacity() int
}

// A ProcessReporter exposes the observable state of a process.
type ProcessReporter interface {
	Name() string
	StateName() string
	WaitReason() string
}

// A MetricSource exposes named counters. The DataBag implements it.
type MetricSource interface {
	Keys() []string
	Get(key string) int64
}

// Monitor can turn a simulation into a server and allows external
// monitoring and controlling of the simulation.
type Monitor struct {
	engine     sim.Engine
	locations  []LevelReporter
	processes  []ProcessReporter
	metrics    MetricSource
	portNumber int
	openPage   bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor. Environment variables from a .env file,
// if present, configure the defaults: CHAINSIM_MONITOR_PORT sets the port
// and CHAINSIM_MONITOR_OPEN opens the page in a browser.
func NewMonitor() *Monitor {
	m := &Monitor{}

	_ = godotenv.Load()

	if port, err := strconv.Atoi(
		os.Getenv("CHAINSIM_MONITOR_PORT")); err == nil {
		m.WithPortNumber(port)
	}

	if open := os.Getenv("CHAINSIM_MONITOR_OPEN"); open == "true" || open == "1" {
		m.openPage = true
	}

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterLocation registers a location to be monitored.
func (m *Monitor) RegisterLocation(l LevelReporter) {
	m.locations = append(m.locations, l)
}

// RegisterProcess registers a process to be monitored.
func (m *Monitor) RegisterProcess(p ProcessReporter) {
	m.processes = append(m.processes, p)
}

// RegisterMetrics registers the metric source shown by the metrics
// endpoint.
func (m *Monitor) RegisterMetrics(src MetricSource) {
	m.metrics = src
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/locations", m.listLocations)
	r.HandleFunc("/api/location/{name}", m.listLocationDetails)
	r.HandleFunc("/api/processes", m.listProcesses)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/metrics", m.listMetrics)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	if m.openPage {
		_ = browser.OpenURL(url)
	}

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%d}", now)
}

// listLocations reports location fill levels, the fullest first, so that
// back-pressured storages surface at the top.
func (m *Monitor) listLocations(w http.ResponseWriter, _ *http.Request) {
	sorted := make([]LevelReporter, len(m.locations))
	copy(sorted, m.locations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return levelPercent(sorted[i]) > levelPercent(sorted[j])
	})

	fmt.Fprint(w, "[")
	for i, l := range sorted {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "{\"location\":\"%s\",\"level\":%d,\"cap\":%d}",
			l.Name(), l.Size(), l.Capacity())
	}
	fmt.Fprint(w, "]")
}

func levelPercent(l LevelReporter) float64 {
	if l.Capacity() == 0 {
		return 0
	}

	return float64(l.Size()) / float64(l.Capacity())
}

func (m *Monitor) listLocationDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var location LevelReporter
	for _, l := range m.locations {
		if l.Name() == name {
			location = l
		}
	}

	if location == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Location not found"))
		dieOnErr(err)

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(location)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type processRsp struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	WaitReason string `json:"wait_reason,omitempty"`
}

func (m *Monitor) listProcesses(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]processRsp, 0, len(m.processes))
	for _, p := range m.processes {
		rsp = append(rsp, processRsp{
			Name:       p.Name(),
			State:      p.StateName(),
			WaitReason: p.WaitReason(),
		})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listMetrics(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "{")
	if m.metrics != nil {
		for i, key := range m.metrics.Keys() {
			if i > 0 {
				fmt.Fprint(w, ",")
			}

			fmt.Fprintf(w, "\"%s\":%d", key, m.metrics.Get(key))
		}
	}
	fmt.Fprint(w, "}")
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	rsp, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(rsp)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
