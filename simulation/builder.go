package simulation

import (
	"github.com/rs/xid"

	"github.com/chainsimlab/chainsim/claim"
	"github.com/chainsimlab/chainsim/datarecording"
	"github.com/chainsimlab/chainsim/monitoring"
	"github.com/chainsimlab/chainsim/sim"
	"github.com/chainsimlab/chainsim/tracing"
)

// DefaultSeedCapacity is the number of input components seeded into each
// supply-chain root before the clock advances.
const DefaultSeedCapacity = 20000

// Builder can be used to build a simulation.
type Builder struct {
	seed           int64
	seedCapacity   int
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	tracingOn      bool
	outputFileName string
}

// MakeBuilder creates a new builder with the default configuration:
// seed 0, default seed capacity, no monitoring, no data recording.
func MakeBuilder() Builder {
	return Builder{
		seedCapacity: DefaultSeedCapacity,
	}
}

// WithSeed sets the master seed of the injected random source.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithSeedCapacity sets how many input components are seeded into each
// supply-chain root.
func (b Builder) WithSeedCapacity(n int) Builder {
	b.seedCapacity = n
	return b
}

// WithMonitoring starts a monitoring server for the simulation.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDataRecording persists run metrics into a SQLite database.
func (b Builder) WithDataRecording() Builder {
	b.recordingOn = true
	return b
}

// WithTracing records per-cycle and per-shipment tasks into the database.
// Implies data recording.
func (b Builder) WithTracing() Builder {
	b.tracingOn = true
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data
// recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}

	if b.seedCapacity <= 0 {
		panic("seed capacity must be positive")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:           xid.New().String(),
		seedCapacity: b.seedCapacity,
	}

	s.engine = sim.NewSerialEngine()
	s.claims = claim.NewEngine(s.engine)
	s.rand = sim.NewPartitionedRand(b.seed)

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "chainsim_" + s.id
		}
		s.recorder = datarecording.New(outputPath)
	}

	if b.tracingOn {
		s.tracer = tracing.NewDBTracer(s.engine, s.recorder)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	return s
}
