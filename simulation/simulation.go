// Package simulation orchestrates the lifecycle of a supply-chain run:
// model registration, initial seeding, event-loop execution to a deadline,
// and metric extraction.
package simulation

import (
	"errors"

	"github.com/chainsimlab/chainsim/chain"
	"github.com/chainsimlab/chainsim/claim"
	"github.com/chainsimlab/chainsim/datarecording"
	"github.com/chainsimlab/chainsim/monitoring"
	"github.com/chainsimlab/chainsim/proc"
	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
	"github.com/chainsimlab/chainsim/tracing"
)

// A Simulation provides the services required to run a supply-chain model.
type Simulation struct {
	id string

	engine sim.Engine
	claims *claim.Engine
	rand   *sim.PartitionedRand

	monitor  *monitoring.Monitor
	recorder datarecording.DataRecorder
	tracer   *tracing.DBTracer

	seedCapacity int
	processes    []*proc.Process
}

// Engine returns the engine used in the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// ClaimEngine returns the claim engine used in the simulation.
func (s *Simulation) ClaimEngine() *claim.Engine {
	return s.claims
}

// Monitor returns the monitor used in the simulation, nil if monitoring is
// disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// DataRecorder returns the data recorder used in the simulation, nil if
// recording is disabled.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.recorder
}

// Processes returns the processes registered by the last Simulate call.
func (s *Simulation) Processes() []*proc.Process {
	return s.processes
}

// Simulate seeds the model, registers one production process per unit and
// one shipping process per route, and runs the event loop until the clock
// reaches runUntil or the event queue empties. The model's DataBag is
// mutated in place and preserved even when the run aborts on a fatal
// error.
func (s *Simulation) Simulate(m *chain.Model, runUntil sim.VTime) error {
	if err := s.seedModel(m); err != nil {
		return err
	}

	s.registerProcesses(m)

	for _, p := range s.processes {
		p.StartAt(0)
	}

	runErr := s.engine.RunUntil(runUntil)

	for _, p := range s.processes {
		p.Stop()
	}

	s.engine.Finished()
	s.flushMetrics(m)

	if runErr != nil {
		return runErr
	}

	return s.firstFatalProcessError()
}

// Terminate flushes and closes the attached recorders.
func (s *Simulation) Terminate() {
	if s.recorder != nil {
		s.recorder.Close()
	}
}

// seedModel creates the initial input components. Supply-chain roots
// receive the configured seed capacity; every other unit receives a
// production-size primer so that shipping can observe flow. Seeding never
// exceeds input storage caps and executes before the clock advances from
// zero.
func (s *Simulation) seedModel(m *chain.Model) error {
	for _, u := range m.Units {
		count := u.ProductionSize
		if u.SeedUnit {
			count = s.seedCapacity
		}

		for _, kind := range u.InputKinds() {
			free := u.InputStorageCap - u.InputLocation.Size()
			if count < free {
				free = count
			}

			if free <= 0 {
				continue
			}

			components := make([]resource.Resource, free)
			for i := range components {
				components[i] = resource.NewComponent(kind, m.OriginOf(kind))
			}

			if err := u.InputLocation.Deposit(components...); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Simulation) registerProcesses(m *chain.Model) {
	for _, u := range m.Units {
		p := proc.New(u.Name()+".production", s.engine, s.claims,
			chain.ProductionBody(u, m.Bag))
		s.addProcess(p)

		if s.monitor != nil {
			bar := s.monitor.CreateProgressBar(p.Name(), 0)
			tracing.CollectTrace(p, &progressBarTracer{bar: bar})
		}
	}

	for _, r := range m.Routes {
		p := proc.New(r.Name()+".shipping", s.engine, s.claims,
			chain.ShippingBody(r, m.Bag)).
			WithRand(s.rand.Stream(r.Name()))
		s.addProcess(p)
	}

	if s.monitor != nil {
		for _, l := range m.Locations() {
			s.monitor.RegisterLocation(l)
		}

		s.monitor.RegisterMetrics(m.Bag)
	}
}

func (s *Simulation) addProcess(p *proc.Process) {
	s.processes = append(s.processes, p)

	if s.tracer != nil {
		tracing.CollectTrace(p, s.tracer)
	}

	if s.monitor != nil {
		s.monitor.RegisterProcess(p)
	}
}

// progressBarTracer advances a monitor progress bar as the traced process
// starts and completes its cycles.
type progressBarTracer struct {
	bar *monitoring.ProgressBar
}

func (t *progressBarTracer) StartTask(_ tracing.Task) {
	t.bar.IncrementInProgress(1)
}

func (t *progressBarTracer) EndTask(_ tracing.Task) {
	t.bar.MoveInProgressToFinished(1)
}

// metricRow is the shape DataBag counters are recorded as.
type metricRow struct {
	Name  string
	Value int64
}

func (s *Simulation) flushMetrics(m *chain.Model) {
	if s.recorder == nil {
		return
	}

	s.recorder.CreateTable("metrics", metricRow{})
	for _, key := range m.Bag.Keys() {
		s.recorder.InsertData("metrics", metricRow{
			Name:  key,
			Value: m.Bag.Get(key),
		})
	}

	s.recorder.Flush()
}

func (s *Simulation) firstFatalProcessError() error {
	for _, p := range s.processes {
		err := p.Err()
		if err != nil && !errors.Is(err, sim.ErrDeadline) {
			return err
		}
	}

	return nil
}

// Simulate is a convenience wrapper: it builds a default simulation (seed
// 0) and runs the model until the deadline.
func Simulate(m *chain.Model, runUntil sim.VTime) error {
	return MakeBuilder().Build().Simulate(m, runUntil)
}
