// Package proc runs cooperative processes over the simulation kernel. Each
// process body executes in its own goroutine, synchronized with the engine
// by a strict two-channel handoff so that exactly one goroutine runs at any
// instant. A body only yields control at its suspension primitives: hold,
// claim, and termination.
package proc

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/chainsimlab/chainsim/claim"
	"github.com/chainsimlab/chainsim/sim"
)

// A Body is the behavior of a process. It runs until the simulation ends or
// it returns. Errors other than the recoverable kinds terminate the
// simulation.
type Body func(ctx *Context) error

// State enumerates the lifecycle of a process.
type State int

// Process states.
const (
	// Ready means the process is created but has not run yet.
	Ready State = iota
	// Running means the process is currently executing a step.
	Running
	// Waiting means the process is suspended on a hold or a claim.
	Waiting
	// Done means the process body returned.
	Done
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Done:
		return "done"
	}

	return "unknown"
}

// A Process is a resumable cooperative task driven by the event engine.
type Process struct {
	sim.HookableBase

	name   string
	body   Body
	engine sim.Engine
	claims *claim.Engine
	rand   *rand.Rand

	stateLock  sync.Mutex
	state      State
	waitReason string
	err        error

	started bool
	resume  chan error
	yielded chan struct{}
	stop    chan struct{}

	pendingHold  *holdEvent
	pendingClaim *claim.Claim
	deadlines    []*deadlineEvent

	ctx *Context
}

// New creates a process with the given body. The process does not run until
// StartAt schedules its kickoff.
func New(
	name string,
	engine sim.Engine,
	claims *claim.Engine,
	body Body,
) *Process {
	p := &Process{
		name:    name,
		body:    body,
		engine:  engine,
		claims:  claims,
		resume:  make(chan error),
		yielded: make(chan struct{}),
		stop:    make(chan struct{}),
	}
	p.ctx = &Context{p: p}

	return p
}

// WithRand assigns the random stream the process draws from.
func (p *Process) WithRand(r *rand.Rand) *Process {
	p.rand = r
	return p
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// State returns the current lifecycle state of the process.
func (p *Process) State() State {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()

	return p.state
}

// StateName returns the current state as a string, for monitoring.
func (p *Process) StateName() string {
	return p.State().String()
}

// WaitReason reports what a waiting process is suspended on.
func (p *Process) WaitReason() string {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()

	return p.waitReason
}

// Err returns the error the process body terminated with, if any.
func (p *Process) Err() error {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()

	return p.err
}

func (p *Process) setState(s State, reason string) {
	p.stateLock.Lock()
	p.state = s
	p.waitReason = reason
	p.stateLock.Unlock()
}

// StartAt schedules the kickoff of the process at the given time.
func (p *Process) StartAt(t sim.VTime) {
	p.engine.Schedule(newKickoffEvent(t, p))
}

// Handle resumes the process for the event and blocks until the process
// suspends again. It implements sim.Handler; all state changes between two
// clock ticks are totally ordered by process execution.
func (p *Process) Handle(e sim.Event) error {
	if p.State() == Done {
		return nil
	}

	switch evt := e.(type) {
	case *kickoffEvent:
		if p.started {
			return nil
		}

		p.started = true
		p.setState(Running, "")
		go p.run()

		return p.await()

	case *holdEvent:
		if p.pendingHold != evt {
			return nil
		}

		p.pendingHold = nil

		return p.resumeAndAwait(nil)

	case *claim.WakeEvent:
		if p.pendingClaim != evt.Claim() {
			return nil
		}

		return p.resumeAndAwait(nil)

	case *deadlineEvent:
		return p.handleDeadline(evt)
	}

	return sim.InvariantErrorf("process %s received unknown event", p.name)
}

func (p *Process) resumeAndAwait(err error) error {
	p.setState(Running, "")
	p.resume <- err

	return p.await()
}

// await blocks until the process body suspends or terminates, and reports
// fatal termination errors to the engine.
func (p *Process) await() error {
	<-p.yielded

	if p.State() != Done {
		return nil
	}

	err := p.Err()
	if err == nil || errors.Is(err, sim.ErrDeadline) {
		return nil
	}

	return err
}

func (p *Process) run() {
	err := p.body(p.ctx)
	if errors.Is(err, sim.ErrSimulationEnded) {
		err = nil
	}

	p.stateLock.Lock()
	p.err = err
	p.state = Done
	p.waitReason = ""
	p.stateLock.Unlock()

	p.yielded <- struct{}{}
}

// Stop unwinds a process that is still suspended when the simulation ends.
// It must be called after the engine has stopped, one process at a time.
func (p *Process) Stop() {
	if !p.started || p.State() == Done {
		p.setState(Done, "")
		return
	}

	close(p.stop)
	<-p.yielded
}

func (p *Process) handleDeadline(evt *deadlineEvent) error {
	active := false
	for _, d := range p.deadlines {
		if d == evt {
			active = true
		}
	}

	if !active {
		return nil
	}

	if p.pendingClaim != nil {
		p.claims.CancelPark(p.pendingClaim)
		p.pendingClaim = nil
	}

	if p.pendingHold != nil {
		p.pendingHold.Cancel()
		p.pendingHold = nil
	}

	return p.resumeAndAwait(sim.ErrDeadline)
}

// A kickoffEvent starts the first step of a process.
type kickoffEvent struct {
	*sim.EventBase
}

func newKickoffEvent(t sim.VTime, p *Process) *kickoffEvent {
	return &kickoffEvent{EventBase: sim.NewEventBase(t, p)}
}

// A holdEvent wakes a process that suspended on a hold.
type holdEvent struct {
	*sim.EventBase
}

func newHoldEvent(t sim.VTime, p *Process) *holdEvent {
	return &holdEvent{EventBase: sim.NewEventBase(t, p)}
}

// A deadlineEvent cuts short the current suspension of a process.
type deadlineEvent struct {
	*sim.EventBase
}

func newDeadlineEvent(t sim.VTime, p *Process) *deadlineEvent {
	return &deadlineEvent{EventBase: sim.NewEventBase(t, p)}
}
