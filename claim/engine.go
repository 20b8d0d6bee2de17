package claim

import (
	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
)

// HookPosClaimSatisfied marks when a parked claim becomes satisfiable.
var HookPosClaimSatisfied = &sim.HookPos{Name: "ClaimSatisfied"}

// HookPosClaimParked marks when a claim parks on its locations.
var HookPosClaimParked = &sim.HookPos{Name: "ClaimParked"}

// scheduler is the slice of the simulation engine the claim engine needs.
type scheduler interface {
	sim.TimeTeller
	sim.EventScheduler
}

// Engine coordinates claims over locations. Claims that cannot be satisfied
// immediately park with a watch on every location they depend on and are
// retried on every deposit to those locations, FIFO by park order.
type Engine struct {
	sim.HookableBase

	scheduler   scheduler
	parked      []*Claim
	nextParkSeq uint64
	watched     map[*resource.Location]struct{}
}

// NewEngine creates a claim engine driven by the given event scheduler.
func NewEngine(s scheduler) *Engine {
	return &Engine{
		scheduler: s,
		watched:   make(map[*resource.Location]struct{}),
	}
}

// TryClaim evaluates each atom against the live location contents and
// reserves candidates in order. It returns a handle holding the selected
// resources, or reports which atom first failed. Reservation is
// all-or-nothing across atoms.
func (e *Engine) TryClaim(req Requirement) (*Handle, *FailedAtom) {
	selected, failed := e.reserve(req)
	if failed != nil {
		return nil, failed
	}

	c := &Claim{
		id:       sim.GetIDGenerator().Generate(),
		req:      req,
		state:    Satisfied,
		selected: selected,
	}

	return c.Handle(), nil
}

// reserve attempts to select and reserve resources for every atom. On the
// first atom that fails, reservations taken so far are rolled back.
func (e *Engine) reserve(req Requirement) ([][]resource.Resource, *FailedAtom) {
	selected := make([][]resource.Resource, 0, len(req))

	for i, atom := range req {
		var (
			sel []resource.Resource
			err error
		)

		if atom.Kind != "" {
			sel, err = atom.Loc.FindKind(atom.Kind, atom.N)
		} else {
			sel, err = atom.Loc.Find(atom.Pred, atom.N)
		}

		if err != nil {
			for j, prev := range selected {
				req[j].Loc.Unreserve(prev...)
			}

			missing := atom.N
			if insufficient, ok := err.(sim.InsufficientError); ok {
				missing = insufficient.Missing
			}

			return nil, &FailedAtom{Index: i, Missing: missing}
		}

		if err := atom.Loc.Reserve(sel...); err != nil {
			panic(err)
		}

		selected = append(selected, sel)
	}

	return selected, nil
}

// Park records a claim that could not be satisfied, watching every location
// the requirement mentions. The waker is scheduled for immediate execution
// once the claim becomes satisfiable.
func (e *Engine) Park(req Requirement, waker sim.Handler) *Claim {
	c := &Claim{
		id:      sim.GetIDGenerator().Generate(),
		req:     req,
		state:   Pending,
		parkSeq: e.nextParkSeq,
		waker:   waker,
	}
	e.nextParkSeq++

	e.parked = append(e.parked, c)

	for _, atom := range req {
		if _, ok := e.watched[atom.Loc]; !ok {
			atom.Loc.RegisterWatcher(e)
			e.watched[atom.Loc] = struct{}{}
		}
	}

	if e.NumHooks() > 0 {
		e.InvokeHook(sim.HookCtx{Domain: e, Pos: HookPosClaimParked, Item: c})
	}

	return c
}

// NotifyDeposit retries parked claims in park order after a deposit. Each
// claim that becomes satisfiable takes its reservations and its process is
// scheduled for immediate wake-up; the rest are re-evaluated against the
// state the earlier claims left behind.
func (e *Engine) NotifyDeposit(loc *resource.Location) {
	remaining := e.parked[:0]

	for _, c := range e.parked {
		if !c.watches(loc) {
			remaining = append(remaining, c)
			continue
		}

		selected, failed := e.reserve(c.req)
		if failed != nil {
			remaining = append(remaining, c)
			continue
		}

		c.state = Satisfied
		c.selected = selected

		if e.NumHooks() > 0 {
			e.InvokeHook(sim.HookCtx{
				Domain: e,
				Pos:    HookPosClaimSatisfied,
				Item:   c,
			})
		}

		e.scheduler.Schedule(newWakeEvent(e.scheduler.CurrentTime(), c))
	}

	e.parked = remaining
}

// CancelPark withdraws a claim from the engine. Reservations taken for an
// already-satisfied claim are rolled back. Used by deadline cancellation.
func (e *Engine) CancelPark(c *Claim) {
	for i, parked := range e.parked {
		if parked == c {
			e.parked = append(e.parked[:i], e.parked[i+1:]...)
			break
		}
	}

	if c.state == Satisfied {
		for i, atom := range c.req {
			atom.Loc.Unreserve(c.selected[i]...)
		}
		c.selected = nil
	}

	c.state = Cancelled
}

// NumParked returns the number of claims currently parked.
func (e *Engine) NumParked() int {
	return len(e.parked)
}

func (c *Claim) watches(loc *resource.Location) bool {
	for _, atom := range c.req {
		if atom.Loc == loc {
			return true
		}
	}

	return false
}

// A WakeEvent resumes the process whose parked claim became satisfiable.
type WakeEvent struct {
	*sim.EventBase
	claim *Claim
}

func newWakeEvent(t sim.VTime, c *Claim) *WakeEvent {
	return &WakeEvent{
		EventBase: sim.NewEventBase(t, c.waker),
		claim:     c,
	}
}

// Claim returns the claim whose satisfaction triggered the wake-up.
func (e *WakeEvent) Claim() *Claim {
	return e.claim
}
