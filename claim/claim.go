// Package claim implements atomic multi-location resource acquisition with
// wait/notify semantics. A claim is a conjunction of atoms, each naming a
// location, a selection rule, and a count. Claims are all-or-nothing:
// either every atom reserves its resources or none does.
package claim

import (
	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
)

// An Atom is one conjunct of a requirement: n resources at a location
// matching a selection rule. When Kind is set, selection goes through the
// location's kind index; otherwise Pred is consulted for every resource.
type Atom struct {
	Loc  *resource.Location
	Kind string
	Pred resource.Predicate
	N    int
}

// A Requirement is a conjunction of atoms.
type Requirement []Atom

// KindAtom builds the common atom shape: n resources of one kind at one
// location.
func KindAtom(loc *resource.Location, kind string, n int) Atom {
	return Atom{Loc: loc, Kind: kind, N: n}
}

// State enumerates the lifecycle of a claim.
type State int

// Claim states.
const (
	// Pending means the claim is parked, waiting for deposits.
	Pending State = iota
	// Satisfied means the claim holds reservations on selected resources.
	Satisfied
	// Consumed means the reserved resources were withdrawn or moved.
	Consumed
	// Cancelled means the reservations were released without withdrawing.
	Cancelled
)

// A Claim tracks one requirement through its lifecycle. While satisfied, it
// transiently holds references to the selected resources.
type Claim struct {
	id       string
	req      Requirement
	state    State
	selected [][]resource.Resource
	parkSeq  uint64
	waker    sim.Handler
}

// ID returns the identity of the claim.
func (c *Claim) ID() string {
	return c.id
}

// State returns the current lifecycle state of the claim.
func (c *Claim) State() State {
	return c.state
}

// ParkSeq returns the global order in which the claim was parked. It is
// also the sequence number recorded at the claim's first failure.
func (c *Claim) ParkSeq() uint64 {
	return c.parkSeq
}

// Handle returns a handle over the claim's reservations. It must only be
// called once the claim is satisfied.
func (c *Claim) Handle() *Handle {
	return &Handle{claim: c}
}

// A FailedAtom reports which atom of a requirement first failed and how
// many resources it was short.
type FailedAtom struct {
	Index   int
	Missing int
}

// A Handle holds the resources selected for a satisfied claim until they
// are consumed, released, or the claim is cancelled.
type Handle struct {
	claim *Claim
}

// Resources returns the selected resources across all atoms, in atom order.
func (h *Handle) Resources() []resource.Resource {
	var all []resource.Resource
	for _, sel := range h.claim.selected {
		all = append(all, sel...)
	}

	return all
}

// Consume withdraws the reserved resources from their source locations and
// returns them to the caller. Reservations are released.
func (h *Handle) Consume() ([]resource.Resource, error) {
	if err := h.mustBeSatisfied("consume"); err != nil {
		return nil, err
	}

	for i, atom := range h.claim.req {
		if err := atom.Loc.Withdraw(h.claim.selected[i]...); err != nil {
			return nil, err
		}
	}

	h.claim.state = Consumed

	return h.Resources(), nil
}

// Release consumes the handle by depositing its resources into dst. When
// dst is nil the resources stay at their source locations and only the
// reservations are cleared.
func (h *Handle) Release(dst *resource.Location) error {
	if err := h.mustBeSatisfied("release"); err != nil {
		return err
	}

	for i, atom := range h.claim.req {
		if dst == nil || dst == atom.Loc {
			atom.Loc.Unreserve(h.claim.selected[i]...)
			continue
		}

		if err := atom.Loc.Withdraw(h.claim.selected[i]...); err != nil {
			return err
		}

		if err := dst.Deposit(h.claim.selected[i]...); err != nil {
			return err
		}
	}

	h.claim.state = Consumed

	return nil
}

// MoveTo withdraws the reserved resources from their sources and deposits
// them into dst. Link checking is the caller's responsibility.
func (h *Handle) MoveTo(dst *resource.Location) error {
	if err := h.mustBeSatisfied("move"); err != nil {
		return err
	}

	for i, atom := range h.claim.req {
		if err := atom.Loc.Withdraw(h.claim.selected[i]...); err != nil {
			return err
		}
	}

	h.claim.state = Consumed

	return dst.Deposit(h.Resources()...)
}

// Cancel clears the reservations without withdrawing. The source locations
// are left exactly as they were before the claim.
func (h *Handle) Cancel() error {
	if err := h.mustBeSatisfied("cancel"); err != nil {
		return err
	}

	for i, atom := range h.claim.req {
		atom.Loc.Unreserve(h.claim.selected[i]...)
	}

	h.claim.state = Cancelled
	h.claim.selected = nil

	return nil
}

func (h *Handle) mustBeSatisfied(op string) error {
	if h.claim.state != Satisfied {
		return sim.InvariantErrorf(
			"cannot %s claim %s in state %d", op, h.claim.id, h.claim.state)
	}

	return nil
}
