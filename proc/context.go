package proc

import (
	"math/rand"

	"github.com/chainsimlab/chainsim/claim"
	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
)

// A Context exposes the suspension primitives to a process body. All
// methods must be called from the body goroutine.
type Context struct {
	p *Process
}

// Process returns the process the context belongs to.
func (c *Context) Process() *Process {
	return c.p
}

// Now returns the current virtual time.
func (c *Context) Now() sim.VTime {
	return c.p.engine.CurrentTime()
}

// Rand returns the random stream assigned to the process.
func (c *Context) Rand() *rand.Rand {
	return c.p.rand
}

// suspend yields control back to the engine and blocks until the process is
// resumed or the simulation ends.
func (c *Context) suspend(reason string) error {
	p := c.p

	p.setState(Waiting, reason)
	p.yielded <- struct{}{}

	select {
	case err := <-p.resume:
		return err
	case <-p.stop:
		return sim.ErrSimulationEnded
	}
}

// Hold suspends the process for the given duration and schedules a wake-up
// at now + d.
func (c *Context) Hold(d sim.VTime) error {
	if d < 0 {
		return sim.InvariantErrorf("process %s holding negative duration %d",
			c.p.name, d)
	}

	p := c.p

	evt := newHoldEvent(c.Now()+d, p)
	p.pendingHold = evt
	p.engine.Schedule(evt)

	err := c.suspend("hold")
	if err != nil {
		evt.Cancel()
		p.pendingHold = nil
		return err
	}

	return nil
}

// Claim atomically acquires the resources named by the requirement. If the
// requirement cannot be satisfied immediately, the process parks on the
// claim engine and resumes once a deposit makes the claim satisfiable.
func (c *Context) Claim(req claim.Requirement) (*claim.Handle, error) {
	p := c.p

	h, failed := p.claims.TryClaim(req)
	if failed == nil {
		return h, nil
	}

	parked := p.claims.Park(req, p)
	p.pendingClaim = parked

	err := c.suspend("claim")
	p.pendingClaim = nil

	if err != nil {
		p.claims.CancelPark(parked)
		return nil, err
	}

	return parked.Handle(), nil
}

// Move transfers the claimed resources across a link from one location to
// another. It fails with a NotLinkedError if the edge is absent. Move
// returns immediately; no virtual time passes.
func (c *Context) Move(
	h *claim.Handle,
	from, to *resource.Location,
) error {
	if !from.Linked(to) {
		return sim.NotLinkedError{From: from.Name(), To: to.Name()}
	}

	return h.MoveTo(to)
}

// Release consumes the handle by depositing its resources into dst. When
// dst is elided the resources stay at the claim's source locations.
func (c *Context) Release(h *claim.Handle, dst ...*resource.Location) error {
	var target *resource.Location
	if len(dst) > 0 {
		target = dst[0]
	}

	return h.Release(target)
}

// Consume withdraws the claimed resources from their source locations and
// hands them to the process.
func (c *Context) Consume(h *claim.Handle) ([]resource.Resource, error) {
	return h.Consume()
}

// Add deposits newly created resources into a location.
func (c *Context) Add(loc *resource.Location, rs ...resource.Resource) error {
	return loc.Deposit(rs...)
}

// Remove withdraws resources from a location for consumption; there is no
// destination.
func (c *Context) Remove(loc *resource.Location, rs ...resource.Resource) error {
	return loc.Withdraw(rs...)
}

// WithDeadline runs body; if it has not completed at now + d, its current
// claim or hold is cancelled and the body's pending primitive returns
// ErrDeadline. Cancellation is cooperative: the body observes it only at a
// suspension boundary. WithDeadline returns nil if the body completed, and
// ErrDeadline if it was cut short.
func (c *Context) WithDeadline(d sim.VTime, body func() error) error {
	p := c.p

	evt := newDeadlineEvent(c.Now()+d, p)
	p.deadlines = append(p.deadlines, evt)
	p.engine.Schedule(evt)

	err := body()

	p.deadlines = p.deadlines[:len(p.deadlines)-1]
	evt.Cancel()

	return err
}
