package resource

import (
	"github.com/chainsimlab/chainsim/sim"
)

// HookPosDeposit marks when resources are deposited into a location.
var HookPosDeposit = &sim.HookPos{Name: "Deposit"}

// HookPosWithdraw marks when resources are withdrawn from a location.
var HookPosWithdraw = &sim.HookPos{Name: "Withdraw"}

// A DepositWatcher is notified after every deposit to a location it watches.
// The notification runs within the depositing process step, before control
// returns to the event queue.
type DepositWatcher interface {
	NotifyDeposit(loc *Location)
}

// A Location is a named bag of typed resources with links to peer locations.
// Resources are stored in insertion order so that selection is
// deterministic. A location owns the resources it contains; ownership
// transfers on move.
type Location struct {
	sim.HookableBase

	name     string
	capacity int

	resources []Resource
	present   map[Resource]struct{}
	reserved  map[Resource]struct{}
	index     *kindIndex

	links     map[*Location]struct{}
	linkOrder []*Location

	watchers []DepositWatcher
}

// MakeLocation creates a location with unbounded capacity.
func MakeLocation(name string) *Location {
	return &Location{
		name:     name,
		present:  make(map[Resource]struct{}),
		reserved: make(map[Resource]struct{}),
		index:    newKindIndex(),
		links:    make(map[*Location]struct{}),
	}
}

// Name returns the name of the location.
func (l *Location) Name() string {
	return l.name
}

// SetCapacity bounds the number of resources the location can hold. Zero
// means unbounded.
func (l *Location) SetCapacity(capacity int) {
	l.capacity = capacity
}

// Capacity returns the storage cap of the location. Zero means unbounded.
func (l *Location) Capacity() int {
	return l.capacity
}

// Size returns the number of resources currently present, including
// reserved ones.
func (l *Location) Size() int {
	return len(l.resources)
}

// LinkTo adds a directed edge from this location to dst. Linking is
// idempotent.
func (l *Location) LinkTo(dst *Location) {
	if _, ok := l.links[dst]; ok {
		return
	}

	l.links[dst] = struct{}{}
	l.linkOrder = append(l.linkOrder, dst)
}

// Linked reports whether a directed edge to dst exists.
func (l *Location) Linked(dst *Location) bool {
	_, ok := l.links[dst]
	return ok
}

// Links returns the outbound peers in the order the links were created.
func (l *Location) Links() []*Location {
	return l.linkOrder
}

// RegisterWatcher subscribes a watcher to deposit notifications.
func (l *Location) RegisterWatcher(w DepositWatcher) {
	for _, existing := range l.watchers {
		if existing == w {
			return
		}
	}

	l.watchers = append(l.watchers, w)
}

// Deposit appends resources to the location and signals the registered
// watchers. It fails with a CapacityError if the resources do not fit, and
// with an InvariantError if any resource is already present.
func (l *Location) Deposit(rs ...Resource) error {
	if l.capacity > 0 && len(l.resources)+len(rs) > l.capacity {
		return sim.CapacityError{
			Location: l.name,
			Size:     len(l.resources),
			Capacity: l.capacity,
			Incoming: len(rs),
		}
	}

	for _, r := range rs {
		if _, ok := l.present[r]; ok {
			return sim.InvariantErrorf(
				"resource %s deposited twice into %s", r.ID(), l.name)
		}

		l.resources = append(l.resources, r)
		l.present[r] = struct{}{}
		l.index.add(r)
	}

	if l.NumHooks() > 0 {
		l.InvokeHook(sim.HookCtx{
			Domain: l,
			Pos:    HookPosDeposit,
			Item:   rs,
		})
	}

	for _, w := range l.watchers {
		w.NotifyDeposit(l)
	}

	return nil
}

// Withdraw removes the specified resource instances. It fails with an
// InvariantError if any is absent. Reservations on withdrawn resources are
// cleared.
func (l *Location) Withdraw(rs ...Resource) error {
	for _, r := range rs {
		if _, ok := l.present[r]; !ok {
			return sim.InvariantErrorf(
				"resource %s withdrawn from %s but not present", r.ID(), l.name)
		}
	}

	for _, r := range rs {
		for i, candidate := range l.resources {
			if candidate == r {
				l.resources = append(l.resources[:i], l.resources[i+1:]...)
				break
			}
		}

		delete(l.present, r)
		delete(l.reserved, r)
		l.index.remove(r)
	}

	if l.NumHooks() > 0 {
		l.InvokeHook(sim.HookCtx{
			Domain: l,
			Pos:    HookPosWithdraw,
			Item:   rs,
		})
	}

	return nil
}

// FindKind returns the first n unreserved resources of the given kind in
// insertion order. It fails with an InsufficientError carrying the number
// missing.
func (l *Location) FindKind(kind string, n int) ([]Resource, error) {
	if available := l.AvailableByKind(kind); available < n {
		return nil, sim.InsufficientError{
			Location: l.name,
			Kind:     kind,
			Missing:  n - available,
		}
	}

	selected := make([]Resource, 0, n)
	for _, r := range l.index.bucket(kind) {
		if _, ok := l.reserved[r]; ok {
			continue
		}

		selected = append(selected, r)
		if len(selected) == n {
			break
		}
	}

	return selected, nil
}

// Find returns the first n unreserved resources satisfying the predicate in
// insertion order, or fails with an InsufficientError carrying the number
// missing.
func (l *Location) Find(pred Predicate, n int) ([]Resource, error) {
	selected := make([]Resource, 0, n)

	for _, r := range l.resources {
		if _, ok := l.reserved[r]; ok {
			continue
		}

		if !pred(r) {
			continue
		}

		selected = append(selected, r)
		if len(selected) == n {
			return selected, nil
		}
	}

	return nil, sim.InsufficientError{
		Location: l.name,
		Missing:  n - len(selected),
	}
}

// AvailableByKind returns the number of unreserved resources of the given
// kind.
func (l *Location) AvailableByKind(kind string) int {
	available := l.index.count(kind)
	for r := range l.reserved {
		if r.Kind() == kind {
			available--
		}
	}

	return available
}

// Reserve marks resources as promised to a pending claim. Reserved
// resources stay in the location but become invisible to finds.
func (l *Location) Reserve(rs ...Resource) error {
	for _, r := range rs {
		if _, ok := l.present[r]; !ok {
			return sim.InvariantErrorf(
				"reserving resource %s not present at %s", r.ID(), l.name)
		}

		if _, ok := l.reserved[r]; ok {
			return sim.InvariantErrorf(
				"resource %s promised to two claims at %s", r.ID(), l.name)
		}

		l.reserved[r] = struct{}{}
	}

	return nil
}

// Unreserve clears reservations without withdrawing.
func (l *Location) Unreserve(rs ...Resource) {
	for _, r := range rs {
		delete(l.reserved, r)
	}
}

// KindCounts returns the multiset of resource kinds currently present. The
// result is a fresh map safe for the caller to keep.
func (l *Location) KindCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range l.resources {
		counts[r.Kind()]++
	}

	return counts
}
