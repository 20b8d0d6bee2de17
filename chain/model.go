package chain

import (
	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
)

// MakeLocation creates a named location.
func MakeLocation(name string) *resource.Location {
	return resource.MakeLocation(name)
}

// Link adds a directed edge between two locations. Linking is idempotent.
func Link(from, to *resource.Location) {
	from.LinkTo(to)
}

// A Model is an assembled supply chain: units, routes, component kinds, and
// the metric bag a run writes into.
type Model struct {
	Units  []*ManufacturingUnit
	Routes []*ShippingRoute
	Kinds  []*ComponentKind
	Bag    *DataBag

	locations []*resource.Location
}

// Locations returns every location referenced by the model, deduplicated,
// in the order units declare them.
func (m *Model) Locations() []*resource.Location {
	return m.locations
}

// OriginOf returns the name of the location where components of the given
// kind are produced, or the empty string for an unknown kind.
func (m *Model) OriginOf(kind string) string {
	for _, k := range m.Kinds {
		if k.Name == kind {
			return k.Origin.Name()
		}
	}

	return ""
}

// MakeModel validates the structural invariants of the supply chain and
// resolves per-unit derived state. It fails with a ConfigError on the first
// violated invariant.
func MakeModel(
	units []*ManufacturingUnit,
	routes []*ShippingRoute,
	kinds []*ComponentKind,
) (*Model, error) {
	m := &Model{
		Units:  units,
		Routes: routes,
		Kinds:  kinds,
		Bag:    NewDataBag(),
	}

	if err := m.collectLocations(); err != nil {
		return nil, err
	}

	if err := m.validateUnits(); err != nil {
		return nil, err
	}

	if err := m.validateRoutes(); err != nil {
		return nil, err
	}

	m.resolveFinalStages()

	return m, nil
}

func (m *Model) collectLocations() error {
	seen := make(map[*resource.Location]struct{})
	names := make(map[string]struct{})

	add := func(l *resource.Location) error {
		if l == nil {
			return sim.ConfigErrorf("unit with missing location")
		}

		if _, ok := seen[l]; ok {
			return nil
		}

		if _, ok := names[l.Name()]; ok {
			return sim.ConfigErrorf("duplicate location name %q", l.Name())
		}

		seen[l] = struct{}{}
		names[l.Name()] = struct{}{}
		m.locations = append(m.locations, l)

		return nil
	}

	for _, u := range m.Units {
		if err := add(u.InputLocation); err != nil {
			return err
		}

		if err := add(u.OutputLocation); err != nil {
			return err
		}
	}

	return nil
}

func (m *Model) validateUnits() error {
	for _, u := range m.Units {
		if u.ProductionSize <= 0 {
			return sim.ConfigErrorf(
				"unit %s: production size must be positive, got %d",
				u.name, u.ProductionSize)
		}

		if u.ProductionTime < 0 {
			return sim.ConfigErrorf(
				"unit %s: negative production time", u.name)
		}

		if u.InputStorageCap <= 0 || u.OutputStorageCap <= 0 {
			return sim.ConfigErrorf(
				"unit %s: storage caps must be positive", u.name)
		}

		if u.DefectRate < 0 || u.DefectRate >= 1 {
			return sim.ConfigErrorf(
				"unit %s: defect rate %f outside [0,1)", u.name, u.DefectRate)
		}

		if u.ShippingDelayThreshold < 0 || u.ShippingDelayThreshold >= 1 {
			return sim.ConfigErrorf(
				"unit %s: shipping delay threshold %f outside [0,1)",
				u.name, u.ShippingDelayThreshold)
		}

		if len(u.InputsNeeded) == 0 {
			return sim.ConfigErrorf("unit %s: no inputs needed", u.name)
		}

		for kind, n := range u.InputsNeeded {
			if n <= 0 {
				return sim.ConfigErrorf(
					"unit %s: input count for %q must be positive", u.name, kind)
			}
		}

		// The input->output pair of a unit is always linked.
		u.InputLocation.LinkTo(u.OutputLocation)

		u.InputLocation.SetCapacity(u.InputStorageCap)
		u.OutputLocation.SetCapacity(u.OutputStorageCap)

		if err := m.resolveOutputKind(u); err != nil {
			return err
		}
	}

	return nil
}

// resolveOutputKind finds the unique component kind whose origin is the
// unit's input location. Zero or more than one producible kind means the
// unit's configuration is invalid.
func (m *Model) resolveOutputKind(u *ManufacturingUnit) error {
	var found []string
	for _, k := range m.Kinds {
		if k.Origin == u.InputLocation {
			found = append(found, k.Name)
		}
	}

	if len(found) != 1 {
		return sim.ConfigErrorf(
			"unit %s: expected exactly one producible component at %s, found %d",
			u.name, u.InputLocation.Name(), len(found))
	}

	u.outputKind = found[0]

	return nil
}

func (m *Model) validateRoutes() error {
	kindNames := make(map[string]struct{})
	for _, k := range m.Kinds {
		kindNames[k.Name] = struct{}{}
	}

	for _, r := range m.Routes {
		if r.Supplier == nil {
			return sim.ConfigErrorf("route %s: missing supplier", r.name)
		}

		if r.BatchSize <= 0 {
			return sim.ConfigErrorf(
				"route %s: batch size must be positive, got %d",
				r.name, r.BatchSize)
		}

		if _, ok := kindNames[r.ComponentKind]; !ok {
			return sim.ConfigErrorf(
				"route %s: unknown component kind %q", r.name, r.ComponentKind)
		}

		if len(r.receiverOrder) == 0 {
			return sim.ConfigErrorf("route %s: no receivers", r.name)
		}

		for _, rcv := range r.receiverOrder {
			if !r.Supplier.OutputLocation.Linked(rcv.InputLocation) {
				return sim.ConfigErrorf(
					"route %s: %s not linked to %s",
					r.name,
					r.Supplier.OutputLocation.Name(),
					rcv.InputLocation.Name())
			}

			if r.shippingTimes[rcv] < 0 {
				return sim.ConfigErrorf(
					"route %s: negative shipping time to %s", r.name, rcv.name)
			}
		}
	}

	return nil
}

// resolveFinalStages marks the units no route ships from. Their output is
// the chain's final output.
func (m *Model) resolveFinalStages() {
	suppliers := make(map[*ManufacturingUnit]struct{})
	for _, r := range m.Routes {
		suppliers[r.Supplier] = struct{}{}
	}

	for _, u := range m.Units {
		_, isSupplier := suppliers[u]
		u.finalStage = !isSupplier
	}
}
