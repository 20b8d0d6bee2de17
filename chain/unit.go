// Package chain models multi-stage supply chains: manufacturing units that
// produce, consume, store, and ship typed components over weighted
// transport links.
package chain

import (
	"sort"

	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
)

// A ComponentKind declares a component name and the location where
// components of that kind are produced.
type ComponentKind struct {
	Name   string
	Origin *resource.Location
}

// MakeComponent declares a component kind originating from the given
// location.
func MakeComponent(name string, origin *resource.Location) *ComponentKind {
	return &ComponentKind{Name: name, Origin: origin}
}

// A ManufacturingUnit consumes input components at its input location and
// produces output components at its output location.
type ManufacturingUnit struct {
	name string

	InputLocation  *resource.Location
	OutputLocation *resource.Location

	InputsNeeded           map[string]int
	ProductionTime         sim.VTime
	ProductionSize         int
	DefectRate             float64
	ShippingDelayThreshold float64
	InputStorageCap        int
	OutputStorageCap       int
	SeedUnit               bool

	inputsOrder []string
	outputKind  string
	finalStage  bool
}

// Name returns the name of the unit.
func (u *ManufacturingUnit) Name() string {
	return u.name
}

// InputKinds returns the kinds the unit consumes, in the deterministic
// order claims are built in.
func (u *ManufacturingUnit) InputKinds() []string {
	return u.inputsOrder
}

// OutputKind returns the kind of component the unit produces. It is
// resolved during model assembly.
func (u *ManufacturingUnit) OutputKind() string {
	return u.outputKind
}

// FinalStage reports whether the unit is the last stage of the chain, i.e.
// no shipping route has it as a supplier. It is resolved during model
// assembly.
func (u *ManufacturingUnit) FinalStage() bool {
	return u.finalStage
}

// UnitBuilder builds manufacturing units.
type UnitBuilder struct {
	inputLocation          *resource.Location
	outputLocation         *resource.Location
	inputsNeeded           map[string]int
	productionTime         sim.VTime
	productionSize         int
	defectRate             float64
	shippingDelayThreshold float64
	inputStorageCap        int
	outputStorageCap       int
	seedUnit               bool
}

// MakeUnitBuilder creates a UnitBuilder.
func MakeUnitBuilder() UnitBuilder {
	return UnitBuilder{}
}

// WithInputLocation sets the location the unit consumes inputs from.
func (b UnitBuilder) WithInputLocation(l *resource.Location) UnitBuilder {
	b.inputLocation = l
	return b
}

// WithOutputLocation sets the location the unit deposits products into.
func (b UnitBuilder) WithOutputLocation(l *resource.Location) UnitBuilder {
	b.outputLocation = l
	return b
}

// WithInputsNeeded sets how many components of each kind one production
// cycle consumes.
func (b UnitBuilder) WithInputsNeeded(needs map[string]int) UnitBuilder {
	b.inputsNeeded = needs
	return b
}

// WithProductionTime sets the duration of one production cycle.
func (b UnitBuilder) WithProductionTime(d sim.VTime) UnitBuilder {
	b.productionTime = d
	return b
}

// WithProductionSize sets how many components one production cycle yields.
func (b UnitBuilder) WithProductionSize(n int) UnitBuilder {
	b.productionSize = n
	return b
}

// WithDefectRate sets the fraction of a shipping batch discarded before
// transit.
func (b UnitBuilder) WithDefectRate(rate float64) UnitBuilder {
	b.defectRate = rate
	return b
}

// WithShippingDelayThreshold sets the probability boundary controlling
// whether a shipping leg takes additional variable time.
func (b UnitBuilder) WithShippingDelayThreshold(t float64) UnitBuilder {
	b.shippingDelayThreshold = t
	return b
}

// WithStorageCaps sets the input and output storage caps.
func (b UnitBuilder) WithStorageCaps(input, output int) UnitBuilder {
	b.inputStorageCap = input
	b.outputStorageCap = output
	return b
}

// AsSeedUnit marks the unit as a supply-chain root.
func (b UnitBuilder) AsSeedUnit() UnitBuilder {
	b.seedUnit = true
	return b
}

// Build creates the manufacturing unit. Structural validation happens in
// MakeModel.
func (b UnitBuilder) Build(name string) *ManufacturingUnit {
	u := &ManufacturingUnit{
		name:                   name,
		InputLocation:          b.inputLocation,
		OutputLocation:         b.outputLocation,
		InputsNeeded:           b.inputsNeeded,
		ProductionTime:         b.productionTime,
		ProductionSize:         b.productionSize,
		DefectRate:             b.defectRate,
		ShippingDelayThreshold: b.shippingDelayThreshold,
		InputStorageCap:        b.inputStorageCap,
		OutputStorageCap:       b.outputStorageCap,
		SeedUnit:               b.seedUnit,
	}

	for kind := range u.InputsNeeded {
		u.inputsOrder = append(u.inputsOrder, kind)
	}
	sort.Strings(u.inputsOrder)

	return u
}
