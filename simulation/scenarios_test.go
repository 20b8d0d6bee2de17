package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsimlab/chainsim/chain"
	"github.com/chainsimlab/chainsim/sim"
)

// unitSpec is a compact description of a unit for scenario tests.
type unitSpec struct {
	name      string
	needs     map[string]int
	prodTime  sim.VTime
	prodSize  int
	inCap     int
	outCap    int
	seed      bool
	defect    float64
	threshold float64
}

func buildUnit(spec unitSpec) (*chain.ManufacturingUnit, *chain.ComponentKind) {
	in := chain.MakeLocation(spec.name + ".in")
	out := chain.MakeLocation(spec.name + ".out")
	kind := chain.MakeComponent(spec.name+"-part", in)

	builder := chain.MakeUnitBuilder().
		WithInputLocation(in).
		WithOutputLocation(out).
		WithInputsNeeded(spec.needs).
		WithProductionTime(spec.prodTime).
		WithProductionSize(spec.prodSize).
		WithStorageCaps(spec.inCap, spec.outCap).
		WithDefectRate(spec.defect).
		WithShippingDelayThreshold(spec.threshold)
	if spec.seed {
		builder = builder.AsSeedUnit()
	}

	return builder.Build(spec.name), kind
}

// Scenario: a single seeded unit with no shipping runs five production
// cycles in five hours.
func TestSingleSeededUnitProduction(t *testing.T) {
	unitA, kindW := buildUnit(unitSpec{
		name:     "a",
		needs:    map[string]int{"a-part": 1},
		prodTime: sim.Hours(1),
		prodSize: 10,
		inCap:    100,
		outCap:   100,
		seed:     true,
	})

	m, err := chain.MakeModel(
		[]*chain.ManufacturingUnit{unitA}, nil,
		[]*chain.ComponentKind{kindW})
	require.NoError(t, err)

	s := MakeBuilder().WithSeed(0).WithSeedCapacity(20).Build()
	require.NoError(t, s.Simulate(m, sim.Hours(5)))

	// Five cycles consumed five seeds and produced fifty parts. The sixth
	// cycle has claimed one more seed but not yet withdrawn it.
	assert.Equal(t, 15, unitA.InputLocation.Size())
	assert.Equal(t, 50, unitA.OutputLocation.Size())
	assert.Equal(t, int64(50), m.Bag.Get(chain.TotalFinalOutput))
}

// twoUnitModel assembles the linear chain a -> b used by several
// scenarios.
func twoUnitModel(
	t *testing.T,
	specA, specB unitSpec,
	batchSize int,
	shippingTime sim.VTime,
) (*chain.Model, *chain.ManufacturingUnit, *chain.ManufacturingUnit) {
	t.Helper()

	unitA, kindA := buildUnit(specA)
	unitB, kindB := buildUnit(specB)

	chain.Link(unitA.OutputLocation, unitB.InputLocation)

	route := chain.MakeRouteBuilder().
		WithSupplier(unitA).
		WithBatchSize(batchSize).
		WithComponentKind("a-part").
		AddReceiver(unitB, shippingTime).
		Build("a-to-b")

	m, err := chain.MakeModel(
		[]*chain.ManufacturingUnit{unitA, unitB},
		[]*chain.ShippingRoute{route},
		[]*chain.ComponentKind{kindA, kindB})
	require.NoError(t, err)

	return m, unitA, unitB
}

// Scenario: a two-unit linear chain moves parts downstream and the
// receiver completes at least one cycle within ten hours.
func TestLinearChainShipsAndProduces(t *testing.T) {
	m, unitA, unitB := twoUnitModel(t,
		unitSpec{
			name:     "a",
			needs:    map[string]int{"a-part": 1},
			prodTime: sim.Hours(1),
			prodSize: 10,
			inCap:    100,
			outCap:   100,
			seed:     true,
		},
		unitSpec{
			name:     "b",
			needs:    map[string]int{"a-part": 2},
			prodTime: sim.Hours(2),
			prodSize: 3,
			inCap:    100,
			outCap:   100,
		},
		6, sim.Hours(1))

	s := MakeBuilder().WithSeed(0).WithSeedCapacity(20).Build()
	require.NoError(t, s.Simulate(m, sim.Hours(10)))

	assert.GreaterOrEqual(t, m.Bag.Get(chain.NumShippingsDone), int64(1))
	assert.GreaterOrEqual(t, m.Bag.Get(chain.TotalFinalOutput), int64(3))

	for _, loc := range m.Locations() {
		if loc.Capacity() > 0 {
			assert.LessOrEqual(t, loc.Size(), loc.Capacity(),
				"storage bound violated at %s", loc.Name())
		}
	}

	assert.False(t, unitA.FinalStage())
	assert.True(t, unitB.FinalStage())
}

// Scenario: a defect rate of 0.3 on batches of ten delivers seven parts
// per shipment and counts three defective ones.
func TestDefectAccounting(t *testing.T) {
	m, _, _ := twoUnitModel(t,
		unitSpec{
			name:      "a",
			needs:     map[string]int{"a-part": 1},
			prodTime:  sim.Hours(1),
			prodSize:  10,
			inCap:     100,
			outCap:    100,
			seed:      true,
			defect:    0.3,
			threshold: 0.999999,
		},
		unitSpec{
			name:     "b",
			needs:    map[string]int{"a-part": 2},
			prodTime: sim.Hours(2),
			prodSize: 3,
			inCap:    100,
			outCap:   100,
		},
		10, sim.Hours(1))

	s := MakeBuilder().WithSeed(0).WithSeedCapacity(50).Build()
	require.NoError(t, s.Simulate(m, sim.Hours(10)))

	shippings := m.Bag.Get(chain.NumShippingsDone)
	require.GreaterOrEqual(t, shippings, int64(1))

	assert.Equal(t, 3*shippings, m.Bag.Get(chain.NumDefectiveComponents))
	assert.Equal(t, 7*shippings, m.Bag.Get(chain.NumComponentsShipped))
}

// Scenario: a batch that never fits the receiver's input storage blocks the
// route forever, and the supplier fills its output storage and halts.
func TestBackpressureBlocksShipping(t *testing.T) {
	m, unitA, unitB := twoUnitModel(t,
		unitSpec{
			name:     "a",
			needs:    map[string]int{"a-part": 1},
			prodTime: sim.Hours(1),
			prodSize: 10,
			inCap:    200,
			outCap:   100,
			seed:     true,
		},
		unitSpec{
			name:     "b",
			needs:    map[string]int{"a-part": 2},
			prodTime: sim.Hours(2),
			prodSize: 3,
			inCap:    5,
			outCap:   100,
		},
		6, sim.Hours(1))

	s := MakeBuilder().WithSeed(0).WithSeedCapacity(200).Build()
	require.NoError(t, s.Simulate(m, sim.Hours(12)))

	assert.Equal(t, int64(0), m.Bag.Get(chain.NumShippingsDone))
	assert.Equal(t, 100, unitA.OutputLocation.Size())
	assert.LessOrEqual(t, unitB.InputLocation.Size(), 5)
}

// Scenario: a fan-out route serves both receivers from a single production
// batch, in order.
func TestFanOutServesBothReceivers(t *testing.T) {
	unitA, kindA := buildUnit(unitSpec{
		name:      "a",
		needs:     map[string]int{"a-part": 1},
		prodTime:  sim.Hours(1),
		prodSize:  8,
		inCap:     100,
		outCap:    100,
		seed:      true,
		threshold: 0.999999,
	})
	unitB, kindB := buildUnit(unitSpec{
		name:     "b",
		needs:    map[string]int{"a-part": 4},
		prodTime: sim.Hours(100),
		prodSize: 1,
		inCap:    100,
		outCap:   100,
	})
	unitC, kindC := buildUnit(unitSpec{
		name:     "c",
		needs:    map[string]int{"a-part": 4},
		prodTime: sim.Hours(100),
		prodSize: 1,
		inCap:    100,
		outCap:   100,
	})

	chain.Link(unitA.OutputLocation, unitB.InputLocation)
	chain.Link(unitA.OutputLocation, unitC.InputLocation)

	route := chain.MakeRouteBuilder().
		WithSupplier(unitA).
		WithBatchSize(4).
		WithComponentKind("a-part").
		AddReceiver(unitB, sim.Hours(1)).
		AddReceiver(unitC, sim.Hours(1)).
		Build("fan-out")

	m, err := chain.MakeModel(
		[]*chain.ManufacturingUnit{unitA, unitB, unitC},
		[]*chain.ShippingRoute{route},
		[]*chain.ComponentKind{kindA, kindB, kindC})
	require.NoError(t, err)

	// One seed allows exactly one production of eight parts.
	s := MakeBuilder().WithSeed(0).WithSeedCapacity(1).Build()
	require.NoError(t, s.Simulate(m, sim.Hours(10)))

	assert.Equal(t, int64(2), m.Bag.Get(chain.NumShippingsDone))
	assert.Equal(t, int64(8), m.Bag.Get(chain.NumComponentsShipped))
	assert.Equal(t, 0, unitA.OutputLocation.Size())
}

// Scenario: two routes race for the same outputs; the one that parked
// first is served first.
func TestClaimFairnessBetweenRacingRoutes(t *testing.T) {
	unitA, kindA := buildUnit(unitSpec{
		name:      "a",
		needs:     map[string]int{"a-part": 1},
		prodTime:  sim.Hours(1),
		prodSize:  5,
		inCap:     100,
		outCap:    100,
		seed:      true,
		threshold: 0.999999,
	})
	unitB, kindB := buildUnit(unitSpec{
		name:     "b",
		needs:    map[string]int{"a-part": 5},
		prodTime: sim.Hours(100),
		prodSize: 1,
		inCap:    100,
		outCap:   100,
	})
	unitC, kindC := buildUnit(unitSpec{
		name:     "c",
		needs:    map[string]int{"a-part": 5},
		prodTime: sim.Hours(100),
		prodSize: 1,
		inCap:    100,
		outCap:   100,
	})

	chain.Link(unitA.OutputLocation, unitB.InputLocation)
	chain.Link(unitA.OutputLocation, unitC.InputLocation)

	routeFirst := chain.MakeRouteBuilder().
		WithSupplier(unitA).
		WithBatchSize(5).
		WithComponentKind("a-part").
		AddReceiver(unitB, sim.Hours(1)).
		Build("first")
	routeSecond := chain.MakeRouteBuilder().
		WithSupplier(unitA).
		WithBatchSize(5).
		WithComponentKind("a-part").
		AddReceiver(unitC, sim.Hours(1)).
		Build("second")

	m, err := chain.MakeModel(
		[]*chain.ManufacturingUnit{unitA, unitB, unitC},
		[]*chain.ShippingRoute{routeFirst, routeSecond},
		[]*chain.ComponentKind{kindA, kindB, kindC})
	require.NoError(t, err)

	// Two seeds allow two productions of five parts each, one hour apart.
	s := MakeBuilder().WithSeed(0).WithSeedCapacity(2).Build()

	// Run to just past the first delivery: the first-parked route has been
	// served, the second has claimed the next production's parts and is
	// still in transit.
	require.NoError(t, s.Simulate(m, sim.Hours(2)+sim.Seconds(1)))

	// unitB holds its one-part primer plus the delivered batch; unitC still
	// holds only its primer.
	assert.Equal(t, 6, unitB.InputLocation.Size())
	assert.Equal(t, 1, unitC.InputLocation.Size())
	assert.Equal(t, int64(1), m.Bag.Get(chain.NumShippingsDone))
}
