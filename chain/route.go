package chain

import (
	"github.com/chainsimlab/chainsim/sim"
)

// A ShippingRoute moves batches of one component kind from a supplier's
// output location to the input locations of its receivers, each with its
// own transport time.
type ShippingRoute struct {
	name string

	Supplier      *ManufacturingUnit
	BatchSize     int
	ComponentKind string

	shippingTimes map[*ManufacturingUnit]sim.VTime
	receiverOrder []*ManufacturingUnit
}

// Name returns the name of the route.
func (r *ShippingRoute) Name() string {
	return r.name
}

// Receivers returns the receivers in the fixed order shipments visit them.
func (r *ShippingRoute) Receivers() []*ManufacturingUnit {
	return r.receiverOrder
}

// ShippingTime returns the base transport time to the given receiver.
func (r *ShippingRoute) ShippingTime(receiver *ManufacturingUnit) sim.VTime {
	return r.shippingTimes[receiver]
}

// RouteBuilder builds shipping routes.
type RouteBuilder struct {
	supplier      *ManufacturingUnit
	batchSize     int
	componentKind string
	shippingTimes map[*ManufacturingUnit]sim.VTime
	receiverOrder []*ManufacturingUnit
}

// MakeRouteBuilder creates a RouteBuilder.
func MakeRouteBuilder() RouteBuilder {
	return RouteBuilder{
		shippingTimes: make(map[*ManufacturingUnit]sim.VTime),
	}
}

// WithSupplier sets the unit whose output location the route ships from.
func (b RouteBuilder) WithSupplier(u *ManufacturingUnit) RouteBuilder {
	b.supplier = u
	return b
}

// WithBatchSize sets the number of components per shipment.
func (b RouteBuilder) WithBatchSize(n int) RouteBuilder {
	b.batchSize = n
	return b
}

// WithComponentKind sets the resource name the route ships.
func (b RouteBuilder) WithComponentKind(kind string) RouteBuilder {
	b.componentKind = kind
	return b
}

// AddReceiver adds a receiver with its base transport time. The order in
// which receivers are added is the order shipments visit them.
func (b RouteBuilder) AddReceiver(
	u *ManufacturingUnit,
	shippingTime sim.VTime,
) RouteBuilder {
	if _, ok := b.shippingTimes[u]; !ok {
		b.receiverOrder = append(b.receiverOrder, u)
	}
	b.shippingTimes[u] = shippingTime

	return b
}

// Build creates the shipping route. Structural validation happens in
// MakeModel.
func (b RouteBuilder) Build(name string) *ShippingRoute {
	return &ShippingRoute{
		name:          name,
		Supplier:      b.supplier,
		BatchSize:     b.batchSize,
		ComponentKind: b.componentKind,
		shippingTimes: b.shippingTimes,
		receiverOrder: b.receiverOrder,
	}
}
