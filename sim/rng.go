package sim

import (
	"hash/fnv"
	"math/rand"
)

// Rand is the source of randomness injected into a simulation. Shipping
// delay factors are drawn from it once per shipping event, uniform in
// [0, 1); defect shares are computed from the defect rate without a draw.
type Rand interface {
	Float64() float64
}

// PartitionedRand derives an isolated, deterministically seeded random
// stream per named subsystem. Two simulations created with the same seed
// draw identical sequences from identically named streams.
//
// Not safe for concurrent use. All draws happen from the engine's single
// execution context.
type PartitionedRand struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewPartitionedRand creates a PartitionedRand from a master seed.
func NewPartitionedRand(seed int64) *PartitionedRand {
	return &PartitionedRand{
		seed:    seed,
		streams: make(map[string]*rand.Rand),
	}
}

// Stream returns the random stream for the named subsystem, creating it on
// first use. The same name always returns the same stream.
func (p *PartitionedRand) Stream(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}

	r := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.streams[name] = r

	return r
}

// Seed returns the master seed this PartitionedRand was created with.
func (p *PartitionedRand) Seed() int64 {
	return p.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
