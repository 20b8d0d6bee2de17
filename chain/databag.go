package chain

// DataBag keys written during a run. Counters are integers; the delay and
// shipping-time keys are in virtual-time base units.
const (
	NumShippingDelays           = "number_of_shipping_delays"
	NumDefectiveComponents      = "number_of_defective_components"
	LengthOfDelays              = "length_of_delays"
	TotalShippingTimeWithDelays = "total_shipping_time_with_delays"
	NumShippingsDone            = "number_of_shippings_done"
	TotalFinalOutput            = "total_final_output"
	NumComponentsShipped        = "number_of_components_shipped"
)

// A DataBag is a set of named metric counters updated by processes during a
// run and read by the caller afterwards. Keys keep their first-insertion
// order so that reports are stable across runs.
type DataBag struct {
	keys     []string
	counters map[string]int64
}

// NewDataBag creates an empty DataBag.
func NewDataBag() *DataBag {
	return &DataBag{
		counters: make(map[string]int64),
	}
}

// Add increments the named counter.
func (b *DataBag) Add(key string, delta int64) {
	if _, ok := b.counters[key]; !ok {
		b.keys = append(b.keys, key)
	}

	b.counters[key] += delta
}

// Get returns the value of the named counter, zero if never written.
func (b *DataBag) Get(key string) int64 {
	return b.counters[key]
}

// Keys returns the counter names in first-insertion order.
func (b *DataBag) Keys() []string {
	return b.keys
}

// Snapshot returns a copy of all counters.
func (b *DataBag) Snapshot() map[string]int64 {
	snapshot := make(map[string]int64, len(b.counters))
	for k, v := range b.counters {
		snapshot[k] = v
	}

	return snapshot
}
