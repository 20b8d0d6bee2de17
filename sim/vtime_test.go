package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("VTime", func() {
	It("should convert time units to the base unit", func() {
		Expect(Seconds(90)).To(Equal(VTime(90)))
		Expect(Hours(2)).To(Equal(VTime(7200)))
		Expect(Days(1)).To(Equal(VTime(86400)))
	})
})

var _ = Describe("PartitionedRand", func() {
	It("should give identical streams for identical seeds", func() {
		rand1 := NewPartitionedRand(42)
		rand2 := NewPartitionedRand(42)

		for i := 0; i < 100; i++ {
			Expect(rand1.Stream("shipping").Float64()).
				To(Equal(rand2.Stream("shipping").Float64()))
		}
	})

	It("should isolate streams by name", func() {
		r := NewPartitionedRand(42)

		first := r.Stream("a").Float64()
		second := r.Stream("b").Float64()

		Expect(first).NotTo(Equal(second))
	})

	It("should cache streams", func() {
		r := NewPartitionedRand(42)

		Expect(r.Stream("a")).To(BeIdenticalTo(r.Stream("a")))
	})
})
