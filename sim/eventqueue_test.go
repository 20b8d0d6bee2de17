package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("EventQueueImpl", func() {
	var (
		mockCtrl *gomock.Controller
		queue    *EventQueueImpl
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		queue = NewEventQueue()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pop in order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			event := NewMockEvent(mockCtrl)
			event.EXPECT().
				Time().
				Return(VTime(rand.Int63n(1000000))).
				AnyTimes()
			event.EXPECT().Cancelled().Return(false).AnyTimes()
			queue.Push(event)
		}

		now := VTime(-1)
		for i := 0; i < numEvents; i++ {
			event := queue.Pop()
			Expect(event.Time() >= now).To(BeTrue())
			now = event.Time()
		}
	})

	It("should break same-time ties by insertion order", func() {
		evt1 := NewMockEvent(mockCtrl)
		evt2 := NewMockEvent(mockCtrl)
		evt3 := NewMockEvent(mockCtrl)
		for _, evt := range []*MockEvent{evt1, evt2, evt3} {
			evt.EXPECT().Time().Return(VTime(10)).AnyTimes()
			evt.EXPECT().Cancelled().Return(false).AnyTimes()
		}

		queue.Push(evt1)
		queue.Push(evt2)
		queue.Push(evt3)

		Expect(queue.Pop()).To(BeIdenticalTo(evt1))
		Expect(queue.Pop()).To(BeIdenticalTo(evt2))
		Expect(queue.Pop()).To(BeIdenticalTo(evt3))
	})

	It("should skip cancelled events lazily", func() {
		live := NewMockEvent(mockCtrl)
		live.EXPECT().Time().Return(VTime(20)).AnyTimes()
		live.EXPECT().Cancelled().Return(false).AnyTimes()

		cancelled := NewMockEvent(mockCtrl)
		cancelled.EXPECT().Time().Return(VTime(10)).AnyTimes()
		cancelled.EXPECT().Cancelled().Return(true).AnyTimes()

		queue.Push(cancelled)
		queue.Push(live)

		Expect(queue.Len()).To(Equal(1))
		Expect(queue.Peek()).To(BeIdenticalTo(live))
		Expect(queue.Pop()).To(BeIdenticalTo(live))
		Expect(queue.Pop()).To(BeNil())
	})

	It("should report empty with nil", func() {
		Expect(queue.Peek()).To(BeNil())
		Expect(queue.Pop()).To(BeNil())
		Expect(queue.Len()).To(Equal(0))
	})
})
