package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

func expectEvent(
	mockCtrl *gomock.Controller,
	t VTime,
	handler Handler,
) *MockEvent {
	evt := NewMockEvent(mockCtrl)
	evt.EXPECT().Time().Return(t).AnyTimes()
	evt.EXPECT().Handler().Return(handler).AnyTimes()
	evt.EXPECT().Cancelled().Return(false).AnyTimes()
	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run events in time order", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)

		evt1 := expectEvent(mockCtrl, 4, handler1)
		evt2 := expectEvent(mockCtrl, 2, handler2)
		evt3 := expectEvent(mockCtrl, 3, handler1)
		evt4 := expectEvent(mockCtrl, 5, handler1)

		handleEvt2 := handler2.EXPECT().Handle(evt2).DoAndReturn(
			func(e Event) error {
				engine.Schedule(evt3)
				engine.Schedule(evt4)
				return nil
			})
		handleEvt3 := handler1.EXPECT().
			Handle(evt3).Return(nil).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().
			Handle(evt1).Return(nil).After(handleEvt3)
		handler1.EXPECT().
			Handle(evt4).Return(nil).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.RunUntil(10)

		Expect(err).To(BeNil())
		Expect(engine.CurrentTime()).To(Equal(VTime(5)))
	})

	It("should stop at the run-until time", func() {
		handler := NewMockHandler(mockCtrl)

		early := expectEvent(mockCtrl, 3, handler)
		late := expectEvent(mockCtrl, 20, handler)

		handler.EXPECT().Handle(early).Return(nil)

		engine.Schedule(early)
		engine.Schedule(late)

		err := engine.RunUntil(10)

		Expect(err).To(BeNil())
		Expect(engine.CurrentTime()).To(Equal(VTime(10)))

		handler.EXPECT().Handle(late).Return(nil)

		err = engine.RunUntil(30)

		Expect(err).To(BeNil())
		Expect(engine.CurrentTime()).To(Equal(VTime(20)))
	})

	It("should leave the clock at the last event when the queue empties",
		func() {
			handler := NewMockHandler(mockCtrl)
			evt := expectEvent(mockCtrl, 7, handler)
			handler.EXPECT().Handle(evt).Return(nil)

			engine.Schedule(evt)

			err := engine.RunUntil(100)

			Expect(err).To(BeNil())
			Expect(engine.CurrentTime()).To(Equal(VTime(7)))
		})

	It("should not run events after termination", func() {
		handler := NewMockHandler(mockCtrl)

		evt1 := expectEvent(mockCtrl, 1, handler)
		evt2 := expectEvent(mockCtrl, 2, handler)

		handler.EXPECT().Handle(evt1).DoAndReturn(func(e Event) error {
			engine.Terminate()
			return nil
		})

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.RunUntil(10)

		Expect(err).To(BeNil())
		Expect(engine.CurrentTime()).To(Equal(VTime(1)))
	})

	It("should panic when scheduling into the past", func() {
		handler := NewMockHandler(mockCtrl)

		evt := expectEvent(mockCtrl, 5, handler)
		handler.EXPECT().Handle(evt).Return(nil)

		engine.Schedule(evt)
		Expect(engine.RunUntil(5)).To(Succeed())

		past := expectEvent(mockCtrl, 2, handler)
		Expect(func() { engine.Schedule(past) }).To(Panic())
	})

	It("should invoke hooks around every event", func() {
		handler := NewMockHandler(mockCtrl)
		evt := expectEvent(mockCtrl, 1, handler)
		handler.EXPECT().Handle(evt).Return(nil)

		hook := &positionRecordingHook{}
		engine.AcceptHook(hook)

		engine.Schedule(evt)
		Expect(engine.RunUntil(10)).To(Succeed())

		Expect(hook.positions).To(Equal([]*HookPos{
			HookPosBeforeEvent,
			HookPosAfterEvent,
		}))
	})
})

type positionRecordingHook struct {
	positions []*HookPos
}

func (h *positionRecordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}
