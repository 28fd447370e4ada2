package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Timer", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
		handler  *MockTimerHandler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
		handler = NewMockTimerHandler(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fire periodically", func() {
		timer := NewTimer("Ticker", engine, 2*Hz, handler)

		var fireTimes []VTimeInSec
		handler.EXPECT().OnTimer(timer, gomock.Any()).
			Do(func(_ *Timer, now VTimeInSec) {
				fireTimes = append(fireTimes, now)
			}).
			Times(4)

		timer.Start()
		Expect(engine.RunUntil(2.2)).To(Succeed())

		Expect(fireTimes).To(Equal([]VTimeInSec{0.5, 1.0, 1.5, 2.0}))
		Expect(timer.Fired()).To(Equal(uint64(4)))
		Expect(timer.IsActive()).To(BeTrue())
	})

	It("should fire a single shot timer once", func() {
		timer := NewSingleShotTimer("Once", engine, 3, handler)

		handler.EXPECT().OnTimer(timer, VTimeInSec(3)).Times(1)

		timer.Start()
		Expect(engine.RunUntil(10)).To(Succeed())

		Expect(timer.IsActive()).To(BeFalse())
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should drop firings queued before a stop", func() {
		timer := NewTimer("Ticker", engine, 1*Hz, handler)

		timer.Start()
		timer.Stop()

		Expect(engine.Pending()).To(Equal(1))
		Expect(engine.RunUntil(5)).To(Succeed())
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should stop from inside its own handler", func() {
		timer := NewTimer("Ticker", engine, 1*Hz, handler)

		count := 0
		handler.EXPECT().OnTimer(timer, gomock.Any()).
			Do(func(t *Timer, _ VTimeInSec) {
				count++
				if count == 3 {
					t.Stop()
				}
			}).
			Times(3)

		timer.Start()
		Expect(engine.RunUntil(10)).To(Succeed())

		Expect(timer.IsActive()).To(BeFalse())
	})

	It("should re-anchor the cadence on restart", func() {
		timer := NewTimer("Ticker", engine, 1*Hz, handler)

		timer.Start()
		Expect(engine.RunUntil(0.5)).To(Succeed())
		timer.Stop()
		Expect(engine.RunUntil(2.25)).To(Succeed())

		handler.EXPECT().OnTimer(timer, VTimeInSec(3.25)).Times(1)

		timer.Start()
		Expect(engine.RunUntil(3.5)).To(Succeed())
	})

	It("should fire secondary timers after primary events", func() {
		primaryHandler := NewMockTimerHandler(mockCtrl)
		primary := NewTimer("Primary", engine, 1*Hz, primaryHandler)
		secondary := NewSingleShotTimer("Secondary", engine, 1, handler).
			AsSecondary()

		secondary.Start()
		primary.Start()

		first := primaryHandler.EXPECT().OnTimer(primary, VTimeInSec(1))
		handler.EXPECT().OnTimer(secondary, VTimeInSec(1)).After(first)

		Expect(engine.RunUntil(1)).To(Succeed())
	})
})
