package eeg

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	DescribeTable("partitions the ratio range",
		func(ratio float64, state CognitiveState, color ColorToken) {
			gotState, gotColor := Classify(ratio)
			Expect(gotState).To(Equal(state))
			Expect(gotColor).To(Equal(color))
		},
		Entry("well above calm", 10.0, StateCalm, ColorCalm),
		Entry("just above 2.5", 2.5000001, StateCalm, ColorCalm),
		Entry("exactly 2.5", 2.5, StateNeutral, ColorNeutral),
		Entry("between thresholds", 2.0, StateNeutral, ColorNeutral),
		Entry("just above 1.5", 1.5000001, StateNeutral, ColorNeutral),
		Entry("exactly 1.5", 1.5, StateHighLoad, ColorHighLoad),
		Entry("low ratio", 0.2, StateHighLoad, ColorHighLoad),
	)

	It("should never return the idle or acute state", func() {
		for r := 0.0; r < 10; r += 0.01 {
			state, _ := Classify(r)
			Expect(state).To(BeElementOf(StateCalm, StateNeutral, StateHighLoad))
		}
	})
})

var _ = Describe("IsAcuteDrop", func() {
	It("should trigger on a drop larger than 2.0", func() {
		Expect(IsAcuteDrop(5.0, 2.9)).To(BeTrue())
	})

	It("should not trigger on a drop of exactly 2.0", func() {
		Expect(IsAcuteDrop(5.0, 3.0)).To(BeFalse())
	})

	It("should not trigger on a rise", func() {
		Expect(IsAcuteDrop(1.0, 4.0)).To(BeFalse())
	})
})

var _ = Describe("alphaBetaRatio", func() {
	It("should divide when beta power is above 1", func() {
		Expect(alphaBetaRatio(9, 2.25)).To(Equal(4.0))
	})

	It("should fall back to alpha power when beta power is at most 1", func() {
		Expect(alphaBetaRatio(9, 1)).To(Equal(9.0))
		Expect(alphaBetaRatio(9, 0.5)).To(Equal(9.0))
	})
})
