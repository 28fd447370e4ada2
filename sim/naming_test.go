package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Naming", func() {
	It("should accept hierarchical names", func() {
		Expect(func() { NameMustBeValid("NeuroTrack.Session.Sampler") }).
			NotTo(Panic())
	})

	It("should accept indexed elements", func() {
		Expect(func() { NameMustBeValid("Headset.Channel[2]") }).NotTo(Panic())
	})

	It("should panic if the name is empty", func() {
		Expect(func() { NameMustBeValid("") }).To(Panic())
	})

	It("should panic if name include underscore", func() {
		Expect(func() { NameMustBeValid("Sample_Timer") }).To(Panic())
	})

	It("should panic if name include dash", func() {
		Expect(func() { NameMustBeValid("Sample-Timer") }).To(Panic())
	})

	It("should panic if name is not capitalized", func() {
		Expect(func() { NameMustBeValid("NeuroTrack.sampler") }).To(Panic())
	})

	It("should have paired square brackets", func() {
		Expect(func() { NameMustBeValid("Channel[0") }).To(Panic())
		Expect(func() { NameMustBeValid("Channel0]") }).To(Panic())
	})

	It("should panic if an index is not a number", func() {
		Expect(func() { NameMustBeValid("Channel[x]") }).To(Panic())
	})

	It("should panic if element name is empty", func() {
		Expect(func() { NameMustBeValid("NeuroTrack..Session") }).To(Panic())
	})

	It("should build names", func() {
		Expect(BuildName("", "NeuroTrack")).To(Equal("NeuroTrack"))
		Expect(BuildName("NeuroTrack", "Model")).To(Equal("NeuroTrack.Model"))
	})
})
