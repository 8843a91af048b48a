package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	var (
		input  string
		output string
	)

	JustBeforeEach(func() {
		output = Normalize(input)
	})

	When("the text contains an upper-case total marker", func() {
		BeforeEach(func() {
			input = "MAITO 1,09\nLEIPÄ 2,49\nYHTEENSÄ 3,58\nKIITOS"
		})

		It("drops the marker and everything after it", func() {
			Expect(output).To(Equal("MAITO 1,09\nLEIPÄ 2,49\n"))
		})
	})

	When("the text contains a capitalised total marker", func() {
		BeforeEach(func() {
			input = "Maito 1,09 A\nYhteensä 1,09"
		})

		It("cuts at the marker", func() {
			Expect(output).To(Equal("Maito 1,09 A\n"))
		})
	})

	When("both markers are present", func() {
		BeforeEach(func() {
			input = "a\nYhteensä 1\nb\nYHTEENSÄ 2"
		})

		It("prefers the upper-case marker", func() {
			Expect(output).To(Equal("a\nYhteensä 1\nb\n"))
		})
	})

	When("the marker uses a decomposed umlaut", func() {
		BeforeEach(func() {
			input = "MAITO 1,09\nYHTEENSA\u0308 1,09"
		})

		It("still finds the marker", func() {
			Expect(output).To(Equal("MAITO 1,09\n"))
		})
	})

	When("no marker is present", func() {
		BeforeEach(func() {
			input = "KAUPPA\nMAITO 1,09\nTOTAL 1,09"
		})

		It("returns the input unchanged", func() {
			Expect(output).To(Equal(input))
		})
	})

	When("the text has no marker but is not in composed form", func() {
		BeforeEach(func() {
			input = "LEIPA\u0308 2,49"
		})

		It("returns the input byte for byte", func() {
			Expect(output).To(Equal("LEIPA\u0308 2,49"))
		})
	})

	When("the marker is lower case", func() {
		BeforeEach(func() {
			input = "MAITO 1,09\nyhteensä 1,09"
		})

		It("does not treat it as a marker", func() {
			Expect(output).To(Equal(input))
		})
	})
})
