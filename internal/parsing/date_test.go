package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Date", func() {
	Describe("K-group rule", func() {
		It("takes the last token of the first row whose fifth-from-last rune is a period", func() {
			text := "K-Market\nPuh. 010 123.45\nKLO 14:33 12.03.2024\nPLUSSA"
			Expect(Date(text, FormatKGroup)).To(Equal("12.03.2024"))
		})

		It("returns empty when no row qualifies", func() {
			Expect(Date("K-Market\nPLUSSA", FormatKGroup)).To(BeEmpty())
		})

		It("ignores rows too short for the position check", func() {
			Expect(Date("..\n1.2", FormatKGroup)).To(BeEmpty())
		})
	})

	Describe("S-group rule", func() {
		It("returns the first token with exactly two periods", func() {
			text := "Prisma\nS-Etukortti\n3.12.2024 17:02 K1 M000\nBONUS"
			Expect(Date(text, FormatSGroup)).To(Equal("3.12.2024"))
		})

		It("continues to later rows when a row has no date token", func() {
			text := "Y-tunnus 1.2 ... x\n05.06.2024 kassa 3\nBONUS"
			Expect(Date(text, FormatSGroup)).To(Equal("05.06.2024"))
		})
	})

	Describe("Lidl rule", func() {
		It("expands a two-digit year", func() {
			Expect(Date("Lidl\nkuitti 1.2.24", FormatLidl)).To(Equal("1.2.2024"))
		})

		It("keeps a four-digit year", func() {
			Expect(Date("Lidl\nkuitti 01.02.2024", FormatLidl)).To(Equal("01.02.2024"))
		})

		It("requires the row to end in a digit", func() {
			text := "Lidl\n1.2.24 kiitos\n15.11.25 12:03"
			Expect(Date(text, FormatLidl)).To(Equal("15.11.2025"))
		})
	})

	When("the format is unknown", func() {
		It("returns an empty date", func() {
			Expect(Date("Kioski\n12.03.2024", FormatUnknown)).To(BeEmpty())
		})
	})

	It("is stable across repeated runs", func() {
		text := "Prisma\n3.12.2024 17:02\nBONUS"
		Expect(Date(text, FormatSGroup)).To(Equal(Date(text, FormatSGroup)))
	})
})

var _ = Describe("DateRow", func() {
	It("returns the whole first row with two periods", func() {
		text := "Kioski Helsinki\n  12.03.2024 14:33 KASSA 2  \nKAHVI 2,50\n1.1.2025"
		Expect(DateRow(text)).To(Equal("12.03.2024 14:33 KASSA 2"))
	})

	It("skips rows with a single period", func() {
		Expect(DateRow("Puh. 010\n3.4.2024")).To(Equal("3.4.2024"))
	})

	It("returns empty when no row qualifies", func() {
		Expect(DateRow("KAHVI 2,50\nKIITOS")).To(BeEmpty())
	})
})
