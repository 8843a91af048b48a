package receipt

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Export", func() {
	var rows []Row

	BeforeEach(func() {
		rows = []Row{
			{ReceiptID: "r1", Store: "K-Market", Date: "12.03.2024", LineNumber: 0, LineText: "K-Market", IsProduct: false},
			{ReceiptID: "r1", Store: "K-Market", Date: "12.03.2024", LineNumber: 1, LineText: "MAITO 1,09", IsProduct: true},
		}
	})

	Describe("WriteCSV", func() {
		It("writes a header and one line per row", func() {
			var buf bytes.Buffer
			Expect(WriteCSV(&buf, rows)).To(Succeed())
			Expect(buf.String()).To(Equal(
				"receipt_id,store,date,line_number,line_text,is_product\n" +
					"r1,K-Market,12.03.2024,0,K-Market,0\n" +
					"r1,K-Market,12.03.2024,1,\"MAITO 1,09\",1\n",
			))
		})

		It("writes only the header for no rows", func() {
			var buf bytes.Buffer
			Expect(WriteCSV(&buf, nil)).To(Succeed())
			Expect(buf.String()).To(Equal("receipt_id,store,date,line_number,line_text,is_product\n"))
		})
	})

	Describe("WriteXLSX", func() {
		It("writes the same columns to a Receipts sheet", func() {
			var buf bytes.Buffer
			Expect(WriteXLSX(&buf, rows)).To(Succeed())

			f, err := excelize.OpenReader(&buf)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			got, err := f.GetRows("Receipts")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([][]string{
				{"receipt_id", "store", "date", "line_number", "line_text", "is_product"},
				{"r1", "K-Market", "12.03.2024", "0", "K-Market", "0"},
				{"r1", "K-Market", "12.03.2024", "1", "MAITO 1,09", "1"},
			}))
		})
	})
})
