package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-classifier/internal/parsing"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	newTestRecord := func(id string) *Record {
		return &Record{
			ReceiptID:   id,
			Store:       "Lidl",
			Date:        "1.2.2024",
			Format:      parsing.FormatLidl,
			Source:      SourceParser,
			Status:      StatusOK,
			Lines:       []parsing.Line{{Number: 0, Text: "BANAANI 0,99 A", IsProduct: true}},
			Products:    []parsing.ProductLine{{Name: "BANAANI", Price: "0,99"}},
			Filename:    id + ".png",
			ContentType: "image/png",
			CreatedAt:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveRecord", func() {
		It("round trips every field", func() {
			rec := newTestRecord("r1")
			Expect(db.SaveRecord(rec)).To(Succeed())

			saved, err := db.GetRecord("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved).To(Equal(rec))
		})

		It("replaces an existing record", func() {
			Expect(db.SaveRecord(newTestRecord("r1"))).To(Succeed())
			updated := newTestRecord("r1")
			updated.Status = StatusFailed
			updated.Error = "boom"
			Expect(db.SaveRecord(updated)).To(Succeed())

			saved, err := db.GetRecord("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Status).To(Equal(StatusFailed))
			Expect(saved.Error).To(Equal("boom"))
		})
	})

	Describe("GetRecord", func() {
		When("record does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetRecord("nonexistent")
				Expect(err).To(MatchError(ErrNotFound))
				Expect(IsNotFound(err)).To(BeTrue())
			})
		})
	})

	Describe("ListRecords", func() {
		It("returns an empty list for a new database", func() {
			records, err := db.ListRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("returns records ordered by id", func() {
			for _, id := range []string{"r3", "r1", "r2"} {
				Expect(db.SaveRecord(newTestRecord(id))).To(Succeed())
			}
			records, err := db.ListRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].ReceiptID).To(Equal("r1"))
			Expect(records[2].ReceiptID).To(Equal("r3"))
		})
	})

	Describe("DeleteRecord", func() {
		It("removes the record", func() {
			Expect(db.SaveRecord(newTestRecord("r1"))).To(Succeed())
			Expect(db.DeleteRecord("r1")).To(Succeed())
			_, err := db.GetRecord("r1")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("reopening", func() {
		It("keeps saved records", func() {
			Expect(db.SaveRecord(newTestRecord("r1"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.GetRecord("r1")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
