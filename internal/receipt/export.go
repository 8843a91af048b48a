package receipt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"receipt_id", "store", "date", "line_number", "line_text", "is_product"}

const exportSheet = "Receipts"

func (r Row) fields() []string {
	isProduct := "0"
	if r.IsProduct {
		isProduct = "1"
	}
	return []string{r.ReceiptID, r.Store, r.Date, strconv.Itoa(r.LineNumber), r.LineText, isProduct}
}

// WriteCSV writes rows as comma separated values with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.fields()); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteXLSX writes rows to a single sheet workbook with the same columns as WriteCSV.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range rows {
		row := i + 2
		values := []any{r.ReceiptID, r.Store, r.Date, r.LineNumber, r.LineText, boolToInt(r.IsProduct)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 24) // receipt id
	_ = f.SetColWidth(exportSheet, "B", "B", 28) // store
	_ = f.SetColWidth(exportSheet, "C", "C", 14) // date
	_ = f.SetColWidth(exportSheet, "E", "E", 48) // line text

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
