package receipt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-classifier/internal/parsing"
)

// Status is the result of extracting one receipt.
type Status int

const (
	// StatusOK means at least one line was recovered.
	StatusOK Status = iota
	// StatusEmpty means extraction ran cleanly but produced no lines.
	StatusEmpty
	// StatusFailed means extraction stopped with an error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "ok":
		*s = StatusOK
	case "empty":
		*s = StatusEmpty
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Outcome is what an Extractor recovered from one receipt.
type Outcome struct {
	Status   Status
	Source   string
	Format   parsing.MerchantFormat
	Store    string
	Date     string
	Lines    []parsing.Line
	Products []parsing.ProductLine
	Attempts int
	Err      error
}

// succeeded builds an OK or Empty outcome depending on whether any line was found.
func succeeded(source string, format parsing.MerchantFormat, store, date string, lines []parsing.Line, products []parsing.ProductLine) Outcome {
	status := StatusOK
	if len(lines) == 0 {
		status = StatusEmpty
	}
	return Outcome{
		Status:   status,
		Source:   source,
		Format:   format,
		Store:    store,
		Date:     date,
		Lines:    lines,
		Products: products,
	}
}

func failed(source string, err error) Outcome {
	return Outcome{Status: StatusFailed, Source: source, Err: err}
}

// Record is the stored result for one receipt.
type Record struct {
	ReceiptID   string                 `json:"receipt_id"`
	Store       string                 `json:"store"`
	Date        string                 `json:"date"`
	Format      parsing.MerchantFormat `json:"format"`
	Source      string                 `json:"source"`
	Status      Status                 `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Lines       []parsing.Line         `json:"lines"`
	Products    []parsing.ProductLine  `json:"products,omitempty"`
	Filename    string                 `json:"filename"`
	ContentType string                 `json:"content_type"`
	Attempts    int                    `json:"attempts,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func newRecord(in Input, out Outcome, now time.Time) *Record {
	rec := &Record{
		ReceiptID:   in.ID,
		Store:       out.Store,
		Date:        out.Date,
		Format:      out.Format,
		Source:      out.Source,
		Status:      out.Status,
		Lines:       out.Lines,
		Products:    out.Products,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Attempts:    out.Attempts,
		CreatedAt:   now,
	}
	if rec.Lines == nil {
		rec.Lines = []parsing.Line{}
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	return rec
}

// ProductCount counts the lines tagged as products.
func (r *Record) ProductCount() int {
	n := 0
	for _, l := range r.Lines {
		if l.IsProduct {
			n++
		}
	}
	return n
}

// Row is one line of the flat export.
type Row struct {
	ReceiptID  string `json:"receipt_id"`
	Store      string `json:"store"`
	Date       string `json:"date"`
	LineNumber int    `json:"line_number"`
	LineText   string `json:"line_text"`
	IsProduct  bool   `json:"is_product"`
}

// Rows flattens the record into export rows, one per line.
func (r *Record) Rows() []Row {
	rows := make([]Row, 0, len(r.Lines))
	for _, l := range r.Lines {
		rows = append(rows, Row{
			ReceiptID:  r.ReceiptID,
			Store:      r.Store,
			Date:       r.Date,
			LineNumber: l.Number,
			LineText:   l.Text,
			IsProduct:  l.IsProduct,
		})
	}
	return rows
}

// BatchResult accumulates the records of one batch run. It is safe for
// concurrent use while the run is in progress.
type BatchResult struct {
	mu sync.Mutex

	Processed map[string]struct{}
	Failed    []string
	Records   []*Record
	Rows      []Row
	Total     int
	Elapsed   time.Duration

	empty  int
	errors int
}

func newBatchResult(total int) *BatchResult {
	return &BatchResult{
		Processed: make(map[string]struct{}, total),
		Failed:    make([]string, 0),
		Records:   make([]*Record, 0, total),
		Rows:      make([]Row, 0),
		Total:     total,
	}
}

// add appends the record and its rows in one step and returns how many
// receipts have been recorded so far.
func (b *BatchResult) add(rec *Record) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Processed[rec.ReceiptID] = struct{}{}
	b.Records = append(b.Records, rec)
	b.Rows = append(b.Rows, rec.Rows()...)

	switch rec.Status {
	case StatusEmpty:
		b.empty++
		b.Failed = append(b.Failed, rec.ReceiptID)
	case StatusFailed:
		b.errors++
		b.Failed = append(b.Failed, rec.ReceiptID)
	}
	return len(b.Records)
}

// EmptyCount is the number of receipts that produced no lines without an error.
func (b *BatchResult) EmptyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.empty
}

// ErrorCount is the number of receipts whose extraction failed.
func (b *BatchResult) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errors
}

// ProductCount is the number of rows tagged as products.
func (b *BatchResult) ProductCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.Rows {
		if r.IsProduct {
			n++
		}
	}
	return n
}

// ProductTotal sums the prices the merchant heuristics recovered. Prices that
// do not parse are skipped.
func (b *BatchResult) ProductTotal() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := decimal.Zero
	for _, rec := range b.Records {
		for _, p := range rec.Products {
			if amount, err := p.Amount(); err == nil {
				total = total.Add(amount)
			}
		}
	}
	return total
}
