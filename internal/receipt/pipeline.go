package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-classifier/internal/parsing"
	"github.com/zombor/receipt-classifier/internal/scanning"
)

// Pipeline names recorded as Record.Source.
const (
	SourceParser = "parser"
	SourceVision = "vision"
	SourceText   = "text"
)

// Document is an Input together with its file contents.
type Document struct {
	Input
	Data []byte
}

// Extractor turns one receipt into an Outcome. Errors are reported in the
// Outcome, never returned.
type Extractor interface {
	Extract(ctx context.Context, doc Document) Outcome
}

// TextRecognizer reads the text printed on a receipt image.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
}

// Governor runs an oracle call under a retry policy.
type Governor interface {
	Do(ctx context.Context, op func(context.Context) error) (int, error)
}

// ParserPipeline reads the receipt with OCR and applies the merchant heuristics.
type ParserPipeline struct {
	ocr TextRecognizer
}

// NewParserPipeline creates a ParserPipeline.
func NewParserPipeline(ocr TextRecognizer) *ParserPipeline {
	return &ParserPipeline{ocr: ocr}
}

// Extract implements Extractor
func (p *ParserPipeline) Extract(ctx context.Context, doc Document) Outcome {
	text, err := p.ocr.Recognize(ctx, doc.Data, doc.ContentType)
	if err != nil {
		return failed(SourceParser, fmt.Errorf("ocr: %w", err))
	}

	res := parsing.Parse(text)
	return succeeded(SourceParser, res.Format, res.Store, res.Date, res.Lines, res.Products)
}

// VisionPipeline sends the image itself to the oracle.
type VisionPipeline struct {
	classifier scanning.Classifier
	governor   Governor
	logger     *slog.Logger
}

// NewVisionPipeline creates a VisionPipeline.
func NewVisionPipeline(classifier scanning.Classifier, governor Governor, logger *slog.Logger) *VisionPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionPipeline{classifier: classifier, governor: governor, logger: logger}
}

// Extract implements Extractor
func (p *VisionPipeline) Extract(ctx context.Context, doc Document) Outcome {
	content := scanning.Content{Image: doc.Data, ContentType: doc.ContentType}

	c, attempts, err := classify(ctx, p.classifier, p.governor, content)
	if err != nil {
		if errors.Is(err, scanning.ErrUnreadableImage) {
			err = &InputError{ID: doc.ID, Err: err}
		}
		out := failed(SourceVision, err)
		out.Attempts = attempts
		return out
	}

	out := succeeded(SourceVision, parsing.FormatUnknown, c.Store, c.Date, toLines(c.Lines), nil)
	out.Attempts = attempts
	return out
}

// TextPipeline reads the receipt with OCR, trims it at the total line and
// asks the oracle to classify the numbered lines. Store and date come from the
// merchant heuristics when they find them, then from the first dated row, and
// from the oracle otherwise.
type TextPipeline struct {
	ocr        TextRecognizer
	classifier scanning.Classifier
	governor   Governor
	logger     *slog.Logger
}

// NewTextPipeline creates a TextPipeline.
func NewTextPipeline(ocr TextRecognizer, classifier scanning.Classifier, governor Governor, logger *slog.Logger) *TextPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextPipeline{ocr: ocr, classifier: classifier, governor: governor, logger: logger}
}

// Extract implements Extractor
func (p *TextPipeline) Extract(ctx context.Context, doc Document) Outcome {
	text, err := p.ocr.Recognize(ctx, doc.Data, doc.ContentType)
	if err != nil {
		return failed(SourceText, fmt.Errorf("ocr: %w", err))
	}

	format := parsing.DetectFormat(text)
	store := parsing.Store(text, format)
	date := parsing.Date(text, format)
	if date == "" {
		date = parsing.DateRow(text)
	}

	region := parsing.Normalize(text)
	if len(scanning.NumberedLines(region)) == 0 {
		p.logger.Debug("No text before the total line", "receipt_id", doc.ID)
		return succeeded(SourceText, format, store, date, nil, nil)
	}

	c, attempts, err := classify(ctx, p.classifier, p.governor, scanning.Content{Text: region})
	if err != nil {
		out := failed(SourceText, err)
		out.Attempts = attempts
		return out
	}

	if store == "" {
		store = c.Store
	}
	if date == "" {
		date = c.Date
	}

	out := succeeded(SourceText, format, store, date, toLines(c.Lines), nil)
	out.Attempts = attempts
	return out
}

// classify runs one oracle call under the governor.
func classify(ctx context.Context, classifier scanning.Classifier, governor Governor, content scanning.Content) (*scanning.Classification, int, error) {
	var result *scanning.Classification
	attempts, err := governor.Do(ctx, func(ctx context.Context) error {
		c, err := classifier.Classify(ctx, content)
		if err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, attempts, fmt.Errorf("classifying receipt: %w", err)
	}
	return result, attempts, nil
}

func toLines(in []scanning.LineClassification) []parsing.Line {
	out := make([]parsing.Line, 0, len(in))
	for _, l := range in {
		out = append(out, parsing.Line{Number: l.LineNumber, Text: l.Text, IsProduct: l.IsProduct})
	}
	return out
}
