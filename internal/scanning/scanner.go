package scanning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// LineClassification is the oracle's judgement for one receipt line.
type LineClassification struct {
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
	IsProduct  bool   `json:"is_product"`
}

// UnmarshalJSON accepts is_product as 0/1 as well as a boolean.
func (l *LineClassification) UnmarshalJSON(data []byte) error {
	var raw struct {
		LineNumber int             `json:"line_number"`
		Text       string          `json:"text"`
		IsProduct  json.RawMessage `json:"is_product"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch strings.TrimSpace(string(raw.IsProduct)) {
	case "1", "true":
		l.IsProduct = true
	case "0", "false", "", "null":
		l.IsProduct = false
	default:
		return fmt.Errorf("invalid is_product value %s", raw.IsProduct)
	}
	l.LineNumber = raw.LineNumber
	l.Text = raw.Text
	return nil
}

// Classification contains what the oracle extracted from a receipt
type Classification struct {
	Store string               `json:"store"`
	Date  string               `json:"date"`
	Lines []LineClassification `json:"classifications"`
}

// Products counts the lines flagged as products.
func (c *Classification) Products() int {
	n := 0
	for _, l := range c.Lines {
		if l.IsProduct {
			n++
		}
	}
	return n
}

// Content is what gets sent to the oracle: either an image or OCR text.
type Content struct {
	Image       []byte
	ContentType string
	Text        string
}

// IsImage reports whether the content carries an image.
func (c Content) IsImage() bool {
	return len(c.Image) > 0
}

// Classifier defines the interface for receipt line classification
type Classifier interface {
	// Classify sends receipt content to the oracle and returns its judgement
	Classify(ctx context.Context, content Content) (*Classification, error)
	// Close closes the classifier and releases resources
	Close() error
}
