// Package ocr turns receipt images into text with the tesseract CLI.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zombor/receipt-classifier/internal/scanning"
)

// Config configures the tesseract invocation.
type Config struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "fin+eng"
	TessdataDir string
	PSM         int // page segmentation mode; 0 leaves tesseract's default
}

// Tesseract recognises text in receipt images.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseract creates a Tesseract that shells out to the configured binary.
func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	return NewTesseractWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewTesseractWithRunner is NewTesseract with a caller supplied Runner.
func NewTesseractWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "fin+eng"
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

// Recognize returns the text tesseract reads from the image. The image is
// converted to PNG first so any format PrepareOCRImage accepts works.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	pngData, err := scanning.PrepareOCRImage(image, contentType)
	if err != nil {
		return "", fmt.Errorf("preparing image for OCR: %w", err)
	}

	stdout, stderr, err := t.runner.Run(ctx, pngData, t.cfg.Binary, t.args()...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(stderr)), 512))
	}

	text := strings.ReplaceAll(string(stdout), "\r\n", "\n")
	t.logger.Debug("OCR complete", "chars", len(text), "lang", t.cfg.Lang)
	return text, nil
}

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprint(t.cfg.PSM))
	}
	return args
}
