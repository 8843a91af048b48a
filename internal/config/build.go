package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-classifier/internal/ocr"
	"github.com/zombor/receipt-classifier/internal/receipt"
	"github.com/zombor/receipt-classifier/internal/retry"
	"github.com/zombor/receipt-classifier/internal/scanning"
)

// NewClassifier creates the oracle client for the configured provider.
func (o OracleConfig) NewClassifier(ctx context.Context, logger *slog.Logger) (scanning.Classifier, error) {
	switch o.Provider {
	case ProviderOpenAI:
		return scanning.NewOpenAI(scanning.OpenAIConfig{
			APIKey:  o.OpenAIKey,
			BaseURL: o.OpenAIBaseURL,
			Model:   o.OpenAIModel,
			Timeout: o.Timeout,
		}, logger)
	case ProviderGemini:
		return scanning.NewGemini(ctx, o.GeminiKey, o.GeminiModel)
	case ProviderOllama:
		return scanning.NewOllama(o.OllamaURL, o.OllamaModel)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", o.Provider)
	}
}

// Policy returns the retry policy for oracle calls.
func (o OracleConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   o.MaxAttempts,
		RateLimitWait: o.RateLimitWait,
		BaseDelay:     o.BaseDelay,
	}
}

// NewTesseract creates the OCR collaborator.
func (c OCRConfig) NewTesseract(logger *slog.Logger) *ocr.Tesseract {
	return ocr.NewTesseract(ocr.Config{
		Binary:      c.Binary,
		Lang:        c.Lang,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
	}, logger)
}

// Components is what a mode needs at run time.
type Components struct {
	Extractor receipt.Extractor
	// Pacer is nil in parser mode, which never calls the oracle.
	Pacer *retry.Pacer

	classifier scanning.Classifier
}

// Close releases the oracle client, if any.
func (c *Components) Close() error {
	if c.classifier == nil {
		return nil
	}
	return c.classifier.Close()
}

// NewComponents wires the extractor for mode.
func NewComponents(ctx context.Context, mode string, ocrCfg OCRConfig, oracle OracleConfig, logger *slog.Logger) (*Components, error) {
	if mode == ModeParser {
		return &Components{Extractor: receipt.NewParserPipeline(ocrCfg.NewTesseract(logger))}, nil
	}

	classifier, err := oracle.NewClassifier(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("creating %s classifier: %w", oracle.Provider, err)
	}
	governor := retry.NewGovernor(oracle.Policy(), logger)

	c := &Components{Pacer: retry.NewPacer(oracle.Pace), classifier: classifier}
	switch mode {
	case ModeVision:
		c.Extractor = receipt.NewVisionPipeline(classifier, governor, logger)
	case ModeText:
		c.Extractor = receipt.NewTextPipeline(ocrCfg.NewTesseract(logger), classifier, governor, logger)
	default:
		classifier.Close()
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return c, nil
}
