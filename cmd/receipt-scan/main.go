package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-classifier/internal/config"
	"github.com/zombor/receipt-classifier/internal/parsing"
)

const usage = "usage: receipt-scan [flags] <image>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole command: it parses flags, checks for exactly one image
// argument and prints the parsed receipt. It returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	ocrCfg := config.DefaultOCR()
	logCfg := config.LogConfig{Level: "warn"}

	fs := ff.NewFlagSet("receipt-scan")
	ocrCfg.RegisterFlags(fs)
	logCfg.RegisterFlags(fs)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("RECEIPTS"),
	); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	images := fs.GetArgs()
	if len(images) != 1 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logCfg.NewLogger(stderr)
	if err := scan(ctx, ocrCfg.NewTesseract(logger), images[0], stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// recognizer reads the text of a receipt image.
type recognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
}

// scanResult is the JSON printed for one receipt.
type scanResult struct {
	Place    string                `json:"place"`
	Date     string                `json:"date"`
	Products []parsing.ProductLine `json:"products"`
}

// scan reads the image at path and writes the parsed receipt to w as JSON.
func scan(ctx context.Context, ocr recognizer, path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	text, err := ocr.Recognize(ctx, data, contentType(path))
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}

	res := parsing.Parse(text)
	out := scanResult{Place: res.Store, Date: res.Date, Products: res.Products}
	if out.Products == nil {
		out.Products = []parsing.ProductLine{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".heic", ".heif":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/png"
	}
}
