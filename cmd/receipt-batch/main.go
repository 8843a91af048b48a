package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-classifier/internal/config"
	"github.com/zombor/receipt-classifier/internal/receipt"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Batch{OCR: config.DefaultOCR(), Oracle: config.DefaultOracle()}

	fs := ff.NewFlagSet("receipt-batch")
	fs.StringVar(&cfg.InputDir, 0, "dir", "receipts", "Directory of receipt images")
	fs.StringVar(&cfg.Mode, 0, "mode", config.ModeParser, "Extraction mode: 'parser', 'vision' or 'text'")
	fs.BoolVar(&cfg.Parallel, 0, "parallel", "Process receipts concurrently")
	fs.IntVar(&cfg.Workers, 0, "workers", 3, "Concurrent receipts in parallel mode")
	fs.StringVar(&cfg.CSVPath, 0, "csv", "classified_output.csv", "CSV output path (empty to skip)")
	fs.StringVar(&cfg.XLSXPath, 0, "xlsx", "", "Excel output path (optional)")
	fs.StringVar(&cfg.DBPath, 0, "db", "", "Database file to record every receipt in (optional)")
	cfg.OCR.RegisterFlags(fs)
	cfg.Oracle.RegisterFlags(fs)
	cfg.Log.RegisterFlags(fs)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := receipt.NewLocalStorage(cfg.InputDir)
	if err != nil {
		logger.Error("Failed to open input directory", "error", err)
		return 1
	}
	inputs, err := store.List()
	if err != nil {
		logger.Error("Failed to list receipts", "error", err)
		return 1
	}
	if len(inputs) == 0 {
		logger.Warn("No receipt images found", "dir", cfg.InputDir)
		return 0
	}

	components, err := config.NewComponents(ctx, cfg.Mode, cfg.OCR, cfg.Oracle, logger)
	if err != nil {
		logger.Error("Failed to initialize extraction", "mode", cfg.Mode, "error", err)
		return 1
	}
	defer components.Close()

	orchCfg := receipt.OrchestratorConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	}
	if cfg.Parallel {
		orchCfg.Mode = receipt.ModeParallel
	}
	if components.Pacer != nil {
		orchCfg.Pacer = components.Pacer
	}
	if cfg.DBPath != "" {
		db, err := receipt.NewBoltDB(cfg.DBPath)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			return 1
		}
		defer db.Close()
		orchCfg.Records = db
	}

	result := receipt.NewOrchestrator(store, components.Extractor, orchCfg).Run(ctx, inputs)

	status := 0
	if cfg.CSVPath != "" {
		if err := writeFile(cfg.CSVPath, func(f *os.File) error { return receipt.WriteCSV(f, result.Rows) }); err != nil {
			logger.Error("Failed to write CSV", "path", cfg.CSVPath, "error", err)
			status = 1
		} else {
			logger.Info("Saved CSV", "path", cfg.CSVPath, "rows", len(result.Rows))
		}
	}
	if cfg.XLSXPath != "" {
		if err := writeFile(cfg.XLSXPath, func(f *os.File) error { return receipt.WriteXLSX(f, result.Rows) }); err != nil {
			logger.Error("Failed to write Excel file", "path", cfg.XLSXPath, "error", err)
			status = 1
		} else {
			logger.Info("Saved Excel file", "path", cfg.XLSXPath, "rows", len(result.Rows))
		}
	}

	if err := result.WriteSummary(os.Stdout); err != nil {
		logger.Error("Failed to write summary", "error", err)
		return 1
	}
	if ctx.Err() != nil {
		return 130
	}
	return status
}

// writeFile creates path and hands it to write, keeping the first error.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
