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
	cfg := config.Server{OCR: config.DefaultOCR(), Oracle: config.DefaultOracle()}

	fs := ff.NewFlagSet("receipt-server")
	fs.IntVar(&cfg.Port, 0, "port", 8080, "HTTP server port")
	fs.StringVar(&cfg.DBPath, 0, "db", "receipts.db", "Database file path")
	fs.StringVar(&cfg.StoragePath, 0, "storage", "./receipts", "Storage directory path")
	fs.StringVar(&cfg.Mode, 0, "mode", config.ModeParser, "Extraction mode: 'parser', 'vision' or 'text'")
	fs.StringVar(&cfg.AuthUser, 0, "auth-user", "", "Basic auth username (optional)")
	fs.StringVar(&cfg.AuthPass, 0, "auth-pass", "", "Basic auth password (optional)")
	cfg.OCR.RegisterFlags(fs)
	cfg.Oracle.RegisterFlags(fs)
	cfg.Log.RegisterFlags(fs)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing extraction...", "mode", cfg.Mode, "provider", cfg.Oracle.Provider)
	components, err := config.NewComponents(ctx, cfg.Mode, cfg.OCR, cfg.Oracle, logger)
	if err != nil {
		slog.Error("Failed to initialize extraction", "error", err)
		os.Exit(1)
	}
	defer components.Close()

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, components.Extractor, store)

	basicAuth := receipt.BasicAuth{
		Username: cfg.AuthUser,
		Password: cfg.AuthPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if cfg.AuthUser != "" {
		slog.Info("Basic auth enabled", "user", cfg.AuthUser)
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
}
