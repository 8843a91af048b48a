package receipt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Mode selects how a batch is scheduled.
type Mode int

const (
	// ModeSequential processes one receipt at a time in input order.
	ModeSequential Mode = iota
	// ModeParallel processes receipts on a bounded pool of workers.
	ModeParallel
)

const (
	defaultWorkers       = 3
	defaultProgressEvery = 10
	failedPreview        = 10
)

// Pacer spaces out oracle submissions.
type Pacer interface {
	Wait(ctx context.Context) error
}

// OrchestratorConfig holds the optional collaborators of an Orchestrator.
type OrchestratorConfig struct {
	Mode          Mode
	Workers       int
	ProgressEvery int
	// Pacer is waited on before each receipt. Nil disables pacing.
	Pacer Pacer
	// Records receives every record as soon as it is built. Nil disables persistence.
	Records    RecordStore
	TimeSource TimeSource
	Logger     *slog.Logger
}

// Orchestrator runs an Extractor over a batch of receipts.
type Orchestrator struct {
	storage   Storage
	extractor Extractor
	cfg       OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator reading files from storage.
func NewOrchestrator(storage Storage, extractor Extractor, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaultProgressEvery
	}
	if cfg.TimeSource == nil {
		cfg.TimeSource = &defaultTimeSource{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{storage: storage, extractor: extractor, cfg: cfg, logger: logger}
}

// Run extracts every input and returns the accumulated result. A failing
// receipt never stops the batch; cancelling ctx does.
func (o *Orchestrator) Run(ctx context.Context, inputs []Input) *BatchResult {
	start := o.cfg.TimeSource.Now()
	result := newBatchResult(len(inputs))

	o.logger.Info("Starting batch",
		"receipts", len(inputs),
		"mode", o.modeName(),
		"workers", o.workers(),
	)

	if o.cfg.Mode == ModeParallel {
		o.runParallel(ctx, inputs, result)
	} else {
		o.runSequential(ctx, inputs, result)
	}

	result.Elapsed = o.cfg.TimeSource.Now().Sub(start)
	return result
}

func (o *Orchestrator) runSequential(ctx context.Context, inputs []Input, result *BatchResult) {
	for i, in := range inputs {
		if err := o.pace(ctx); err != nil {
			o.logger.Warn("Batch interrupted", "completed", i, "total", len(inputs), "error", err)
			return
		}
		o.process(ctx, i+1, in, result)
	}
}

func (o *Orchestrator) runParallel(ctx context.Context, inputs []Input, result *BatchResult) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for i, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := o.pace(gctx); err != nil {
				return nil
			}
			o.process(gctx, i+1, in, result)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		o.logger.Warn("Batch interrupted", "completed", len(result.Records), "total", len(inputs), "error", err)
	}
}

func (o *Orchestrator) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.cfg.Pacer == nil {
		return nil
	}
	return o.cfg.Pacer.Wait(ctx)
}

// process extracts one receipt and records the outcome.
func (o *Orchestrator) process(ctx context.Context, idx int, in Input, result *BatchResult) {
	start := time.Now()
	logger := o.logger.With("receipt_id", in.ID, "index", idx, "total", result.Total)

	var out Outcome
	data, err := o.storage.Get(in.Filename)
	if err != nil {
		out = failed("", &InputError{ID: in.ID, Err: err})
	} else {
		out = o.extractor.Extract(ctx, Document{Input: in, Data: data})
	}

	rec := newRecord(in, out, o.cfg.TimeSource.Now())
	done := result.add(rec)

	if o.cfg.Records != nil {
		if err := o.cfg.Records.SaveRecord(rec); err != nil {
			logger.Warn("Failed to persist record", "error", err)
		}
	}

	switch rec.Status {
	case StatusFailed:
		logger.Warn("Receipt failed", "attempts", rec.Attempts, "error", rec.Error)
	case StatusEmpty:
		logger.Warn("Receipt produced no lines", "source", rec.Source)
	default:
		logger.Info("Receipt processed",
			"store", rec.Store,
			"date", rec.Date,
			"products", rec.ProductCount(),
			"lines", len(rec.Lines),
			"elapsed", time.Since(start).Round(100*time.Millisecond),
		)
	}

	if done%o.cfg.ProgressEvery == 0 {
		o.logger.Info("Progress", "completed", done, "total", result.Total)
	}
}

func (o *Orchestrator) modeName() string {
	if o.cfg.Mode == ModeParallel {
		return "parallel"
	}
	return "sequential"
}

func (o *Orchestrator) workers() int {
	if o.cfg.Mode == ModeParallel {
		return o.cfg.Workers
	}
	return 1
}

// WriteSummary prints a human readable report of the batch.
func (b *BatchResult) WriteSummary(w io.Writer) error {
	b.mu.Lock()
	processed := len(b.Processed)
	lines := len(b.Rows)
	failedIDs := append([]string(nil), b.Failed...)
	empty, errs := b.empty, b.errors
	b.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&sb, "Done! Processed %d/%d receipts\n", processed, b.Total)
	fmt.Fprintf(&sb, "Total time: %.1fs (%.1f minutes)\n", b.Elapsed.Seconds(), b.Elapsed.Minutes())
	fmt.Fprintf(&sb, "Total products: %d\n", b.ProductCount())
	fmt.Fprintf(&sb, "Total lines: %d\n", lines)
	if total := b.ProductTotal(); !total.IsZero() {
		fmt.Fprintf(&sb, "Product total: %s\n", total.StringFixed(2))
	}

	if len(failedIDs) > 0 {
		fmt.Fprintf(&sb, "\nFailed receipts (%d: %d empty, %d errors):\n", len(failedIDs), empty, errs)
		for _, id := range failedIDs[:min(len(failedIDs), failedPreview)] {
			fmt.Fprintf(&sb, "  - %s\n", id)
		}
		if len(failedIDs) > failedPreview {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(failedIDs)-failedPreview)
		}
	}
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
