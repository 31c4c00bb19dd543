// Package worker rebuilds PDF statements in the background. It reacts to
// transaction events from AMQP and additionally refreshes the current month
// on a timer, so a lost message never leaves a statement stale forever.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/export"
	"tally/internal/ledger"
	"tally/internal/report"
)

// LedgerReader is the read side of the ledger service the worker needs.
type LedgerReader interface {
	List(ctx context.Context, f ledger.Filter) ([]core.Transaction, error)
	Summarize(ctx context.Context, p core.Period) (core.PeriodSummary, error)
}

// ReportWorker rebuilds monthly PDF statements under a reports directory.
type ReportWorker struct {
	ledger     LedgerReader
	reportsDir string
}

func NewReportWorker(ledger LedgerReader, reportsDir string) *ReportWorker {
	return &ReportWorker{
		ledger:     ledger,
		reportsDir: reportsDir,
	}
}

// HandleEvent processes a single transaction event from AMQP
func (w *ReportWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", msg.ID,
		"action", msg.Action,
		"year", msg.Year,
		"month", msg.Month)

	if msg.Year == 0 {
		return fmt.Errorf("event without period: id=%d action=%s", msg.ID, msg.Action)
	}

	p := core.Period{Year: msg.Year, Month: time.Month(msg.Month)}
	if err := w.RebuildPeriod(ctx, p); err != nil {
		return fmt.Errorf("rebuild statement for %s: %w", p, err)
	}

	return nil
}

// RebuildPeriod regenerates the statement PDF for one period. The file is
// written to a temp name and renamed, readers never see a half-written PDF.
func (w *ReportWorker) RebuildPeriod(ctx context.Context, p core.Period) error {
	summary, err := w.ledger.Summarize(ctx, p)
	if err != nil {
		return fmt.Errorf("summarize period: %w", err)
	}

	from, to := p.Bounds()
	txs, err := w.ledger.List(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	doc := report.BuildDocument(summary, txs)
	data, err := export.RenderPDF(doc)
	if err != nil {
		return fmt.Errorf("render statement: %w", err)
	}

	if err := os.MkdirAll(w.reportsDir, 0755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	final := w.StatementPath(p)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write statement: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish statement: %w", err)
	}

	slog.InfoContext(ctx, "Rebuilt statement",
		"period", p.String(),
		"path", final,
		"bytes", len(data),
		"transactions", len(txs))

	return nil
}

// StatementPath returns where the period's statement lives on disk.
func (w *ReportWorker) StatementPath(p core.Period) string {
	return filepath.Join(w.reportsDir, fmt.Sprintf("statement-%s.pdf", p))
}

// RebuildCurrent regenerates the statement of the current month.
func (w *ReportWorker) RebuildCurrent(ctx context.Context) error {
	now := time.Now().UTC()
	return w.RebuildPeriod(ctx, core.Period{Year: now.Year(), Month: now.Month()})
}

// RunPeriodic rebuilds the current month's statement on a fixed interval
// until the context is cancelled. It runs one rebuild immediately so a fresh
// worker starts with an up-to-date statement.
func (w *ReportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.RebuildCurrent(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial statement rebuild failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic statement rebuild", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.RebuildCurrent(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic statement rebuild failed", "error", err)
			}
		}
	}
}
