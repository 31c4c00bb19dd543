package worker

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/memory"
	"tally/internal/services"
)

func newTestWorker(t *testing.T) (*ReportWorker, *services.LedgerService) {
	t.Helper()
	svc := services.NewLedgerService(ledger.New(memory.New()), nil)
	return NewReportWorker(svc, t.TempDir()), svc
}

func seedMarch(t *testing.T, svc *services.LedgerService) {
	t.Helper()
	txs := []core.Transaction{
		{Kind: core.Income, Amount: core.Money{Cents: 250000}, Category: "Salary", Date: core.NewDate(2024, time.March, 1)},
		{Kind: core.Expense, Amount: core.Money{Cents: 32000}, Category: "Food", Date: core.NewDate(2024, time.March, 9)},
	}
	for _, tx := range txs {
		if _, err := svc.Add(context.Background(), tx); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
}

func TestRebuildPeriodWritesStatement(t *testing.T) {
	w, svc := newTestWorker(t)
	seedMarch(t, svc)

	p := core.Period{Year: 2024, Month: time.March}
	if err := w.RebuildPeriod(context.Background(), p); err != nil {
		t.Fatalf("RebuildPeriod() error = %v", err)
	}

	data, err := os.ReadFile(w.StatementPath(p))
	if err != nil {
		t.Fatalf("statement not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("statement is not a PDF")
	}
}

func TestRebuildPeriodOverwritesPrevious(t *testing.T) {
	w, svc := newTestWorker(t)
	seedMarch(t, svc)
	ctx := context.Background()

	p := core.Period{Year: 2024, Month: time.March}
	if err := w.RebuildPeriod(ctx, p); err != nil {
		t.Fatalf("RebuildPeriod() error = %v", err)
	}
	first, err := os.Stat(w.StatementPath(p))
	if err != nil {
		t.Fatalf("stat statement: %v", err)
	}

	if _, err := svc.Add(ctx, core.Transaction{
		Kind: core.Expense, Amount: core.Money{Cents: 9900}, Category: "Transport",
		Date: core.NewDate(2024, time.March, 15),
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := w.RebuildPeriod(ctx, p); err != nil {
		t.Fatalf("RebuildPeriod() error = %v", err)
	}
	second, err := os.Stat(w.StatementPath(p))
	if err != nil {
		t.Fatalf("stat statement: %v", err)
	}
	if second.Size() == first.Size() {
		t.Error("rebuilt statement should differ after a new transaction")
	}
}

func TestHandleEvent(t *testing.T) {
	w, svc := newTestWorker(t)
	seedMarch(t, svc)

	msg := amqp.NewTransactionEventMessage(1, amqp.ActionCreated, 2024, time.March)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	p := core.Period{Year: 2024, Month: time.March}
	if _, err := os.Stat(w.StatementPath(p)); err != nil {
		t.Errorf("statement not written after event: %v", err)
	}
}

func TestHandleEventWithoutPeriod(t *testing.T) {
	w, _ := newTestWorker(t)

	msg := &amqp.TransactionEventMessage{ID: 1, Action: amqp.ActionCreated}
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Error("HandleEvent() should reject an event without a period")
	}
}
