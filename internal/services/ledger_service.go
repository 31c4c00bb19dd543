package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
)

// EventPublisher announces ledger mutations to interested workers.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error
}

// LedgerService orchestrates ledger operations across the backing store and AMQP.
type LedgerService struct {
	ledger    *ledger.Ledger
	publisher EventPublisher
	closers   []io.Closer
}

func NewLedgerService(l *ledger.Ledger, publisher EventPublisher, closers ...io.Closer) *LedgerService {
	return &LedgerService{
		ledger:    l,
		publisher: publisher,
		closers:   closers,
	}
}

// Add records a transaction and publishes a created event
func (s *LedgerService) Add(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.ledger.Add(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, saved, amqp.ActionCreated)

	return saved, nil
}

// Edit applies a patch to a transaction and publishes an updated event
func (s *LedgerService) Edit(ctx context.Context, id int64, patch ledger.Patch) (core.Transaction, error) {
	updated, err := s.ledger.Edit(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, updated, amqp.ActionUpdated)

	return updated, nil
}

// Remove deletes a transaction and publishes a deleted event
func (s *LedgerService) Remove(ctx context.Context, id int64) error {
	tx, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ledger.Delete(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, tx, amqp.ActionDeleted)

	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.ledger.Get(ctx, id)
}

func (s *LedgerService) List(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	return s.ledger.Snapshot(ctx, f)
}

func (s *LedgerService) Categories(ctx context.Context) ([]string, error) {
	return s.ledger.Categories(ctx)
}

// Summarize aggregates the transactions of a period into a summary.
func (s *LedgerService) Summarize(ctx context.Context, p core.Period) (core.PeriodSummary, error) {
	from, to := p.Bounds()
	txs, err := s.ledger.Snapshot(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return core.PeriodSummary{}, err
	}
	return core.Summarize(p, txs), nil
}

// Trend returns the monthly summaries of a year, January through December.
func (s *LedgerService) Trend(ctx context.Context, year int) ([]core.PeriodSummary, error) {
	from, to := core.Period{Year: year}.Bounds()
	txs, err := s.ledger.Snapshot(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	out := make([]core.PeriodSummary, 0, 12)
	for m := 1; m <= 12; m++ {
		p := core.Period{Year: year, Month: time.Month(m)}
		out = append(out, core.Summarize(p, txs))
	}
	return out, nil
}

// publishEvent never fails the mutation, the ledger write already succeeded.
func (s *LedgerService) publishEvent(ctx context.Context, tx core.Transaction, action string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping event", "action", action)
		return
	}

	msg := amqp.NewTransactionEventMessage(tx.ID, action, tx.Date.Year(), tx.Date.Time.Month())
	if err := s.publisher.PublishTransactionEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", tx.ID, "action", action, "error", err)
	}
}

// Close closes the backing store and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
