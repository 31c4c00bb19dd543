package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/memory"
)

type fakePublisher struct {
	messages []*amqp.TransactionEventMessage
	err      error
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, msg *amqp.TransactionEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func newTestService(pub EventPublisher) *LedgerService {
	return NewLedgerService(ledger.New(memory.New()), pub)
}

func sampleTransaction() core.Transaction {
	return core.Transaction{
		Kind:     core.Expense,
		Amount:   core.Money{Cents: 1500},
		Category: "Food",
		Date:     core.NewDate(2024, time.March, 10),
	}
}

func TestAddPublishesCreatedEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	saved, err := svc.Add(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Action != amqp.ActionCreated {
		t.Errorf("Action = %q, want %q", msg.Action, amqp.ActionCreated)
	}
	if msg.ID != saved.ID {
		t.Errorf("message ID = %d, want %d", msg.ID, saved.ID)
	}
	if msg.Year != 2024 || msg.Month != 3 {
		t.Errorf("message period = %d-%d, want 2024-3", msg.Year, msg.Month)
	}
}

func TestAddSucceedsWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(pub)

	saved, err := svc.Add(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("Add() error = %v, want nil when only the publish fails", err)
	}
	if saved.ID == 0 {
		t.Error("Add() should still assign an id")
	}
}

func TestAddWithoutPublisher(t *testing.T) {
	svc := newTestService(nil)

	if _, err := svc.Add(context.Background(), sampleTransaction()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
}

func TestEditPublishesUpdatedEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	saved, err := svc.Add(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	note := "groceries"
	updated, err := svc.Edit(context.Background(), saved.ID, ledger.Patch{Note: &note})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if updated.Note != note {
		t.Errorf("Note = %q, want %q", updated.Note, note)
	}

	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}
	if pub.messages[1].Action != amqp.ActionUpdated {
		t.Errorf("Action = %q, want %q", pub.messages[1].Action, amqp.ActionUpdated)
	}
}

func TestRemovePublishesDeletedEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	saved, err := svc.Add(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := svc.Remove(context.Background(), saved.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}
	if pub.messages[1].Action != amqp.ActionDeleted {
		t.Errorf("Action = %q, want %q", pub.messages[1].Action, amqp.ActionDeleted)
	}
}

func TestRemoveUnknownIDPublishesNothing(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	err := svc.Remove(context.Background(), 99)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Remove() error = %v, want %v", err, core.ErrNotFound)
	}
	if len(pub.messages) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.messages))
	}
}

func TestSummarize(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	seed := []core.Transaction{
		{Kind: core.Income, Amount: core.Money{Cents: 300000}, Category: "Salary", Date: core.NewDate(2024, time.March, 1)},
		{Kind: core.Expense, Amount: core.Money{Cents: 45000}, Category: "Food", Date: core.NewDate(2024, time.March, 12)},
		{Kind: core.Savings, Amount: core.Money{Cents: 50000}, Category: "Savings", Date: core.NewDate(2024, time.March, 20)},
		// Outside the period, must not count.
		{Kind: core.Expense, Amount: core.Money{Cents: 99999}, Category: "Food", Date: core.NewDate(2024, time.April, 2)},
	}
	for _, tx := range seed {
		if _, err := svc.Add(ctx, tx); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	sum, err := svc.Summarize(ctx, core.Period{Year: 2024, Month: time.March})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if sum.Income.Cents != 300000 {
		t.Errorf("Income = %d, want 300000", sum.Income.Cents)
	}
	if sum.Expense.Cents != 45000 {
		t.Errorf("Expense = %d, want 45000", sum.Expense.Cents)
	}
	if sum.Net.Cents != 255000 {
		t.Errorf("Net = %d, want 255000", sum.Net.Cents)
	}
	if sum.Balance.Cents != 205000 {
		t.Errorf("Balance = %d, want 205000", sum.Balance.Cents)
	}
}

func TestTrendCoversTwelveMonths(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, sampleTransaction()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	trend, err := svc.Trend(ctx, 2024)
	if err != nil {
		t.Fatalf("Trend() error = %v", err)
	}
	if len(trend) != 12 {
		t.Fatalf("Trend() returned %d summaries, want 12", len(trend))
	}
	if trend[2].Expense.Cents != 1500 {
		t.Errorf("March expense = %d, want 1500", trend[2].Expense.Cents)
	}
	if trend[0].Expense.Cents != 0 {
		t.Errorf("January expense = %d, want 0", trend[0].Expense.Cents)
	}
}
