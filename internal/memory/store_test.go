package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
)

func tx(kind core.Kind, cents int64, category string, day int) core.Transaction {
	return core.Transaction{
		Kind:     kind,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     core.NewDate(2024, time.March, day),
	}
}

func TestIDsNeverReused(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.Insert(ctx, tx(core.Expense, 100, "Food", 1))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	existed, err := s.Delete(ctx, id1)
	if err != nil || !existed {
		t.Fatalf("Delete() = %v, %v", existed, err)
	}

	id2, err := s.Insert(ctx, tx(core.Expense, 200, "Food", 2))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id2 == id1 {
		t.Errorf("id %d reused after delete", id1)
	}

	if _, err := s.Get(ctx, id1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get(deleted id) error = %v, want %v", err, core.ErrNotFound)
	}
}

func TestSelectOrderAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Insert(ctx, tx(core.Expense, 100, "Food", 5))
	s.Insert(ctx, tx(core.Income, 200, "Salary", 1))
	s.Insert(ctx, tx(core.Expense, 300, "Food", 5))

	all, err := s.Select(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Select() returned %d, want 3", len(all))
	}
	// Newest first; same-day ties resolved by higher id first.
	if all[0].ID != 3 || all[1].ID != 1 || all[2].ID != 2 {
		t.Errorf("order = [%d %d %d], want [3 1 2]", all[0].ID, all[1].ID, all[2].ID)
	}

	food, err := s.Select(ctx, ledger.Filter{Category: "Food"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(food) != 2 {
		t.Errorf("category filter returned %d, want 2", len(food))
	}
}

func TestCategoriesDeduplicated(t *testing.T) {
	s := New("Salary")
	ctx := context.Background()

	s.Insert(ctx, tx(core.Expense, 100, "Food", 1))
	s.Insert(ctx, tx(core.Expense, 100, "food", 2))

	cats, err := s.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("Categories() = %v, want [Food Salary]", cats)
	}
	if cats[0] != "Food" || cats[1] != "Salary" {
		t.Errorf("Categories() = %v, want [Food Salary]", cats)
	}
}
