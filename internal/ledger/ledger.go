// Package ledger owns the set of transactions and enforces their
// invariants. It is a thin validating façade over a Store, which remains
// the durable source of truth and the sole arbiter of concurrent writes.
package ledger

import (
	"context"
	"errors"
	"iter"

	"tally/internal/core"
)

// Store is the outbound port to the persistence collaborator.
type Store interface {
	// Insert persists a validated transaction and returns its fresh
	// identifier. Identifiers are never reused after deletion.
	Insert(ctx context.Context, tx core.Transaction) (int64, error)

	// Get returns the transaction with the given id, or core.ErrNotFound.
	Get(ctx context.Context, id int64) (core.Transaction, error)

	// Update overwrites the stored transaction with the same id.
	// Returns core.ErrNotFound when the id is absent.
	Update(ctx context.Context, tx core.Transaction) error

	// Delete removes the transaction, reporting whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// Select returns the transactions matching the filter, ordered by
	// date descending.
	Select(ctx context.Context, f Filter) ([]core.Transaction, error)

	// Categories returns the current category set, sorted by name.
	Categories(ctx context.Context) ([]string, error)
}

// Filter narrows a listing. Zero-value fields match everything.
type Filter struct {
	From     core.Date // inclusive
	To       core.Date // inclusive
	Category string
	Kind     core.Kind
}

// Matches reports whether the transaction satisfies the filter.
func (f Filter) Matches(t core.Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Time) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	return true
}

// Patch carries field changes for an edit. Nil fields are left untouched.
type Patch struct {
	Kind     *core.Kind
	Amount   *core.Money
	Category *string
	Date     *core.Date
	Note     *string
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Add validates the draft, assigns a fresh identifier through the store and
// returns the stored transaction. The draft's ID field is ignored.
func (l *Ledger) Add(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	draft.ID = 0
	draft.Category = core.NormalizeCategory(draft.Category)
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := l.store.Insert(ctx, draft)
	if err != nil {
		return core.Transaction{}, &core.PersistenceError{Op: "insert", Err: err}
	}
	draft.ID = id
	return draft, nil
}

// Edit applies the patch to the stored transaction after re-validating the
// result exactly as Add does.
func (l *Ledger) Edit(ctx context.Context, id int64, p Patch) (core.Transaction, error) {
	tx, err := l.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if p.Kind != nil {
		tx.Kind = *p.Kind
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Category != nil {
		tx.Category = core.NormalizeCategory(*p.Category)
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Note != nil {
		tx.Note = *p.Note
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := l.store.Update(ctx, tx); err != nil {
		if isNotFound(err) {
			return core.Transaction{}, &core.NotFoundError{ID: id}
		}
		return core.Transaction{}, &core.PersistenceError{Op: "update", Err: err}
	}
	return tx, nil
}

// Get returns a single transaction by id.
func (l *Ledger) Get(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := l.store.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return core.Transaction{}, &core.NotFoundError{ID: id}
		}
		return core.Transaction{}, &core.PersistenceError{Op: "get", Err: err}
	}
	return tx, nil
}

// Delete removes the transaction. The identifier is retired permanently;
// the store never hands it out again.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	existed, err := l.store.Delete(ctx, id)
	if err != nil {
		return &core.PersistenceError{Op: "delete", Err: err}
	}
	if !existed {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// List returns a lazy, restartable, finite sequence of the transactions
// matching the filter, ordered by date descending. Each range over the
// sequence re-reads the store.
func (l *Ledger) List(ctx context.Context, f Filter) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		txs, err := l.store.Select(ctx, f)
		if err != nil {
			yield(core.Transaction{}, &core.PersistenceError{Op: "select", Err: err})
			return
		}
		for _, t := range txs {
			if !yield(t, nil) {
				return
			}
		}
	}
}

// Snapshot collects the matching transactions into a slice.
func (l *Ledger) Snapshot(ctx context.Context, f Filter) ([]core.Transaction, error) {
	var out []core.Transaction
	for t, err := range l.List(ctx, f) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Categories returns the current category set.
func (l *Ledger) Categories(ctx context.Context) ([]string, error) {
	cats, err := l.store.Categories(ctx)
	if err != nil {
		return nil, &core.PersistenceError{Op: "categories", Err: err}
	}
	return cats, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
