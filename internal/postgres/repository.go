// Package postgres implements ledger.Store on a hosted PostgreSQL
// database, the durable collaborator for multi-instance deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tally/internal/core"
	"tally/internal/ledger"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &Repository{pool: pool}
	if err := r.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// ensureSchema creates the tables on first use. Identity columns never
// recycle values, which keeps deleted transaction ids retired.
func (r *Repository) ensureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS transactions (
		id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		kind         TEXT   NOT NULL CHECK (kind IN ('income', 'expense', 'savings')),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		category     TEXT   NOT NULL,
		tx_date      DATE   NOT NULL,
		note         TEXT   NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (tx_date);
	CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions (category);
	CREATE TABLE IF NOT EXISTS categories (
		id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name ON categories (lower(name));`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert implements ledger.Store.
func (r *Repository) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (kind, amount_cents, category, tx_date, note)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		string(tx.Kind), tx.Amount.Cents, tx.Category, tx.Date.Time, tx.Note).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO categories (name) VALUES ($1) ON CONFLICT DO NOTHING`, tx.Category); err != nil {
		slog.WarnContext(ctx, "Failed to register category", "category", tx.Category, "error", err)
	}

	return id, nil
}

// Get implements ledger.Store.
func (r *Repository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, kind, amount_cents, category, tx_date, note
		 FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// Update implements ledger.Store.
func (r *Repository) Update(ctx context.Context, tx core.Transaction) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		 SET kind = $1, amount_cents = $2, category = $3, tx_date = $4, note = $5
		 WHERE id = $6`,
		string(tx.Kind), tx.Amount.Cents, tx.Category, tx.Date.Time, tx.Note, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO categories (name) VALUES ($1) ON CONFLICT DO NOTHING`, tx.Category); err != nil {
		slog.WarnContext(ctx, "Failed to register category", "category", tx.Category, "error", err)
	}

	return nil
}

// Delete implements ledger.Store.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Select implements ledger.Store.
func (r *Repository) Select(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	query := `SELECT id, kind, amount_cents, category, tx_date, note FROM transactions`
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.From.IsZero() {
		where = append(where, "tx_date >= "+arg(f.From.Time))
	}
	if !f.To.IsZero() {
		where = append(where, "tx_date <= "+arg(f.To.Time))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Kind != "" {
		where = append(where, "kind = "+arg(string(f.Kind)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY tx_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Categories implements ledger.Store.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx   core.Transaction
		kind string
		date core.Date
	)
	if err := row.Scan(&tx.ID, &kind, &tx.Amount.Cents, &tx.Category, &date.Time, &tx.Note); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)
	tx.Date = core.NewDate(date.Year(), date.Time.Month(), date.Day())
	return tx, nil
}
