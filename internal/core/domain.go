package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
	Savings Kind = "savings"
)

type (
	// Kind classifies a transaction as income, expense or savings.
	Kind string

	// Date is a calendar day in UTC. The time-of-day part is always zero.
	Date struct {
		time.Time
	}

	// Money is an amount in cents. Transaction amounts are always positive;
	// the sign is derived from the transaction kind.
	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry. Immutable once created except
	// through an explicit edit.
	Transaction struct {
		ID       int64
		Kind     Kind
		Amount   Money
		Category string
		Date     Date
		Note     string
	}
)

var (
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
	ErrNoteTooLong   = errors.New("note too long (max 200 characters)")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense, Savings:
		return nil
	default:
		return ErrInvalidKind
	}
}

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar day (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as an ISO calendar day.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeCategory trims and collapses inner whitespace. Category
// uniqueness is case-insensitive over the normalized name.
func NormalizeCategory(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Signed returns the amount with the sign implied by the kind: income adds,
// expense and savings subtract.
func (t Transaction) Signed() Money {
	if t.Kind == Income {
		return t.Amount
	}
	return Money{Cents: -t.Amount.Cents}
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return &ValidationError{Field: "kind", Err: err}
	}
	if err := t.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if NormalizeCategory(t.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if len(t.Note) > 200 {
		return &ValidationError{Field: "note", Err: ErrNoteTooLong}
	}
	return nil
}
