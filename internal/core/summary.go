package core

import (
	"strconv"
	"time"
)

// Period is a month (Year + Month) or, when Month is zero, a whole year.
type Period struct {
	Year  int
	Month time.Month // 0 means the whole year
}

// Contains reports whether the calendar day falls inside the period.
// Future dates are included when inside the bounds; there is no check
// against "now".
func (p Period) Contains(d Date) bool {
	if d.Year() != p.Year {
		return false
	}
	return p.Month == 0 || d.Month() == p.Month
}

// Bounds returns the first and last day of the period.
func (p Period) Bounds() (Date, Date) {
	if p.Month == 0 {
		return NewDate(p.Year, time.January, 1), NewDate(p.Year, time.December, 31)
	}
	first := NewDate(p.Year, p.Month, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// String renders "2024-01" for a month period, "2024" for a year period.
func (p Period) String() string {
	if p.Month == 0 {
		return strconv.Itoa(p.Year)
	}
	return strconv.Itoa(p.Year) + "-" + pad2(int64(p.Month))
}

// Before orders periods chronologically.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// PeriodSummary is the derived aggregate for one period. It is recomputed
// on demand and never persisted.
type PeriodSummary struct {
	Period  Period
	Income  Money
	Expense Money
	Savings Money
	Net     Money // Income - Expense
	Balance Money // Income - Expense - Savings
	// ByCategory holds signed per-category subtotals: income adds,
	// expense and savings subtract. Their sum equals Balance.
	ByCategory map[string]Money
}

// Summarize computes the PeriodSummary for the transactions falling inside
// the period. It is a pure function of its inputs: identical snapshot and
// period always yield an identical summary. An empty period produces
// all-zero totals and an empty category map, never an error.
func Summarize(p Period, txs []Transaction) PeriodSummary {
	s := PeriodSummary{
		Period:     p,
		ByCategory: make(map[string]Money),
	}
	for _, t := range txs {
		if !p.Contains(t.Date) {
			continue
		}
		switch t.Kind {
		case Income:
			s.Income.Cents += t.Amount.Cents
		case Expense:
			s.Expense.Cents += t.Amount.Cents
		case Savings:
			s.Savings.Cents += t.Amount.Cents
		}
		sub := s.ByCategory[t.Category]
		sub.Cents += t.Signed().Cents
		s.ByCategory[t.Category] = sub
	}
	s.Net.Cents = s.Income.Cents - s.Expense.Cents
	s.Balance.Cents = s.Net.Cents - s.Savings.Cents
	return s
}
