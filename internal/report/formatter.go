// Package report shapes Period Summaries for external rendering. It is a
// pure projection layer: nothing here mutates a summary or talks to
// storage.
package report

import (
	"sort"

	"tally/internal/core"
)

// CategoryRow is one table line of a formatted summary.
type CategoryRow struct {
	Category string
	Subtotal core.Money
}

// TrendPoint is one (period, net) sample of a trend series.
type TrendPoint struct {
	Period core.Period
	Net    core.Money
}

// Rows orders the summary's per-category subtotals for presentation:
// subtotal descending, ties broken by category name ascending.
func Rows(s core.PeriodSummary) []CategoryRow {
	rows := make([]CategoryRow, 0, len(s.ByCategory))
	for name, sub := range s.ByCategory {
		rows = append(rows, CategoryRow{Category: name, Subtotal: sub})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Subtotal.Cents != rows[j].Subtotal.Cents {
			return rows[i].Subtotal.Cents > rows[j].Subtotal.Cents
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// Trend maps summaries to (period, net) points in chronological period
// order, for trend charts.
func Trend(summaries []core.PeriodSummary) []TrendPoint {
	points := make([]TrendPoint, 0, len(summaries))
	for _, s := range summaries {
		points = append(points, TrendPoint{Period: s.Period, Net: s.Net})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Period.Before(points[j].Period)
	})
	return points
}

// Document is the presentation-ready shape handed to the export
// collaborator: title, summary lines, ordered category rows and the
// transaction table.
type Document struct {
	Title        string
	Summary      core.PeriodSummary
	Rows         []CategoryRow
	Transactions []core.Transaction
}

// BuildDocument assembles a Document for one summary. The transaction
// slice is the snapshot the summary was computed from; only entries inside
// the summary's period end up in the table.
func BuildDocument(s core.PeriodSummary, txs []core.Transaction) Document {
	doc := Document{
		Title:   "Finance Summary " + s.Period.String(),
		Summary: s,
		Rows:    Rows(s),
	}
	for _, t := range txs {
		if s.Period.Contains(t.Date) {
			doc.Transactions = append(doc.Transactions, t)
		}
	}
	sort.Slice(doc.Transactions, func(i, j int) bool {
		if !doc.Transactions[i].Date.Equal(doc.Transactions[j].Date.Time) {
			return doc.Transactions[i].Date.After(doc.Transactions[j].Date.Time)
		}
		return doc.Transactions[i].ID > doc.Transactions[j].ID
	})
	return doc
}
