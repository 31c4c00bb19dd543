// Package export renders summary documents to PDF. The layout follows the
// monthly statement: headline figures, spending pie, category table and the
// full transaction list.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"tally/internal/core"
	"tally/internal/report"
)

const (
	pageMargin = 15.0
	rowHeight  = 7.0
)

// WritePDF renders the document as a single PDF statement to w.
func WritePDF(w io.Writer, doc report.Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	writeTitle(pdf, doc.Title)
	writeHeadline(pdf, doc.Summary)

	if err := writePie(pdf, doc.Summary); err != nil {
		return fmt.Errorf("render spending chart: %w", err)
	}

	writeCategoryTable(pdf, doc.Rows)
	writeTransactionTable(pdf, doc.Transactions)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// RenderPDF is WritePDF into a byte slice.
func RenderPDF(doc report.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func writeHeadline(pdf *fpdf.Fpdf, s core.PeriodSummary) {
	lines := []struct {
		label string
		value core.Money
	}{
		{"Income", s.Income},
		{"Expenses", s.Expense},
		{"Savings", s.Savings},
		{"Net", s.Net},
		{"Balance", s.Balance},
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range lines {
		pdf.CellFormat(40, rowHeight, line.label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, rowHeight, line.value.String(), "", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	pdf.Ln(4)
}

func writePie(pdf *fpdf.Fpdf, s core.PeriodSummary) error {
	png, err := totalsPie(s)
	if err != nil {
		return err
	}
	if png == nil {
		return nil
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("totals-pie", opts, bytes.NewReader(png))

	const size = 90.0
	x := (210.0 - size) / 2
	pdf.ImageOptions("totals-pie", x, pdf.GetY(), size, size, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + size + 4)
	return nil
}

func writeCategoryTable(pdf *fpdf.Fpdf, rows []report.CategoryRow) {
	if len(rows) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, rowHeight, "By category", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(120, rowHeight, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, rowHeight, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(120, rowHeight, row.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, rowHeight, row.Subtotal.String(), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func writeTransactionTable(pdf *fpdf.Fpdf, txs []core.Transaction) {
	if len(txs) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, rowHeight, "Transactions", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(25, rowHeight, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(22, rowHeight, "Kind", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, rowHeight, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(28, rowHeight, "Amount", "1", 0, "R", true, 0, "")
	pdf.CellFormat(60, rowHeight, "Note", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, tx := range txs {
		pdf.CellFormat(25, rowHeight, tx.Date.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, rowHeight, string(tx.Kind), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, rowHeight, tx.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, rowHeight, tx.Signed().String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(60, rowHeight, truncateNote(tx.Note, 40), "1", 1, "L", false, 0, "")
	}
}

// truncateNote keeps long notes from overflowing the table cell. Counts
// runes so multi-byte characters are never split.
func truncateNote(note string, max int) string {
	note = strings.TrimSpace(note)
	runes := []rune(note)
	if len(runes) <= max {
		return note
	}
	return string(runes[:max-3]) + "..."
}
