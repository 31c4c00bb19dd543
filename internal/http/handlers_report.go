package http

import (
	"fmt"
	"net/http"

	"tally/internal/export"
	"tally/internal/ledger"
	"tally/internal/report"
)

// handleSummaryPDF renders the period's statement on demand and streams it
// as a download.
func (s *Server) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	summary, err := s.getSummary(r, p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	from, to := p.Bounds()
	txs, err := s.service.List(r.Context(), ledger.Filter{From: from, To: to})
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc := report.BuildDocument(summary, txs)
	data, err := export.RenderPDF(doc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("statement-%s.pdf", p)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
