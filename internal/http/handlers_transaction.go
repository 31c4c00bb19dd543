package http

import (
	"net/http"

	"tally/internal/core"
	applog "tally/internal/log"
)

// transactionResponse is the JSON shape of a single transaction. Amount is
// the positive decimal string, Signed carries its sign per the kind.
type transactionResponse struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Amount   string `json:"amount"`
	Signed   string `json:"signed"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Note     string `json:"note,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       tx.ID,
		Kind:     string(tx.Kind),
		Amount:   tx.Amount.String(),
		Signed:   tx.Signed().String(),
		Category: tx.Category,
		Date:     tx.Date.String(),
		Note:     tx.Note,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeTransactionRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.service.Add(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidatePeriodCaches(core.Period{Year: saved.Date.Year(), Month: saved.Date.Time.Month()})

	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithTransaction(saved.ID, string(saved.Kind), saved.Category, saved.Amount.Cents)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created", fields.ToSlice()...)

	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	txs, err := s.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	tx, err := s.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	patch, err := decodePatchRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// An edit can move a transaction across periods, so both the old and
	// the new year caches go stale.
	old, err := s.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.service.Edit(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidatePeriodCaches(core.Period{Year: old.Date.Year(), Month: old.Date.Time.Month()})
	s.invalidatePeriodCaches(core.Period{Year: updated.Date.Year(), Month: updated.Date.Time.Month()})

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction updated",
		applog.FieldOperation, applog.OpUpdate, applog.FieldTransactionID, id)

	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	tx, err := s.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidatePeriodCaches(core.Period{Year: tx.Date.Year(), Month: tx.Date.Time.Month()})

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		applog.FieldOperation, applog.OpDelete, applog.FieldTransactionID, id)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}
