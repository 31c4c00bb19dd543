package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tally/internal/core"
	"tally/internal/ledger"
)

// transactionRequest is the JSON body for creating a transaction. Amount is
// a decimal string ("12.34"), the comma decimal separator is accepted too.
type transactionRequest struct {
	Kind     string `json:"kind"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Note     string `json:"note"`
}

// patchRequest is the JSON body for editing a transaction. Absent fields
// keep their current value.
type patchRequest struct {
	Kind     *string `json:"kind"`
	Amount   *string `json:"amount"`
	Category *string `json:"category"`
	Date     *string `json:"date"`
	Note     *string `json:"note"`
}

func decodeTransactionRequest(r *http.Request) (core.Transaction, error) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "body", Err: fmt.Errorf("decode request body: %w", err)}
	}

	cents, err := core.ParseDecimalToCents(sanitizeInput(req.Amount))
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}

	date, err := core.ParseDate(sanitizeInput(req.Date))
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "date", Err: err}
	}

	return core.Transaction{
		Kind:     core.Kind(sanitizeInput(req.Kind)),
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(req.Category),
		Date:     date,
		Note:     sanitizeInput(req.Note),
	}, nil
}

func decodePatchRequest(r *http.Request) (ledger.Patch, error) {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ledger.Patch{}, &core.ValidationError{Field: "body", Err: fmt.Errorf("decode request body: %w", err)}
	}

	var patch ledger.Patch

	if req.Kind != nil {
		kind := core.Kind(sanitizeInput(*req.Kind))
		patch.Kind = &kind
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(sanitizeInput(*req.Amount))
		if err != nil {
			return ledger.Patch{}, &core.ValidationError{Field: "amount", Err: err}
		}
		amount := core.Money{Cents: cents}
		patch.Amount = &amount
	}
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		patch.Category = &category
	}
	if req.Date != nil {
		date, err := core.ParseDate(sanitizeInput(*req.Date))
		if err != nil {
			return ledger.Patch{}, &core.ValidationError{Field: "date", Err: err}
		}
		patch.Date = &date
	}
	if req.Note != nil {
		note := sanitizeInput(*req.Note)
		patch.Note = &note
	}

	return patch, nil
}

// listFilter builds a ledger filter from list query parameters. Supported:
// year, month (narrowing to a period), category and kind.
func listFilter(r *http.Request) (ledger.Filter, error) {
	var f ledger.Filter

	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		p, err := parsePeriod(r)
		if err != nil {
			return ledger.Filter{}, err
		}
		f.From, f.To = p.Bounds()
	}
	if v := sanitizeInput(q.Get("category")); v != "" {
		f.Category = core.NormalizeCategory(v)
	}
	if v := sanitizeInput(q.Get("kind")); v != "" {
		kind := core.Kind(v)
		if err := kind.Validate(); err != nil {
			return ledger.Filter{}, err
		}
		f.Kind = kind
	}

	return f, nil
}
