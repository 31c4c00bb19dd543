package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/ledger"
	"tally/internal/memory"
	"tally/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(ledger.New(memory.New()), nil)
	s := NewServer(":0", svc, nil)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, r)
	return w
}

func createTransaction(t *testing.T, s *Server, body string) transactionResponse {
	t.Helper()
	w := doRequest(s, http.MethodPost, "/api/transactions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/transactions = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	var resp transactionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

const sampleBody = `{"kind":"expense","amount":"12.34","category":"Food","date":"2024-03-10","note":"lunch"}`

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/healthz", "/readyz"} {
		w := doRequest(s, http.MethodGet, target, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", target, w.Code)
		}
	}
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)

	resp := createTransaction(t, s, sampleBody)

	if resp.ID != 1 {
		t.Errorf("ID = %d, want 1", resp.ID)
	}
	if resp.Amount != "12.34" {
		t.Errorf("Amount = %q, want %q", resp.Amount, "12.34")
	}
	if resp.Signed != "-12.34" {
		t.Errorf("Signed = %q, want %q", resp.Signed, "-12.34")
	}
	if resp.Kind != "expense" || resp.Category != "Food" || resp.Date != "2024-03-10" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "bad amount",
			body:      `{"kind":"expense","amount":"abc","category":"Food","date":"2024-03-10"}`,
			wantField: "amount",
		},
		{
			name:      "zero amount",
			body:      `{"kind":"expense","amount":"0","category":"Food","date":"2024-03-10"}`,
			wantField: "amount",
		},
		{
			name:      "bad kind",
			body:      `{"kind":"loan","amount":"5.00","category":"Food","date":"2024-03-10"}`,
			wantField: "kind",
		},
		{
			name:      "bad date",
			body:      `{"kind":"expense","amount":"5.00","category":"Food","date":"10/03/2024"}`,
			wantField: "date",
		},
		{
			name:      "empty category",
			body:      `{"kind":"expense","amount":"5.00","category":"   ","date":"2024-03-10"}`,
			wantField: "category",
		},
		{
			name:      "malformed json",
			body:      `{"kind":`,
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, "/api/transactions", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422; body: %s", w.Code, w.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", resp.Field, tt.wantField)
			}
		})
	}
}

func TestGetTransaction(t *testing.T) {
	s := newTestServer(t)
	created := createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET transaction = %d, want 200", w.Code)
	}

	if w := doRequest(s, http.MethodGet, "/api/transactions/99", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown transaction = %d, want 404", w.Code)
	}
	if w := doRequest(s, http.MethodGet, "/api/transactions/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("GET malformed id = %d, want 400", w.Code)
	}
}

func TestListTransactionsWithFilters(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, sampleBody)
	createTransaction(t, s, `{"kind":"income","amount":"1000.00","category":"Salary","date":"2024-03-01"}`)
	createTransaction(t, s, `{"kind":"expense","amount":"40.00","category":"Food","date":"2024-04-02"}`)

	var list []transactionResponse

	w := doRequest(s, http.MethodGet, "/api/transactions?year=2024&month=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET list = %d, want 200", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("March listing has %d entries, want 2", len(list))
	}

	w = doRequest(s, http.MethodGet, "/api/transactions?kind=income", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].Kind != "income" {
		t.Errorf("kind filter returned %+v, want one income entry", list)
	}

	if w := doRequest(s, http.MethodGet, "/api/transactions?kind=loan", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid kind filter = %d, want 400", w.Code)
	}
}

func TestPatchTransaction(t *testing.T) {
	s := newTestServer(t)
	created := createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodPatch, fmt.Sprintf("/api/transactions/%d", created.ID), `{"note":"dinner","amount":"20.00"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp transactionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Note != "dinner" || resp.Amount != "20.00" {
		t.Errorf("patched transaction = %+v", resp)
	}
	if resp.Category != "Food" {
		t.Errorf("untouched field changed: Category = %q", resp.Category)
	}

	if w := doRequest(s, http.MethodPatch, "/api/transactions/99", `{"note":"x"}`); w.Code != http.StatusNotFound {
		t.Errorf("PATCH unknown id = %d, want 404", w.Code)
	}

	w = doRequest(s, http.MethodPatch, fmt.Sprintf("/api/transactions/%d", created.ID), `{"amount":"-5.00"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("PATCH with invalid amount = %d, want 422", w.Code)
	}

	w = doRequest(s, http.MethodPatch, fmt.Sprintf("/api/transactions/%d", created.ID), `{"note":`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("PATCH with malformed body = %d, want 422; body: %s", w.Code, w.Body.String())
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := newTestServer(t)
	created := createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204", w.Code)
	}

	if w := doRequest(s, http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", w.Code)
	}
	if w := doRequest(s, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", w.Code)
	}
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodGet, "/api/categories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET categories = %d, want 200", w.Code)
	}
	var cats []string
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(cats) != 1 || cats[0] != "Food" {
		t.Errorf("categories = %v, want [Food]", cats)
	}
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, `{"kind":"income","amount":"1000.00","category":"Salary","date":"2024-03-01"}`)
	createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodGet, "/api/summary?year=2024&month=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET summary = %d, want 200", w.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Period != "2024-03" {
		t.Errorf("Period = %q, want 2024-03", resp.Period)
	}
	if resp.Income != "1000.00" || resp.Expense != "12.34" {
		t.Errorf("Income/Expense = %q/%q", resp.Income, resp.Expense)
	}
	if resp.Net != "987.66" {
		t.Errorf("Net = %q, want 987.66", resp.Net)
	}
	if resp.ByCategory["Food"] != "-12.34" {
		t.Errorf("ByCategory[Food] = %q, want -12.34", resp.ByCategory["Food"])
	}
}

func TestSummaryCacheInvalidatedOnMutation(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, sampleBody)

	// Prime the cache.
	doRequest(s, http.MethodGet, "/api/summary?year=2024&month=3", "")

	createTransaction(t, s, `{"kind":"expense","amount":"10.00","category":"Food","date":"2024-03-11"}`)

	w := doRequest(s, http.MethodGet, "/api/summary?year=2024&month=3", "")
	var resp summaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Expense != "22.34" {
		t.Errorf("Expense = %q after second create, want 22.34 (stale cache?)", resp.Expense)
	}
}

func TestSummaryBadParams(t *testing.T) {
	s := newTestServer(t)

	if w := doRequest(s, http.MethodGet, "/api/summary?month=13", ""); w.Code != http.StatusBadRequest {
		t.Errorf("month=13 = %d, want 400", w.Code)
	}
	if w := doRequest(s, http.MethodGet, "/api/summary?year=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("year=abc = %d, want 400", w.Code)
	}
}

func TestTrend(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodGet, "/api/trend?year=2024", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET trend = %d, want 200", w.Code)
	}
	var resp []trendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 12 {
		t.Fatalf("trend has %d entries, want 12", len(resp))
	}
	if resp[2].Period != "2024-03" || resp[2].Net != "-12.34" {
		t.Errorf("March point = %+v, want net -12.34", resp[2])
	}
	if resp[0].Period != "2024-01" || resp[0].Net != "0.00" {
		t.Errorf("January point = %+v, want net 0.00", resp[0])
	}
}

func TestSummaryPDF(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, sampleBody)

	w := doRequest(s, http.MethodGet, "/api/reports/summary.pdf?year=2024&month=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET statement = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("response body is not a PDF")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/categories", "")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("61st request within a minute should be rejected")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("a different client should not be affected")
	}
}
