package http

import (
	"net/http"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/report"
)

// summaryResponse is the JSON shape of a period summary. All amounts are
// decimal strings; category subtotals keep their sign.
type summaryResponse struct {
	Period     string            `json:"period"`
	Income     string            `json:"income"`
	Expense    string            `json:"expense"`
	Savings    string            `json:"savings"`
	Net        string            `json:"net"`
	Balance    string            `json:"balance"`
	ByCategory map[string]string `json:"by_category"`
}

func toSummaryResponse(s core.PeriodSummary) summaryResponse {
	byCategory := make(map[string]string, len(s.ByCategory))
	for name, sub := range s.ByCategory {
		byCategory[name] = sub.String()
	}
	return summaryResponse{
		Period:     s.Period.String(),
		Income:     s.Income.String(),
		Expense:    s.Expense.String(),
		Savings:    s.Savings.String(),
		Net:        s.Net.String(),
		Balance:    s.Balance.String(),
		ByCategory: byCategory,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) getSummary(r *http.Request, p core.Period) (core.PeriodSummary, error) {
	key := "summary:" + p.String()

	if cached, found := s.summaryCache.Get(key); found {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Summary cache hit", "period", p.String())
		return cached, nil
	}

	summary, err := s.service.Summarize(r.Context(), p)
	if err != nil {
		return core.PeriodSummary{}, err
	}

	s.summaryCache.Set(key, summary)
	return summary, nil
}

// trendResponse is one (period, net) sample of the yearly trend series.
type trendResponse struct {
	Period string `json:"period"`
	Net    string `json:"net"`
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	key := "trend:" + (core.Period{Year: year}).String()
	summaries, found := s.trendCache.Get(key)
	if !found {
		summaries, err = s.service.Trend(r.Context(), year)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.trendCache.Set(key, summaries)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Trend cache hit", "year", year)
	}

	points := report.Trend(summaries)
	out := make([]trendResponse, 0, len(points))
	for _, pt := range points {
		out = append(out, trendResponse{Period: pt.Period.String(), Net: pt.Net.String()})
	}
	writeJSON(w, http.StatusOK, out)
}
