package http

import (
	"net/http"

	"costs/internal/core"
	"costs/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 while the store cannot be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"categories": core.SuggestedCategories,
		"currencies": core.SupportedCurrencies(),
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func (s *Server) handleCreateCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := s.costs.RecordCost(r.Context(), req.toNewCost())
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Cost recorded",
		log.FieldOperation, log.OpCreate,
		log.FieldCostID, item.ID,
		log.FieldCurrency, item.Currency)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListCosts(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := s.costs.ListCosts(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	target := ParseCurrencyParam(r.URL.Query())

	report, err := s.reports.BuildMonthlyReport(r.Context(), params.Year, params.Month, target)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Monthly report built",
		append(log.NewFields().WithOperation(log.OpReport).WithPeriod(params.Year, params.Month).ToSlice(),
			log.FieldCurrency, target)...)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleYearlyTotals(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYearParam(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	target := ParseCurrencyParam(r.URL.Query())

	totals, err := s.reports.BuildYearlyTotals(r.Context(), year, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

type ratesURLResponse struct {
	URL     string `json:"url"`
	Default bool   `json:"default"`
}

func (s *Server) ratesURLState() ratesURLResponse {
	return ratesURLResponse{URL: s.settings.RatesURL(), Default: s.settings.IsDefault()}
}

func (s *Server) handleGetRatesURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ratesURLState())
}

func (s *Server) handlePutRatesURL(w http.ResponseWriter, r *http.Request) {
	var req ratesURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.settings.SetRatesURL(req.URL); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Rates URL updated",
		log.FieldOperation, log.OpUpdate, "url", s.settings.RatesURL())
	writeJSON(w, http.StatusOK, s.ratesURLState())
}

func (s *Server) handleDeleteRatesURL(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.ClearRatesURL(); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Rates URL reset to default",
		log.FieldOperation, log.OpDelete)
	writeJSON(w, http.StatusOK, s.ratesURLState())
}
