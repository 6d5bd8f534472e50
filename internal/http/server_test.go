package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"costs/internal/core"
	"costs/internal/prefs"
	"costs/internal/rates"
	"costs/internal/report"
	"costs/internal/services"
	"costs/internal/storage"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)

type testEnv struct {
	server   *Server
	prefs    *prefs.Store
	ratesURL string
	readyErr error
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.Open(ctx, filepath.Join(dir, "costs.db"), storage.CurrentSchemaVersion,
		storage.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rateServer := httptest.NewServer(rates.StaticHandler(rates.DefaultTable()))
	t.Cleanup(rateServer.Close)

	p, err := prefs.Open(filepath.Join(dir, "prefs.toml"), rateServer.URL)
	if err != nil {
		t.Fatalf("open prefs: %v", err)
	}

	env := &testEnv{prefs: p, ratesURL: rateServer.URL}
	env.server = NewServer(":0", Options{
		Costs:              services.NewCostService(store, nil),
		Reports:            report.New(store, rates.NewHTTPSource(p, 2*time.Second)),
		Settings:           p,
		StaticRates:        rates.StaticHandler(rates.DefaultTable()),
		Ready:              func(ctx context.Context) error { return env.readyErr },
		RateLimitPerMinute: rateLimit,
		Now:                func() time.Time { return testNow },
	})
	t.Cleanup(func() { env.server.Shutdown(context.Background()) })
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) addCost(t *testing.T, body string) core.CostItem {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/costs", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /costs = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[core.CostItem](t, rec)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 0)

	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
	env.readyErr = core.ErrRead
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store = %d", rec.Code)
	}
}

func TestCreateAndListCosts(t *testing.T) {
	env := newTestEnv(t, 0)

	item := env.addCost(t, `{"sum":50,"currency":"gbp","category":"Car","description":" parking "}`)
	if item.ID != 1 || item.Currency != core.GBP || item.Description != "parking" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Year != 2024 || item.Month != 3 || item.Day != 15 {
		t.Fatalf("item not dated from the store clock: %+v", item)
	}
	env.addCost(t, `{"sum":100,"currency":"USD","category":"Food","description":"groceries"}`)

	rec := env.do(t, http.MethodGet, "/costs?year=2024&month=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /costs = %d", rec.Code)
	}
	items := decode[[]core.CostItem](t, rec)
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 2 {
		t.Fatalf("unexpected list %+v", items)
	}

	rec = env.do(t, http.MethodGet, "/costs", "")
	if got := decode[[]core.CostItem](t, rec); len(got) != 2 {
		t.Fatalf("missing year and month should default to the current month, got %d items", len(got))
	}

	rec = env.do(t, http.MethodGet, "/costs?year=2024&month=4", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty month should be an empty array, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateCostRejections(t *testing.T) {
	env := newTestEnv(t, 0)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"zero sum", `{"sum":0,"currency":"USD","category":"Food","description":"x"}`, http.StatusUnprocessableEntity},
		{"negative sum", `{"sum":-3,"currency":"USD","category":"Food","description":"x"}`, http.StatusUnprocessableEntity},
		{"unsupported currency", `{"sum":3,"currency":"JPY","category":"Food","description":"x"}`, http.StatusUnprocessableEntity},
		{"empty description", `{"sum":3,"currency":"USD","category":"Food","description":"  "}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"sum":`, http.StatusBadRequest},
		{"unknown field", `{"sum":3,"currency":"USD","category":"Food","description":"x","id":9}`, http.StatusBadRequest},
		{"trailing data", `{"sum":3,"currency":"USD","category":"Food","description":"x"} {}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/costs", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if decode[errorResponse](t, rec).Error == "" {
				t.Fatalf("error body missing")
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/costs?year=2024&month=3", "")
	if got := decode[[]core.CostItem](t, rec); len(got) != 0 {
		t.Fatalf("rejected costs must not be stored, got %+v", got)
	}
}

func TestMonthlyReport(t *testing.T) {
	env := newTestEnv(t, 0)
	env.addCost(t, `{"sum":100,"currency":"USD","category":"Food","description":"groceries"}`)
	env.addCost(t, `{"sum":50,"currency":"GBP","category":"Car","description":"parking"}`)

	rec := env.do(t, http.MethodGet, "/reports/monthly?year=2024&month=3&currency=USD", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly report = %d: %s", rec.Code, rec.Body.String())
	}
	rep := decode[core.MonthlyReport](t, rec)
	if rep.Total != (core.Total{Currency: core.USD, Total: 183.33}) || len(rep.Costs) != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Costs[1].Sum != 50 || rep.Costs[1].Currency != core.GBP {
		t.Fatalf("costs must keep their stored currency: %+v", rep.Costs[1])
	}

	rep = decode[core.MonthlyReport](t, env.do(t, http.MethodGet, "/reports/monthly?year=2024&month=3&currency=ils", ""))
	if rep.Total != (core.Total{Currency: core.ILS, Total: 623.33}) {
		t.Fatalf("unexpected ILS total %+v", rep.Total)
	}

	rep = decode[core.MonthlyReport](t, env.do(t, http.MethodGet, "/reports/monthly?year=2023&month=1&currency=EURO", ""))
	if rep.Total.Total != 0 || rep.Costs == nil || len(rep.Costs) != 0 {
		t.Fatalf("empty month should have zero total and empty costs, got %+v", rep)
	}
}

func TestReportRejections(t *testing.T) {
	env := newTestEnv(t, 0)

	tests := []struct {
		target string
		want   int
	}{
		{"/reports/monthly?year=2024&month=3&currency=XYZ", http.StatusUnprocessableEntity},
		{"/reports/monthly?year=2024&month=13&currency=USD", http.StatusUnprocessableEntity},
		{"/reports/monthly?year=2024&month=march", http.StatusBadRequest},
		{"/reports/yearly?year=twenty", http.StatusBadRequest},
		{"/reports/yearly?year=2024&currency=XYZ", http.StatusUnprocessableEntity},
		{"/costs?month=0", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if rec := env.do(t, http.MethodGet, tt.target, ""); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d: %s", tt.target, rec.Code, tt.want, rec.Body.String())
		}
	}
}

func TestYearlyTotals(t *testing.T) {
	env := newTestEnv(t, 0)
	env.addCost(t, `{"sum":100,"currency":"USD","category":"Food","description":"groceries"}`)
	env.addCost(t, `{"sum":50,"currency":"GBP","category":"Car","description":"parking"}`)

	rec := env.do(t, http.MethodGet, "/reports/yearly?year=2024&currency=USD", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("yearly = %d: %s", rec.Code, rec.Body.String())
	}
	totals := decode[[]core.MonthTotal](t, rec)
	if len(totals) != 12 {
		t.Fatalf("expected 12 months, got %d", len(totals))
	}
	for _, mt := range totals {
		want := 0.0
		if mt.Month == 3 {
			want = 183.33
		}
		if mt.Total != want {
			t.Errorf("month %d total = %v, want %v", mt.Month, mt.Total, want)
		}
	}
}

func TestRatesURLSettings(t *testing.T) {
	env := newTestEnv(t, 0)

	got := decode[ratesURLResponse](t, env.do(t, http.MethodGet, "/settings/rates-url", ""))
	if got.URL != env.ratesURL || !got.Default {
		t.Fatalf("unexpected initial setting %+v", got)
	}

	rec := env.do(t, http.MethodPut, "/settings/rates-url", `{"url":"ftp://example.com/rates"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid url = %d", rec.Code)
	}

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	rec = env.do(t, http.MethodPut, "/settings/rates-url", `{"url":"`+downURL+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[ratesURLResponse](t, rec); got.URL != downURL || got.Default {
		t.Fatalf("unexpected setting after PUT %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/reports/monthly?year=2024&month=3", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("report with unreachable rates = %d, want 502", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/settings/rates-url", "")
	if got := decode[ratesURLResponse](t, rec); got.URL != env.ratesURL || !got.Default {
		t.Fatalf("unexpected setting after DELETE %+v", got)
	}
	if rec := env.do(t, http.MethodGet, "/reports/monthly?year=2024&month=3", ""); rec.Code != http.StatusOK {
		t.Fatalf("report after reset = %d", rec.Code)
	}
}

func TestStaticRatesAndCategories(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/rates", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("GET /rates = %d %v", rec.Code, rec.Header())
	}
	table := decode[map[string]float64](t, rec)
	if table[core.ILS] != 3.4 || table[core.USD] != 1 {
		t.Fatalf("unexpected table %v", table)
	}

	cats := decode[map[string][]string](t, env.do(t, http.MethodGet, "/categories", ""))
	if len(cats["categories"]) != len(core.SuggestedCategories) || len(cats["currencies"]) != 4 {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestRoutingAndMiddleware(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || decode[errorResponse](t, rec).Error != "not found" {
		t.Fatalf("unknown route = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id missing on 404")
	}

	if rec := env.do(t, http.MethodPatch, "/costs", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH /costs = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/costs", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing headers: %v", rec.Header())
	}

	if m := env.server.TraceMetrics(); m.TotalRequests != 3 {
		t.Fatalf("TotalRequests = %d, want 3", m.TotalRequests)
	}
}

func TestCreateCostRateLimited(t *testing.T) {
	env := newTestEnv(t, 2)
	body := `{"sum":1,"currency":"USD","category":"Food","description":"coffee"}`

	env.addCost(t, body)
	env.addCost(t, body)
	if rec := env.do(t, http.MethodPost, "/costs", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third POST = %d, want 429", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/costs", ""); rec.Code != http.StatusOK {
		t.Fatalf("reads are not rate limited, got %d", rec.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errBadRequest, http.StatusBadRequest},
		{core.ErrInvalidInput, http.StatusUnprocessableEntity},
		{core.ErrUnknownCurrency, http.StatusUnprocessableEntity},
		{core.ErrRatesUnavailable, http.StatusBadGateway},
		{core.ErrInvalidRate, http.StatusBadGateway},
		{core.ErrRead, http.StatusInternalServerError},
		{core.ErrWrite, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
