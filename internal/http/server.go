// Package http exposes costs, reports and rate settings as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"costs/internal/core"
	"costs/internal/log"
	"costs/internal/middleware/ratelimit"
	"costs/internal/middleware/security"
	"costs/internal/middleware/trace"
)

// CostService records and lists costs.
type CostService interface {
	RecordCost(ctx context.Context, c core.NewCost) (core.CostItem, error)
	ListCosts(ctx context.Context, year, month int) ([]core.CostItem, error)
}

// ReportBuilder builds converted reports.
type ReportBuilder interface {
	BuildMonthlyReport(ctx context.Context, year, month int, target string) (core.MonthlyReport, error)
	BuildYearlyTotals(ctx context.Context, year int, target string) ([]core.MonthTotal, error)
}

// RatesSettings reads and changes the exchange rate endpoint preference.
type RatesSettings interface {
	RatesURL() string
	IsDefault() bool
	SetRatesURL(raw string) error
	ClearRatesURL() error
}

// Options wires the server to the rest of the application. StaticRates and
// Ready are optional; a zero RateLimitPerMinute disables rate limiting.
type Options struct {
	Costs              CostService
	Reports            ReportBuilder
	Settings           RatesSettings
	StaticRates        http.Handler
	Ready              func(ctx context.Context) error
	RateLimitPerMinute int
	Logger             *log.Logger
	Now                func() time.Time
}

type Server struct {
	http.Server
	costs    CostService
	reports  ReportBuilder
	settings RatesSettings
	ready    func(ctx context.Context) error
	now      func() time.Time

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		costs:    opts.Costs,
		reports:  opts.Reports,
		settings: opts.Settings,
		ready:    opts.Ready,
		now:      now,
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		mw := s.limiter.Middleware(s.detector.ExtractClientIP)
		limit = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.Handle("/costs", limit(s.handleCreateCost)).Methods(http.MethodPost)
	r.HandleFunc("/costs", s.handleListCosts).Methods(http.MethodGet)

	r.HandleFunc("/reports/monthly", s.handleMonthlyReport).Methods(http.MethodGet)
	r.HandleFunc("/reports/yearly", s.handleYearlyTotals).Methods(http.MethodGet)

	r.HandleFunc("/settings/rates-url", s.handleGetRatesURL).Methods(http.MethodGet)
	r.Handle("/settings/rates-url", limit(s.handlePutRatesURL)).Methods(http.MethodPut)
	r.Handle("/settings/rates-url", limit(s.handleDeleteRatesURL)).Methods(http.MethodDelete)

	r.HandleFunc("/categories", handleCategories).Methods(http.MethodGet)

	if opts.StaticRates != nil {
		r.Handle("/rates", opts.StaticRates)
	}

	// Outermost first. Wrapping the router rather than using r.Use keeps
	// 404, 405 and CORS preflight responses inside the chain.
	var h http.Handler = r
	h = security.CORS(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = log.Middleware(logger, trace.GetRequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// TraceMetrics returns request counters since start.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
