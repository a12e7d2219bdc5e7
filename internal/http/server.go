// Package http exposes the transaction listing, entry and report flows as a
// JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"finsight/internal/core"
	applog "finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/middleware/security"
	"finsight/internal/middleware/trace"
	"finsight/internal/report"
	"finsight/internal/reveal"
	"finsight/internal/services"
)

// TransactionAPI is the transaction use case as seen by the handlers.
type TransactionAPI interface {
	List(ctx context.Context, userID string, f core.Filter, now time.Time) (services.Listing, error)
	Add(ctx context.Context, userID string, in core.TransactionInput) (string, error)
}

// ReportAPI is the report use case as seen by the handlers.
type ReportAPI interface {
	RequestForFilter(ctx context.Context, userID string, f core.Filter, now time.Time) (services.ReportResult, error)
	Request(ctx context.Context, userID string, entries []report.Entry) (services.ReportResult, error)
	Dismiss(userID string)
	Panel(userID string) *reveal.Panel
}

type Options struct {
	Addr string
	// Location anchors filter windows and form dates.
	Location           *time.Location
	RateLimitPerMinute int
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *applog.Logger
}

type Server struct {
	http.Server
	transactions TransactionAPI
	reports      ReportAPI

	loc      *time.Location
	now      func() time.Time
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	events   *applog.StructuredLogger

	// heartbeat paces keep-alive comments on event streams.
	heartbeat time.Duration
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, tx TransactionAPI, rep ReportAPI) *Server {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		transactions: tx,
		reports:      rep,
		loc:          loc,
		now:          time.Now,
		ready:        opts.Ready,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		logger:       logger,
		events:       applog.NewStructuredLogger(logger),
		heartbeat:    15 * time.Second,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.events)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /api/categories", s.withUser(s.handleCategories))
	mux.Handle("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.withUser(s.handleCreateTransaction))

	limitReports := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
	})
	mux.Handle("POST /api/reports", limitReports(s.withUser(s.handleCreateReport)))
	mux.Handle("GET /api/reports/stream", s.withUser(s.handleReportStream))
	mux.Handle("DELETE /api/reports", s.withUser(s.handleDismissReport))

	var handler http.Handler = mux
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.detector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: report streams stay open for the whole reveal.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
