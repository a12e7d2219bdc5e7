package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"finsight/internal/core"
	applog "finsight/internal/log"
	"finsight/internal/report"
	"finsight/internal/reveal"
	"finsight/internal/services"
	"finsight/internal/store"
	"finsight/internal/store/memory"
)

var testNow = time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

// countingStore records how often each port method is reached.
type countingStore struct {
	store.TransactionStore
	mu      sync.Mutex
	inserts int
	fail    error
	// corrupt adds a stored record whose date cannot be normalized
	corrupt bool
}

func (c *countingStore) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	recs, err := c.TransactionStore.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	corrupt := c.corrupt
	c.mu.Unlock()
	if corrupt {
		recs = append(recs, store.Record{ID: "rec-internal-7", UserID: q.OwnerID, Date: 42, Type: core.Expense, Category: "Food"})
	}
	return recs, nil
}

func (c *countingStore) Insert(ctx context.Context, rec store.Record) (string, error) {
	c.mu.Lock()
	c.inserts++
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return "", fail
	}
	return c.TransactionStore.Insert(ctx, rec)
}

func (c *countingStore) insertCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inserts
}

type testEnv struct {
	srv      *Server
	store    *countingStore
	sessions *reveal.Sessions
}

type envOption func(*testOptions)

type testOptions struct {
	generate  func(ctx context.Context, prompt string) (string, error)
	ready     func(ctx context.Context) error
	rateLimit int
}

func withGenerator(fn func(ctx context.Context, prompt string) (string, error)) envOption {
	return func(o *testOptions) { o.generate = fn }
}

func withReady(fn func(ctx context.Context) error) envOption {
	return func(o *testOptions) { o.ready = fn }
}

func withRateLimit(perMinute int) envOption {
	return func(o *testOptions) { o.rateLimit = perMinute }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	o := testOptions{
		generate:  func(context.Context, string) (string, error) { return "Spend less on food.", nil },
		rateLimit: 100,
	}
	for _, opt := range opts {
		opt(&o)
	}

	st := &countingStore{TransactionStore: memory.New()}
	txs := services.NewTransactionService(st)
	sessions := reveal.NewSessions(time.Millisecond)
	t.Cleanup(sessions.Close)
	reports := services.NewReportService(txs, report.PromptBuilder{MaxChars: report.DefaultMaxPromptChars},
		report.NewClient(report.GeneratorFunc(o.generate)), sessions)

	logger := applog.New(applog.Config{Component: applog.ComponentHTTP, Output: io.Discard})
	srv := NewServer(Options{
		Location:           time.UTC,
		RateLimitPerMinute: o.rateLimit,
		Ready:              o.ready,
		Logger:             logger,
	}, txs, reports)
	srv.now = func() time.Time { return testNow }
	t.Cleanup(func() { srv.limiter.Stop() })

	return &testEnv{srv: srv, store: st, sessions: sessions}
}

func (e *testEnv) do(method, target, user, contentType, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) postJSON(target, user, body string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, user, "application/json", body)
}

var errBoom = errors.New("boom")

