package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"finsight/internal/cache"
	"finsight/internal/core"
	"finsight/internal/store"
)

// SyncPublisher announces new transactions to the sheet sync worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, userID string, version int64) error
}

// TransactionService reads and writes a user's transactions through the
// store ports.
type TransactionService struct {
	store     store.TransactionStore
	publisher SyncPublisher
	cache     cache.Cache[[]core.Transaction]

	mu          sync.Mutex
	generations map[string]uint64
}

type TransactionOption func(*TransactionService)

// WithPublisher publishes a sync message after each successful insert.
func WithPublisher(p SyncPublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

// WithCache caches listings per user until the user's next insert.
func WithCache(c cache.Cache[[]core.Transaction]) TransactionOption {
	return func(s *TransactionService) { s.cache = c }
}

func NewTransactionService(st store.TransactionStore, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{store: st, generations: make(map[string]uint64)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listing is the result of one fetch together with the window it covers.
// Window is nil for the all filter.
type Listing struct {
	Window       *core.Window
	Transactions []core.Transaction
}

// Fetch returns the user's transactions inside the window of f, newest
// first. Dates are normalized and presented in now's location.
func (s *TransactionService) Fetch(ctx context.Context, userID string, f core.Filter, now time.Time) ([]core.Transaction, error) {
	l, err := s.List(ctx, userID, f, now)
	if err != nil {
		return nil, err
	}
	return l.Transactions, nil
}

// List is Fetch that also reports the resolved window.
func (s *TransactionService) List(ctx context.Context, userID string, f core.Filter, now time.Time) (Listing, error) {
	window, err := core.ResolveWindow(f, now)
	if err != nil {
		return Listing{}, err
	}

	// day windows end at now and never repeat
	cacheable := s.cache != nil && f != core.FilterDay
	key := listingKey(s.generation(userID), f, window)
	if cacheable {
		if txs, ok := s.cache.Get(userID, key); ok {
			return Listing{Window: window, Transactions: slices.Clone(txs)}, nil
		}
	}

	recs, err := s.store.Query(ctx, store.Query{OwnerID: userID, Window: window})
	if err != nil {
		return Listing{}, fmt.Errorf("%w: %w", core.ErrQueryFailure, err)
	}

	txs := make([]core.Transaction, 0, len(recs))
	for _, rec := range recs {
		d, err := core.Normalize(rec.Date)
		if err != nil {
			return Listing{}, fmt.Errorf("%w: record %s: %w", core.ErrQueryFailure, rec.ID, err)
		}
		txs = append(txs, core.Transaction{
			ID:       rec.ID,
			Date:     d.In(now.Location()),
			Type:     rec.Type,
			Category: rec.Category,
			Amount:   rec.Amount,
		})
	}

	if cacheable {
		s.cache.Set(userID, key, slices.Clone(txs))
	}

	slog.DebugContext(ctx, "Fetched transactions",
		"user_id", userID,
		"filter", f,
		"count", len(txs))
	return Listing{Window: window, Transactions: txs}, nil
}

// Add stores one transaction for userID and returns its id. The input is
// expected to be validated by the caller.
func (s *TransactionService) Add(ctx context.Context, userID string, in core.TransactionInput) (string, error) {
	d, err := core.Normalize(in.Date)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}

	id, err := s.store.Insert(ctx, store.Record{
		UserID:   userID,
		Date:     d.Timestamp(),
		Type:     in.Type,
		Category: in.Category,
		Amount:   in.Amount,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}

	s.invalidate(userID)

	if s.publisher != nil {
		// the row is stored; a lost message is picked up by the worker sweep
		if err := s.publisher.PublishTransactionSync(ctx, id, userID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
		}
	}
	return id, nil
}

func (s *TransactionService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

func (s *TransactionService) invalidate(userID string) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Purge(userID)
	}
}

func listingKey(gen uint64, f core.Filter, w *core.Window) string {
	key := strconv.FormatUint(gen, 10) + "|" + string(f)
	if w != nil {
		key += "|" + strconv.FormatInt(w.Start.UnixNano(), 10) + "|" + strconv.FormatInt(w.End.UnixNano(), 10)
	}
	return key
}
