package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/timestamppb"

	"finsight/internal/core"
	"finsight/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.TransactionStore = (*SQLiteRepository)(nil)

// ErrNotFound is returned when a transaction id has no row.
var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert implements store.TransactionWriter. The record date is stored as
// an instant with nanosecond precision.
func (r *SQLiteRepository) Insert(ctx context.Context, rec store.Record) (string, error) {
	when, err := core.Normalize(rec.Date)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	id := uuid.NewString()
	err = r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:         id,
		UserID:     rec.UserID,
		OccurredAt: when.UnixNano(),
		Type:       string(rec.Type),
		Category:   rec.Category,
		Amount:     rec.Amount.String(),
		CreatedAt:  r.now().UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user_id", rec.UserID,
		"type", rec.Type,
		"category", rec.Category,
		"amount", rec.Amount.String())

	return id, nil
}

// Query implements store.TransactionQuerier. Dates come back as
// *timestamppb.Timestamp values.
func (r *SQLiteRepository) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	var (
		rows []Transaction
		err  error
	)
	if q.Window == nil {
		rows, err = r.queries.ListTransactionsByOwner(ctx, q.OwnerID)
	} else {
		rows, err = r.queries.ListTransactionsInRange(ctx, ListTransactionsInRangeParams{
			UserID: q.OwnerID,
			From:   q.Window.Start.UnixNano(),
			Until:  q.Window.Until().UnixNano(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Sync states of a stored transaction.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// StoredTransaction is a record plus its sync bookkeeping.
type StoredTransaction struct {
	store.Record
	SyncStatus string
	Version    int64
}

// GetTransaction retrieves a single transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (StoredTransaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredTransaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	rec, err := toRecord(row)
	if err != nil {
		return StoredTransaction{}, err
	}
	return StoredTransaction{Record: rec, SyncStatus: row.SyncStatus, Version: row.Version}, nil
}

// PendingSyncTransaction is the minimal data needed to enqueue a sync message.
type PendingSyncTransaction struct {
	ID        string
	UserID    string
	Version   int64
	CreatedAt time.Time
}

// MaxSyncAttempts bounds how often a failing row is exported. Rows past
// it keep their error status and are left out of sweeps.
const MaxSyncAttempts = 5

// GetPendingSyncTransactions returns rows not yet mirrored to the sheet.
// Never-tried rows come first, oldest first; failed rows follow, fewest
// attempts first, so a run of failing rows cannot starve newer ones.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, GetPendingSyncTransactionsParams{
		MaxVersion: MaxSyncAttempts,
		Limit:      int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}

	out := make([]PendingSyncTransaction, len(rows))
	for i, row := range rows {
		out[i] = PendingSyncTransaction{
			ID:        row.ID,
			UserID:    row.UserID,
			Version:   row.Version,
			CreatedAt: time.Unix(0, row.CreatedAt),
		}
	}
	return out, nil
}

// MarkSynced marks a transaction as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.queries.MarkTransactionSynced(ctx, id, r.now().UnixNano()); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as failed; the sweep retries it later.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func toRecord(row Transaction) (store.Record, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse amount of %s: %w", row.ID, err)
	}
	return store.Record{
		ID:       row.ID,
		UserID:   row.UserID,
		Date:     timestamppb.New(time.Unix(0, row.OccurredAt)),
		Type:     core.TransactionType(row.Type),
		Category: row.Category,
		Amount:   amount,
	}, nil
}
