package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL statements of the transactions table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Transaction is one row of the transactions table.
type Transaction struct {
	Seq        int64
	ID         string
	UserID     string
	OccurredAt int64
	Type       string
	Category   string
	Amount     string
	CreatedAt  int64
	SyncStatus string
	Version    int64
}

type CreateTransactionParams struct {
	ID         string
	UserID     string
	OccurredAt int64
	Type       string
	Category   string
	Amount     string
	CreatedAt  int64
}

const createTransaction = `
INSERT INTO transactions (id, user_id, occurred_at, type, category, amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.UserID, arg.OccurredAt, arg.Type, arg.Category, arg.Amount, arg.CreatedAt)
	return err
}

const selectColumns = `seq, id, user_id, occurred_at, type, category, amount, created_at, sync_status, version`

const listTransactionsByOwner = `
SELECT ` + selectColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY occurred_at DESC, seq DESC`

func (q *Queries) ListTransactionsByOwner(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByOwner, userID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

type ListTransactionsInRangeParams struct {
	UserID string
	From   int64
	Until  int64
}

const listTransactionsInRange = `
SELECT ` + selectColumns + `
FROM transactions
WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
ORDER BY occurred_at DESC, seq DESC`

func (q *Queries) ListTransactionsInRange(ctx context.Context, arg ListTransactionsInRangeParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInRange, arg.UserID, arg.From, arg.Until)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const getTransaction = `
SELECT ` + selectColumns + `
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(
		&t.Seq, &t.ID, &t.UserID, &t.OccurredAt, &t.Type, &t.Category,
		&t.Amount, &t.CreatedAt, &t.SyncStatus, &t.Version)
	return t, err
}

const getPendingSyncTransactions = `
SELECT ` + selectColumns + `
FROM transactions
WHERE sync_status = 'pending'
   OR (sync_status = 'error' AND version <= ?)
ORDER BY CASE sync_status WHEN 'pending' THEN 0 ELSE 1 END, version, seq
LIMIT ?`

type GetPendingSyncTransactionsParams struct {
	MaxVersion int64
	Limit      int64
}

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, arg GetPendingSyncTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncTransactions, arg.MaxVersion, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const markTransactionSynced = `
UPDATE transactions SET sync_status = 'synced', synced_at = ? WHERE id = ?`

func (q *Queries) MarkTransactionSynced(ctx context.Context, id string, at int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSynced, at, id)
	return err
}

const markTransactionSyncError = `
UPDATE transactions SET sync_status = 'error', version = version + 1 WHERE id = ?`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markTransactionSyncError, id)
	return err
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.Seq, &t.ID, &t.UserID, &t.OccurredAt, &t.Type, &t.Category,
			&t.Amount, &t.CreatedAt, &t.SyncStatus, &t.Version,
		); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
