package store

import (
	"context"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

type (
	// Record is a transaction as the store keeps it. Date holds the
	// store's own representation and must go through core.Normalize before
	// it reaches callers.
	Record struct {
		ID       string
		UserID   string
		Date     any
		Type     core.TransactionType
		Category string
		Amount   decimal.Decimal
	}

	// Query selects the records of one owner, optionally bounded by a
	// window. Results are ordered by date descending, newest insert first
	// on ties.
	Query struct {
		OwnerID string
		Window  *core.Window
	}
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		Insert(ctx context.Context, rec Record) (id string, err error)
	}

	TransactionQuerier interface {
		Query(ctx context.Context, q Query) ([]Record, error)
	}

	TransactionStore interface {
		TransactionWriter
		TransactionQuerier
	}
)
