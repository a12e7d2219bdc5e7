package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

// Row is one transaction as mirrored into a spreadsheet.
type Row struct {
	ID       string
	UserID   string
	Date     core.Date
	Type     core.TransactionType
	Category string
	Amount   decimal.Decimal
}

// Values renders the row in column order A..F.
func (r Row) Values() []any {
	return []any{
		r.Date.UTC().Format(core.DayLayout),
		string(r.Type),
		r.Category,
		r.Amount.StringFixed(2),
		r.UserID,
		r.ID,
	}
}

// Ports for outbound adapters.
type (
	TransactionExporter interface {
		AppendTransaction(ctx context.Context, row Row) (ref string, err error)
	}
)
