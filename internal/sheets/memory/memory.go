package memory

import (
	"context"
	"fmt"
	"sync"

	"finsight/internal/sheets"
)

var _ sheets.TransactionExporter = (*Exporter)(nil)

// Exporter keeps exported rows in memory. It stands in for the Google
// exporter when no spreadsheet is configured.
type Exporter struct {
	mu   sync.Mutex
	rows []sheets.Row
	seen map[string]int
}

func New() *Exporter {
	return &Exporter{seen: make(map[string]int)}
}

// AppendTransaction records the row. Re-exporting an id overwrites the
// earlier row and returns the same reference.
func (e *Exporter) AppendTransaction(_ context.Context, row sheets.Row) (string, error) {
	if row.ID == "" {
		return "", fmt.Errorf("row without transaction id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.seen[row.ID]; ok {
		e.rows[i] = row
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, row)
	e.seen[row.ID] = len(e.rows) - 1
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of the exported rows in export order.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.Row(nil), e.rows...)
}
