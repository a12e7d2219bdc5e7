package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"finsight/internal/amqp"
	"finsight/internal/core"
	"finsight/internal/sheets"
	sheetsmem "finsight/internal/sheets/memory"
	"finsight/internal/storage"
	"finsight/internal/store"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]storage.StoredTransaction
	order   []string
	errored map[string]int
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{rows: map[string]storage.StoredTransaction{}, errored: map[string]int{}}
	for _, id := range ids {
		s.rows[id] = storage.StoredTransaction{
			Record: store.Record{
				ID:       id,
				UserID:   "u1",
				Date:     timestamppb.New(core.NewDate(2024, 1, 5).Time),
				Type:     core.Expense,
				Category: "Food",
				Amount:   decimal.NewFromInt(3),
			},
			SyncStatus: storage.SyncPending,
			Version:    1,
		}
		s.order = append(s.order, id)
	}
	return s
}

func (s *fakeStore) GetTransaction(_ context.Context, id string) (storage.StoredTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok {
		return storage.StoredTransaction{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return tx, nil
}

func (s *fakeStore) GetPendingSyncTransactions(_ context.Context, limit int) ([]storage.PendingSyncTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.PendingSyncTransaction
	// pending rows first, then failed ones, like the SQLite query
	for _, status := range []string{storage.SyncPending, storage.SyncError} {
		for _, id := range s.order {
			if s.rows[id].SyncStatus == status && len(out) < limit {
				out = append(out, storage.PendingSyncTransaction{ID: id})
			}
		}
	}
	return out, nil
}

func (s *fakeStore) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.rows[id]
	tx.SyncStatus = storage.SyncDone
	s.rows[id] = tx
	return nil
}

func (s *fakeStore) MarkSyncError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored[id]++
	tx := s.rows[id]
	tx.SyncStatus = storage.SyncError
	s.rows[id] = tx
	return nil
}

type failingExporter struct{ failID string }

func (f failingExporter) AppendTransaction(_ context.Context, row sheets.Row) (string, error) {
	if row.ID == f.failID {
		return "", errors.New("quota exceeded")
	}
	return "ok", nil
}

func TestHandleSyncMessage(t *testing.T) {
	st := newFakeStore("a")
	exp := sheetsmem.New()
	w := NewSyncWorker(st, exp, 10, 2)

	require.NoError(t, w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("a", "u1", 1)))
	rows := exp.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-05", rows[0].Date.Format(core.DayLayout))

	// already synced: not exported again
	require.NoError(t, w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("a", "u1", 1)))
	assert.Len(t, exp.Rows(), 1)
}

func TestHandleSyncMessageUnknownID(t *testing.T) {
	w := NewSyncWorker(newFakeStore(), sheetsmem.New(), 10, 1)
	assert.NoError(t, w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("ghost", "u1", 1)))
}

func TestHandleSyncMessageExportFailure(t *testing.T) {
	st := newFakeStore("a")
	w := NewSyncWorker(st, failingExporter{failID: "a"}, 10, 1)

	err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("a", "u1", 1))
	assert.Error(t, err)
	assert.Equal(t, 1, st.errored["a"])
}

func TestProcessPendingBatch(t *testing.T) {
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("tx-%02d", i)
	}
	st := newFakeStore(ids...)
	exp := sheetsmem.New()
	w := NewSyncWorker(st, exp, 10, 4)

	synced, failed, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, synced)
	assert.Zero(t, failed)
	assert.Len(t, exp.Rows(), 10)

	require.NoError(t, w.StartupSyncCheck(context.Background()))
	assert.Len(t, exp.Rows(), 25)
}

func TestProcessPendingContinuesPastFailures(t *testing.T) {
	st := newFakeStore("a", "b", "c")
	w := NewSyncWorker(st, failingExporter{failID: "b"}, 10, 2)

	synced, failed, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Equal(t, 1, failed)
	assert.Equal(t, storage.SyncError, st.rows["b"].SyncStatus)
}

type categoryFailingExporter struct{ category string }

func (f categoryFailingExporter) AppendTransaction(_ context.Context, row sheets.Row) (string, error) {
	if row.Category == f.category {
		return "", errors.New("row rejected")
	}
	return "ok", nil
}

func TestProcessPendingNotStarvedByFailingRows(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finsight.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	add := func(category string) string {
		id, err := repo.Insert(ctx, store.Record{
			UserID: "u1", Date: "2024-01-05", Type: core.Expense,
			Category: category, Amount: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		return id
	}

	const batch = 3
	for i := 0; i < batch; i++ {
		add("rejected")
	}
	w := NewSyncWorker(repo, categoryFailingExporter{category: "rejected"}, batch, 2)

	_, failed, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, batch, failed)

	late := add("Food")
	synced, _, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	tx, err := repo.GetTransaction(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncDone, tx.SyncStatus)

	// failing rows give up after a bounded number of attempts
	for i := 0; i < storage.MaxSyncAttempts; i++ {
		_, _, err = w.ProcessPending(ctx)
		require.NoError(t, err)
	}
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
