package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"finsight/internal/amqp"
	"finsight/internal/core"
	"finsight/internal/sheets"
	"finsight/internal/storage"
)

// SyncStore is the part of the SQLite repository the worker needs.
type SyncStore interface {
	GetTransaction(ctx context.Context, id string) (storage.StoredTransaction, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker mirrors stored transactions into a spreadsheet.
type SyncWorker struct {
	store       SyncStore
	exporter    sheets.TransactionExporter
	batchSize   int
	concurrency int
}

func NewSyncWorker(store SyncStore, exporter sheets.TransactionExporter, batchSize, concurrency int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncWorker{
		store:       store,
		exporter:    exporter,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// HandleSyncMessage exports the transaction named by msg. Rows that are
// already synced are acknowledged without exporting them again.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// nothing will ever make it appear; drop the message
		slog.WarnContext(ctx, "Sync message for unknown transaction", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if tx.SyncStatus == storage.SyncDone {
		slog.DebugContext(ctx, "Transaction already synced", "id", msg.ID)
		return nil
	}
	return w.export(ctx, tx)
}

// ProcessPending exports up to one batch of rows that are still pending,
// a few at a time. It is the fallback for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (synced, failed int, err error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger sweep when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced, "errors", failed)
	return nil
}

// Run sweeps pending rows every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, int, error) {
	pending, err := w.store.GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}
	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	var synced, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, p := range pending {
		g.Go(func() error {
			tx, err := w.store.GetTransaction(gctx, p.ID)
			if err == nil {
				err = w.export(gctx, tx)
			}
			if err != nil {
				// one bad row must not stop the batch
				slog.ErrorContext(gctx, "Failed to sync transaction", "id", p.ID, "error", err)
				failed.Add(1)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(synced.Load()), int(failed.Load()), err
	}
	return int(synced.Load()), int(failed.Load()), ctx.Err()
}

func (w *SyncWorker) export(ctx context.Context, tx storage.StoredTransaction) error {
	d, err := core.Normalize(tx.Date)
	if err != nil {
		w.markError(ctx, tx.ID)
		return fmt.Errorf("normalize date of %s: %w", tx.ID, err)
	}

	ref, err := w.exporter.AppendTransaction(ctx, sheets.Row{
		ID:       tx.ID,
		UserID:   tx.UserID,
		Date:     d,
		Type:     tx.Type,
		Category: tx.Category,
		Amount:   tx.Amount,
	})
	if err != nil {
		w.markError(ctx, tx.ID)
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkSynced(ctx, tx.ID); err != nil {
		// the export worked; the sweep may export it again
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", tx.ID, "error", err)
	}
	slog.InfoContext(ctx, "Synced transaction", "id", tx.ID, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, id string) {
	if err := w.store.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", err)
	}
}
