// Package worker follows the ledger mutation feed and keeps the external
// spreadsheet mirror in step with storage.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"walletbook/internal/core"
	"walletbook/internal/events"
	"walletbook/internal/export"
	"walletbook/internal/storage"
)

// TransactionSource is the slice of storage the worker needs; satisfied by
// *storage.Repository.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	LoadAll(ctx context.Context) ([]core.Transaction, error)
}

// MirrorWorker applies mutation messages to the spreadsheet mirror.
type MirrorWorker struct {
	storage  TransactionSource
	appender export.TransactionAppender
	remover  export.TransactionRemover
}

func NewMirrorWorker(store TransactionSource, appender export.TransactionAppender, remover export.TransactionRemover) *MirrorWorker {
	return &MirrorWorker{
		storage:  store,
		appender: appender,
		remover:  remover,
	}
}

// HandleMutation processes one mutation message. Upserts re-mirror the
// current row from storage (remove then append, so edits replace the old
// row); deletes drop the row. A row that vanished from storage between the
// publish and the delivery is treated as deleted.
func (w *MirrorWorker) HandleMutation(ctx context.Context, msg *events.MutationMessage) error {
	slog.InfoContext(ctx, "Processing mutation message",
		"op", msg.Op,
		"id", msg.ID,
		"version", msg.Version)

	if msg.Op == events.OpDelete {
		if err := w.remover.Remove(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove mirrored row: %w", err)
		}
		return nil
	}

	tx, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.InfoContext(ctx, "Transaction gone from storage, removing mirror row", "id", msg.ID)
			return w.remover.Remove(ctx, msg.ID)
		}
		return fmt.Errorf("load transaction from storage: %w", err)
	}

	if err := w.remover.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove stale mirror row: %w", err)
	}
	if _, err := w.appender.Append(ctx, tx); err != nil {
		return fmt.Errorf("append mirror row: %w", err)
	}
	return nil
}

// CatchUp re-mirrors every stored transaction. Publishing is best-effort on
// the engine's side, so the worker periodically reconciles the mirror
// against storage to pick up mutations whose messages were lost.
func (w *MirrorWorker) CatchUp(ctx context.Context) error {
	txs, err := w.storage.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	slog.InfoContext(ctx, "Running mirror catch-up pass", "transactions", len(txs))

	for _, tx := range txs {
		if err := w.remover.Remove(ctx, tx.ID); err != nil {
			return fmt.Errorf("remove stale mirror row %s: %w", tx.ID, err)
		}
		if _, err := w.appender.Append(ctx, tx); err != nil {
			return fmt.Errorf("append mirror row %s: %w", tx.ID, err)
		}
	}
	return nil
}
