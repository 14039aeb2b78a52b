// Package export defines the ports for mirroring committed transactions to
// an external spreadsheet. The engine never calls these directly; the
// worker drives them from the mutation event feed.
package export

import (
	"context"

	"walletbook/internal/core"
)

type (
	// TransactionAppender writes one transaction row to the mirror.
	TransactionAppender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionRemover removes the mirrored row for a transaction id.
	// Removing an id that was never mirrored is a no-op.
	TransactionRemover interface {
		Remove(ctx context.Context, id string) error
	}
)
