// Package ledger owns transaction identity and lifetime. Every derived view
// (daily and monthly summaries, wallet balances, alerts) is computed from a
// ledger snapshot; nothing else in the system stores transactions.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"walletbook/internal/core"
)

// ErrTransactionNotFound is returned by Update and Delete when the id does
// not exist. Deletes of absent ids are errors, not no-ops, so callers can
// detect stale UI state.
var ErrTransactionNotFound = errors.New("transaction not found")

// Resolver looks up reference data during validation.
type Resolver interface {
	Category(id string) (core.Category, bool)
	Wallet(id string) (core.Wallet, bool)
}

type record struct {
	tx  core.Transaction
	seq uint64
}

// Ledger is the authoritative, mutex-guarded set of transactions. A version
// counter is bumped on every successful mutation; memoized derivations key
// on it, so no cache can outlive the data it was computed from.
type Ledger struct {
	mu       sync.RWMutex
	items    map[string]record
	graves   map[string]uint64
	nextSeq  uint64
	version  uint64
	resolver Resolver
}

func New(resolver Resolver) *Ledger {
	return &Ledger{
		items:    make(map[string]record),
		graves:   make(map[string]uint64),
		resolver: resolver,
	}
}

// Add validates and stores a transaction, assigning it a fresh id. The
// ledger is left unchanged when validation fails.
func (l *Ledger) Add(tx core.Transaction) (string, error) {
	if err := l.validate(tx); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx.ID = uuid.NewString()
	l.items[tx.ID] = record{tx: tx, seq: l.nextSeq}
	l.nextSeq++
	l.version++
	return tx.ID, nil
}

// Patch carries the fields of an update; nil fields keep their current
// value.
type Patch struct {
	Type       *core.TransactionType
	Amount     *core.Money
	Date       *core.Date
	CategoryID *string
	WalletID   *string
}

// Update merges the patch into the stored transaction and re-validates the
// result under the same rules as Add. On any failure the stored record is
// untouched.
func (l *Ledger) Update(id string, patch Patch) (core.Transaction, error) {
	l.mu.RLock()
	rec, ok := l.items[id]
	l.mu.RUnlock()
	if !ok {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, ErrTransactionNotFound)
	}

	merged := rec.tx
	if patch.Type != nil {
		merged.Type = *patch.Type
	}
	if patch.Amount != nil {
		merged.Amount = *patch.Amount
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	if patch.CategoryID != nil {
		merged.CategoryID = *patch.CategoryID
	}
	if patch.WalletID != nil {
		merged.WalletID = *patch.WalletID
	}
	if err := l.validate(merged); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Re-check under the write lock; the record may have been deleted.
	rec, ok = l.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, ErrTransactionNotFound)
	}
	rec.tx = merged
	l.items[id] = rec
	l.version++
	return merged, nil
}

// Delete removes the transaction with the given id. The record's position in
// creation order is remembered, so a Restore of the same id slots it back
// where it was instead of at the end.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.items[id]
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrTransactionNotFound)
	}
	delete(l.items, id)
	l.graves[id] = rec.seq
	l.version++
	return nil
}

// Get returns the transaction with the given id.
func (l *Ledger) Get(id string) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.items[id]
	return rec.tx, ok
}

// Snapshot returns all transactions in creation order.
func (l *Ledger) Snapshot() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := make([]record, 0, len(l.items))
	for _, rec := range l.items {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]core.Transaction, len(recs))
	for i, rec := range recs {
		out[i] = rec.tx
	}
	return out
}

// Version returns the mutation counter. Any successful Add, Update or
// Delete increments it.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Len returns the number of stored transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Restore seeds the ledger from persisted records, keeping their ids and
// their order. Used at startup and to undo a Delete whose persistence failed;
// a recently deleted id gets its original position back. Restore does not
// bump the version.
func (l *Ledger) Restore(txs []core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, tx := range txs {
		if tx.ID == "" {
			return fmt.Errorf("restore: transaction without id")
		}
		seq, buried := l.graves[tx.ID]
		if buried {
			delete(l.graves, tx.ID)
		} else {
			seq = l.nextSeq
			l.nextSeq++
		}
		l.items[tx.ID] = record{tx: tx, seq: seq}
	}
	return nil
}

// validate applies the full rule set: shape, then category existence and
// kind match, then wallet existence. An empty CategoryID is legal and means
// uncategorized.
func (l *Ledger) validate(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.CategoryID != "" {
		cat, ok := l.resolver.Category(tx.CategoryID)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownCategory, tx.CategoryID)
		}
		if cat.Kind != tx.Type.Kind() {
			return fmt.Errorf("%w: category %s is %s, transaction is %s",
				core.ErrKindMismatch, cat.ID, cat.Kind, tx.Type)
		}
	}
	if _, ok := l.resolver.Wallet(tx.WalletID); !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownWallet, tx.WalletID)
	}
	return nil
}
