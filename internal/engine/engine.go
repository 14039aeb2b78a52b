// Package engine ties the ledger, the aggregator and the alert evaluator
// together behind one mutation lock, and keeps the SQLite store and the
// mutation feed in step with the in-memory state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"walletbook/internal/aggregate"
	"walletbook/internal/alerts"
	"walletbook/internal/cache"
	"walletbook/internal/catalog"
	"walletbook/internal/core"
	"walletbook/internal/ledger"
	"walletbook/internal/log"
	"walletbook/internal/settings"
)

// Storage is the persistence surface the engine needs. *storage.Repository
// satisfies it.
type Storage interface {
	LoadAll(ctx context.Context) ([]core.Transaction, error)
	InsertTransaction(ctx context.Context, tx core.Transaction) error
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListWallets(ctx context.Context) ([]core.Wallet, error)
	AlertSettings(ctx context.Context) (core.AlertSettings, error)
	SaveAlertSettings(ctx context.Context, s core.AlertSettings) error
}

// Publisher announces committed mutations. *events.Client satisfies it; a
// nil Publisher disables the feed.
type Publisher interface {
	PublishUpsert(ctx context.Context, id string, version uint64) error
	PublishDelete(ctx context.Context, id string, version uint64) error
}

// Overview is everything the UI needs to render one view selection.
type Overview struct {
	DailySummaries []core.DailySummary
	Monthly        core.MonthlySummary
	WalletBalances map[string]core.WalletBalance
	Alerts         []alerts.Alert
}

type Engine struct {
	mu sync.Mutex

	store     Storage
	publisher Publisher
	logger    *log.Logger

	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	agg      *aggregate.Aggregator
	settings *settings.Store
	caches   *cache.Manager
}

func New(store Storage, publisher Publisher, logger *log.Logger) *Engine {
	cat := catalog.New()
	agg := aggregate.New()

	caches := cache.NewManager()
	caches.Register(agg.Memo())
	caches.StartCleanup(10 * time.Minute)

	return &Engine{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent("engine"),
		catalog:   cat,
		ledger:    ledger.New(cat),
		agg:       agg,
		settings:  settings.NewStore(core.AlertSettings{}),
		caches:    caches,
	}
}

// Close stops the cache cleanup goroutine.
func (e *Engine) Close() {
	e.caches.Stop()
}

// Load seeds the catalog, the ledger and the alert settings from storage.
// It is called once at startup, before the engine serves requests.
func (e *Engine) Load(ctx context.Context) error {
	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	wallets, err := e.store.ListWallets(ctx)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	e.catalog.Seed(categories, wallets)

	txs, err := e.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if err := e.ledger.Restore(txs); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	as, err := e.store.AlertSettings(ctx)
	if err != nil {
		return fmt.Errorf("load alert settings: %w", err)
	}
	e.settings.Replace(as)

	e.logger.Info("engine loaded",
		"transactions", e.ledger.Len(),
		"categories", len(categories),
		"wallets", len(wallets))
	return nil
}

// AddTransaction validates and records a new transaction, persists it and
// announces the mutation. Persistence failure rolls the ledger back; a
// publish failure is logged and does not fail the call.
func (e *Engine) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.ledger.Add(tx)
	if err != nil {
		return core.Transaction{}, err
	}
	stored, _ := e.ledger.Get(id)

	if err := e.store.InsertTransaction(ctx, stored); err != nil {
		if delErr := e.ledger.Delete(id); delErr != nil {
			e.logger.ErrorContext(ctx, "rollback after failed insert", "id", id, "error", delErr)
		}
		return core.Transaction{}, fmt.Errorf("persist transaction: %w", err)
	}

	e.publishUpsert(ctx, id)
	return stored, nil
}

// UpdateTransaction applies a partial edit. The untouched fields keep their
// values; a failed validation leaves the stored transaction unchanged.
func (e *Engine) UpdateTransaction(ctx context.Context, id string, patch ledger.Patch) (core.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before, ok := e.ledger.Get(id)
	if !ok {
		return core.Transaction{}, ledger.ErrTransactionNotFound
	}

	updated, err := e.ledger.Update(id, patch)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := e.store.UpdateTransaction(ctx, updated); err != nil {
		if _, revErr := e.ledger.Update(id, patchFrom(before)); revErr != nil {
			e.logger.ErrorContext(ctx, "rollback after failed update", "id", id, "error", revErr)
		}
		return core.Transaction{}, fmt.Errorf("persist transaction: %w", err)
	}

	e.publishUpsert(ctx, id)
	return updated, nil
}

// DeleteTransaction removes a transaction from the ledger and storage.
func (e *Engine) DeleteTransaction(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.ledger.Get(id)
	if !ok {
		return ledger.ErrTransactionNotFound
	}

	if err := e.ledger.Delete(id); err != nil {
		return err
	}

	if err := e.store.DeleteTransaction(ctx, id); err != nil {
		if restErr := e.ledger.Restore([]core.Transaction{tx}); restErr != nil {
			e.logger.ErrorContext(ctx, "rollback after failed delete", "id", id, "error", restErr)
		}
		return fmt.Errorf("persist delete: %w", err)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishDelete(ctx, id, e.ledger.Version()); err != nil {
			e.logger.WarnContext(ctx, "publish delete failed", "id", id, "error", err)
		}
	}
	return nil
}

// GetTransaction returns the current state of one transaction.
func (e *Engine) GetTransaction(id string) (core.Transaction, error) {
	tx, ok := e.ledger.Get(id)
	if !ok {
		return core.Transaction{}, ledger.ErrTransactionNotFound
	}
	return tx, nil
}

// Overview derives the summaries, balances and alerts for one view
// selection. Alert settings are re-read on every call, so a settings change
// shows up immediately.
func (e *Engine) Overview(ctx context.Context, view aggregate.View) (Overview, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	version := e.ledger.Version()
	res := e.agg.Result(version, view, e.ledger.Snapshot)

	as, err := e.settings.AlertSettings(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("read alert settings: %w", err)
	}

	monthExpenses := aggregate.MonthExpenses(e.ledger.Snapshot(), view)
	alertList := alerts.Evaluate(res.Monthly.Expense, monthExpenses, as, e.catalog)

	return Overview{
		DailySummaries: res.DailySummaries,
		Monthly:        res.Monthly,
		WalletBalances: res.WalletBalances,
		Alerts:         alertList,
	}, nil
}

// AlertSettings returns the current alert settings snapshot.
func (e *Engine) AlertSettings(ctx context.Context) (core.AlertSettings, error) {
	return e.settings.AlertSettings(ctx)
}

// UpdateAlertSettings persists new alert settings and makes them visible to
// subsequent Overview calls.
func (e *Engine) UpdateAlertSettings(ctx context.Context, s core.AlertSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.SaveAlertSettings(ctx, s); err != nil {
		return fmt.Errorf("persist alert settings: %w", err)
	}
	e.settings.Replace(s)
	return nil
}

// Categories lists the known categories, ordered by name.
func (e *Engine) Categories() []core.Category {
	return e.catalog.Categories()
}

// Wallets lists the known wallets, ordered by name.
func (e *Engine) Wallets() []core.Wallet {
	return e.catalog.Wallets()
}

// Version reports the ledger mutation counter.
func (e *Engine) Version() uint64 {
	return e.ledger.Version()
}

func (e *Engine) publishUpsert(ctx context.Context, id string) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishUpsert(ctx, id, e.ledger.Version()); err != nil {
		e.logger.WarnContext(ctx, "publish upsert failed", "id", id, "error", err)
	}
}

func patchFrom(tx core.Transaction) ledger.Patch {
	return ledger.Patch{
		Type:       &tx.Type,
		Amount:     &tx.Amount,
		Date:       &tx.Date,
		CategoryID: &tx.CategoryID,
		WalletID:   &tx.WalletID,
	}
}
