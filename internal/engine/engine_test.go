package engine

import (
	"context"
	"errors"
	"testing"

	"walletbook/internal/aggregate"
	"walletbook/internal/core"
	"walletbook/internal/ledger"
	"walletbook/internal/log"
)

type fakeStorage struct {
	categories []core.Category
	wallets    []core.Wallet
	txs        []core.Transaction
	alerts     core.AlertSettings

	insertErr error
	updateErr error
	deleteErr error

	inserted []core.Transaction
	updated  []core.Transaction
	deleted  []string
}

func (f *fakeStorage) LoadAll(_ context.Context) ([]core.Transaction, error) {
	return f.txs, nil
}

func (f *fakeStorage) InsertTransaction(_ context.Context, tx core.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, tx)
	return nil
}

func (f *fakeStorage) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, tx)
	return nil
}

func (f *fakeStorage) DeleteTransaction(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStorage) ListCategories(_ context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeStorage) ListWallets(_ context.Context) ([]core.Wallet, error) {
	return f.wallets, nil
}

func (f *fakeStorage) AlertSettings(_ context.Context) (core.AlertSettings, error) {
	return f.alerts, nil
}

func (f *fakeStorage) SaveAlertSettings(_ context.Context, s core.AlertSettings) error {
	f.alerts = s
	return nil
}

type fakePublisher struct {
	upserts []string
	deletes []string
}

func (f *fakePublisher) PublishUpsert(_ context.Context, id string, _ uint64) error {
	f.upserts = append(f.upserts, id)
	return nil
}

func (f *fakePublisher) PublishDelete(_ context.Context, id string, _ uint64) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func newTestStorage() *fakeStorage {
	return &fakeStorage{
		categories: []core.Category{
			{ID: "food", Name: "Food", Icon: "🍔", Kind: core.KindExpense},
			{ID: "salary", Name: "Salary", Icon: "💰", Kind: core.KindIncome},
		},
		wallets: []core.Wallet{
			{ID: "w1", Name: "Cash"},
			{ID: "w2", Name: "Bank"},
		},
	}
}

func newTestEngine(t *testing.T, store *fakeStorage, pub Publisher) *Engine {
	t.Helper()
	e := New(store, pub, log.New(log.DefaultConfig()))
	t.Cleanup(e.Close)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestAddTransactionPersistsAndPublishes(t *testing.T) {
	store := newTestStorage()
	pub := &fakePublisher{}
	e := newTestEngine(t, store, pub)

	tx, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:       core.Expense,
		Amount:     core.Money{Cents: 50000},
		Date:       core.NewDate(2024, 5, 10),
		CategoryID: "food",
		WalletID:   "w1",
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("AddTransaction returned a transaction without id")
	}
	if len(store.inserted) != 1 || store.inserted[0].ID != tx.ID {
		t.Errorf("inserted = %+v, want the new transaction", store.inserted)
	}
	if len(pub.upserts) != 1 || pub.upserts[0] != tx.ID {
		t.Errorf("published upserts = %v, want [%s]", pub.upserts, tx.ID)
	}
}

func TestAddTransactionRollsBackOnPersistFailure(t *testing.T) {
	store := newTestStorage()
	store.insertErr = errors.New("disk full")
	e := newTestEngine(t, store, nil)

	_, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 100},
		Date:     core.NewDate(2024, 5, 10),
		WalletID: "w1",
	})
	if err == nil {
		t.Fatal("AddTransaction succeeded despite storage failure")
	}
	if got := e.Version(); got != 2 {
		// One bump for the add, one for the rollback delete.
		t.Errorf("version = %d, want 2", got)
	}
	if len(e.Categories()) == 0 {
		t.Fatal("catalog lost after rollback")
	}
	ov, err := e.Overview(context.Background(), aggregate.View{Year: 2024, Month: 5})
	if err != nil {
		t.Fatal(err)
	}
	if ov.Monthly.Expense.Cents != 0 {
		t.Errorf("rolled-back transaction still counted: %d", ov.Monthly.Expense.Cents)
	}
}

func TestUpdateTransaction(t *testing.T) {
	store := newTestStorage()
	e := newTestEngine(t, store, nil)

	tx, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 100},
		Date:     core.NewDate(2024, 5, 10),
		WalletID: "w1",
	})
	if err != nil {
		t.Fatal(err)
	}

	amount := core.Money{Cents: 250}
	updated, err := e.UpdateTransaction(context.Background(), tx.ID, ledger.Patch{Amount: &amount})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.Amount.Cents != 250 {
		t.Errorf("amount = %d, want 250", updated.Amount.Cents)
	}
	if len(store.updated) != 1 {
		t.Errorf("storage updates = %d, want 1", len(store.updated))
	}

	_, err = e.UpdateTransaction(context.Background(), "missing", ledger.Patch{Amount: &amount})
	if !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("update of missing id: %v, want ErrTransactionNotFound", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	store := newTestStorage()
	pub := &fakePublisher{}
	e := newTestEngine(t, store, pub)

	tx, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:     core.Income,
		Amount:   core.Money{Cents: 100},
		Date:     core.NewDate(2024, 5, 1),
		WalletID: "w1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.DeleteTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != tx.ID {
		t.Errorf("storage deletes = %v", store.deleted)
	}
	if len(pub.deletes) != 1 {
		t.Errorf("published deletes = %v", pub.deletes)
	}
	if err := e.DeleteTransaction(context.Background(), tx.ID); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("second delete: %v, want ErrTransactionNotFound", err)
	}
}

func TestDeleteTransactionRollbackKeepsOrder(t *testing.T) {
	store := newTestStorage()
	e := newTestEngine(t, store, nil)

	var ids []string
	for _, cents := range []int64{100, 200, 300} {
		tx, err := e.AddTransaction(context.Background(), core.Transaction{
			Type:     core.Expense,
			Amount:   core.Money{Cents: cents},
			Date:     core.NewDate(2024, 5, 10),
			WalletID: "w1",
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tx.ID)
	}

	store.deleteErr = errors.New("disk full")
	if err := e.DeleteTransaction(context.Background(), ids[1]); err == nil {
		t.Fatal("DeleteTransaction succeeded despite storage failure")
	}

	ov, err := e.Overview(context.Background(), aggregate.View{Year: 2024, Month: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.DailySummaries) != 1 {
		t.Fatalf("daily summaries = %d, want 1", len(ov.DailySummaries))
	}
	day := ov.DailySummaries[0].Transactions
	if len(day) != 3 {
		t.Fatalf("day transactions = %d, want 3", len(day))
	}
	for i, tx := range day {
		if tx.ID != ids[i] {
			t.Errorf("day[%d] = %s, want creation order %s", i, tx.ID, ids[i])
		}
	}
}

func TestLoadRestoresPersistedState(t *testing.T) {
	store := newTestStorage()
	store.txs = []core.Transaction{
		{ID: "t1", Type: core.Income, Amount: core.Money{Cents: 200000}, Date: core.NewDate(2024, 5, 2), CategoryID: "salary", WalletID: "w1"},
		{ID: "t2", Type: core.Expense, Amount: core.Money{Cents: 50000}, Date: core.NewDate(2024, 5, 10), CategoryID: "food", WalletID: "w1"},
	}
	target := core.Money{Cents: 100000}
	store.alerts = core.AlertSettings{MonthlyTargetEnabled: true, MonthlyTarget: &target}

	e := newTestEngine(t, store, nil)

	if got, err := e.GetTransaction("t2"); err != nil || got.Amount.Cents != 50000 {
		t.Fatalf("GetTransaction(t2) = %+v, %v", got, err)
	}
	as, err := e.AlertSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !as.MonthlyTargetEnabled || as.MonthlyTarget == nil || as.MonthlyTarget.Cents != 100000 {
		t.Errorf("alert settings not restored: %+v", as)
	}
}

// The walk-through: an empty ledger, one expense, one income, then the
// derived views for May 2024.
func TestOverviewEndToEnd(t *testing.T) {
	store := newTestStorage()
	e := newTestEngine(t, store, nil)

	view := aggregate.View{Year: 2024, Month: 5}
	ov, err := e.Overview(context.Background(), view)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.DailySummaries) != 0 || !ov.Monthly.Expense.IsZero() || !ov.Monthly.Income.IsZero() {
		t.Fatalf("empty ledger produced non-empty overview: %+v", ov)
	}

	if _, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:       core.Expense,
		Amount:     core.Money{Cents: 50000},
		Date:       core.NewDate(2024, 5, 10),
		CategoryID: "food",
		WalletID:   "w1",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:       core.Income,
		Amount:     core.Money{Cents: 200000},
		Date:       core.NewDate(2024, 5, 2),
		CategoryID: "salary",
		WalletID:   "w1",
	}); err != nil {
		t.Fatal(err)
	}

	ov, err = e.Overview(context.Background(), view)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Monthly.Income.Cents != 200000 {
		t.Errorf("monthly income = %d, want 200000", ov.Monthly.Income.Cents)
	}
	if ov.Monthly.Expense.Cents != 50000 {
		t.Errorf("monthly expense = %d, want 50000", ov.Monthly.Expense.Cents)
	}
	if len(ov.DailySummaries) != 2 {
		t.Fatalf("daily summaries = %d, want 2", len(ov.DailySummaries))
	}
	if ov.DailySummaries[0].Date.Day() != 2 || ov.DailySummaries[1].Date.Day() != 10 {
		t.Errorf("daily summaries out of order: %+v", ov.DailySummaries)
	}
	if got := ov.WalletBalances["w1"].Balance.Cents; got != 150000 {
		t.Errorf("w1 balance = %d, want 150000", got)
	}
}

func TestOverviewAlertsFollowSettings(t *testing.T) {
	store := newTestStorage()
	e := newTestEngine(t, store, nil)

	if _, err := e.AddTransaction(context.Background(), core.Transaction{
		Type:       core.Expense,
		Amount:     core.Money{Cents: 95000},
		Date:       core.NewDate(2024, 5, 10),
		CategoryID: "food",
		WalletID:   "w1",
	}); err != nil {
		t.Fatal(err)
	}

	view := aggregate.View{Year: 2024, Month: 5}
	ov, err := e.Overview(context.Background(), view)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Alerts) != 0 {
		t.Fatalf("alerts without settings: %+v", ov.Alerts)
	}

	target := core.Money{Cents: 100000}
	if err := e.UpdateAlertSettings(context.Background(), core.AlertSettings{
		MonthlyTargetEnabled:  true,
		MonthlyTarget:         &target,
		CategoryLimitsEnabled: true,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "food", Limit: core.Money{Cents: 100000}},
		},
	}); err != nil {
		t.Fatal(err)
	}

	// Same ledger version, new settings: the alert list must change anyway.
	ov, err = e.Overview(context.Background(), view)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Alerts) != 2 {
		t.Fatalf("alerts = %+v, want monthly target and category warnings", ov.Alerts)
	}
	if ov.Alerts[0].Title != "Monthly expense approaching target" {
		t.Errorf("first alert = %q, want the monthly target warning", ov.Alerts[0].Title)
	}
	if ov.Alerts[1].Title != "🍔 Food approaching limit" {
		t.Errorf("second alert = %q", ov.Alerts[1].Title)
	}
}
