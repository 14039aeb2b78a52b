package aggregate

import (
	"strconv"
	"testing"

	"walletbook/internal/core"
)

func tx(id string, typ core.TransactionType, cents int64, y, m, d int, wallet, category string) core.Transaction {
	return core.Transaction{
		ID:         id,
		Type:       typ,
		Amount:     core.Money{Cents: cents},
		Date:       core.NewDate(y, m, d),
		CategoryID: category,
		WalletID:   wallet,
	}
}

func maySnapshot() []core.Transaction {
	return []core.Transaction{
		tx("t1", core.Income, 200000, 2024, 5, 2, "w1", ""),
		tx("t2", core.Expense, 50000, 2024, 5, 10, "w1", "food"),
		tx("t3", core.Expense, 20000, 2024, 5, 10, "w2", "transport"),
		tx("t4", core.Income, 30000, 2024, 4, 28, "w1", ""), // previous month
		tx("t5", core.Expense, 10000, 2024, 5, 20, "w1", "food"),
	}
}

func TestRecomputeMonthlySummary(t *testing.T) {
	res := Recompute(maySnapshot(), View{Year: 2024, Month: 5})

	if got := res.Monthly.Income.Cents; got != 200000 {
		t.Errorf("monthly income = %d, want 200000", got)
	}
	if got := res.Monthly.Expense.Cents; got != 80000 {
		t.Errorf("monthly expense = %d, want 80000", got)
	}
}

func TestRecomputeDailyPartition(t *testing.T) {
	snap := maySnapshot()
	res := Recompute(snap, View{Year: 2024, Month: 5})

	if len(res.DailySummaries) != 3 {
		t.Fatalf("daily summaries = %d, want 3", len(res.DailySummaries))
	}
	// Ascending by date
	prev := 0
	seen := make(map[string]bool)
	for _, ds := range res.DailySummaries {
		if ds.Date.Day() <= prev {
			t.Errorf("daily summaries out of order at day %d", ds.Date.Day())
		}
		prev = ds.Date.Day()

		var income, expense int64
		for _, tr := range ds.Transactions {
			if seen[tr.ID] {
				t.Errorf("transaction %s appears in two daily groups", tr.ID)
			}
			seen[tr.ID] = true
			if !tr.Date.SameDay(ds.Date) {
				t.Errorf("transaction %s grouped under wrong date", tr.ID)
			}
			if tr.Type == core.Income {
				income += tr.Amount.Cents
			} else {
				expense += tr.Amount.Cents
			}
		}
		if ds.Income.Cents != income || ds.Expense.Cents != expense {
			t.Errorf("day %d totals do not match members: got %d/%d want %d/%d",
				ds.Date.Day(), ds.Income.Cents, ds.Expense.Cents, income, expense)
		}
	}
	// Every qualifying transaction appears exactly once
	for _, tr := range snap {
		inMonth := tr.Date.InMonth(2024, 5)
		if inMonth != seen[tr.ID] {
			t.Errorf("transaction %s: in month %v, in groups %v", tr.ID, inMonth, seen[tr.ID])
		}
	}
}

func TestRecomputeCreationOrderWithinDay(t *testing.T) {
	// Two same-day expenses, larger amount first in creation order.
	snap := []core.Transaction{
		tx("a", core.Expense, 900, 2024, 5, 10, "w1", ""),
		tx("b", core.Expense, 100, 2024, 5, 10, "w1", ""),
	}
	res := Recompute(snap, View{Year: 2024, Month: 5})
	got := res.DailySummaries[0].Transactions
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("within-day order = %s,%s; want creation order a,b", got[0].ID, got[1].ID)
	}
}

func TestRecomputeWalletFilter(t *testing.T) {
	res := Recompute(maySnapshot(), View{Year: 2024, Month: 5, WalletID: "w1"})

	if got := res.Monthly.Expense.Cents; got != 60000 {
		t.Errorf("w1 monthly expense = %d, want 60000", got)
	}
	for _, ds := range res.DailySummaries {
		for _, tr := range ds.Transactions {
			if tr.WalletID != "w1" {
				t.Errorf("wallet filter leaked transaction %s", tr.ID)
			}
		}
	}
	// Balances ignore the filter entirely
	if got := res.WalletBalances["w2"].Balance.Cents; got != -20000 {
		t.Errorf("w2 balance under w1 filter = %d, want -20000", got)
	}
}

func TestRecomputeDayFilter(t *testing.T) {
	res := Recompute(maySnapshot(), View{Year: 2024, Month: 5, Day: 10})

	if len(res.DailySummaries) != 1 || res.DailySummaries[0].Date.Day() != 10 {
		t.Fatalf("day filter returned %d summaries", len(res.DailySummaries))
	}
	// Monthly totals ignore the day filter
	if got := res.Monthly.Expense.Cents; got != 80000 {
		t.Errorf("monthly expense under day filter = %d, want 80000", got)
	}
}

func TestRecomputeWalletBalances(t *testing.T) {
	res := Recompute(maySnapshot(), View{Year: 2024, Month: 5})

	// w1: +2000.00 +300.00 -500.00 -100.00 (all-time, month filter ignored)
	if got := res.WalletBalances["w1"].Balance.Cents; got != 170000 {
		t.Errorf("w1 balance = %d, want 170000", got)
	}
	if got := res.WalletBalances["w2"].Balance.Cents; got != -20000 {
		t.Errorf("w2 balance = %d, want -20000", got)
	}
}

func TestRecomputeMonotonicity(t *testing.T) {
	snap := maySnapshot()
	view := View{Year: 2024, Month: 5}
	before := Recompute(snap, view).Monthly.Expense.Cents

	added := append(append([]core.Transaction(nil), snap...),
		tx("t6", core.Expense, 1234, 2024, 5, 15, "w1", ""))
	after := Recompute(added, view).Monthly.Expense.Cents
	if after != before+1234 {
		t.Errorf("adding expense: %d -> %d, want +1234", before, after)
	}

	var removed []core.Transaction
	for _, tr := range snap {
		if tr.ID != "t2" {
			removed = append(removed, tr)
		}
	}
	afterDelete := Recompute(removed, view).Monthly.Expense.Cents
	if afterDelete != before-50000 {
		t.Errorf("deleting expense: %d -> %d, want -50000", before, afterDelete)
	}
}

func TestRecomputeEmptyMonth(t *testing.T) {
	res := Recompute(maySnapshot(), View{Year: 2024, Month: 7})
	if len(res.DailySummaries) != 0 {
		t.Errorf("empty month produced %d summaries", len(res.DailySummaries))
	}
	if !res.Monthly.Income.IsZero() || !res.Monthly.Expense.IsZero() {
		t.Errorf("empty month totals = %+v", res.Monthly)
	}
}

func TestMonthExpenses(t *testing.T) {
	got := MonthExpenses(maySnapshot(), View{Year: 2024, Month: 5})
	if len(got) != 3 {
		t.Fatalf("MonthExpenses len = %d, want 3", len(got))
	}
	for _, tr := range got {
		if tr.Type != core.Expense {
			t.Errorf("non-expense %s included", tr.ID)
		}
	}

	filtered := MonthExpenses(maySnapshot(), View{Year: 2024, Month: 5, WalletID: "w2"})
	if len(filtered) != 1 || filtered[0].ID != "t3" {
		t.Errorf("wallet-filtered MonthExpenses = %v", filtered)
	}
}

func TestAggregatorMemo(t *testing.T) {
	agg := New()
	view := View{Year: 2024, Month: 5}

	calls := 0
	snapshot := func() []core.Transaction {
		calls++
		return maySnapshot()
	}

	first := agg.Result(1, view, snapshot)
	second := agg.Result(1, view, snapshot)
	if calls != 1 {
		t.Errorf("snapshot called %d times for same version, want 1", calls)
	}
	if first.Monthly != second.Monthly {
		t.Error("memoized result differs from computed one")
	}

	// A new version must recompute.
	agg.Result(2, view, snapshot)
	if calls != 2 {
		t.Errorf("snapshot called %d times across versions, want 2", calls)
	}
}

func TestAggregatorMemoDistinctViews(t *testing.T) {
	agg := New()
	snap := maySnapshot()
	snapshot := func() []core.Transaction { return snap }

	full := agg.Result(1, View{Year: 2024, Month: 5}, snapshot)
	w1 := agg.Result(1, View{Year: 2024, Month: 5, WalletID: "w1"}, snapshot)
	if full.Monthly.Expense == w1.Monthly.Expense {
		t.Error("distinct views collided in the memo")
	}

	for i := 0; i < 3; i++ {
		day := agg.Result(1, View{Year: 2024, Month: 5, Day: 10 + i}, snapshot)
		if len(day.DailySummaries) > 1 {
			t.Errorf("day view %s returned %d summaries", strconv.Itoa(10+i), len(day.DailySummaries))
		}
	}
}
