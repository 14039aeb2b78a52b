// Package aggregate derives daily summaries, monthly totals and wallet
// balances from a ledger snapshot. Derivation is a pure function; the
// memoized wrapper keys on the ledger version so a result can never survive
// the mutation that invalidated it.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"walletbook/internal/cache"
	"walletbook/internal/core"
)

// View is the user's current selection: active month, optional day filter,
// optional wallet filter. Day 0 and empty WalletID mean "no filter".
type View struct {
	Year     int
	Month    int
	Day      int
	WalletID string
}

func (v View) key(version uint64) string {
	return fmt.Sprintf("%d|%d-%02d-%02d|%s", version, v.Year, v.Month, v.Day, v.WalletID)
}

// Result holds every derived view for one (snapshot, view) pair.
type Result struct {
	DailySummaries []core.DailySummary
	Monthly        core.MonthlySummary
	WalletBalances map[string]core.WalletBalance
}

// Recompute derives the result from scratch.
//
// Daily summaries cover the active month (and wallet, when filtered),
// ordered by date ascending with transactions in creation order. The day
// filter narrows only the daily list; monthly totals always span the whole
// month. Wallet balances are computed over the unfiltered full history.
func Recompute(snapshot []core.Transaction, view View) Result {
	res := Result{
		WalletBalances: make(map[string]core.WalletBalance),
	}

	byDay := make(map[int]*core.DailySummary)

	for _, tx := range snapshot {
		// Balances see everything.
		wb := res.WalletBalances[tx.WalletID]
		if tx.Type == core.Income {
			wb.Balance = wb.Balance.Add(tx.Amount)
		} else {
			wb.Balance = wb.Balance.Sub(tx.Amount)
		}
		res.WalletBalances[tx.WalletID] = wb

		if !tx.Date.InMonth(view.Year, view.Month) {
			continue
		}
		if view.WalletID != "" && tx.WalletID != view.WalletID {
			continue
		}

		if tx.Type == core.Income {
			res.Monthly.Income = res.Monthly.Income.Add(tx.Amount)
		} else {
			res.Monthly.Expense = res.Monthly.Expense.Add(tx.Amount)
		}

		if view.Day != 0 && tx.Date.Day() != view.Day {
			continue
		}
		day := tx.Date.Day()
		ds, ok := byDay[day]
		if !ok {
			ds = &core.DailySummary{Date: core.NewDate(view.Year, view.Month, day)}
			byDay[day] = ds
		}
		ds.Transactions = append(ds.Transactions, tx)
		if tx.Type == core.Income {
			ds.Income = ds.Income.Add(tx.Amount)
		} else {
			ds.Expense = ds.Expense.Add(tx.Amount)
		}
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)
	res.DailySummaries = make([]core.DailySummary, 0, len(days))
	for _, day := range days {
		res.DailySummaries = append(res.DailySummaries, *byDay[day])
	}

	return res
}

// MonthExpenses returns the expense transactions of the active month (and
// wallet, when filtered) in creation order. The alert evaluator groups them
// by category.
func MonthExpenses(snapshot []core.Transaction, view View) []core.Transaction {
	var out []core.Transaction
	for _, tx := range snapshot {
		if tx.Type != core.Expense {
			continue
		}
		if !tx.Date.InMonth(view.Year, view.Month) {
			continue
		}
		if view.WalletID != "" && tx.WalletID != view.WalletID {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Aggregator memoizes Recompute results. Entries are keyed by ledger
// version plus view, so results computed before a mutation are simply never
// looked up again and age out of the LRU.
type Aggregator struct {
	memo *cache.LRU[Result]
}

func New() *Aggregator {
	return &Aggregator{
		memo: cache.NewLRU[Result](64, 10*time.Minute),
	}
}

// Result returns the derived views for the given ledger version and view.
// The snapshot function is only called on a memo miss.
func (a *Aggregator) Result(version uint64, view View, snapshot func() []core.Transaction) Result {
	key := view.key(version)
	if res, ok := a.memo.Get(key); ok {
		return res
	}
	res := Recompute(snapshot(), view)
	a.memo.Set(key, res)
	return res
}

// Memo exposes the cache for cleanup registration.
func (a *Aggregator) Memo() *cache.LRU[Result] {
	return a.memo
}
