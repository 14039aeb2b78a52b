package core

// DailySummary groups the transactions of one calendar date within the
// active month, in creation order, with their per-day totals.
type DailySummary struct {
	Date         Date
	Transactions []Transaction
	Income       Money
	Expense      Money
}

// MonthlySummary holds income and expense totals for the active month,
// scoped to the wallet filter when one is set.
type MonthlySummary struct {
	Income  Money
	Expense Money
}

// WalletBalance is the all-time balance of a wallet, derived from the full
// transaction history and never stored.
type WalletBalance struct {
	Balance Money
}

// AlertSettings is a read-only snapshot of the user's threshold
// configuration. The engine re-reads it on every evaluation.
type AlertSettings struct {
	MonthlyTargetEnabled  bool
	MonthlyTarget         *Money
	CategoryLimitsEnabled bool
	// CategoryLimits keeps the user-configured order; alert emission
	// follows it.
	CategoryLimits []CategoryLimit
}

// CategoryLimit caps monthly expense for one category.
type CategoryLimit struct {
	CategoryID string
	Limit      Money
}
