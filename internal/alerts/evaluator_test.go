package alerts

import (
	"testing"

	"walletbook/internal/catalog"
	"walletbook/internal/core"
)

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func moneyPtr(cents int64) *core.Money { m := money(cents); return &m }

func lookup() *catalog.Catalog {
	c := catalog.New()
	c.Seed([]core.Category{
		{ID: "food", Name: "Food", Icon: "🍜", Kind: core.KindExpense},
		{ID: "transport", Name: "Transport", Kind: core.KindExpense},
	}, nil)
	return c
}

func expense(cents int64, category string) core.Transaction {
	return core.Transaction{
		Type:       core.Expense,
		Amount:     money(cents),
		Date:       core.NewDate(2024, 5, 10),
		CategoryID: category,
		WalletID:   "w1",
	}
}

func TestMonthlyTargetBoundaries(t *testing.T) {
	settings := core.AlertSettings{
		MonthlyTargetEnabled: true,
		MonthlyTarget:        moneyPtr(100000), // 1,000
	}

	tests := []struct {
		name         string
		expenseCents int64
		wantCount    int
		wantSeverity Severity
		wantDesc     string
	}{
		{"below 90 percent", 89999, 0, "", ""},
		{"at 90 percent", 90000, 1, SeverityWarning, "900 / 1,000 (90%)"},
		{"at limit", 100000, 1, SeverityDanger, "1,000 / 1,000 (100%)"},
		{"over limit", 150000, 1, SeverityDanger, "1,500 / 1,000 (150%)"},
		{"zero expense", 0, 0, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(money(tt.expenseCents), nil, settings, lookup())
			if len(got) != tt.wantCount {
				t.Fatalf("alert count = %d, want %d", len(got), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			if got[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
			if got[0].Description != tt.wantDesc {
				t.Errorf("description = %q, want %q", got[0].Description, tt.wantDesc)
			}
		})
	}
}

func TestPercentRoundsHalfUp(t *testing.T) {
	settings := core.AlertSettings{
		MonthlyTargetEnabled: true,
		MonthlyTarget:        moneyPtr(100000),
	}
	// 905 / 1,000 is 90.5%, rounds up to 91
	got := Evaluate(money(90500), nil, settings, lookup())
	if len(got) != 1 {
		t.Fatalf("alert count = %d", len(got))
	}
	if got[0].Description != "905 / 1,000 (91%)" {
		t.Errorf("description = %q, want 91%%", got[0].Description)
	}
}

func TestMonthlyTargetDisabledOrMissing(t *testing.T) {
	tests := []struct {
		name     string
		settings core.AlertSettings
	}{
		{"disabled", core.AlertSettings{MonthlyTargetEnabled: false, MonthlyTarget: moneyPtr(100000)}},
		{"nil target", core.AlertSettings{MonthlyTargetEnabled: true}},
		{"zero target", core.AlertSettings{MonthlyTargetEnabled: true, MonthlyTarget: moneyPtr(0)}},
		{"negative target", core.AlertSettings{MonthlyTargetEnabled: true, MonthlyTarget: moneyPtr(-500)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(money(999999), nil, tt.settings, lookup()); len(got) != 0 {
				t.Errorf("got %d alerts, want 0", len(got))
			}
		})
	}
}

func TestCategoryLimitsOrdering(t *testing.T) {
	// Both limits triggered; transport overshoots far more than food, but
	// the configured order must win.
	settings := core.AlertSettings{
		CategoryLimitsEnabled: true,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "food", Limit: money(50000)},
			{CategoryID: "transport", Limit: money(10000)},
		},
	}
	txs := []core.Transaction{
		expense(50000, "food"),
		expense(90000, "transport"),
	}

	got := Evaluate(money(0), txs, settings, lookup())
	if len(got) != 2 {
		t.Fatalf("alert count = %d, want 2", len(got))
	}
	if got[0].Title != "🍜 Food exceeded limit!" {
		t.Errorf("first alert = %q, want the food limit", got[0].Title)
	}
	if got[1].Title != "Transport exceeded limit!" {
		t.Errorf("second alert = %q, want the transport limit", got[1].Title)
	}
}

func TestMonthlyTargetPrecedesCategoryAlerts(t *testing.T) {
	settings := core.AlertSettings{
		MonthlyTargetEnabled:  true,
		MonthlyTarget:         moneyPtr(10000),
		CategoryLimitsEnabled: true,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "food", Limit: money(5000)},
		},
	}
	txs := []core.Transaction{expense(20000, "food")}

	got := Evaluate(money(20000), txs, settings, lookup())
	if len(got) != 2 {
		t.Fatalf("alert count = %d, want 2", len(got))
	}
	if got[0].Title != "Monthly expense exceeded target!" {
		t.Errorf("first alert = %q, want the monthly target", got[0].Title)
	}
}

func TestCategoryLimitSkips(t *testing.T) {
	settings := core.AlertSettings{
		CategoryLimitsEnabled: true,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "food", Limit: money(0)},       // malformed limit: skip
			{CategoryID: "transport", Limit: money(-5)}, // malformed limit: skip
		},
	}
	txs := []core.Transaction{
		expense(99999, "food"),
		expense(99999, "transport"),
	}
	if got := Evaluate(money(0), txs, settings, lookup()); len(got) != 0 {
		t.Errorf("malformed limits produced %d alerts", len(got))
	}

	// No spend in the category: skip as well
	settings.CategoryLimits = []core.CategoryLimit{{CategoryID: "food", Limit: money(10000)}}
	if got := Evaluate(money(0), nil, settings, lookup()); len(got) != 0 {
		t.Errorf("zero spend produced %d alerts", len(got))
	}
}

func TestUnknownCategoryFallbackLabel(t *testing.T) {
	settings := core.AlertSettings{
		CategoryLimitsEnabled: true,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "deleted-cat", Limit: money(10000)},
		},
	}
	txs := []core.Transaction{expense(20000, "deleted-cat")}

	got := Evaluate(money(0), txs, settings, lookup())
	if len(got) != 1 {
		t.Fatalf("alert count = %d, want 1", len(got))
	}
	if got[0].Title != "Category exceeded limit!" {
		t.Errorf("fallback title = %q", got[0].Title)
	}
}

func TestUncategorizedExcludedFromLimits(t *testing.T) {
	settings := core.AlertSettings{
		CategoryLimitsEnabled: true,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "food", Limit: money(10000)},
		},
	}
	// Uncategorized spend must not count toward any category limit.
	txs := []core.Transaction{expense(99999, "")}
	if got := Evaluate(money(0), txs, settings, lookup()); len(got) != 0 {
		t.Errorf("uncategorized spend produced %d alerts", len(got))
	}
}
