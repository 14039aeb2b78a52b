// Package alerts turns aggregated expense totals and the user's threshold
// settings into an ordered list of alert messages. The evaluator is
// stateless: its output is fully determined by its inputs on each call.
package alerts

import (
	"fmt"

	"walletbook/internal/core"
)

const (
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

type (
	Severity string

	// Alert is ephemeral: produced fresh on every evaluation, never
	// persisted or mutated in place.
	Alert struct {
		Severity    Severity
		Title       string
		Description string
	}
)

// CategoryLookup resolves categories for display labels. A lookup miss
// degrades to a generic label, never an error.
type CategoryLookup interface {
	Category(id string) (core.Category, bool)
}

// Evaluate produces the alert list for the active month.
//
// The monthly-target alert, when triggered, always precedes category-limit
// alerts; category-limit alerts follow the configured order of the limits,
// not severity or overshoot size. Both checks share one threshold rule:
// nothing below 90% of the limit, warning from 90%, danger from 100%.
func Evaluate(monthlyExpense core.Money, monthExpenses []core.Transaction, settings core.AlertSettings, categories CategoryLookup) []Alert {
	var out []Alert

	if settings.MonthlyTargetEnabled && settings.MonthlyTarget != nil {
		if a, ok := check(monthlyExpense, *settings.MonthlyTarget,
			"Monthly expense exceeded target!",
			"Monthly expense approaching target"); ok {
			out = append(out, a)
		}
	}

	if !settings.CategoryLimitsEnabled || len(settings.CategoryLimits) == 0 {
		return out
	}

	spent := make(map[string]core.Money)
	for _, tx := range monthExpenses {
		if tx.Type != core.Expense || tx.CategoryID == "" {
			continue
		}
		spent[tx.CategoryID] = spent[tx.CategoryID].Add(tx.Amount)
	}

	for _, cl := range settings.CategoryLimits {
		label := categoryLabel(categories, cl.CategoryID)
		if a, ok := check(spent[cl.CategoryID], cl.Limit,
			label+" exceeded limit!",
			label+" approaching limit"); ok {
			out = append(out, a)
		}
	}

	return out
}

// check applies the shared threshold rule. A non-positive actual or limit
// means the threshold is skipped entirely; a malformed limit is configuration
// to ignore, not a failure.
func check(actual, limit core.Money, dangerTitle, warningTitle string) (Alert, bool) {
	if actual.Cents <= 0 || limit.Cents <= 0 {
		return Alert{}, false
	}

	desc := fmt.Sprintf("%s / %s (%d%%)", actual.Format(), limit.Format(), percent(actual.Cents, limit.Cents))
	switch {
	case actual.Cents >= limit.Cents: // ratio >= 1.0
		return Alert{Severity: SeverityDanger, Title: dangerTitle, Description: desc}, true
	case 10*actual.Cents >= 9*limit.Cents: // 0.9 <= ratio < 1.0
		return Alert{Severity: SeverityWarning, Title: warningTitle, Description: desc}, true
	default:
		return Alert{}, false
	}
}

// percent is round-half-up of actual*100/limit, in integer arithmetic.
func percent(actual, limit int64) int64 {
	return (200*actual + limit) / (2 * limit)
}

func categoryLabel(categories CategoryLookup, id string) string {
	cat, ok := categories.Category(id)
	if !ok {
		return "Category"
	}
	if cat.Icon != "" {
		return cat.Icon + " " + cat.Name
	}
	return cat.Name
}
