package settings

import (
	"context"
	"testing"

	"walletbook/internal/core"
)

func TestStoreSnapshotIsolation(t *testing.T) {
	target := core.Money{Cents: 100000}
	s := NewStore(core.AlertSettings{
		MonthlyTargetEnabled: true,
		MonthlyTarget:        &target,
		CategoryLimits: []core.CategoryLimit{
			{CategoryID: "food", Limit: core.Money{Cents: 50000}},
		},
	})

	snap, err := s.AlertSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the snapshot must not leak back into the store.
	snap.CategoryLimits[0].Limit.Cents = 1
	snap.MonthlyTarget.Cents = 1

	again, _ := s.AlertSettings(context.Background())
	if again.CategoryLimits[0].Limit.Cents != 50000 {
		t.Error("snapshot mutation leaked into the store (limits)")
	}
	if again.MonthlyTarget.Cents != 100000 {
		t.Error("snapshot mutation leaked into the store (target)")
	}
}

func TestStoreReplace(t *testing.T) {
	s := NewStore(core.AlertSettings{})
	s.Replace(core.AlertSettings{CategoryLimitsEnabled: true})

	snap, _ := s.AlertSettings(context.Background())
	if !snap.CategoryLimitsEnabled {
		t.Error("Replace did not install the new snapshot")
	}
}
