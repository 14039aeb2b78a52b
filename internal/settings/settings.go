// Package settings supplies read-only snapshots of the user's alert
// threshold configuration. The engine re-reads the snapshot on every
// evaluation; it never owns or mutates the settings itself.
package settings

import (
	"context"
	"sync"

	"walletbook/internal/core"
)

// Provider hands out the current alert settings snapshot.
type Provider interface {
	AlertSettings(ctx context.Context) (core.AlertSettings, error)
}

// Store is an in-memory provider. Replace swaps the whole snapshot
// atomically, so readers never observe a half-applied configuration.
type Store struct {
	mu      sync.RWMutex
	current core.AlertSettings
}

func NewStore(initial core.AlertSettings) *Store {
	return &Store{current: clone(initial)}
}

func (s *Store) AlertSettings(_ context.Context) (core.AlertSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current), nil
}

// Replace installs a new snapshot.
func (s *Store) Replace(settings core.AlertSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = clone(settings)
}

// clone copies the mutable parts so callers can't alias the stored slice.
func clone(in core.AlertSettings) core.AlertSettings {
	out := in
	if in.MonthlyTarget != nil {
		target := *in.MonthlyTarget
		out.MonthlyTarget = &target
	}
	out.CategoryLimits = append([]core.CategoryLimit(nil), in.CategoryLimits...)
	return out
}
