// Package catalog holds the in-memory lookup of categories and wallets. The
// ledger consults it when validating transactions and the alert evaluator
// uses it for display labels. It is seeded once from storage at startup and
// treated as read-mostly reference data.
package catalog

import (
	"sort"
	"sync"

	"walletbook/internal/core"
)

type Catalog struct {
	mu         sync.RWMutex
	categories map[string]core.Category
	wallets    map[string]core.Wallet
}

func New() *Catalog {
	return &Catalog{
		categories: make(map[string]core.Category),
		wallets:    make(map[string]core.Wallet),
	}
}

// Seed replaces the catalog contents with the given reference data.
func (c *Catalog) Seed(categories []core.Category, wallets []core.Wallet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = make(map[string]core.Category, len(categories))
	for _, cat := range categories {
		c.categories[cat.ID] = cat
	}
	c.wallets = make(map[string]core.Wallet, len(wallets))
	for _, w := range wallets {
		c.wallets[w.ID] = w
	}
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (core.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.categories[id]
	return cat, ok
}

// Wallet returns the wallet with the given id.
func (c *Catalog) Wallet(id string) (core.Wallet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.wallets[id]
	return w, ok
}

// Categories returns all categories sorted by name.
func (c *Catalog) Categories() []core.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]core.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Wallets returns all wallets sorted by name.
func (c *Catalog) Wallets() []core.Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]core.Wallet, 0, len(c.wallets))
	for _, w := range c.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
