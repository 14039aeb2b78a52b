// Package storage is the persistence collaborator: it loads the full
// transaction history once at startup and is informed of every committed
// mutation. The engine never reads derived values from here; summaries and
// balances are always computed from the in-memory ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"walletbook/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadAll returns every transaction in creation order.
func (r *Repository) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, tx_date, category_id, wallet_id
		FROM transactions
		ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns a single transaction by id.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, amount_cents, tx_date, category_id, wallet_id
		FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return tx, err
}

// InsertTransaction persists a freshly committed transaction.
func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount_cents, tx_date, category_id, wallet_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Type), tx.Amount.Cents, tx.Date.Format(dateLayout), tx.CategoryID, tx.WalletID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.Format(dateLayout))
	return nil
}

// UpdateTransaction persists the new state of an edited transaction.
func (r *Repository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount_cents = ?, tx_date = ?, category_id = ?, wallet_id = ?
		WHERE id = ?`,
		string(tx.Type), tx.Amount.Cents, tx.Date.Format(dateLayout), tx.CategoryID, tx.WalletID, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a transaction row.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListCategories returns all categories.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon, kind FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.CategoryKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListWallets returns all wallets.
func (r *Repository) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM wallets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	var out []core.Wallet
	for rows.Next() {
		var w core.Wallet
		if err := rows.Scan(&w.ID, &w.Name, &w.Icon); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AlertSettings reads the current threshold configuration. Implements
// settings.Provider.
func (r *Repository) AlertSettings(ctx context.Context) (core.AlertSettings, error) {
	var (
		out         core.AlertSettings
		targetCents sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT monthly_target_enabled, monthly_target_cents, category_limits_enabled
		FROM alert_settings WHERE id = 1`).
		Scan(&out.MonthlyTargetEnabled, &targetCents, &out.CategoryLimitsEnabled)
	if err != nil {
		return core.AlertSettings{}, fmt.Errorf("query alert settings: %w", err)
	}
	if targetCents.Valid {
		out.MonthlyTarget = &core.Money{Cents: targetCents.Int64}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, limit_cents FROM category_limits ORDER BY position`)
	if err != nil {
		return core.AlertSettings{}, fmt.Errorf("query category limits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cl core.CategoryLimit
		if err := rows.Scan(&cl.CategoryID, &cl.Limit.Cents); err != nil {
			return core.AlertSettings{}, fmt.Errorf("scan category limit: %w", err)
		}
		out.CategoryLimits = append(out.CategoryLimits, cl)
	}
	return out, rows.Err()
}

// SaveAlertSettings replaces the stored threshold configuration atomically.
func (r *Repository) SaveAlertSettings(ctx context.Context, s core.AlertSettings) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	var targetCents any
	if s.MonthlyTarget != nil {
		targetCents = s.MonthlyTarget.Cents
	}
	if _, err := dbTx.ExecContext(ctx, `
		UPDATE alert_settings
		SET monthly_target_enabled = ?, monthly_target_cents = ?, category_limits_enabled = ?
		WHERE id = 1`,
		s.MonthlyTargetEnabled, targetCents, s.CategoryLimitsEnabled); err != nil {
		return fmt.Errorf("update alert settings: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM category_limits`); err != nil {
		return fmt.Errorf("clear category limits: %w", err)
	}
	for i, cl := range s.CategoryLimits {
		if _, err := dbTx.ExecContext(ctx, `
			INSERT INTO category_limits (position, category_id, limit_cents) VALUES (?, ?, ?)`,
			i, cl.CategoryID, cl.Limit.Cents); err != nil {
			return fmt.Errorf("insert category limit: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.InfoContext(ctx, "Alert settings saved",
		"monthly_target_enabled", s.MonthlyTargetEnabled,
		"category_limits", len(s.CategoryLimits))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		typ     string
		dateStr string
	)
	if err := row.Scan(&tx.ID, &typ, &tx.Amount.Cents, &dateStr, &tx.CategoryID, &tx.WalletID); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)

	parsed, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", dateStr, err)
	}
	tx.Date = core.Date{Time: parsed}
	return tx, nil
}
