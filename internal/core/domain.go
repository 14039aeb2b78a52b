package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
)

type (
	TransactionType string

	CategoryKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. The direction of the
	// movement is always carried by Type; Amount is never negative.
	Transaction struct {
		ID         string
		Type       TransactionType
		Amount     Money
		Date       Date
		CategoryID string // empty means uncategorized
		WalletID   string
	}

	Category struct {
		ID   string
		Name string
		Icon string
		Kind CategoryKind
	}

	Wallet struct {
		ID   string
		Name string
		Icon string
	}
)

// ErrValidation is the root of all validation failures so callers can match
// the whole family with errors.Is.
var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidType     = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrEmptyWallet     = fmt.Errorf("%w: empty wallet id", ErrValidation)
	ErrUnknownCategory = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrUnknownWallet   = fmt.Errorf("%w: unknown wallet", ErrValidation)
	ErrKindMismatch    = fmt.Errorf("%w: category kind does not match transaction type", ErrValidation)
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Kind returns the category kind a transaction of this type may reference.
func (t TransactionType) Kind() CategoryKind {
	if t == Income {
		return KindIncome
	}
	return KindExpense
}

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// InMonth reports whether the date falls in the given year and month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

// SameDay reports whether two dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the shape of a transaction. Category and wallet existence
// and kind matching need a catalog and are checked by the ledger.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.WalletID) == "" {
		return ErrEmptyWallet
	}
	return nil
}
