// Package model defines the core data structures for the spice application.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedCategory is the label carried by transactions no rule or user has categorized.
const UncategorizedCategory = "Uncategorized"

// DateLayout is the calendar-day layout used for keys and storage.
const DateLayout = "2006-01-02"

// TransactionSource identifies which feed produced a transaction.
type TransactionSource string

// Transaction sources.
const (
	SourcePrimary   TransactionSource = "primary"
	SourceSecondary TransactionSource = "secondary"
)

// Transaction represents a single financial event from either feed.
//
// Amount follows one sign convention throughout the application:
// positive amounts are expenses (money out), negative amounts are income (money in).
type Transaction struct {
	PostedDate          *time.Time // nil while pending
	AuthorizedDate      *time.Time
	Amount              decimal.Decimal
	ID                  string
	AccountID           string
	MerchantName        string
	Description         string // Raw transaction description
	ExtendedDescription string
	LogoURL             string
	Source              TransactionSource
	Categories          []string // First entry is the primary category
	Pending             bool
}

// EffectiveDate returns the posted date, falling back to the authorized date.
func (t *Transaction) EffectiveDate() (time.Time, bool) {
	if t.PostedDate != nil && !t.PostedDate.IsZero() {
		return *t.PostedDate, true
	}
	if t.AuthorizedDate != nil && !t.AuthorizedDate.IsZero() {
		return *t.AuthorizedDate, true
	}
	return time.Time{}, false
}

// PrimaryCategory returns the first category label or UncategorizedCategory.
func (t *Transaction) PrimaryCategory() string {
	if len(t.Categories) == 0 || strings.TrimSpace(t.Categories[0]) == "" {
		return UncategorizedCategory
	}
	return t.Categories[0]
}

// IsUncategorized reports whether the transaction still needs a category.
func (t *Transaction) IsUncategorized() bool {
	return strings.EqualFold(t.PrimaryCategory(), UncategorizedCategory)
}

// SetCategory replaces the primary category, keeping any secondary labels.
func (t *Transaction) SetCategory(category string) {
	if len(t.Categories) == 0 {
		t.Categories = []string{category}
		return
	}
	labels := make([]string, len(t.Categories))
	copy(labels, t.Categories)
	labels[0] = category
	t.Categories = labels
}

// IsExpense reports whether the transaction is an outflow.
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsPositive()
}

// IsIncome reports whether the transaction is an inflow.
func (t *Transaction) IsIncome() bool {
	return t.Amount.IsNegative()
}

// Counterparty returns the merchant name, falling back to the description.
func (t *Transaction) Counterparty() string {
	if strings.TrimSpace(t.MerchantName) != "" {
		return t.MerchantName
	}
	return t.Description
}

// DedupKey builds the composite key used to collapse the same event seen twice.
// Undated transactions only collapse with themselves, keyed by ID.
func (t *Transaction) DedupKey() string {
	d, ok := t.EffectiveDate()
	if !ok {
		return "undated|" + t.ID
	}
	return fmt.Sprintf("%s|%s|%s",
		d.Format(DateLayout),
		t.Amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(t.Counterparty())))
}

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the day of ts falls inside the window.
func (w DateWindow) Contains(ts time.Time) bool {
	day := ts.Format(DateLayout)
	if !w.Start.IsZero() && day < w.Start.Format(DateLayout) {
		return false
	}
	if !w.End.IsZero() && day > w.End.Format(DateLayout) {
		return false
	}
	return true
}

// String renders the window for logs and reports.
func (w DateWindow) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format(DateLayout), w.End.Format(DateLayout))
}

// MonthWindow returns the window covering the calendar month containing ts.
func MonthWindow(ts time.Time) DateWindow {
	start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
	return DateWindow{Start: start, End: start.AddDate(0, 1, -1)}
}
