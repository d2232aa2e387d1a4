// Package engine ties the feeds, rules, budgets, and forecasts together over a storage backend.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-budget/internal/budget"
	"github.com/Veraticus/spice-budget/internal/forecast"
	"github.com/Veraticus/spice-budget/internal/merge"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	"github.com/Veraticus/spice-budget/internal/service"
)

// Engine orchestrates merging, categorization, budgeting, and forecasting for one store.
type Engine struct {
	storage service.Storage
	logger  *slog.Logger
}

// New creates an engine over the given storage.
func New(storage service.Storage) *Engine {
	return &Engine{
		storage: storage,
		logger:  slog.Default().With("component", "engine"),
	}
}

// MergeStats totals the merge counters across accounts.
type MergeStats struct {
	Skipped     int
	Overlapping int
	Duplicates  int
}

// MergedTransactions returns the user's primary and imported transactions merged per account.
// Each account's secondary-sync flag governs only its own imports. Imported records outside
// the window are dropped after conversion.
func (e *Engine) MergedTransactions(ctx context.Context, userID string, window *model.DateWindow) ([]model.Transaction, MergeStats, error) {
	var stats MergeStats

	primary, err := e.storage.GetTransactions(ctx, userID, window)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load transactions: %w", err)
	}

	imported, err := e.storage.GetImportedTransactions(ctx, userID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load imported transactions: %w", err)
	}

	accounts, err := e.storage.ListAccounts(ctx, userID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load accounts: %w", err)
	}
	syncEnabled := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		syncEnabled[a.ID] = a.SecondarySyncEnabled
	}

	var order []string
	primaryByAccount := make(map[string][]model.Transaction)
	importedByAccount := make(map[string][]model.ImportedTransaction)
	track := func(id string) {
		if _, ok := primaryByAccount[id]; ok {
			return
		}
		if _, ok := importedByAccount[id]; ok {
			return
		}
		order = append(order, id)
	}
	for _, txn := range primary {
		track(txn.AccountID)
		primaryByAccount[txn.AccountID] = append(primaryByAccount[txn.AccountID], txn)
	}
	for _, rec := range imported {
		track(rec.AccountID)
		importedByAccount[rec.AccountID] = append(importedByAccount[rec.AccountID], rec)
	}

	var combined []model.Transaction
	for _, accountID := range order {
		result := merge.Merge(primaryByAccount[accountID], importedByAccount[accountID], merge.Options{
			SecondarySyncEnabled: syncEnabled[accountID],
		})
		stats.Skipped += result.Skipped
		stats.Overlapping += result.Overlapping
		stats.Duplicates += result.Duplicates
		combined = append(combined, result.Transactions...)
	}

	merged := combined[:0]
	for _, txn := range combined {
		if window != nil && txn.Source == model.SourceSecondary {
			if d, ok := txn.EffectiveDate(); !ok || !window.Contains(d) {
				continue
			}
		}
		merged = append(merged, txn)
	}
	merge.SortByDate(merged)

	e.logger.Debug("Merged transactions",
		"user", userID,
		"accounts", len(order),
		"transactions", len(merged),
		"skipped", stats.Skipped,
		"overlapping", stats.Overlapping,
		"duplicates", stats.Duplicates)

	return merged, stats, nil
}

// Categorize applies the user's active rules to uncategorized merged transactions.
// Unless dryRun is set, the assigned categories are saved (imported records on their import
// row) and rule match counts incremented.
func (e *Engine) Categorize(ctx context.Context, userID string, window *model.DateWindow, dryRun bool) (*pattern.CategorizeResult, error) {
	txns, _, err := e.MergedTransactions(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	matcher, err := e.matcher(ctx, userID)
	if err != nil {
		return nil, err
	}

	var recorder pattern.MatchRecorder
	if !dryRun {
		recorder = e.storage
	}

	result, err := pattern.NewCategorizer(matcher, recorder).Apply(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("failed to categorize: %w", err)
	}

	if dryRun {
		e.logger.Info("Dry run categorization",
			"assigned", len(result.Assignments),
			"unmatched", result.Unmatched)
		return result, nil
	}

	assigned := make(map[string]bool, len(result.Assignments))
	for _, a := range result.Assignments {
		assigned[a.TransactionID] = true
	}
	var updates []model.Transaction
	imported := make(map[int64]string)
	for _, txn := range result.Transactions {
		if !assigned[txn.ID] {
			continue
		}
		if txn.Source == model.SourcePrimary {
			updates = append(updates, txn)
			continue
		}
		if id, ok := merge.ImportedID(txn.ID); ok {
			imported[id] = txn.PrimaryCategory()
		}
	}
	if err := e.storage.UpdateTransactionCategories(ctx, updates); err != nil {
		return nil, fmt.Errorf("failed to save categories: %w", err)
	}
	if err := e.storage.UpdateImportedCategories(ctx, userID, imported); err != nil {
		return nil, fmt.Errorf("failed to save imported categories: %w", err)
	}

	e.logger.Info("Categorized transactions",
		"assigned", len(result.Assignments),
		"saved", len(updates),
		"imported_saved", len(imported),
		"unmatched", result.Unmatched,
		"skipped", result.Skipped)

	return result, nil
}

// Review walks the uncategorized primary transactions in the window and asks the prompter
// for each one, offering rule suggestions and known categories. It returns how many were saved.
func (e *Engine) Review(ctx context.Context, userID string, window *model.DateWindow, prompter Prompter) (int, error) {
	txns, err := e.storage.GetTransactions(ctx, userID, window)
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}

	matcher, err := e.matcher(ctx, userID)
	if err != nil {
		return 0, err
	}
	suggester := pattern.NewSuggester(matcher)

	known, err := e.storage.KnownCategories(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}

	saved := 0
	for _, txn := range txns {
		if !txn.IsUncategorized() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		category, err := prompter.ChooseCategory(ctx, txn, suggester.Suggest(ctx, txn))
		if err != nil {
			return saved, err
		}
		if category == "" {
			continue
		}
		if canonical, ok := pattern.SuggestCategory(category, known); ok && strings.EqualFold(canonical, category) {
			category = canonical
		}

		txn.SetCategory(category)
		if err := e.storage.UpdateTransactionCategories(ctx, []model.Transaction{txn}); err != nil {
			return saved, fmt.Errorf("failed to save category for %s: %w", txn.ID, err)
		}
		saved++
	}

	return saved, nil
}

// Summary aggregates the user's merged transactions against their budget.
func (e *Engine) Summary(ctx context.Context, userID string, window model.DateWindow) (*budget.Summary, error) {
	txns, _, err := e.MergedTransactions(ctx, userID, &window)
	if err != nil {
		return nil, err
	}

	b, err := e.storage.GetBudget(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}

	summary := budget.Aggregate(userID, txns, b, window)
	return &summary, nil
}

// History returns the monthly series for a category over the months months ending with the
// month containing end.
func (e *Engine) History(ctx context.Context, userID, category string, end time.Time, months int) ([]model.CategoryMonthHistory, error) {
	series, err := e.history(ctx, userID, category, end, months)
	if err != nil {
		return nil, err
	}
	return series.months, nil
}

type categorySeries struct {
	months   []model.CategoryMonthHistory
	active   int
	budgeted bool
}

func (e *Engine) history(ctx context.Context, userID, category string, end time.Time, months int) (categorySeries, error) {
	if months <= 0 {
		return categorySeries{}, fmt.Errorf("months must be positive, got %d", months)
	}

	last := model.MonthWindow(end)
	from := last.Start.AddDate(0, -(months - 1), 0)
	window := model.DateWindow{Start: from, End: last.End}

	txns, _, err := e.MergedTransactions(ctx, userID, &window)
	if err != nil {
		return categorySeries{}, err
	}

	b, err := e.storage.GetBudget(ctx, userID)
	if err != nil {
		return categorySeries{}, fmt.Errorf("failed to load budget: %w", err)
	}
	amount := b.Amount(category)

	return categorySeries{
		months:   budget.MonthlyHistory(txns, category, amount, from, months),
		active:   budget.ActiveMonths(txns, category, from, months),
		budgeted: !amount.IsZero(),
	}, nil
}

// Forecast projects a category horizon months past its history.
// A category that is unbudgeted and active in fewer than two months has no usable history.
func (e *Engine) Forecast(ctx context.Context, userID, category string, end time.Time, months, horizon int) (*model.ForecastResult, error) {
	series, err := e.history(ctx, userID, category, end, months)
	if err != nil {
		return nil, err
	}

	if !series.budgeted && series.active < forecast.MinHistory {
		return nil, fmt.Errorf("failed to forecast %s: %w (activity in %d of %d months)",
			category, forecast.ErrInsufficientHistory, series.active, months)
	}

	result, err := forecast.Build(category, series.months, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to forecast %s: %w", category, err)
	}

	e.logger.Debug("Built forecast",
		"category", category,
		"horizon", horizon,
		"active_months", series.active,
		"confidence", result.Confidence,
		"savings_trend", result.SavingsTrend)

	return result, nil
}

func (e *Engine) matcher(ctx context.Context, userID string) (*pattern.MatcherImpl, error) {
	rules, err := e.storage.ListRules(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return pattern.NewMatcher(rules), nil
}
