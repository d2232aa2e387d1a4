package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

// SetBudget sets the budgeted amount for one of the user's categories.
func (s *SQLiteStorage) SetBudget(ctx context.Context, userID, category string, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("budget for %q cannot be negative", category)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, amount) VALUES (?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			amount = excluded.amount,
			updated_at = CURRENT_TIMESTAMP`,
		userID, category, amount.String())
	if err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

// DeleteBudget removes a category from the user's budget.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, userID, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE user_id = ? AND category = ?`, userID, category)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return requireAffected(result, "budget", category)
}

// GetBudget loads every budgeted category for a user.
func (s *SQLiteStorage) GetBudget(ctx context.Context, userID string) (model.Budget, error) {
	b := model.NewBudget(userID)
	if err := validateContext(ctx); err != nil {
		return b, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return b, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, amount FROM budgets WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return b, fmt.Errorf("failed to query budget: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var category, amount string
		if err := rows.Scan(&category, &amount); err != nil {
			return b, fmt.Errorf("failed to scan budget: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return b, fmt.Errorf("budget for %q has invalid amount %q: %w", category, amount, err)
		}
		b.Amounts[category] = value
	}
	if err := rows.Err(); err != nil {
		return b, fmt.Errorf("error iterating budget: %w", err)
	}
	return b, nil
}
