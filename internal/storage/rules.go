package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

const ruleColumns = `id, user_id, category, description_contains, merchant_contains,
	extended_description_contains, amount_min, amount_max, priority, is_active,
	match_count, created_at, updated_at`

// CreateRule inserts a new category rule and sets its ID.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO category_rules (
			user_id, category, description_contains, merchant_contains,
			extended_description_contains, amount_min, amount_max,
			priority, is_active, match_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		rule.UserID, rule.Category, rule.DescriptionContains, rule.MerchantContains,
		rule.ExtendedDescriptionContains, nullDecimal(rule.AmountMin), nullDecimal(rule.AmountMax),
		rule.Priority, rule.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create category rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category rule ID: %w", err)
	}

	rule.ID = int(id)
	rule.MatchCount = 0
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// GetRule retrieves a category rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int) (*model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM category_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category rule %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category rule: %w", err)
	}
	return rule, nil
}

// ListRules returns a user's rules in evaluation order (priority, then id).
func (s *SQLiteStorage) ListRules(ctx context.Context, userID string, activeOnly bool) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM category_rules WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY priority ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rules: %w", err)
	}
	return rules, nil
}

// UpdateRule replaces a rule's definition. The match count is left untouched.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE category_rules SET
			category = ?, description_contains = ?, merchant_contains = ?,
			extended_description_contains = ?, amount_min = ?, amount_max = ?,
			priority = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		rule.Category, rule.DescriptionContains, rule.MerchantContains,
		rule.ExtendedDescriptionContains, nullDecimal(rule.AmountMin), nullDecimal(rule.AmountMax),
		rule.Priority, rule.IsActive, now, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category rule: %w", err)
	}
	if err := requireAffected(result, "category rule", rule.ID); err != nil {
		return err
	}
	rule.UpdatedAt = now
	return nil
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category rule: %w", err)
	}
	return requireAffected(result, "category rule", id)
}

// RestoreRule writes a rule back with its original ID, counters and timestamps.
// It is used to undo a deletion, and overwrites any row with the same ID.
func (s *SQLiteStorage) RestoreRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.ID <= 0 {
		return fmt.Errorf("%w: restore requires an id", ErrInvalidRule)
	}

	created, updated := rule.CreatedAt, rule.UpdatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if updated.IsZero() {
		updated = created
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO category_rules (
			id, user_id, category, description_contains, merchant_contains,
			extended_description_contains, amount_min, amount_max,
			priority, is_active, match_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Category, rule.DescriptionContains, rule.MerchantContains,
		rule.ExtendedDescriptionContains, nullDecimal(rule.AmountMin), nullDecimal(rule.AmountMax),
		rule.Priority, rule.IsActive, rule.MatchCount, created, updated,
	)
	if err != nil {
		return fmt.Errorf("failed to restore category rule: %w", err)
	}
	return nil
}

// SetRuleActive enables or disables a rule.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, id int, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE category_rules SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set category rule state: %w", err)
	}
	return requireAffected(result, "category rule", id)
}

// IncrementRuleMatchCount atomically bumps a rule's match counter.
func (s *SQLiteStorage) IncrementRuleMatchCount(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE category_rules SET match_count = match_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment match count: %w", err)
	}
	return requireAffected(result, "category rule", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*model.CategoryRule, error) {
	var rule model.CategoryRule
	var amountMin, amountMax decimal.NullDecimal
	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.Category, &rule.DescriptionContains, &rule.MerchantContains,
		&rule.ExtendedDescriptionContains, &amountMin, &amountMax, &rule.Priority, &rule.IsActive,
		&rule.MatchCount, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if amountMin.Valid {
		rule.AmountMin = &amountMin.Decimal
	}
	if amountMax.Valid {
		rule.AmountMax = &amountMax.Decimal
	}
	return &rule, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// requireAffected turns a zero-row update into ErrNotFound.
func requireAffected(result sql.Result, what string, id any) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %v: %w", what, id, common.ErrNotFound)
	}
	return nil
}
