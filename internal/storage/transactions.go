package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, account_id, amount, posted_date, authorized_date, merchant_name,
	description, extended_description, logo_url, categories, source, pending`

// SaveTransactions upserts primary-feed transactions for a user.
// A re-synced transaction keeps any category the user or a rule already assigned.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, user_id, account_id, amount, posted_date, authorized_date,
			merchant_name, description, extended_description, logo_url,
			categories, source, pending
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			posted_date = excluded.posted_date,
			authorized_date = excluded.authorized_date,
			merchant_name = excluded.merchant_name,
			description = excluded.description,
			extended_description = excluded.extended_description,
			logo_url = excluded.logo_url,
			pending = excluded.pending,
			categories = CASE
				WHEN transactions.categories IN ('[]', '["Uncategorized"]') THEN excluded.categories
				ELSE transactions.categories
			END,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		categoriesJSON, err := encodeCategories(txn.Categories)
		if err != nil {
			return err
		}
		source := txn.Source
		if source == "" {
			source = model.SourcePrimary
		}

		_, err = stmt.ExecContext(ctx,
			txn.ID, userID, txn.AccountID, txn.Amount.String(),
			formatDate(txn.PostedDate), formatDate(txn.AuthorizedDate),
			txn.MerchantName, txn.Description, txn.ExtendedDescription, txn.LogoURL,
			categoriesJSON, string(source), txn.Pending,
		)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Debug("Saved transactions", "user_id", userID, "count", len(transactions))
	return nil
}

// GetTransactions returns a user's stored transactions, optionally limited to a window.
// Transactions are ordered newest first by effective date.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, userID string, window *model.DateWindow) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if window != nil {
		if !window.Start.IsZero() {
			query += ` AND COALESCE(posted_date, authorized_date) >= ?`
			args = append(args, window.Start.Format(model.DateLayout))
		}
		if !window.End.IsZero() {
			query += ` AND COALESCE(posted_date, authorized_date) <= ?`
			args = append(args, window.End.Format(model.DateLayout))
		}
	}
	query += ` ORDER BY COALESCE(posted_date, authorized_date) DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetTransactionByID retrieves a single stored transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return txn, nil
}

// UpdateTransactionCategories writes back the category labels of the given transactions.
func (s *SQLiteStorage) UpdateTransactionCategories(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE transactions SET categories = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		categoriesJSON, err := encodeCategories(transactions[i].Categories)
		if err != nil {
			return err
		}
		result, err := stmt.ExecContext(ctx, categoriesJSON, transactions[i].ID)
		if err != nil {
			return fmt.Errorf("failed to update categories for %s: %w", transactions[i].ID, err)
		}
		if err := requireAffected(result, "transaction", transactions[i].ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// KnownCategories returns every category name the user has used in
// transactions, rules, budgets or imported records, sorted.
func (s *SQLiteStorage) KnownCategories(ctx context.Context, userID string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT value FROM transactions, json_each(transactions.categories)
			WHERE user_id = ?
		UNION SELECT category FROM category_rules WHERE user_id = ?
		UNION SELECT category FROM budgets WHERE user_id = ?
		UNION SELECT category FROM imported_transactions WHERE user_id = ? AND category != ''`,
		userID, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]bool)
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount, categoriesJSON, source string
	var posted, authorized sql.NullString

	err := row.Scan(
		&txn.ID, &txn.AccountID, &amount, &posted, &authorized, &txn.MerchantName,
		&txn.Description, &txn.ExtendedDescription, &txn.LogoURL, &categoriesJSON, &source, &txn.Pending,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s has invalid amount %q: %w", txn.ID, amount, err)
	}
	if txn.PostedDate, err = parseDate(posted); err != nil {
		return nil, err
	}
	if txn.AuthorizedDate, err = parseDate(authorized); err != nil {
		return nil, err
	}
	if categoriesJSON != "" {
		if err := json.Unmarshal([]byte(categoriesJSON), &txn.Categories); err != nil {
			return nil, fmt.Errorf("transaction %s has invalid categories: %w", txn.ID, err)
		}
	}
	txn.Source = model.TransactionSource(source)
	return &txn, nil
}

func encodeCategories(categories []string) (string, error) {
	if len(categories) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("failed to encode categories: %w", err)
	}
	return string(data), nil
}
