package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

// SaveImportedTransactions stores secondary-feed records for an account.
// Rows already imported are ignored; the number of new rows is returned.
// Each saved record's ID is set to its row id.
func (s *SQLiteStorage) SaveImportedTransactions(ctx context.Context, userID, accountID string, records []model.ImportedTransaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO imported_transactions (
			user_id, account_id, transaction_date, transaction_amount,
			transaction_description, extended_description, merchant_name,
			category, balance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range records {
		rec := &records[i]
		result, err := stmt.ExecContext(ctx,
			userID, accountID, rec.TransactionDate, rec.TransactionAmount.String(),
			rec.TransactionDescription, rec.ExtendedDescription, rec.MerchantName,
			rec.Category, rec.Balance.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save imported record %d: %w", i, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			continue
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get imported record ID: %w", err)
		}
		rec.ID = &id
		rec.AccountID = accountID
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit imported records: %w", err)
	}

	slog.Debug("Saved imported records",
		"user_id", userID,
		"account_id", accountID,
		"received", len(records),
		"inserted", inserted)
	return inserted, nil
}

// GetImportedTransactions returns every secondary-feed record for a user in import order.
func (s *SQLiteStorage) GetImportedTransactions(ctx context.Context, userID string) ([]model.ImportedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, transaction_date, transaction_amount, transaction_description,
			extended_description, merchant_name, category, balance
		FROM imported_transactions
		WHERE user_id = ?
		ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query imported records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ImportedTransaction
	for rows.Next() {
		var rec model.ImportedTransaction
		var id int64
		var amount, balance string
		if err := rows.Scan(&id, &rec.AccountID, &rec.TransactionDate, &amount, &rec.TransactionDescription,
			&rec.ExtendedDescription, &rec.MerchantName, &rec.Category, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan imported record: %w", err)
		}
		if rec.TransactionAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("imported record %d has invalid amount %q: %w", id, amount, err)
		}
		if rec.Balance, err = decimal.NewFromString(balance); err != nil {
			rec.Balance = decimal.Zero
		}
		rec.ID = &id
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating imported records: %w", err)
	}
	return records, nil
}

// UpdateImportedCategories sets the category of the user's imported records, keyed by row id.
func (s *SQLiteStorage) UpdateImportedCategories(ctx context.Context, userID string, categories map[int64]string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE imported_transactions SET category = ? WHERE id = ? AND user_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for id, category := range categories {
		result, err := stmt.ExecContext(ctx, category, id, userID)
		if err != nil {
			return fmt.Errorf("failed to update imported record %d: %w", id, err)
		}
		if err := requireAffected(result, "imported record", id); err != nil {
			return err
		}
	}

	return tx.Commit()
}
