package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				secondary_sync_enabled INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_accounts_user ON accounts(user_id)`,

			`CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				account_id TEXT NOT NULL DEFAULT '',
				amount TEXT NOT NULL,
				posted_date TEXT,
				authorized_date TEXT,
				merchant_name TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				extended_description TEXT NOT NULL DEFAULT '',
				logo_url TEXT NOT NULL DEFAULT '',
				categories TEXT NOT NULL DEFAULT '[]',
				source TEXT NOT NULL DEFAULT 'primary',
				pending INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_transactions_user_date ON transactions(user_id, posted_date)`,
			`CREATE INDEX idx_transactions_merchant ON transactions(merchant_name)`,
		),
	},
	{
		Version:     2,
		Description: "Add category rules",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS category_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				category TEXT NOT NULL,
				description_contains TEXT NOT NULL DEFAULT '',
				merchant_contains TEXT NOT NULL DEFAULT '',
				extended_description_contains TEXT NOT NULL DEFAULT '',
				amount_min TEXT,
				amount_max TEXT,
				priority INTEGER NOT NULL DEFAULT 6,
				is_active INTEGER NOT NULL DEFAULT 1,
				match_count INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_category_rules_user_active ON category_rules(user_id, is_active, priority)`,
		),
	},
	{
		Version:     3,
		Description: "Add imported transactions from the secondary feed",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS imported_transactions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				account_id TEXT NOT NULL DEFAULT '',
				transaction_date TEXT NOT NULL DEFAULT '',
				transaction_amount TEXT NOT NULL,
				transaction_description TEXT NOT NULL DEFAULT '',
				extended_description TEXT NOT NULL DEFAULT '',
				merchant_name TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				balance TEXT NOT NULL DEFAULT '0',
				imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(user_id, account_id, transaction_date, transaction_amount, transaction_description, balance)
			)`,
			`CREATE INDEX idx_imported_transactions_user ON imported_transactions(user_id, account_id)`,
		),
	},
	{
		Version:     4,
		Description: "Add budgets",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS budgets (
				user_id TEXT NOT NULL,
				category TEXT NOT NULL,
				amount TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, category)
			)`,
		),
	},
}

// execAll returns a migration step that runs each query in order.
func execAll(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
		}
		return nil
	}
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
