package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/config"
	"github.com/Veraticus/spice-budget/internal/importer"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/ofx"
	"github.com/Veraticus/spice-budget/internal/plaid"
	"github.com/Veraticus/spice-budget/internal/service"
	"github.com/spf13/cobra"
)

// saveBatchSize bounds each SaveTransactions call so progress can be reported.
const saveBatchSize = 100

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from Plaid or bank files",
	}

	cmd.AddCommand(importPlaidCmd())
	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())

	return cmd
}

func importPlaidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Fetch accounts and transactions from Plaid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				return common.NewUserError("--days must be positive", nil)
			}

			plaidConfig, err := config.LoadPlaidConfig()
			if err != nil {
				return common.NewUserError("Plaid is not configured; set plaid.client_id, plaid.secret and plaid.access_token", err)
			}
			client, err := plaid.NewClient(*plaidConfig)
			if err != nil {
				return fmt.Errorf("failed to create Plaid client: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			end := time.Now()
			start := end.AddDate(0, 0, -days)
			saved, err := importFromFetcher(ctx, cmd, store, client, start, end)
			if err != nil {
				return err
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions from Plaid", saved)))
			return nil
		},
	}

	cmd.Flags().Int("days", 30, "number of days of history to fetch")

	return cmd
}

// importFromFetcher stores the fetcher's accounts for the current user, then its transactions.
func importFromFetcher(ctx context.Context, cmd *cobra.Command, store service.Storage, fetcher plaid.TransactionFetcher, start, end time.Time) (int, error) {
	userID := currentUser()

	accounts, err := fetcher.GetAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for i := range accounts {
		accounts[i].UserID = userID
		if err := store.SaveAccount(ctx, &accounts[i]); err != nil {
			return 0, fmt.Errorf("failed to save account %s: %w", accounts[i].ID, err)
		}
	}

	txns, err := fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if err := saveWithProgress(ctx, cmd, store, userID, txns); err != nil {
		return 0, err
	}
	return len(txns), nil
}

func saveWithProgress(ctx context.Context, cmd *cobra.Command, store service.Storage, userID string, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	progress := cli.NewProgress(cmd.ErrOrStderr(), len(txns), "Saving transactions")
	for i := 0; i < len(txns); i += saveBatchSize {
		batch := txns[i:min(i+saveBatchSize, len(txns))]
		if err := store.SaveTransactions(ctx, userID, batch); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		progress.Add(len(batch))
	}
	progress.Finish()
	return nil
}

func importCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import a CSV export as secondary records for an account",
		Long: `Import a CSV export as secondary records for an account.

The header row must name at least a date and an amount column. Description, memo,
merchant, category, balance and id columns are picked up when present.

Examples:
  spice import csv ~/Downloads/checking.csv --account chk
  spice import csv card.csv --account visa --invert-sign`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCSV,
	}

	cmd.Flags().String("account", "", "account the records belong to (required)")
	cmd.Flags().Bool("invert-sign", false, "negate amounts for files that export expenses as negative")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	accountID, _ := cmd.Flags().GetString("account")
	invert, _ := cmd.Flags().GetBool("invert-sign")

	f, err := os.Open(config.ExpandPath(args[0])) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := importer.NewCSVParser(importer.Options{InvertSign: invert}).Parse(f, accountID)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(args[0]), err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	if err := ensureAccount(ctx, store, accountID, accountID); err != nil {
		return err
	}

	inserted, err := store.SaveImportedTransactions(ctx, currentUser(), accountID, records)
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d new records (%d already present)", inserted, len(records)-inserted)))
	return nil
}

// ensureAccount creates the account for the current user when it does not exist yet.
func ensureAccount(ctx context.Context, store service.Storage, id, name string) error {
	_, err := store.GetAccount(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up account %s: %w", id, err)
	}
	if err := store.SaveAccount(ctx, &model.Account{ID: id, UserID: currentUser(), Name: name}); err != nil {
		return fmt.Errorf("failed to create account %s: %w", id, err)
	}
	slog.Info("Created account", "id", id)
	return nil
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx <files...>",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX (Quicken) files exported from your bank.

Examples:
  spice import ofx ~/Downloads/chase_jan_2025.qfx
  spice import ofx ~/Downloads/*.qfx --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	parser := ofx.NewParser()
	var statements []ofx.Statement
	failed := 0
	for _, path := range files {
		f, err := os.Open(path) // #nosec G304
		if err != nil {
			common.LogError(err, "Failed to open file", common.Fields{"file": path})
			failed++
			continue
		}
		parsed, err := parser.ParseStatements(ctx, f)
		_ = f.Close()
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
			failed++
			continue
		}
		statements = append(statements, parsed...)
	}
	if failed == len(files) {
		return fmt.Errorf("%w: none of %d files could be read", common.ErrImportFailed, failed)
	}

	total := 0
	rows := make([][]string, 0, len(statements))
	for _, stmt := range statements {
		total += len(stmt.Transactions)
		rows = append(rows, []string{stmt.AccountID, stmt.Kind, fmt.Sprintf("%d", len(stmt.Transactions))})
	}
	if total == 0 {
		printLine(cmd, cli.FormatWarning("No transactions found"))
		return nil
	}
	printLine(cmd, cli.RenderTable([]string{"Account", "Type", "Transactions"}, rows))

	if dryRun {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions not saved", total)))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	for _, stmt := range statements {
		if err := ensureAccount(ctx, store, stmt.AccountID, stmt.AccountID+" ("+stmt.Kind+")"); err != nil {
			return err
		}
		if err := saveWithProgress(ctx, cmd, store, currentUser(), stmt.Transactions); err != nil {
			return err
		}
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions from %d files", total, len(files))))
	return nil
}

// expandFiles expands glob patterns; a pattern with no match is kept when it names an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		pattern = config.ExpandPath(pattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", nil)
	}
	return files, nil
}
