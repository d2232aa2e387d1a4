package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/engine"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	"github.com/Veraticus/spice-budget/internal/tui"
	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Apply category rules to uncategorized transactions",
		Long: `Apply your active rules to every uncategorized transaction in the window.

Primary-feed transactions keep the category they are given and each firing rule's
match count goes up. Imported records are categorized for reporting only.
With --interactive, transactions no rule matched are shown one at a time.
Add --tui to pick from a list with the arrow keys instead of typing numbers.`,
		Args: cobra.NoArgs,
		RunE: runCategorize,
	}

	cmd.Flags().Bool("dry-run", false, "show what would change without saving")
	cmd.Flags().BoolP("interactive", "i", false, "review unmatched transactions by hand afterwards")
	cmd.Flags().Bool("tui", false, "use the full-screen picker for --interactive")
	addWindowFlags(cmd)

	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	interactive, _ := cmd.Flags().GetBool("interactive")
	useTUI, _ := cmd.Flags().GetBool("tui")
	window, err := windowFromFlags(cmd, timeNow())
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Categorization")
	defer handler.Stop()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	eng := engine.New(store)
	result, err := eng.Categorize(ctx, currentUser(), &window, dryRun)
	if err != nil {
		return err
	}

	printLine(cmd, cli.FormatTitle("Categorization "+window.String()))
	if len(result.Assignments) > 0 {
		rows := make([][]string, 0, len(result.Assignments))
		for _, a := range result.Assignments {
			rows = append(rows, []string{a.TransactionID, a.Category, fmt.Sprintf("%d", a.RuleID)})
		}
		printLine(cmd, cli.RenderTable([]string{"Transaction", "Category", "Rule"}, rows))
	}

	verb := "Categorized"
	if dryRun {
		verb = "Would categorize"
	}
	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("%s %d transactions; %d unmatched, %d already categorized",
		verb, len(result.Assignments), result.Unmatched, result.Skipped)))

	if !interactive || dryRun || result.Unmatched == 0 {
		return nil
	}

	var prompter engine.Prompter = cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if useTUI {
		known, err := store.KnownCategories(ctx, currentUser())
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
		prompter = tui.New(known, tui.WithAltScreen())
	}

	saved, err := eng.Review(ctx, currentUser(), &window, prompter)
	if handler.WasInterrupted() || errors.Is(err, cli.ErrInputTerminated) || errors.Is(err, tui.ErrQuit) {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("Saved %d categories before stopping", saved)))
		return nil
	}
	if err != nil {
		return err
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Saved %d categories by hand", saved)))
	return nil
}

func recategorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recategorize <transaction-id> <category>",
		Short: "Change a transaction's category, optionally creating a rule",
		Long: `Change a transaction's category.

With any of --match-merchant, --match-description, --min or --max, a rule built from
the transaction is created as well, so future transactions like it get the same category.

Examples:
  spice recategorize txn_123 Groceries
  spice recategorize txn_123 Groceries --match-merchant --max 300`,
		Args: cobra.ExactArgs(2),
		RunE: runRecategorize,
	}

	cmd.Flags().Bool("match-merchant", false, "create a rule matching this merchant")
	cmd.Flags().Bool("match-description", false, "create a rule matching this description")
	cmd.Flags().String("min", "", "rule minimum amount (inclusive)")
	cmd.Flags().String("max", "", "rule maximum amount (inclusive)")

	return cmd
}

func runRecategorize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	txnID := args[0]
	category := strings.TrimSpace(args[1])
	if category == "" {
		return common.NewUserError("category cannot be empty", nil)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	txn, err := store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return fmt.Errorf("failed to get transaction: %w", err)
	}

	known, err := store.KnownCategories(ctx, currentUser())
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if suggestion, ok := pattern.SuggestCategory(category, known); ok {
		if strings.EqualFold(suggestion, category) {
			category = suggestion
		} else {
			printLine(cmd, cli.FormatWarning(fmt.Sprintf("Using new category %q (did you mean %q?)", category, suggestion)))
		}
	}

	rule, err := ruleFromTransaction(cmd, *txn, category)
	if err != nil {
		return err
	}

	updated := *txn
	if rule == nil {
		updated.SetCategory(category)
	} else {
		updated, err = pattern.Recategorize(ctx, store, *txn, rule)
		if err != nil {
			return common.NewUserError("could not create rule", err)
		}
		printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Rule %d created: %s", rule.ID, formatRuleConditions(*rule))))
	}

	if err := store.UpdateTransactionCategories(ctx, []model.Transaction{updated}); err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("%s → %s", txn.Counterparty(), category)))
	return nil
}

// ruleFromTransaction builds the rule requested by the recategorize flags, or nil when none was.
func ruleFromTransaction(cmd *cobra.Command, txn model.Transaction, category string) (*model.CategoryRule, error) {
	matchMerchant, _ := cmd.Flags().GetBool("match-merchant")
	matchDescription, _ := cmd.Flags().GetBool("match-description")

	minAmount, err := optionalMoney(cmd, "min")
	if err != nil {
		return nil, err
	}
	maxAmount, err := optionalMoney(cmd, "max")
	if err != nil {
		return nil, err
	}

	if !matchMerchant && !matchDescription && minAmount == nil && maxAmount == nil {
		return nil, nil
	}

	rule := &model.CategoryRule{
		UserID:    currentUser(),
		Category:  category,
		AmountMin: minAmount,
		AmountMax: maxAmount,
	}
	if matchMerchant {
		if strings.TrimSpace(txn.MerchantName) == "" {
			return nil, common.NewUserError("transaction has no merchant name to match", nil)
		}
		rule.MerchantContains = txn.MerchantName
	}
	if matchDescription {
		rule.DescriptionContains = txn.Description
	}
	return rule, nil
}
