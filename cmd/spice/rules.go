package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/engine"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage category rules",
		Long: `Category rules assign a category to every transaction whose fields match.

Each condition that is set must hold: description, merchant and extended description
match by case-insensitive substring, and --min/--max bound the amount inclusively.
Lower priority values are evaluated first.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesEditCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesToggleCmd())
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

// addRuleFlags registers the condition flags shared by add and edit.
func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("category", "c", "", "category to assign")
	cmd.Flags().String("description", "", "description must contain this text")
	cmd.Flags().String("merchant", "", "merchant name must contain this text")
	cmd.Flags().String("extended", "", "extended description must contain this text")
	cmd.Flags().String("min", "", "minimum amount (inclusive)")
	cmd.Flags().String("max", "", "maximum amount (inclusive)")
	cmd.Flags().Int("priority", 0, "evaluation priority, lower first (default: derived from the conditions)")
}

// applyRuleFlags copies every flag the user set onto rule.
func applyRuleFlags(cmd *cobra.Command, rule *model.CategoryRule) error {
	flags := cmd.Flags()
	strFlags := map[string]*string{
		"category":    &rule.Category,
		"description": &rule.DescriptionContains,
		"merchant":    &rule.MerchantContains,
		"extended":    &rule.ExtendedDescriptionContains,
	}
	for name, field := range strFlags {
		if flags.Changed(name) {
			value, _ := flags.GetString(name)
			*field = strings.TrimSpace(value)
		}
	}

	if flags.Changed("min") {
		amount, err := optionalMoney(cmd, "min")
		if err != nil {
			return err
		}
		rule.AmountMin = amount
	}
	if flags.Changed("max") {
		amount, err := optionalMoney(cmd, "max")
		if err != nil {
			return err
		}
		rule.AmountMax = amount
	}
	if flags.Changed("priority") {
		rule.Priority, _ = flags.GetInt("priority")
	}
	return nil
}

// runRuleCommand applies a rule mutation and reloads the user's rules.
// When the reload fails the mutation is reverted so the store never drifts from what was shown.
func runRuleCommand(ctx context.Context, store pattern.RuleStore, userID string, command pattern.Command) ([]model.CategoryRule, error) {
	journal := pattern.NewJournal(store)
	if err := journal.Execute(ctx, command); err != nil {
		return nil, err
	}

	rules, err := store.ListRules(ctx, userID, false)
	if err != nil {
		if _, undoErr := journal.Undo(ctx); undoErr != nil {
			return nil, fmt.Errorf("failed to refresh rules: %w (revert also failed: %w)", err, undoErr)
		}
		return nil, fmt.Errorf("failed to refresh rules, %s reverted: %w", command.Describe(), err)
	}
	return rules, nil
}

func parseRuleID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid rule ID %q", raw), err)
	}
	return id, nil
}

func formatRuleConditions(rule model.CategoryRule) string {
	var parts []string
	if rule.DescriptionContains != "" {
		parts = append(parts, fmt.Sprintf("description~%q", rule.DescriptionContains))
	}
	if rule.MerchantContains != "" {
		parts = append(parts, fmt.Sprintf("merchant~%q", rule.MerchantContains))
	}
	if rule.ExtendedDescriptionContains != "" {
		parts = append(parts, fmt.Sprintf("extended~%q", rule.ExtendedDescriptionContains))
	}
	switch {
	case rule.AmountMin != nil && rule.AmountMax != nil:
		parts = append(parts, fmt.Sprintf("%s-%s", cli.FormatMoney(*rule.AmountMin), cli.FormatMoney(*rule.AmountMax)))
	case rule.AmountMin != nil:
		parts = append(parts, ">= "+cli.FormatMoney(*rule.AmountMin))
	case rule.AmountMax != nil:
		parts = append(parts, "<= "+cli.FormatMoney(*rule.AmountMax))
	}
	return strings.Join(parts, " ")
}

func renderRules(rules []model.CategoryRule) string {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		active := cli.SuccessIcon
		if !r.IsActive {
			active = cli.ErrorIcon
		}
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			strconv.Itoa(r.Priority),
			r.Category,
			formatRuleConditions(r),
			strconv.Itoa(r.MatchCount),
			active,
		})
	}
	return cli.RenderTable([]string{"ID", "Priority", "Category", "Conditions", "Matches", "Active"}, rows)
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			activeOnly, _ := cmd.Flags().GetBool("active")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			rules, err := store.ListRules(ctx, currentUser(), activeOnly)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			if len(rules) == 0 {
				printLine(cmd, cli.FormatInfo("No rules yet. Create one with 'spice rules add'."))
				return nil
			}

			printLine(cmd, cli.FormatTitle("Category Rules"))
			printLine(cmd, renderRules(rules))
			return nil
		},
	}

	cmd.Flags().Bool("active", false, "only show active rules")

	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a rule",
		Long: `Create a rule.

Examples:
  spice rules add --category Groceries --merchant winco
  spice rules add -c Rent --description "zelle to landlord" --min 1400 --max 1600`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rule := &model.CategoryRule{UserID: currentUser(), IsActive: true}
			if err := applyRuleFlags(cmd, rule); err != nil {
				return err
			}
			command, err := pattern.NewCreateRuleCommand(rule)
			if err != nil {
				return common.NewUserError("invalid rule", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			rules, err := runRuleCommand(ctx, store, currentUser(), command)
			if err != nil {
				return err
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Rule %d created (priority %d)", rule.ID, rule.Priority)))
			printLine(cmd, renderRules(rules))
			return nil
		},
	}

	addRuleFlags(cmd)
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func rulesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <rule-id>",
		Short: "Change a rule's category or conditions",
		Long: `Change a rule's category or conditions. Only the flags given are changed;
pass an empty value (--merchant "") to clear a text condition.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			current, err := store.GetRule(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			updated := current.Clone()
			if err := applyRuleFlags(cmd, &updated); err != nil {
				return err
			}
			command, err := pattern.NewUpdateRuleCommand(&updated)
			if err != nil {
				return common.NewUserError("invalid rule", err)
			}

			rules, err := runRuleCommand(ctx, store, currentUser(), command)
			if err != nil {
				return err
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Rule %d updated", id)))
			printLine(cmd, renderRules(rules))
			return nil
		},
	}

	addRuleFlags(cmd)

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			rule, err := store.GetRule(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			if !force {
				printLine(cmd, renderRules([]model.CategoryRule{*rule}))
				prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				ok, err := prompter.Confirm(ctx, fmt.Sprintf("Delete rule %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					printLine(cmd, "Operation canceled.")
					return nil
				}
			}

			if _, err := runRuleCommand(ctx, store, currentUser(), pattern.NewDeleteRuleCommand(id)); err != nil {
				return err
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Rule %d deleted", id)))
			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")

	return cmd
}

func rulesToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <rule-id>",
		Short: "Activate or deactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			rule, err := store.GetRule(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			command := pattern.NewToggleRuleCommand(id, !rule.IsActive)
			if _, err := runRuleCommand(ctx, store, currentUser(), command); err != nil {
				return err
			}

			state := "deactivated"
			if command.Active {
				state = "activated"
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Rule %d %s", id, state)))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <rule-id>",
		Short: "Show which transactions a rule matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			window, err := windowFromFlags(cmd, timeNow())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			rule, err := store.GetRule(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			txns, _, err := engine.New(store).MergedTransactions(ctx, currentUser(), &window)
			if err != nil {
				return err
			}

			matches := matchingTransactions(*rule, txns)
			printLine(cmd, cli.FormatTitle(fmt.Sprintf("Rule %d → %s", rule.ID, rule.Category)))
			if len(matches) == 0 {
				printLine(cmd, cli.FormatInfo("No transactions in "+window.String()+" match this rule."))
				return nil
			}
			printLine(cmd, renderTransactions(matches))
			printLine(cmd, cli.FormatInfo(fmt.Sprintf("%d of %d transactions match", len(matches), len(txns))))
			return nil
		},
	}

	addWindowFlags(cmd)

	return cmd
}

func matchingTransactions(rule model.CategoryRule, txns []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for _, txn := range txns {
		if pattern.Matches(rule, txn) {
			out = append(out, txn)
		}
	}
	return out
}

func renderTransactions(txns []model.Transaction) string {
	rows := make([][]string, 0, len(txns))
	for i := range txns {
		txn := &txns[i]
		date := "pending"
		if d, ok := txn.EffectiveDate(); ok {
			date = d.Format(model.DateLayout)
		}
		rows = append(rows, []string{
			date,
			txn.ID,
			txn.Counterparty(),
			cli.FormatMoney(txn.Amount),
			txn.PrimaryCategory(),
			string(txn.Source),
		})
	}
	return cli.RenderTable([]string{"Date", "ID", "Counterparty", "Amount", "Category", "Source"}, rows)
}
