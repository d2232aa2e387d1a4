package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Veraticus/spice-budget/internal/budget"
	"github.com/Veraticus/spice-budget/internal/charts"
	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/config"
	"github.com/Veraticus/spice-budget/internal/engine"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set budgets and compare them with actual spending",
	}

	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(budgetDeleteCmd())
	cmd.AddCommand(budgetShowCmd())
	cmd.AddCommand(budgetTopCmd())

	return cmd
}

func budgetSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Set the monthly budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, err := parseMoney(args[1])
			if err != nil {
				return err
			}
			if amount.IsNegative() {
				return common.NewUserError("budget amount cannot be negative", nil)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if err := store.SetBudget(ctx, currentUser(), args[0], amount); err != nil {
				return fmt.Errorf("failed to set budget: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("%s budget set to %s", args[0], cli.FormatMoney(amount))))
			return nil
		},
	}
}

func budgetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category>",
		Short: "Remove a category's budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if err := store.DeleteBudget(ctx, currentUser(), args[0]); err != nil {
				return fmt.Errorf("failed to delete budget: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("%s budget removed", args[0])))
			return nil
		},
	}
}

func budgetShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show budgeted versus actual spending per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			window, err := windowFromFlags(cmd, timeNow())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			summary, err := engine.New(store).Summary(ctx, currentUser(), window)
			if err != nil {
				return err
			}

			printLine(cmd, cli.FormatTitle("Budget "+window.String()))
			printLine(cmd, renderSummary(summary))
			return nil
		},
	}

	addWindowFlags(cmd)

	return cmd
}

func renderSummary(summary *budget.Summary) string {
	rows := make([][]string, 0, len(summary.Categories)+1)
	for _, c := range summary.Categories {
		rows = append(rows, []string{
			c.Name,
			string(c.Kind),
			cli.FormatMoney(c.Budgeted),
			cli.FormatMoney(c.Actual),
			cli.FormatRemaining(c.Remaining),
			fmt.Sprintf("%.1f%%", c.PercentUsed),
			strconv.Itoa(c.Count),
		})
	}
	rows = append(rows, []string{
		"Total", "",
		cli.FormatMoney(summary.TotalBudgeted),
		cli.FormatMoney(summary.TotalActual),
		cli.FormatRemaining(summary.TotalRemaining),
		"", strconv.Itoa(summary.Transactions),
	})

	table := cli.RenderTable([]string{"Category", "Kind", "Budgeted", "Actual", "Remaining", "% Used", "Count"}, rows)
	totals := fmt.Sprintf("Income %s · Expenses %s", cli.FormatMoney(summary.Income), cli.FormatMoney(summary.Expenses))
	return table + "\n" + cli.SubtleStyle.Render(totals)
}

func budgetTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank the categories you spent the most on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			chartPath, _ := cmd.Flags().GetString("chart")
			window, err := windowFromFlags(cmd, timeNow())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			summary, err := engine.New(store).Summary(ctx, currentUser(), window)
			if err != nil {
				return err
			}

			top := budget.TopSpending(summary.Categories, limit)
			if len(top) == 0 {
				printLine(cmd, cli.FormatInfo("No spending in "+window.String()))
				return nil
			}

			rows := make([][]string, 0, len(top))
			for i, c := range top {
				rows = append(rows, []string{strconv.Itoa(i + 1), c.Name, cli.FormatMoney(c.Actual)})
			}
			printLine(cmd, cli.FormatTitle("Top spending "+window.String()))
			printLine(cmd, cli.RenderTable([]string{"#", "Category", "Spent"}, rows))

			if chartPath == "" {
				return nil
			}
			path := config.ExpandPath(chartPath)
			f, err := os.Create(path) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to create chart file: %w", err)
			}
			defer func() { _ = f.Close() }()
			if err := charts.RenderTopSpending(f, top); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(cli.ChartIcon+" Chart written to "+path))
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 5, "number of categories to show")
	cmd.Flags().String("chart", "", "also write a PNG bar chart to this path")
	addWindowFlags(cmd)

	return cmd
}
