package main

import (
	"fmt"

	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage financial accounts",
	}

	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsSyncCmd())

	return cmd
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add or rename an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sync, _ := cmd.Flags().GetBool("secondary-sync")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			account := &model.Account{ID: args[0], UserID: currentUser(), Name: args[1], SecondarySyncEnabled: sync}
			if err := store.SaveAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Account %s saved", account.ID)))
			return nil
		},
	}

	cmd.Flags().Bool("secondary-sync", false, "drop imported rows on days the primary feed already covers")

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			accounts, err := store.ListAccounts(ctx, currentUser())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			if len(accounts) == 0 {
				printLine(cmd, cli.FormatInfo("No accounts yet. Add one with 'spice accounts add' or 'spice import plaid'."))
				return nil
			}

			rows := make([][]string, 0, len(accounts))
			for _, a := range accounts {
				sync := "off"
				if a.SecondarySyncEnabled {
					sync = "on"
				}
				rows = append(rows, []string{a.ID, a.Name, sync})
			}
			printLine(cmd, cli.FormatTitle("Accounts"))
			printLine(cmd, cli.RenderTable([]string{"ID", "Name", "Secondary Sync"}, rows))
			return nil
		},
	}
}

func accountsSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sync <id> on|off",
		Short:     "Toggle secondary sync for an account",
		Long:      `With secondary sync on, imported rows dated on a day the primary feed already covers are dropped when feeds are merged.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var enabled bool
			switch args[1] {
			case "on":
				enabled = true
			case "off":
			default:
				return common.NewUserError(fmt.Sprintf("expected on or off, got %q", args[1]), nil)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if err := store.SetSecondarySync(ctx, args[0], enabled); err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Secondary sync %s for %s", args[1], args[0])))
			return nil
		},
	}
}
