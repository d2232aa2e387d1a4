package main

import (
	"testing"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recategorizeFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := recategorizeCmd()
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestRuleFromTransaction(t *testing.T) {
	withUser(t, "u1")
	txn := model.Transaction{
		ID:           "t1",
		MerchantName: "WinCo",
		Description:  "WINCO FOODS #42",
		Amount:       decimal.RequireFromString("52.10"),
	}

	rule, err := ruleFromTransaction(recategorizeFlags(t), txn, "Groceries")
	require.NoError(t, err)
	assert.Nil(t, rule, "no flags means no rule")

	rule, err = ruleFromTransaction(recategorizeFlags(t, "--match-merchant", "--max", "300"), txn, "Groceries")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "u1", rule.UserID)
	assert.Equal(t, "Groceries", rule.Category)
	assert.Equal(t, "WinCo", rule.MerchantContains)
	assert.Empty(t, rule.DescriptionContains)
	assert.Nil(t, rule.AmountMin)
	require.NotNil(t, rule.AmountMax)
	assert.True(t, decimal.NewFromInt(300).Equal(*rule.AmountMax))

	rule, err = ruleFromTransaction(recategorizeFlags(t, "--match-description"), txn, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, "WINCO FOODS #42", rule.DescriptionContains)
}

func TestRuleFromTransaction_NoMerchant(t *testing.T) {
	txn := model.Transaction{ID: "t1", Description: "CHECK 1042"}
	_, err := ruleFromTransaction(recategorizeFlags(t, "--match-merchant"), txn, "Rent")
	assert.Error(t, err)
}
