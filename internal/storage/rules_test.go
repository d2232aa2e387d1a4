package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRule(userID, category, merchant string, priority int) *model.CategoryRule {
	return &model.CategoryRule{
		UserID:           userID,
		Category:         category,
		MerchantContains: merchant,
		Priority:         priority,
		IsActive:         true,
	}
}

func TestRules_CRUD(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rule := newRule("u1", "Groceries", "WinCo", 6)
	rule.AmountMin = decPtr("10.00")
	rule.AmountMax = decPtr("250.50")
	require.NoError(t, store.CreateRule(ctx, rule))
	require.NotZero(t, rule.ID)

	got, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Category)
	assert.Equal(t, "WinCo", got.MerchantContains)
	require.NotNil(t, got.AmountMin)
	require.NotNil(t, got.AmountMax)
	assert.True(t, got.AmountMin.Equal(*rule.AmountMin))
	assert.True(t, got.AmountMax.Equal(*rule.AmountMax))
	assert.True(t, got.IsActive)
	assert.False(t, got.CreatedAt.IsZero())

	got.Category = "Food"
	got.AmountMin = nil
	require.NoError(t, store.UpdateRule(ctx, got))

	updated, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", updated.Category)
	assert.Nil(t, updated.AmountMin)

	require.NoError(t, store.DeleteRule(ctx, rule.ID))
	_, err = store.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, store.DeleteRule(ctx, rule.ID), common.ErrNotFound)
}

func TestRules_ListOrderAndFilter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rules := []*model.CategoryRule{
		newRule("u1", "Shopping", "Amazon", 6),
		newRule("u1", "Books", "Amazon", 4),
		newRule("u1", "Fuel", "Shell", 6),
		newRule("u2", "Other", "Amazon", 1),
	}
	for _, r := range rules {
		require.NoError(t, store.CreateRule(ctx, r))
	}
	require.NoError(t, store.SetRuleActive(ctx, rules[2].ID, false))

	all, err := store.ListRules(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{rules[1].ID, rules[0].ID, rules[2].ID}, []int{all[0].ID, all[1].ID, all[2].ID})

	active, err := store.ListRules(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = store.ListRules(ctx, "", true)
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestRules_IncrementMatchCount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rule := newRule("u1", "Groceries", "WinCo", 6)
	require.NoError(t, store.CreateRule(ctx, rule))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementRuleMatchCount(ctx, rule.ID))
	}
	got, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MatchCount)

	// Updating the definition keeps the counter.
	got.Category = "Food"
	require.NoError(t, store.UpdateRule(ctx, got))
	got, err = store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MatchCount)

	assert.ErrorIs(t, store.IncrementRuleMatchCount(ctx, 999), common.ErrNotFound)
}

func TestRules_RestoreKeepsIDAndCounters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rule := newRule("u1", "Groceries", "WinCo", 6)
	require.NoError(t, store.CreateRule(ctx, rule))
	require.NoError(t, store.IncrementRuleMatchCount(ctx, rule.ID))

	snapshot, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	require.NoError(t, store.DeleteRule(ctx, rule.ID))
	require.NoError(t, store.RestoreRule(ctx, snapshot))

	restored, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.MatchCount)
	assert.Equal(t, "Groceries", restored.Category)

	next := newRule("u1", "Fuel", "Shell", 6)
	require.NoError(t, store.CreateRule(ctx, next))
	assert.Greater(t, next.ID, rule.ID)
}

func TestRules_JournalAgainstSQLite(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	journal := pattern.NewJournal(store)
	create, err := pattern.NewCreateRuleCommand(&model.CategoryRule{
		UserID: "u1", Category: "Groceries", MerchantContains: "WinCo", IsActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, journal.Execute(ctx, create))
	require.NoError(t, journal.Execute(ctx, pattern.NewToggleRuleCommand(create.Rule.ID, false)))

	got, err := store.GetRule(ctx, create.Rule.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = journal.Undo(ctx)
	require.NoError(t, err)
	_, err = journal.Undo(ctx)
	require.NoError(t, err)

	rules, err := store.ListRules(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
