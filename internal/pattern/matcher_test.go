package pattern

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		txn  model.Transaction
		want bool
	}{
		{
			name: "merchant substring",
			rule: Rule{MerchantContains: "WinCo", IsActive: true},
			txn:  model.Transaction{MerchantName: "WinCo Foods #412"},
			want: true,
		},
		{
			name: "merchant mismatch",
			rule: Rule{MerchantContains: "WinCo", IsActive: true},
			txn:  model.Transaction{MerchantName: "Costco"},
			want: false,
		},
		{
			name: "case insensitive",
			rule: Rule{MerchantContains: "winco", IsActive: true},
			txn:  model.Transaction{MerchantName: "WINCO FOODS"},
			want: true,
		},
		{
			name: "empty merchant never matches",
			rule: Rule{MerchantContains: "WinCo", IsActive: true},
			txn:  model.Transaction{Description: "WinCo Foods"},
			want: false,
		},
		{
			name: "description condition",
			rule: Rule{DescriptionContains: "payroll", IsActive: true},
			txn:  model.Transaction{Description: "ACME PAYROLL DEP"},
			want: true,
		},
		{
			name: "extended description condition",
			rule: Rule{ExtendedDescriptionContains: "recurring", IsActive: true},
			txn:  model.Transaction{ExtendedDescription: "Recurring card payment"},
			want: true,
		},
		{
			name: "all conditions must hold",
			rule: Rule{MerchantContains: "Shell", DescriptionContains: "fuel", IsActive: true},
			txn:  model.Transaction{MerchantName: "Shell", Description: "car wash"},
			want: false,
		},
		{
			name: "amount inside inclusive bounds",
			rule: Rule{MerchantContains: "Amazon", AmountMin: decPtr("10"), AmountMax: decPtr("50"), IsActive: true},
			txn:  model.Transaction{MerchantName: "Amazon", Amount: decimal.RequireFromString("50.00")},
			want: true,
		},
		{
			name: "amount on lower bound",
			rule: Rule{AmountMin: decPtr("10"), IsActive: true},
			txn:  model.Transaction{Amount: decimal.RequireFromString("10")},
			want: true,
		},
		{
			name: "amount above max",
			rule: Rule{MerchantContains: "Amazon", AmountMax: decPtr("50"), IsActive: true},
			txn:  model.Transaction{MerchantName: "Amazon", Amount: decimal.RequireFromString("50.01")},
			want: false,
		},
		{
			name: "amount below min",
			rule: Rule{AmountMin: decPtr("100"), IsActive: true},
			txn:  model.Transaction{Amount: decimal.RequireFromString("99.99")},
			want: false,
		},
		{
			name: "inactive rule",
			rule: Rule{MerchantContains: "WinCo", IsActive: false},
			txn:  model.Transaction{MerchantName: "WinCo"},
			want: false,
		},
		{
			name: "no conditions",
			rule: Rule{Category: "Groceries", IsActive: true},
			txn:  model.Transaction{MerchantName: "WinCo"},
			want: false,
		},
		{
			name: "whitespace-only condition counts as unset",
			rule: Rule{MerchantContains: "   ", IsActive: true},
			txn:  model.Transaction{MerchantName: "WinCo"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.rule, tt.txn))
		})
	}
}

func TestMatcher_Best(t *testing.T) {
	ctx := context.Background()
	txn := model.Transaction{
		MerchantName: "WinCo Foods",
		Description:  "WINCO FOODS #412 BOISE",
		Amount:       decimal.RequireFromString("42.00"),
	}

	tests := []struct {
		name     string
		rules    []Rule
		want     string
		wantRule int
		wantOK   bool
	}{
		{
			name: "lower priority value wins",
			rules: []Rule{
				{ID: 1, MerchantContains: "WinCo", Category: "Shopping", Priority: 6, IsActive: true},
				{ID: 2, MerchantContains: "WinCo", DescriptionContains: "Boise", AmountMin: decPtr("1"), AmountMax: decPtr("100"), Category: "Groceries", Priority: 1, IsActive: true},
			},
			want:     "Groceries",
			wantRule: 2,
			wantOK:   true,
		},
		{
			name: "equal priority falls back to lowest id",
			rules: []Rule{
				{ID: 9, MerchantContains: "WinCo", Category: "Later", Priority: 6, IsActive: true},
				{ID: 3, MerchantContains: "WinCo", Category: "Earlier", Priority: 6, IsActive: true},
			},
			want:     "Earlier",
			wantRule: 3,
			wantOK:   true,
		},
		{
			name: "persisted rule beats unsaved rule",
			rules: []Rule{
				{ID: 0, MerchantContains: "WinCo", Category: "Draft", Priority: 6, IsActive: true},
				{ID: 12, MerchantContains: "WinCo", Category: "Saved", Priority: 6, IsActive: true},
			},
			want:     "Saved",
			wantRule: 12,
			wantOK:   true,
		},
		{
			name: "unset priority is derived from conditions",
			rules: []Rule{
				{ID: 1, MerchantContains: "WinCo", Category: "Generic", Priority: 6, IsActive: true},
				{ID: 2, MerchantContains: "WinCo", AmountMin: decPtr("40"), AmountMax: decPtr("45"), Category: "Specific", IsActive: true},
			},
			want:     "Specific",
			wantRule: 2,
			wantOK:   true,
		},
		{
			name: "inactive rules are skipped",
			rules: []Rule{
				{ID: 1, MerchantContains: "WinCo", Category: "Groceries", Priority: 1, IsActive: false},
				{ID: 2, MerchantContains: "WinCo", Category: "Shopping", Priority: 6, IsActive: true},
			},
			want:     "Shopping",
			wantRule: 2,
			wantOK:   true,
		},
		{
			name: "no match",
			rules: []Rule{
				{ID: 1, MerchantContains: "Costco", Category: "Groceries", IsActive: true},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.rules)
			rule, ok := m.Best(ctx, txn)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, rule.Category)
				assert.Equal(t, tt.wantRule, rule.ID)
			}
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	ctx := context.Background()
	rules := []Rule{
		{ID: 1, MerchantContains: "Amazon", Category: "Shopping", Priority: 6, IsActive: true},
		{ID: 2, MerchantContains: "Amazon", AmountMax: decPtr("15"), Category: "Books", Priority: 4, IsActive: true},
		{ID: 3, MerchantContains: "Target", Category: "Shopping", Priority: 6, IsActive: true},
	}
	m := NewMatcher(rules)

	got := m.Match(ctx, model.Transaction{MerchantName: "Amazon.com", Amount: decimal.RequireFromString("12.99")})
	ids := make([]int, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 1}, ids)

	assert.Empty(t, m.Match(ctx, model.Transaction{MerchantName: "Walmart"}))
	assert.Len(t, m.Rules(), 3)
}

func TestNewMatcher_DoesNotReorderInput(t *testing.T) {
	rules := []Rule{
		{ID: 2, MerchantContains: "b", Priority: 6, IsActive: true},
		{ID: 1, MerchantContains: "a", Priority: 6, IsActive: true},
	}
	NewMatcher(rules)
	assert.Equal(t, 2, rules[0].ID)
}
