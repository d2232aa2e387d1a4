package plaid

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
		AccessToken: "test-token",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		errMsg  string
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "valid production environment", mutate: func(c *Config) { c.Environment = "production" }},
		{name: "missing client ID", mutate: func(c *Config) { c.ClientID = "" }, wantErr: true, errMsg: "plaid client ID is required"},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: true, errMsg: "plaid secret is required"},
		{name: "missing access token", mutate: func(c *Config) { c.AccessToken = "" }, wantErr: true, errMsg: "plaid access token is required"},
		{name: "missing environment", mutate: func(c *Config) { c.Environment = "" }, wantErr: true, errMsg: "plaid environment is required"},
		{name: "invalid environment", mutate: func(c *Config) { c.Environment = "development" }, wantErr: true, errMsg: "invalid Plaid environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(validConfig())
	require.NoError(t, err)
	assert.NotNil(t, client)

	cfg := validConfig()
	cfg.Secret = ""
	_, err = NewClient(cfg)
	assert.Error(t, err)
}

func TestClient_GetTransactions_Validation(t *testing.T) {
	client, err := NewClient(validConfig())
	require.NoError(t, err)

	now := time.Now()
	_, err = client.GetTransactions(context.Background(), now, now.AddDate(0, 0, -1))
	assert.ErrorContains(t, err, "start date must be before end date")
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "WinCo Foods", want: "WinCo Foods"},
		{input: "  Netflix   Inc ", want: "Netflix"},
		{input: "ACME CORP LLC", want: "ACME"},
		{input: "Shell Oil 123456789", want: "Shell Oil"},
		{input: "Store 12", want: "Store 12"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMerchantName(tt.input))
		})
	}
}

func TestIsAllDigits(t *testing.T) {
	assert.True(t, isAllDigits("123456"))
	assert.False(t, isAllDigits("12a"))
	assert.False(t, isAllDigits(""))
}

func TestMapPlaidTransaction(t *testing.T) {
	t.Run("posted", func(t *testing.T) {
		var pt plaid.Transaction
		pt.SetTransactionId("txn-1")
		pt.SetAccountId("acc-1")
		pt.SetDate("2025-01-05")
		pt.SetAuthorizedDate("2025-01-04")
		pt.SetAmount(42.0)
		pt.SetName("WINCO FOODS #412")
		pt.SetMerchantName("WinCo Foods")
		pt.SetOriginalDescription("POS PURCHASE WINCO FOODS #412 BOISE ID")
		pt.SetLogoUrl("https://example.com/winco.png")
		pt.SetCategory([]string{"Shops", "Supermarkets and Groceries"})
		pt.SetPending(false)

		txn, err := mapPlaidTransaction(pt)
		require.NoError(t, err)
		assert.Equal(t, "txn-1", txn.ID)
		assert.Equal(t, "acc-1", txn.AccountID)
		require.NotNil(t, txn.PostedDate)
		assert.Equal(t, "2025-01-05", txn.PostedDate.Format(model.DateLayout))
		require.NotNil(t, txn.AuthorizedDate)
		assert.Equal(t, "2025-01-04", txn.AuthorizedDate.Format(model.DateLayout))
		assert.True(t, decimal.RequireFromString("42").Equal(txn.Amount))
		assert.True(t, txn.IsExpense())
		assert.Equal(t, "WinCo Foods", txn.MerchantName)
		assert.Equal(t, "WINCO FOODS #412", txn.Description)
		assert.Equal(t, "POS PURCHASE WINCO FOODS #412 BOISE ID", txn.ExtendedDescription)
		assert.Equal(t, "Shops", txn.PrimaryCategory())
		assert.Equal(t, model.SourcePrimary, txn.Source)
	})

	t.Run("pending has no posted date", func(t *testing.T) {
		var pt plaid.Transaction
		pt.SetTransactionId("txn-2")
		pt.SetDate("2025-01-06")
		pt.SetAmount(-1500.25)
		pt.SetName("PAYROLL")
		pt.SetPending(true)

		txn, err := mapPlaidTransaction(pt)
		require.NoError(t, err)
		assert.Nil(t, txn.PostedDate)
		require.NotNil(t, txn.AuthorizedDate)
		assert.Equal(t, "2025-01-06", txn.AuthorizedDate.Format(model.DateLayout))
		assert.True(t, txn.IsIncome())
		assert.True(t, txn.IsUncategorized())
		assert.Empty(t, txn.MerchantName)
	})

	t.Run("bad date", func(t *testing.T) {
		var pt plaid.Transaction
		pt.SetDate("not-a-date")
		_, err := mapPlaidTransaction(pt)
		assert.Error(t, err)
	})
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	expected := []model.Transaction{{ID: "tx1", Amount: decimal.RequireFromString("10.50")}}
	mock.GetTransactionsFn = func(_ context.Context, _, _ time.Time) ([]model.Transaction, error) {
		return expected, nil
	}

	txns, err := mock.GetTransactions(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, expected, txns)
	require.Len(t, mock.GetTransactionsCalls, 1)
	assert.Equal(t, start, mock.GetTransactionsCalls[0].StartDate)

	accounts, err := mock.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Equal(t, 1, mock.GetAccountsCalls)
}
