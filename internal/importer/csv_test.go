package importer

import (
	"os"
	"strings"
	"testing"

	"github.com/Veraticus/spice-budget/internal/merge"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParser_Parse(t *testing.T) {
	f, err := os.Open("testdata/secondary.csv")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := NewCSVParser(Options{}).Parse(f, "acct-1")
	require.NoError(t, err)
	require.Len(t, records, 4)

	winco := records[0]
	require.NotNil(t, winco.ID)
	assert.Equal(t, int64(101), *winco.ID)
	assert.Equal(t, "2025-01-09", winco.TransactionDate)
	assert.Equal(t, "2000.00", winco.TransactionAmount.StringFixed(2))
	assert.Equal(t, "WINCO FOODS #42", winco.TransactionDescription)
	assert.Equal(t, "POS PURCHASE WINCO", winco.ExtendedDescription)
	assert.Equal(t, "WinCo", winco.MerchantName)
	assert.Equal(t, "Groceries", winco.Category)
	assert.Equal(t, "4210.55", winco.Balance.StringFixed(2))
	assert.Equal(t, "acct-1", winco.AccountID)

	payroll := records[2]
	assert.Nil(t, payroll.ID)
	assert.True(t, payroll.TransactionAmount.IsNegative())

	rent := records[3]
	assert.Equal(t, "1045.20", rent.TransactionAmount.StringFixed(2))
	assert.Empty(t, rent.Category)
}

func TestCSVParser_RecordsMergeCleanly(t *testing.T) {
	f, err := os.Open("testdata/secondary.csv")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := NewCSVParser(Options{}).Parse(f, "acct-1")
	require.NoError(t, err)

	for i, rec := range records {
		txn, err := merge.Convert(rec, i)
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, model.SourceSecondary, txn.Source)
	}

	rent, err := merge.Convert(records[3], 3)
	require.NoError(t, err)
	assert.Equal(t, model.UncategorizedCategory, rent.PrimaryCategory())
	assert.Equal(t, "csv-103-3", rent.ID)
}

func TestCSVParser_InvertSign(t *testing.T) {
	data := "Date,Amount,Description\n2025-02-01,-42.10,COFFEE\n2025-02-02,1500,PAYCHECK\n"

	records, err := NewCSVParser(Options{InvertSign: true}).Parse(strings.NewReader(data), "acct-2")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, decimal.RequireFromString("42.10").Equal(records[0].TransactionAmount))
	assert.True(t, decimal.NewFromInt(-1500).Equal(records[1].TransactionAmount))
	assert.True(t, records[0].Balance.IsZero())
}

func TestCSVParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		errText string
	}{
		{
			name:    "missing amount column",
			data:    "Date,Description\n2025-01-01,COFFEE\n",
			errText: "missing required column: amount",
		},
		{
			name:    "bad amount",
			data:    "Date,Amount\n2025-01-01,abc\n",
			errText: "row 2: parsing amount",
		},
		{
			name:    "bad balance",
			data:    "Date,Amount,Balance\n2025-01-01,1.00,n/a\n",
			errText: "parsing balance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVParser(Options{}).Parse(strings.NewReader(tt.data), "acct")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestCSVParser_EmptyAndBlankRows(t *testing.T) {
	records, err := NewCSVParser(Options{}).Parse(strings.NewReader(""), "acct")
	require.NoError(t, err)
	assert.Nil(t, records)

	records, err = NewCSVParser(Options{}).Parse(strings.NewReader("Date,Amount\n,\n2025-01-01,5\n"), "acct")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"12.34", "12.34"},
		{"$1,234.50", "1234.50"},
		{"(25.00)", "-25.00"},
		{" -7 ", "-7.00"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			amount, err := parseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, amount.StringFixed(2))
		})
	}
}
