package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-budget/internal/budget"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "valid oauth config",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
		},
		{
			name: "valid service account config",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
		},
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:     "test-client",
				RefreshToken: "test-token",
				BatchSize:    100,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "multiple auth methods",
			config: Config{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name: "invalid batch size",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
			},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name: "negative retry delay",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryDelay:         -time.Second,
			},
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Auth(t *testing.T) {
	c := Config{ServiceAccountPath: "/key.json"}
	method, err := c.Auth()
	require.NoError(t, err)
	assert.Equal(t, AuthServiceAccount, method)

	c = Config{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}
	method, err = c.Auth()
	require.NoError(t, err)
	assert.Equal(t, AuthRefreshToken, method)

	c.ClientSecret = ""
	_, err = c.Auth()
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.True(t, config.EnableFormatting)
	assert.Equal(t, "Budget Report", config.SpreadsheetName)
	assert.Equal(t, "America/New_York", config.TimeZone)
	assert.Equal(t, 1000, config.BatchSize)
	assert.Equal(t, 3, config.RetryAttempts)
	assert.Equal(t, time.Second, config.RetryDelay)
}

func testSummary() *budget.Summary {
	window := model.DateWindow{
		Start: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
	}
	b := model.NewBudget("user-1")
	b.Amounts["Groceries"] = decimal.NewFromInt(400)
	b.Amounts["Rent"] = decimal.NewFromInt(1500)

	day := time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{ID: "1", PostedDate: &day, Amount: decimal.RequireFromString("123.45"), Categories: []string{"Groceries"}},
		{ID: "2", PostedDate: &day, Amount: decimal.NewFromInt(1500), Categories: []string{"Rent"}},
	}
	summary := budget.Aggregate("user-1", txns, b, window)
	return &summary
}

func testForecast() *model.ForecastResult {
	return &model.ForecastResult{
		Category:         "Groceries",
		Horizon:          3,
		SavingsTrend:     model.SavingsImproving,
		SpendTrend:       model.SpendDecreasing,
		ProjectedSavings: 120.456,
		Confidence:       82,
		History: []model.CategoryMonthHistory{
			model.NewCategoryMonthHistory(2024, 11, 400, 380),
		},
		Future: []model.ForecastPoint{
			{Label: "Jan 2025", Year: 2025, Month: 0, Actual: 360, Saved: 40},
		},
	}
}

func findRow(values [][]any, label string) int {
	for i, row := range values {
		if len(row) > 0 && row[0] == label {
			return i
		}
	}
	return -1
}

func TestPrepareReportData(t *testing.T) {
	values := prepareReportData(testSummary(), []*model.ForecastResult{testForecast(), nil})

	assert.Equal(t, "Budget Report", values[0][0])
	assert.Equal(t, "Jan 1, 2025 - Jan 31, 2025", values[0][1])

	idx := findRow(values, "Total Spent")
	require.NotEqual(t, -1, idx)
	assert.InDelta(t, 1623.45, values[idx][1], 0.001)

	idx = findRow(values, "Category Breakdown")
	require.NotEqual(t, -1, idx)
	groceries := values[idx+2]
	assert.Equal(t, "Groceries", groceries[0])
	assert.Equal(t, "variable", groceries[1])
	assert.InDelta(t, 400.0, groceries[2], 0.001)
	assert.InDelta(t, 123.45, groceries[3], 0.001)
	assert.InDelta(t, 276.55, groceries[4], 0.001)
	assert.Equal(t, "30.9%", groceries[5])
	assert.Equal(t, 1, groceries[6])

	rent := values[idx+3]
	assert.Equal(t, "Rent", rent[0])
	assert.Equal(t, "fixed", rent[1])

	idx = findRow(values, "Forecasts")
	require.NotEqual(t, -1, idx)
	assert.Equal(t, []any{"Groceries", "3-month horizon"}, values[idx+2])

	idx = findRow(values, "Projected Savings")
	require.NotEqual(t, -1, idx)
	assert.InDelta(t, 120.46, values[idx][1], 0.001)
	assert.Equal(t, "82%", values[idx][3])

	last := values[len(values)-1]
	assert.Equal(t, []any{"Jan 2025", 360.0, 40.0, "yes"}, last)
	history := values[len(values)-2]
	assert.Equal(t, "Dec 2024", history[0])
	assert.Equal(t, "no", history[3])
}

func TestPrepareReportDataWithoutForecasts(t *testing.T) {
	values := prepareReportData(testSummary(), nil)
	assert.Equal(t, -1, findRow(values, "Forecasts"))
}

// fakeSheetsAPI records the requests a Writer sends.
type fakeSheetsAPI struct {
	updates  []sheets.ValueRange
	requests []string
	failPut  bool
	mu       sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if r.Method == http.MethodPut {
		if f.failPut {
			http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
			return
		}
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err == nil {
			f.updates = append(f.updates, vr)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeSheetsAPI) sawRequest(method, pathPart string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if strings.HasPrefix(req, method+" ") && strings.Contains(req, pathPart) {
			return true
		}
	}
	return false
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, config Config) *Writer {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return NewWriterWithService(srv, config, nil)
}

func TestWriter_Write(t *testing.T) {
	api := &fakeSheetsAPI{}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-123"
	config.BatchSize = 10
	writer := newTestWriter(t, api, config)

	err := writer.Write(context.Background(), testSummary(), []*model.ForecastResult{testForecast()})
	require.NoError(t, err)

	assert.True(t, api.sawRequest(http.MethodGet, "/spreadsheets/sheet-123"))
	assert.True(t, api.sawRequest(http.MethodPost, ":clear"))
	assert.True(t, api.sawRequest(http.MethodPost, ":batchUpdate"))

	rows := len(prepareReportData(testSummary(), []*model.ForecastResult{testForecast()}))
	expectedBatches := (rows + config.BatchSize - 1) / config.BatchSize
	require.Len(t, api.updates, expectedBatches)
	assert.Equal(t, "Budget Report", api.updates[0].Values[0][0])
}

func TestWriter_WriteFailure(t *testing.T) {
	api := &fakeSheetsAPI{failPut: true}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-123"
	config.RetryAttempts = 1
	config.EnableFormatting = false
	writer := newTestWriter(t, api, config)

	err := writer.Write(context.Background(), testSummary(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write data")
	assert.False(t, api.sawRequest(http.MethodPost, ":batchUpdate"))
}

func TestWriter_WriteNilSummary(t *testing.T) {
	writer := newTestWriter(t, &fakeSheetsAPI{}, DefaultConfig())
	assert.Error(t, writer.Write(context.Background(), nil, nil))
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	summary := testSummary()

	require.NoError(t, mock.Write(context.Background(), summary, nil))
	assert.Equal(t, 1, mock.WriteCallCount)
	assert.Same(t, summary, mock.LastSummary)

	mock.Reset()
	assert.Zero(t, mock.WriteCallCount)
	assert.Empty(t, mock.WriteCalls)
}
