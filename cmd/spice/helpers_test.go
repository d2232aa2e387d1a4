package main

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		month     string
		from      string
		to        string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "defaults to current month", wantStart: "2025-03-01", wantEnd: "2025-03-31"},
		{name: "explicit month", month: "2024-02", wantStart: "2024-02-01", wantEnd: "2024-02-29"},
		{name: "from and to", from: "2025-01-10", to: "2025-02-05", wantStart: "2025-01-10", wantEnd: "2025-02-05"},
		{name: "from overrides month start", month: "2025-01", from: "2025-01-15", wantStart: "2025-01-15", wantEnd: "2025-01-31"},
		{name: "bad month", month: "January", wantErr: true},
		{name: "bad from", from: "01/10/2025", wantErr: true},
		{name: "end before start", from: "2025-02-01", to: "2025-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := parseWindow(tt.month, tt.from, tt.to, now)
			if tt.wantErr {
				require.Error(t, err)
				var userErr *common.UserError
				assert.ErrorAs(t, err, &userErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, window.Start.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, window.End.Format("2006-01-02"))
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "400", want: "400"},
		{input: "$1,250.75", want: "1250.75"},
		{input: " 12.5 ", want: "12.5"},
		{input: "-3", want: "-3"},
		{input: "lots", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseMoney(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
