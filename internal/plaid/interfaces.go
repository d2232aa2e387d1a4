package plaid

import (
	"context"
	"time"

	"github.com/Veraticus/spice-budget/internal/model"
)

// TransactionFetcher defines the contract for fetching primary-feed data.
// This interface allows for easy mocking in tests and swapping data sources.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
}
