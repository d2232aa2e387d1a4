// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-budget/internal/budget"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

// RuleStorage persists category rules. It satisfies pattern.RuleStore.
type RuleStorage interface {
	CreateRule(ctx context.Context, rule *model.CategoryRule) error
	GetRule(ctx context.Context, id int) (*model.CategoryRule, error)
	ListRules(ctx context.Context, userID string, activeOnly bool) ([]model.CategoryRule, error)
	UpdateRule(ctx context.Context, rule *model.CategoryRule) error
	DeleteRule(ctx context.Context, id int) error
	RestoreRule(ctx context.Context, rule *model.CategoryRule) error
	SetRuleActive(ctx context.Context, id int, active bool) error
	IncrementRuleMatchCount(ctx context.Context, id int) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	RuleStorage

	// Transaction operations
	SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, userID string, window *model.DateWindow) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionCategories(ctx context.Context, transactions []model.Transaction) error
	KnownCategories(ctx context.Context, userID string) ([]string, error)

	// Secondary feed operations
	SaveImportedTransactions(ctx context.Context, userID, accountID string, records []model.ImportedTransaction) (int, error)
	GetImportedTransactions(ctx context.Context, userID string) ([]model.ImportedTransaction, error)
	UpdateImportedCategories(ctx context.Context, userID string, categories map[int64]string) error

	// Budget operations
	SetBudget(ctx context.Context, userID, category string, amount decimal.Decimal) error
	DeleteBudget(ctx context.Context, userID, category string) error
	GetBudget(ctx context.Context, userID string) (model.Budget, error)

	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
	SetSecondarySync(ctx context.Context, id string, enabled bool) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter exports a budget summary and its forecasts.
type ReportWriter interface {
	Write(ctx context.Context, summary *budget.Summary, forecasts []*model.ForecastResult) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
