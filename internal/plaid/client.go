// Package plaid provides the primary transaction feed backed by the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required")
	}
	return validateEnvironment(c.Environment)
}

func validateEnvironment(env string) error {
	switch env {
	case "sandbox", "production":
		return nil
	case "":
		return fmt.Errorf("plaid environment is required")
	default:
		return fmt.Errorf("invalid Plaid environment %q: must be sandbox or production", env)
	}
}

// Client implements the TransactionFetcher interface.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetTransactions fetches transactions from Plaid within the specified date range.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format(model.DateLayout),
		"end_date", endDate.Format(model.DateLayout))

	var allTransactions []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format(model.DateLayout),
				endDate.Format(model.DateLayout),
			)
			options := plaid.TransactionsGetRequestOptions{}
			options.SetCount(pageSize)
			options.SetOffset(offset)
			options.SetIncludeOriginalDescription(true)
			request.SetOptions(options)

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classifyError(err, "failed to fetch transactions")
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, c.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		allTransactions = append(allTransactions, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	c.logger.Info("Fetched all transactions", "count", len(allTransactions))

	transactions := make([]model.Transaction, 0, len(allTransactions))
	for _, pt := range allTransactions {
		txn, err := mapPlaidTransaction(pt)
		if err != nil {
			c.logger.Warn("Skipping Plaid transaction", "id", pt.GetTransactionId(), "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

// GetAccounts fetches the accounts linked to the access token.
// The returned accounts carry no user; the caller assigns ownership.
func (c *Client) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.classifyError(err, "failed to fetch accounts")
		}
		accounts = resp.GetAccounts()
		return nil
	}, c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	c.logger.Info("Fetched accounts", "count", len(accounts))

	out := make([]model.Account, 0, len(accounts))
	for _, account := range accounts {
		name := account.GetName()
		if mask := account.GetMask(); mask != "" {
			name = fmt.Sprintf("%s (…%s)", name, mask)
		}
		out = append(out, model.Account{ID: account.GetAccountId(), Name: name})
	}
	return out, nil
}

// classifyError marks rate limits as retryable and wraps Plaid API errors.
func (c *Client) classifyError(err error, msg string) error {
	plaidError := extractPlaidError(err)
	if plaidError == nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
		return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidError.ErrorMessage), Retryable: true}
	}
	return &common.RetryableError{
		Err:       fmt.Errorf("%w: %s - %s", common.ErrPlaidConnection, plaidError.ErrorCode, plaidError.ErrorMessage),
		Retryable: false,
	}
}

// mapPlaidTransaction converts a Plaid transaction to our internal model.
// Plaid already reports outflows as positive amounts, matching our convention.
func mapPlaidTransaction(pt plaid.Transaction) (model.Transaction, error) {
	date, err := time.Parse(model.DateLayout, pt.GetDate())
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid date %q: %w", pt.GetDate(), err)
	}

	var authorized *time.Time
	if raw := pt.GetAuthorizedDate(); raw != "" {
		if ts, parseErr := time.Parse(model.DateLayout, raw); parseErr == nil {
			authorized = &ts
		}
	}

	txn := model.Transaction{
		ID:                  pt.GetTransactionId(),
		AccountID:           pt.GetAccountId(),
		Amount:              decimal.NewFromFloat(pt.GetAmount()).Round(2),
		AuthorizedDate:      authorized,
		MerchantName:        cleanMerchantName(pt.GetMerchantName()),
		Description:         strings.TrimSpace(pt.GetName()),
		ExtendedDescription: strings.TrimSpace(pt.GetOriginalDescription()),
		LogoURL:             pt.GetLogoUrl(),
		Categories:          pt.GetCategory(),
		Pending:             pt.GetPending(),
		Source:              model.SourcePrimary,
	}

	// Pending transactions have not posted yet; Plaid's date is the authorization day.
	if txn.Pending {
		if txn.AuthorizedDate == nil {
			txn.AuthorizedDate = &date
		}
	} else {
		txn.PostedDate = &date
	}

	return txn, nil
}

// cleanMerchantName standardizes merchant names by removing trailing reference numbers
// and common corporate suffixes.
func cleanMerchantName(name string) string {
	parts := strings.Fields(name)
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		// A long all-digit tail is a reference number, not part of the name.
		if len(last) > 5 && isAllDigits(last) {
			parts = parts[:len(parts)-1]
		}
	}
	name = strings.Join(parts, " ")

	suffixes := []string{" LLC", " Inc", " Inc.", " Corp", " Corporation", " Ltd", " Limited"}
	for changed := true; changed; {
		changed = false
		for _, suffix := range suffixes {
			if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
				name = strings.TrimSpace(name[:len(name)-len(suffix)])
				changed = true
			}
		}
	}
	return strings.TrimSpace(name)
}

// isAllDigits checks if a string contains only digits.
func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

// Ensure Client implements TransactionFetcher.
var _ TransactionFetcher = (*Client)(nil)
