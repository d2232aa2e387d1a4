// Package sheets exports budget reports and forecasts to Google Sheets.
package sheets

import (
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-budget/internal/common"
)

// AuthMethod is how the writer authenticates to the Sheets API.
type AuthMethod string

// Supported auth methods.
const (
	AuthNone           AuthMethod = ""
	AuthServiceAccount AuthMethod = "service_account"
	AuthRefreshToken   AuthMethod = "refresh_token"
)

var (
	errNoAuth       = errors.New("no authentication method configured")
	errMultipleAuth = errors.New("multiple authentication methods configured; use either a refresh token or a service account")
)

// Config holds the report writer's credentials and output settings.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string // empty creates a new spreadsheet on every export
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int // rows per values.update call
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  "Budget Report",
		EnableFormatting: true,
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Auth reports which credentials are configured. A refresh token needs all three OAuth fields.
func (c *Config) Auth() (AuthMethod, error) {
	refresh := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	account := c.ServiceAccountPath != ""

	switch {
	case refresh && account:
		return AuthNone, errMultipleAuth
	case account:
		return AuthServiceAccount, nil
	case refresh:
		return AuthRefreshToken, nil
	default:
		return AuthNone, errNoAuth
	}
}

// Validate checks the credentials and the batching and retry settings.
func (c *Config) Validate() error {
	if _, err := c.Auth(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	var problems []error
	if c.BatchSize <= 0 {
		problems = append(problems, errors.New("batch size must be positive"))
	}
	if c.RetryAttempts < 0 {
		problems = append(problems, errors.New("retry attempts cannot be negative"))
	}
	if c.RetryDelay < 0 {
		problems = append(problems, errors.New("retry delay cannot be negative"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}
