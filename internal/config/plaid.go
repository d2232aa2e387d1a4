package config

import (
	"fmt"
	"os"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/plaid"
	"github.com/spf13/viper"
)

// LoadPlaidConfig loads Plaid credentials from Viper, falling back to PLAID_* variables.
// The environment defaults to sandbox.
func LoadPlaidConfig() (*plaid.Config, error) {
	config := plaid.Config{
		ClientID:    firstSet(viper.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
		Secret:      firstSet(viper.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
		Environment: firstSet(viper.GetString("plaid.environment"), os.Getenv("PLAID_ENV"), "sandbox"),
		AccessToken: firstSet(viper.GetString("plaid.access_token"), os.Getenv("PLAID_ACCESS_TOKEN")),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
	}
	return &config, nil
}
