package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SPICE_TEST_DIR", "/data")

	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"~", home},
		{"~/spice.db", filepath.Join(home, "spice.db")},
		{"$SPICE_TEST_DIR/spice.db", "/data/spice.db"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", "/home/tester")

	assert.Equal(t, "/home/tester/.local/share/spice/spice.db", DatabasePath())

	viper.Set("database.path", "~/custom.db")
	assert.Equal(t, "/home/tester/custom.db", DatabasePath())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPICE_ENV_TEST_A=from-file\nSPICE_ENV_TEST_B=from-file\n"), 0o600))

	t.Setenv("SPICE_ENV_TEST_B", "from-env")
	t.Setenv("SPICE_ENV_TEST_A", "")
	require.NoError(t, os.Unsetenv("SPICE_ENV_TEST_A"))

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("SPICE_ENV_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("SPICE_ENV_TEST_B"), "existing variables win")
}

func TestLoadSheetsConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")

	viper.Set("sheets.client_id", "viper-client")
	viper.Set("sheets.spreadsheet_id", "sheet-1")
	viper.Set("sheets.timezone", "UTC")

	cfg, err := LoadSheetsConfig()
	require.NoError(t, err)
	assert.Equal(t, "viper-client", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "env-token", cfg.RefreshToken)
	assert.Equal(t, "sheet-1", cfg.SpreadsheetID)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, "Budget Report", cfg.SpreadsheetName)
}

func TestLoadSheetsConfigMissingAuth(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
	} {
		t.Setenv(key, "")
	}

	_, err := LoadSheetsConfig()
	assert.Error(t, err)
}

func TestLoadPlaidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("PLAID_CLIENT_ID", "client")
	t.Setenv("PLAID_SECRET", "secret")
	t.Setenv("PLAID_ENV", "")
	t.Setenv("PLAID_ACCESS_TOKEN", "access-sandbox-123")

	cfg, err := LoadPlaidConfig()
	require.NoError(t, err)
	assert.Equal(t, "sandbox", cfg.Environment)
	assert.Equal(t, "access-sandbox-123", cfg.AccessToken)

	viper.Set("plaid.environment", "development")
	_, err = LoadPlaidConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
