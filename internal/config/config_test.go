package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGER_RPC_URL", "http://localhost:8545")
	t.Setenv("LEDGER_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("LEDGER_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, int64(1024*1024), cfg.MaxRequestBodyBytes)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AYUR_PORT", "9000")
	t.Setenv("AYUR_READ_TIMEOUT", "5s")
	t.Setenv("AYUR_RATE_LIMIT_ENABLED", "false")
	t.Setenv("AYUR_RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.False(t, cfg.RateLimitEnabled)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_MissingLedgerConfig(t *testing.T) {
	t.Setenv("LEDGER_RPC_URL", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_RPC_URL")
}

func TestValidate_BodyLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("AYUR_MAX_REQUEST_BODY_BYTES", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AYUR_MAX_REQUEST_BODY_BYTES")
}
