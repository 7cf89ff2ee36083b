package env

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "0123456789abcdef0123")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Address)
	assert.True(t, decimal.RequireFromString("10000").Equal(cfg.SeedBalance))
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, time.Minute, cfg.Quote.CacheTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "pgx", cfg.Database.Database().Driver)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "0123456789abcdef0123")
	t.Setenv("SEED_BALANCE", "2500.50")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "/tmp/board.db")
	t.Setenv("RESET_TOKEN_TTL", "10m")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "2500.5", cfg.SeedBalance.String())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/tmp/board.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
}

func TestParseRequiresSecretKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Parse()
	assert.Error(t, err)

	t.Setenv("SECRET_KEY", "short")

	_, err = Parse()
	assert.Error(t, err)
}

func TestParseRejectsNegativeSeed(t *testing.T) {
	t.Setenv("SECRET_KEY", "0123456789abcdef0123")
	t.Setenv("SEED_BALANCE", "-1")

	_, err := Parse()
	assert.Error(t, err)
}
