package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgate/sqlgate/internal/gateerr"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_NAME", "app")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.False(t, cfg.ReadWrite)
	assert.False(t, cfg.Admin)
	assert.Equal(t, 1000, cfg.MaxRows)
	assert.Equal(t, 30*time.Second, cfg.StatementTimeout())
	assert.Equal(t, 2, cfg.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.AcquireTimeout())
	assert.Equal(t, 3, cfg.ConnectRetries)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("READ_WRITE_MODE", "true")
	t.Setenv("MAX_ROWS", "50")
	t.Setenv("STATEMENT_TIMEOUT_SECONDS", "5")
	t.Setenv("POOL_SIZE", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.True(t, cfg.ReadWrite)
	assert.Equal(t, 50, cfg.MaxRows)
	assert.Equal(t, 5*time.Second, cfg.StatementTimeout())
	assert.Equal(t, 4, cfg.PoolSize)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_NAME", "app")
	// DB_USER and DB_PASSWORD missing for postgres

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, gateerr.KindConnection, gateerr.KindOf(err))
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoad_SQLiteNeedsOnlyPath(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "file:app.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "file:app.db", cfg.Endpoint())
}

func TestLoad_RejectsBadValues(t *testing.T) {
	setRequired(t)

	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("max rows", func(t *testing.T) {
		t.Setenv("MAX_ROWS", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Setenv("STATEMENT_TIMEOUT_SECONDS", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestEndpoint_OmitsCredentials(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotContains(t, cfg.Endpoint(), "secret")
	assert.Equal(t, "localhost:5432/app", cfg.Endpoint())
}
