package schema

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/conn"
	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateerr"
	"github.com/sqlgate/sqlgate/internal/logging"
)

func setup(t *testing.T, ddl ...string) *Introspector {
	t.Helper()

	cfg := &config.Config{
		Driver:                  "sqlite",
		Database:                fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		ReadWrite:               true,
		MaxRows:                 100,
		StatementTimeoutSeconds: 30,
		PoolSize:                2,
		AcquireTimeoutSeconds:   2,
	}
	d := &dialect.SQLite{}
	log := logging.NewWithWriter("test", io.Discard)

	m, err := conn.Open(context.Background(), cfg, d, log)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	ctx := context.Background()
	h, err := m.Acquire(ctx)
	require.NoError(t, err)
	for _, stmt := range ddl {
		_, err := h.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	m.Release(h)

	return New(cfg, d, m)
}

func TestListTables_Ordered(t *testing.T) {
	in := setup(t,
		"CREATE TABLE zebra (id INTEGER)",
		"CREATE TABLE apple (id INTEGER)",
		"CREATE TABLE mango (id INTEGER)",
	)

	tables, err := in.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "mango", "zebra"}, tables)
}

func TestListTables_Idempotent(t *testing.T) {
	in := setup(t, "CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)")

	first, err := in.ListTables(context.Background())
	require.NoError(t, err)
	second, err := in.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDescribeTable_RoundTrip(t *testing.T) {
	in := setup(t, "CREATE TABLE people (id INTEGER NOT NULL, name TEXT)")

	desc, err := in.DescribeTable(context.Background(), "people")
	require.NoError(t, err)

	require.Len(t, desc.Columns, 2)
	assert.Equal(t, "people", desc.Name)

	assert.Equal(t, "id", desc.Columns[0].Name)
	assert.True(t, strings.EqualFold(desc.Columns[0].DataType, "INTEGER"))
	assert.False(t, desc.Columns[0].Nullable)

	assert.Equal(t, "name", desc.Columns[1].Name)
	assert.True(t, strings.EqualFold(desc.Columns[1].DataType, "TEXT"))
	assert.True(t, desc.Columns[1].Nullable)
}

func TestDescribeTable_NotFound(t *testing.T) {
	in := setup(t, "CREATE TABLE people (id INTEGER)")

	_, err := in.DescribeTable(context.Background(), "ghosts")
	require.Error(t, err)
	assert.Equal(t, gateerr.KindNotFound, gateerr.KindOf(err))
}

