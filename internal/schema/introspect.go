// Package schema answers what tables and columns exist, using parameterized
// read-only catalog queries. Nothing here is cached: every call reflects the
// catalog as it is right now.
package schema

import (
	"context"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/conn"
	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateerr"
)

// TableDescriptor describes one table with its columns in ordinal order.
type TableDescriptor struct {
	Schema  string           `json:"schema,omitempty"`
	Name    string           `json:"name"`
	Columns []dialect.Column `json:"columns"`
}

// Introspector runs catalog queries over handles from the connection manager.
type Introspector struct {
	cfg     *config.Config
	dialect dialect.Dialect
	conns   *conn.Manager
}

func New(cfg *config.Config, d dialect.Dialect, m *conn.Manager) *Introspector {
	return &Introspector{cfg: cfg, dialect: d, conns: m}
}

// ListTables returns the ordered table names of the configured database.
func (in *Introspector) ListTables(ctx context.Context) ([]string, error) {
	h, err := in.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer in.conns.Release(h)

	query, args := in.dialect.ListTablesQuery(in.cfg.Database)
	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gateerr.Wrap(gateerr.KindConnection, "list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, gateerr.Wrap(gateerr.KindExecution, "scan table name", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, gateerr.Wrap(gateerr.KindConnection, "iterate tables", err)
	}
	return tables, nil
}

// DescribeTable returns the descriptor for one table. The table name is
// passed as a bound parameter, never concatenated into the query.
func (in *Introspector) DescribeTable(ctx context.Context, table string) (*TableDescriptor, error) {
	h, err := in.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer in.conns.Release(h)

	query, args := in.dialect.DescribeTableQuery(in.cfg.Database, table)
	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gateerr.Wrap(gateerr.KindConnection, "describe table", err)
	}
	defer rows.Close()

	desc := &TableDescriptor{Name: table}
	for rows.Next() {
		col, err := in.dialect.ScanColumn(rows)
		if err != nil {
			return nil, gateerr.Wrap(gateerr.KindExecution, "scan column", err)
		}
		desc.Columns = append(desc.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, gateerr.Wrap(gateerr.KindConnection, "iterate columns", err)
	}

	// The catalog query succeeds for unknown tables; zero columns means the
	// table does not exist.
	if len(desc.Columns) == 0 {
		return nil, gateerr.Newf(gateerr.KindNotFound, "table %q does not exist", table)
	}
	return desc, nil
}
