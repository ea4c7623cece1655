// Package dialect isolates per-database behavior: DSN construction, catalog
// queries, placeholder style, session setup, and the lexical quirks needed to
// strip literals and comments before keyword scanning.
package dialect

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/gateerr"
)

// PlaceholderStyle describes how a dialect marks bound parameters.
type PlaceholderStyle int

const (
	// Question placeholders: ? (mysql, sqlite).
	Question PlaceholderStyle = iota
	// Dollar placeholders: $1, $2, ... (postgres).
	Dollar
)

// Column describes one table column as reported by the catalog.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// Rule is a forbidden construct: a compiled pattern and what it blocks.
// Rules are matched against SQL with literals and comments stripped.
type Rule struct {
	Pattern *regexp.Regexp
	Desc    string
}

func rule(pattern, desc string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Desc: desc}
}

// Dialect is implemented once per supported database.
type Dialect interface {
	// Name returns the config driver name ("postgres", "mysql", "sqlite").
	Name() string

	// DriverName returns the database/sql driver to open.
	DriverName() string

	// URIScheme returns the resource URI scheme.
	URIScheme() string

	// DSN builds a connection string from the configuration.
	DSN(cfg *config.Config) string

	// Placeholders reports the parameter placeholder style.
	Placeholders() PlaceholderStyle

	// SessionSetup prepares a freshly established session. When readOnly is
	// true the session is pinned read-only at the database level as a second
	// line of defense behind classification.
	SessionSetup(ctx context.Context, conn *sql.Conn, readOnly bool) error

	// ListTablesQuery returns the parameterized catalog query listing table
	// names in declaration-independent stable order.
	ListTablesQuery(database string) (string, []any)

	// DescribeTableQuery returns the parameterized catalog query for a
	// table's columns in ordinal order.
	DescribeTableQuery(database, table string) (string, []any)

	// ScanColumn reads one row of the DescribeTableQuery result.
	ScanColumn(rows *sql.Rows) (Column, error)

	// Forbidden lists constructs rejected even inside otherwise read-only
	// statements (file access, sleeps, locks).
	Forbidden() []Rule

	// StripLiterals removes string literals and comments so keyword scans
	// cannot be fooled by quoted text.
	StripLiterals(sql string) string
}

// ForDriver returns the dialect for a configured driver name.
func ForDriver(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return &Postgres{}, nil
	case "mysql":
		return &MySQL{}, nil
	case "sqlite":
		return &SQLite{}, nil
	default:
		return nil, gateerr.Newf(gateerr.KindConnection, "unsupported driver %q", name)
	}
}

// CountPlaceholders returns how many distinct parameters the statement
// expects. The input must already have literals and comments stripped.
func CountPlaceholders(cleaned string, style PlaceholderStyle) int {
	switch style {
	case Dollar:
		max := 0
		for _, m := range dollarRef.FindAllStringSubmatch(cleaned, -1) {
			n := 0
			for _, c := range m[1] {
				n = n*10 + int(c-'0')
			}
			if n > max {
				max = n
			}
		}
		return max
	default:
		return strings.Count(cleaned, "?")
	}
}

var dollarRef = regexp.MustCompile(`\$([0-9]+)`)
