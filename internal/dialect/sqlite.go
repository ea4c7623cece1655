package dialect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sqlgate/sqlgate/internal/config"
)

// SQLite implements Dialect for SQLite files. DB_NAME carries the file path
// (or a file: URI); host, port, and credentials are ignored.
type SQLite struct{}

func (d *SQLite) Name() string                   { return "sqlite" }
func (d *SQLite) DriverName() string             { return "sqlite" }
func (d *SQLite) URIScheme() string              { return "sqlite" }
func (d *SQLite) Placeholders() PlaceholderStyle { return Question }

func (d *SQLite) DSN(cfg *config.Config) string {
	return cfg.Database
}

func (d *SQLite) SessionSetup(ctx context.Context, conn *sql.Conn, readOnly bool) error {
	if !readOnly {
		return nil
	}
	_, err := conn.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

func (d *SQLite) ListTablesQuery(database string) (string, []any) {
	// No information_schema; sqlite_master is the catalog.
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil
}

func (d *SQLite) DescribeTableQuery(database, table string) (string, []any) {
	// PRAGMA table_info cannot bind parameters, but its table-valued form can.
	return `SELECT name, type, "notnull" FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

func (d *SQLite) ScanColumn(rows *sql.Rows) (Column, error) {
	var col Column
	var notNull int
	if err := rows.Scan(&col.Name, &col.DataType, &notNull); err != nil {
		return Column{}, err
	}
	col.Nullable = notNull == 0
	return col, nil
}

var sqliteForbidden = []Rule{
	rule(`(?i)\bload_extension\s*\(`, "load_extension()"),
	rule(`(?i)\bwritefile\s*\(`, "writefile()"),
	rule(`(?i)\bedit\s*\(`, "edit()"),
	rule(`(?i)\bfts3_tokenizer\s*\(`, "fts3_tokenizer()"),
	rule(`(?i)(?:^|[^a-zA-Z_])ATTACH(?:[^a-zA-Z_]|$)`, "ATTACH"),
	rule(`(?i)(?:^|[^a-zA-Z_])DETACH(?:[^a-zA-Z_]|$)`, "DETACH"),
	rule(`(?i)\bPRAGMA\s+\w+\s*=`, "PRAGMA write"),
}

func (d *SQLite) Forbidden() []Rule { return sqliteForbidden }

// StripLiterals removes string literals and comments. SQLite rules: no #
// comments, no backslash escaping, backtick and [bracket] identifiers
// accepted for compatibility.
func (d *SQLite) StripLiterals(sql string) string {
	var result strings.Builder
	i := 0
	n := len(sql)

	for i < n {
		// -- line comment
		if i+1 < n && sql[i] == '-' && sql[i+1] == '-' {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		// /* */ comment
		if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i += 2
			result.WriteByte(' ')
			continue
		}

		// Single-quoted string, '' escapes a quote
		if sql[i] == '\'' {
			i++
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			result.WriteString("''")
			continue
		}

		// Double-quoted identifier
		if sql[i] == '"' {
			result.WriteByte('"')
			i++
			for i < n {
				if sql[i] == '"' {
					if i+1 < n && sql[i+1] == '"' {
						result.WriteString(`""`)
						i += 2
						continue
					}
					result.WriteByte('"')
					i++
					break
				}
				result.WriteByte(sql[i])
				i++
			}
			continue
		}

		// Backtick identifier
		if sql[i] == '`' {
			result.WriteByte('`')
			i++
			for i < n && sql[i] != '`' {
				result.WriteByte(sql[i])
				i++
			}
			if i < n {
				result.WriteByte('`')
				i++
			}
			continue
		}

		// [bracket] identifier
		if sql[i] == '[' {
			result.WriteByte('[')
			i++
			for i < n && sql[i] != ']' {
				result.WriteByte(sql[i])
				i++
			}
			if i < n {
				result.WriteByte(']')
				i++
			}
			continue
		}

		result.WriteByte(sql[i])
		i++
	}

	return result.String()
}
