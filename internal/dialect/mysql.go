package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlgate/sqlgate/internal/config"
)

// MySQL implements Dialect for MySQL and MariaDB.
type MySQL struct{}

func (d *MySQL) Name() string                   { return "mysql" }
func (d *MySQL) DriverName() string             { return "mysql" }
func (d *MySQL) URIScheme() string              { return "mysql" }
func (d *MySQL) Placeholders() PlaceholderStyle { return Question }

func (d *MySQL) DSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func (d *MySQL) SessionSetup(ctx context.Context, conn *sql.Conn, readOnly bool) error {
	if !readOnly {
		return nil
	}
	_, err := conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY")
	return err
}

func (d *MySQL) ListTablesQuery(database string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, []any{database}
}

func (d *MySQL) DescribeTableQuery(database, table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, []any{database, table}
}

func (d *MySQL) ScanColumn(rows *sql.Rows) (Column, error) {
	var col Column
	var nullable string
	if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
		return Column{}, err
	}
	col.Nullable = nullable == "YES"
	return col, nil
}

var mysqlForbidden = []Rule{
	rule(`(?i)\bINTO\s+OUTFILE\b`, "INTO OUTFILE"),
	rule(`(?i)\bINTO\s+DUMPFILE\b`, "INTO DUMPFILE"),
	rule(`(?i)\bINTO\s+@`, "INTO @variable"),
	rule(`(?i)\bLOAD_FILE\s*\(`, "LOAD_FILE()"),
	rule(`(?i)\bSLEEP\s*\(`, "SLEEP()"),
	rule(`(?i)\bBENCHMARK\s*\(`, "BENCHMARK()"),
	rule(`(?i)\bGET_LOCK\s*\(`, "GET_LOCK()"),
	rule(`(?i)\bRELEASE_LOCK\s*\(`, "RELEASE_LOCK()"),
	rule(`(?i)\bIS_FREE_LOCK\s*\(`, "IS_FREE_LOCK()"),
	rule(`(?i)\bIS_USED_LOCK\s*\(`, "IS_USED_LOCK()"),
	rule(`(?i)\bMASTER_POS_WAIT\s*\(`, "MASTER_POS_WAIT()"),
	rule(`(?i)\bSOURCE_POS_WAIT\s*\(`, "SOURCE_POS_WAIT()"),
	rule(`(?i)(?:^|[^a-zA-Z_])HANDLER(?:[^a-zA-Z_]|$)`, "HANDLER"),
	rule(`(?i)(?:^|[^a-zA-Z_])OUTFILE(?:[^a-zA-Z_]|$)`, "OUTFILE"),
}

func (d *MySQL) Forbidden() []Rule { return mysqlForbidden }

// StripLiterals removes string literals and comments. MySQL rules: # line
// comments, backtick identifiers, backslash escaping inside strings.
func (d *MySQL) StripLiterals(sql string) string {
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

		// # line comment
		if sql[i] == '#' {
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

		// Single-quoted string with backslash escapes
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
				if sql[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				i++
			}
			result.WriteString("''")
			continue
		}

		// Double-quoted string with backslash escapes
		if sql[i] == '"' {
			i++
			for i < n {
				if sql[i] == '"' {
					if i+1 < n && sql[i+1] == '"' {
						i += 2
						continue
					}
					i++
					break
				}
				if sql[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				i++
			}
			result.WriteString(`""`)
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

		result.WriteByte(sql[i])
		i++
	}

	return result.String()
}
