package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/sqlgate/sqlgate/internal/config"
)

// Postgres implements Dialect for PostgreSQL and wire-compatible servers.
type Postgres struct{}

func (d *Postgres) Name() string                   { return "postgres" }
func (d *Postgres) DriverName() string             { return "postgres" }
func (d *Postgres) URIScheme() string              { return "postgres" }
func (d *Postgres) Placeholders() PlaceholderStyle { return Dollar }

func (d *Postgres) DSN(cfg *config.Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.PathEscape(cfg.User), url.PathEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}

func (d *Postgres) SessionSetup(ctx context.Context, conn *sql.Conn, readOnly bool) error {
	if !readOnly {
		return nil
	}
	_, err := conn.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
	return err
}

func (d *Postgres) ListTablesQuery(database string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_catalog = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, []any{database}
}

func (d *Postgres) DescribeTableQuery(database, table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_catalog = $1 AND table_schema = 'public' AND table_name = $2
		ORDER BY ordinal_position`, []any{database, table}
}

func (d *Postgres) ScanColumn(rows *sql.Rows) (Column, error) {
	var col Column
	var nullable string
	if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
		return Column{}, err
	}
	col.Nullable = nullable == "YES"
	return col, nil
}

var postgresForbidden = []Rule{
	rule(`(?i)\bpg_read_file\s*\(`, "pg_read_file()"),
	rule(`(?i)\bpg_read_binary_file\s*\(`, "pg_read_binary_file()"),
	rule(`(?i)\bpg_ls_dir\s*\(`, "pg_ls_dir()"),
	rule(`(?i)\blo_import\s*\(`, "lo_import()"),
	rule(`(?i)\blo_export\s*\(`, "lo_export()"),
	rule(`(?i)\bpg_sleep\s*\(`, "pg_sleep()"),
	rule(`(?i)\bpg_sleep_for\s*\(`, "pg_sleep_for()"),
	rule(`(?i)\bpg_sleep_until\s*\(`, "pg_sleep_until()"),
	rule(`(?i)\bpg_advisory_lock\s*\(`, "pg_advisory_lock()"),
	rule(`(?i)\bpg_advisory_xact_lock\s*\(`, "pg_advisory_xact_lock()"),
	rule(`(?i)\bpg_try_advisory_lock\s*\(`, "pg_try_advisory_lock()"),
	rule(`(?i)(?:^|[^a-zA-Z_])COPY(?:[^a-zA-Z_]|$)`, "COPY"),
	rule(`(?i)(?:^|[^a-zA-Z_])LISTEN(?:[^a-zA-Z_]|$)`, "LISTEN"),
	rule(`(?i)(?:^|[^a-zA-Z_])NOTIFY(?:[^a-zA-Z_]|$)`, "NOTIFY"),
}

func (d *Postgres) Forbidden() []Rule { return postgresForbidden }

// StripLiterals removes string literals and comments. PostgreSQL rules: no #
// comments, no backtick identifiers, $$ dollar-quoted strings, no backslash
// escaping by default.
func (d *Postgres) StripLiterals(sql string) string {
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

		// Dollar-quoted string $tag$...$tag$ or $$...$$
		if sql[i] == '$' {
			tagEnd := strings.Index(sql[i+1:], "$")
			if tagEnd >= 0 && !hasDigit(sql[i+1 : i+1+tagEnd]) {
				tag := sql[i : i+tagEnd+2]
				closeIdx := strings.Index(sql[i+len(tag):], tag)
				if closeIdx >= 0 {
					i += len(tag) + closeIdx + len(tag)
					result.WriteString("''")
					continue
				}
			}
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

		// Double-quoted identifier, kept so identifier keywords stay visible
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

		result.WriteByte(sql[i])
		i++
	}

	return result.String()
}

// hasDigit keeps $1-style placeholders from being mistaken for the opening
// tag of a dollar-quoted string.
func hasDigit(s string) bool {
	for _, c := range s {
		if c >= '0' && c <= '9' {
			return true
		}
	}
	return false
}
