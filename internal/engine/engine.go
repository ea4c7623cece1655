// Package engine runs a validated, classified statement on one connection
// handle and materializes the outcome. Limits are applied here: every
// statement runs under the configured timeout, and result sets are capped at
// the configured row limit with an explicit truncation flag.
package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/sqlgate/sqlgate/internal/classify"
	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/conn"
	"github.com/sqlgate/sqlgate/internal/encode"
	"github.com/sqlgate/sqlgate/internal/gateerr"
)

// Engine executes classified statements.
type Engine struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Execute runs the statement according to its classification. Read-only
// statements fetch up to the row cap; mutating and schema-altering statements
// run in a single-statement transaction, committed on success and rolled back
// on any error.
func (e *Engine) Execute(ctx context.Context, h *conn.Handle, sqlText string, params []any, class classify.Class) encode.Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StatementTimeout())
	defer cancel()

	switch class {
	case classify.ReadOnly:
		return e.query(ctx, h, sqlText, params, class)
	case classify.Mutating, classify.SchemaAlter:
		return e.exec(ctx, h, sqlText, params, class)
	default:
		return encode.Failure(class, gateerr.Newf(gateerr.KindValidation, "cannot execute %s statement", class))
	}
}

func (e *Engine) query(ctx context.Context, h *conn.Handle, sqlText string, params []any, class classify.Class) encode.Outcome {
	rows, err := h.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return encode.Failure(class, mapDBError(ctx, "query failed", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return encode.Failure(class, mapDBError(ctx, "read columns", err))
	}

	out := encode.Outcome{
		Kind:    encode.RowsReturned,
		Class:   class,
		Columns: columns,
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(out.Rows) >= e.cfg.MaxRows {
			// Rows beyond the cap are discarded, never silently.
			out.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return encode.Failure(class, mapDBError(ctx, "scan row", err))
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = encode.Scalar(values[i])
		}
		out.Rows = append(out.Rows, row)
	}

	if !out.Truncated {
		if err := rows.Err(); err != nil {
			return encode.Failure(class, mapDBError(ctx, "row iteration", err))
		}
	}
	return out
}

func (e *Engine) exec(ctx context.Context, h *conn.Handle, sqlText string, params []any, class classify.Class) encode.Outcome {
	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return encode.Failure(class, mapDBError(ctx, "begin transaction", err))
	}

	res, err := tx.ExecContext(ctx, sqlText, params...)
	if err != nil {
		tx.Rollback()
		return encode.Failure(class, mapDBError(ctx, "statement failed", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count; the mutation still stands.
		affected = 0
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return encode.Failure(class, mapDBError(ctx, "commit failed", err))
	}

	return encode.Outcome{Kind: encode.RowsAffected, Class: class, Affected: affected}
}

// mapDBError turns a driver error into a typed gateway error. Timeouts and
// lost sessions are distinguished so the caller can invalidate the handle;
// everything else is an execution failure whose message never contains
// connection state or credentials.
func mapDBError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gateerr.New(gateerr.KindTimeout, "statement exceeded the configured timeout")
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return gateerr.Wrap(gateerr.KindConnection, msg, err)
	}
	return gateerr.Wrap(gateerr.KindExecution, msg, err)
}
