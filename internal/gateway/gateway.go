// Package gateway is the single entry point per inbound tool call. It runs
// the request pipeline in order (classify, check policy, acquire a handle,
// execute, encode) and guarantees exactly one well-formed response per
// request, even on failure.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sqlgate/sqlgate/internal/classify"
	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/conn"
	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/encode"
	"github.com/sqlgate/sqlgate/internal/engine"
	"github.com/sqlgate/sqlgate/internal/gateerr"
	"github.com/sqlgate/sqlgate/internal/logging"
	"github.com/sqlgate/sqlgate/internal/schema"
)

// Intent is the caller's execution hint. A read intent narrows what the
// request may do; it never widens it.
const (
	IntentRead  = "read"
	IntentWrite = "write"
)

// Request is one immutable query request.
type Request struct {
	SQL    string
	Params []any
	Intent string
}

// Gateway orchestrates the pipeline components.
type Gateway struct {
	cfg     *config.Config
	dialect dialect.Dialect
	conns   *conn.Manager
	intro   *schema.Introspector
	engine  *engine.Engine
	log     *logging.Logger
}

func New(cfg *config.Config, d dialect.Dialect, m *conn.Manager, log *logging.Logger) *Gateway {
	return &Gateway{
		cfg:     cfg,
		dialect: d,
		conns:   m,
		intro:   schema.New(cfg, d, m),
		engine:  engine.New(cfg),
		log:     log,
	}
}

// Dialect exposes the active dialect to the transport (resource URIs).
func (g *Gateway) Dialect() dialect.Dialect { return g.dialect }

// Database returns the configured database name.
func (g *Gateway) Database() string { return g.cfg.Database }

// ListTables returns the ordered table names.
func (g *Gateway) ListTables(ctx context.Context) ([]string, error) {
	return g.intro.ListTables(ctx)
}

// DescribeTable returns the descriptor for one table.
func (g *Gateway) DescribeTable(ctx context.Context, table string) (*schema.TableDescriptor, error) {
	return g.intro.DescribeTable(ctx, table)
}

// ExecuteQuery runs the full pipeline for one request. It never returns an
// error: every failure is encoded into the response.
func (g *Gateway) ExecuteQuery(ctx context.Context, req Request) *encode.Response {
	reqID := uuid.NewString()
	start := time.Now()

	outcome := g.run(ctx, req)
	resp := encode.Encode(outcome)

	if resp.Error != nil {
		g.log.Errorf("request %s rejected (%s) after %s: %s",
			reqID, resp.Error.Kind, time.Since(start).Round(time.Millisecond), resp.Error.Message)
	} else {
		g.log.Infof("request %s %s ok in %s (%d rows, %d affected, truncated=%v)",
			reqID, resp.Classification, time.Since(start).Round(time.Millisecond),
			resp.RowCount, resp.RowsAffected, resp.Truncated)
	}
	return resp
}

func (g *Gateway) run(ctx context.Context, req Request) encode.Outcome {
	if cmd := strings.TrimSpace(req.SQL); strings.HasPrefix(cmd, `\`) {
		return g.metaCommand(ctx, cmd)
	}

	// Classification happens before any network round-trip: an invalid
	// statement costs validation, not a half-executed transaction.
	class, err := classify.Classify(req.SQL, g.dialect)
	if err != nil {
		return encode.Failure(class, err)
	}

	if err := classify.CheckParams(req.SQL, req.Params, g.dialect); err != nil {
		return encode.Failure(class, err)
	}

	if err := g.checkPolicy(class, req.Intent); err != nil {
		return encode.Failure(class, err)
	}

	h, err := g.conns.Acquire(ctx)
	if err != nil {
		return encode.Failure(class, err)
	}

	outcome := g.engine.Execute(ctx, h, req.SQL, req.Params, class)

	// A broken session must not go back into the free rotation.
	if outcome.Err != nil && gateerr.KindOf(outcome.Err) == gateerr.KindConnection {
		g.conns.Invalidate(h)
	} else {
		g.conns.Release(h)
	}
	return outcome
}

func (g *Gateway) checkPolicy(class classify.Class, intent string) error {
	if intent == IntentRead && class != classify.ReadOnly {
		return gateerr.Newf(gateerr.KindPermission,
			"request declared read intent but statement classifies as %s", class)
	}
	switch class {
	case classify.ReadOnly:
		return nil
	case classify.Mutating:
		if !g.cfg.ReadWrite {
			return gateerr.New(gateerr.KindPermission,
				"mutating statements require READ_WRITE_MODE=true")
		}
		return nil
	case classify.SchemaAlter:
		if !g.cfg.Admin {
			return gateerr.New(gateerr.KindPermission,
				"schema-altering statements require ADMIN_MODE=true")
		}
		return nil
	default:
		return gateerr.Newf(gateerr.KindValidation, "statement is %s", class)
	}
}

// metaCommand serves the psql-style shortcuts accepted through
// execute_query: \d, \d+ and \dt list tables, \d <table> describes it.
func (g *Gateway) metaCommand(ctx context.Context, cmd string) encode.Outcome {
	fields := strings.Fields(cmd)
	listing := fields[0] == `\d` || fields[0] == `\d+` || fields[0] == `\dt`
	switch {
	case listing && len(fields) == 1:
		tables, err := g.intro.ListTables(ctx)
		if err != nil {
			return encode.Failure(classify.ReadOnly, err)
		}
		out := encode.Outcome{
			Kind:    encode.RowsReturned,
			Class:   classify.ReadOnly,
			Columns: []string{"table_name"},
		}
		for _, t := range tables {
			out.Rows = append(out.Rows, map[string]any{"table_name": t})
		}
		return out
	case (fields[0] == `\d` || fields[0] == `\d+`) && len(fields) == 2:
		desc, err := g.intro.DescribeTable(ctx, fields[1])
		if err != nil {
			return encode.Failure(classify.ReadOnly, err)
		}
		out := encode.Outcome{
			Kind:    encode.RowsReturned,
			Class:   classify.ReadOnly,
			Columns: []string{"column_name", "data_type", "nullable"},
		}
		for _, col := range desc.Columns {
			out.Rows = append(out.Rows, map[string]any{
				"column_name": col.Name,
				"data_type":   col.DataType,
				"nullable":    col.Nullable,
			})
		}
		return out
	default:
		return encode.Failure(classify.Disallowed,
			gateerr.Newf(gateerr.KindValidation, "unsupported meta-command: %s", fields[0]))
	}
}
