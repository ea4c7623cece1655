// Package conn owns the database session lifecycle: a bounded pool of
// dedicated handles with acquire/release/invalidate semantics on top of
// database/sql.
package conn

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync/atomic"
	"time"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateerr"
	"github.com/sqlgate/sqlgate/internal/logging"
)

const (
	connectTimeout = 10 * time.Second
	initialBackoff = 500 * time.Millisecond
)

// Handle is one live database session. At most one statement is in flight
// per handle; callers never share a handle across requests.
type Handle struct {
	conn *sql.Conn
}

// QueryContext runs a row-returning statement on this session.
func (h *Handle) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return h.conn.QueryContext(ctx, query, args...)
}

// ExecContext runs a statement that returns no rows on this session.
func (h *Handle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.conn.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction pinned to this session.
func (h *Handle) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return h.conn.BeginTx(ctx, opts)
}

// Manager establishes and hands out connection handles. The free-list is a
// buffered channel of tokens, which doubles as the mutual exclusion around
// pool capacity.
type Manager struct {
	db      *sql.DB
	dialect dialect.Dialect
	cfg     *config.Config
	log     *logging.Logger

	tokens        chan struct{}
	acquires      atomic.Int64
	invalidations atomic.Int64
}

// Open connects to the database and verifies reachability with bounded
// retries and exponential backoff. Failure after the retry budget is a
// startup error, not something to retry forever.
func Open(ctx context.Context, cfg *config.Config, d dialect.Dialect, log *logging.Logger) (*Manager, error) {
	db, err := sql.Open(d.DriverName(), d.DSN(cfg))
	if err != nil {
		return nil, gateerr.Wrap(gateerr.KindConnection, "open database", err)
	}

	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetConnMaxLifetime(time.Hour)

	backoff := initialBackoff
	attempts := cfg.ConnectRetries + 1
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= attempts {
			db.Close()
			return nil, gateerr.Wrap(gateerr.KindConnection, "database unreachable", err)
		}
		log.Errorf("connect attempt %d/%d failed: %v", attempt, attempts, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			db.Close()
			return nil, gateerr.Wrap(gateerr.KindConnection, "connect canceled", ctx.Err())
		}
		backoff *= 2
	}

	tokens := make(chan struct{}, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		tokens <- struct{}{}
	}

	return &Manager{
		db:      db,
		dialect: d,
		cfg:     cfg,
		log:     log,
		tokens:  tokens,
	}, nil
}

// Acquire blocks until a handle is free or the acquire timeout elapses.
// Each handle is a dedicated session with the dialect's session setup applied.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout())
	defer cancel()

	select {
	case <-m.tokens:
	case <-waitCtx.Done():
		return nil, gateerr.New(gateerr.KindResourceExhausted,
			"no connection handle became available within the acquire timeout")
	}

	c, err := m.db.Conn(waitCtx)
	if err != nil {
		m.tokens <- struct{}{}
		return nil, gateerr.Wrap(gateerr.KindConnection, "acquire session", err)
	}

	readOnly := !m.cfg.ReadWrite && !m.cfg.Admin
	if err := m.dialect.SessionSetup(ctx, c, readOnly); err != nil {
		c.Close()
		m.tokens <- struct{}{}
		return nil, gateerr.Wrap(gateerr.KindConnection, "session setup", err)
	}

	m.acquires.Add(1)
	return &Handle{conn: c}, nil
}

// Release returns the handle to the pool.
func (m *Manager) Release(h *Handle) {
	h.conn.Close()
	m.tokens <- struct{}{}
}

// Invalidate discards the handle's underlying connection so the next acquire
// establishes a fresh session. Used after fatal errors (reset, auth failure).
func (m *Manager) Invalidate(h *Handle) {
	h.conn.Raw(func(driverConn any) error {
		return driver.ErrBadConn
	})
	h.conn.Close()
	m.invalidations.Add(1)
	m.tokens <- struct{}{}
}

// AcquireCount reports how many handles have been handed out since startup.
func (m *Manager) AcquireCount() int64 { return m.acquires.Load() }

// InvalidateCount reports how many handles have been discarded as fatal.
func (m *Manager) InvalidateCount() int64 { return m.invalidations.Load() }

// Close releases the pool.
func (m *Manager) Close() error { return m.db.Close() }
