package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"basegraph.app/gapengine/core/db/sqlc"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns = 10
	defaultMinConns = 2
)

// DB owns the connection pool shared by the job, result and chapter stores.
type DB struct {
	pool *pgxpool.Pool
}

type Config struct {
	// sslmode is taken from the DSN.
	DSN string

	MaxConns int32
	MinConns int32

	// Shows up in pg_stat_activity, e.g. "gapengine-worker".
	ApplicationName string

	// Caps every statement on the session. Zero leaves the server default.
	StatementTimeout time.Duration
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = defaultMinConns
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	params := poolCfg.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return poolCfg, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Queries() *sqlc.Queries {
	return sqlc.New(db.pool)
}

// WithTx runs fn in one transaction. The worker relies on it to write a
// result row and mark its job succeeded together, so a crash between the two
// can never leave a succeeded job without a result.
func (db *DB) WithTx(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		return fn(sqlc.New(tx))
	})
	if err != nil {
		return fmt.Errorf("gap analysis transaction: %w", err)
	}
	return nil
}
