package database

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type ConnectOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens a Postgres connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, opts ConnectOptions, logger ectologger.Logger) (DB, error) {
	sqlxDB, err := sqlx.Open("postgres", dsn)
	if err != nil {
		logger.WithError(err).Error("failed to open database connection")
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		sqlxDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlxDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlxDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := sqlxDB.PingContext(ctx); err != nil {
		logger.WithError(err).Error("failed to ping database")
		_ = sqlxDB.Close()
		return nil, err
	}

	return NewDatabaseInstance(sqlxDB, logger), nil
}
