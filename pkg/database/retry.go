package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"
)

const uniqueViolationCode = pq.ErrorCode("23505")

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// WithTxRetry runs fn inside a fresh transaction, committing on success. The
// transaction is carried on the context handed to fn, so repository calls
// inside fn join it through GetTx. When the unit fails with a unique
// violation it is retried from scratch, up to attempts times. Any other
// error is returned immediately.
func WithTxRetry(
	ctx context.Context,
	db DB,
	logger ectologger.Logger,
	attempts int,
	fn func(ctx context.Context) error,
) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := runTxUnit(ctx, db, logger, fn)
		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return err
		}

		lastErr = err
		logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warnf("unique violation inside transaction, retrying")
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", attempts, lastErr)
}

func runTxUnit(ctx context.Context, db DB, logger ectologger.Logger, fn func(ctx context.Context) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return fmt.Errorf("error while beginning transaction")
	}

	wrapped := NewTx(tx, logger)
	ctxTx := context.WithValue(ctx, txStatusKey, "open")
	ctxTx = context.WithValue(ctxTx, txKey, wrapped)

	if err := fn(ctxTx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
