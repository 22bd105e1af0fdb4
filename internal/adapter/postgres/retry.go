package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const maxUpdateAttempts = 3

// SQLSTATE codes of transactions Postgres aborted to resolve a conflict.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// retryable reports whether err aborted a transaction that may succeed when
// run again.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}

// retry runs op until it succeeds, fails for a reason retryable does not
// accept, ctx is done or attempts are used up. The last error is returned.
func retry(ctx context.Context, attempts int, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
