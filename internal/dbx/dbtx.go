// Package dbx provides tiny DB helpers shared by repositories: a minimal
// interface (DBTX) implemented by both *sql.DB and *sql.Tx, and a startup
// helper that opens a pool and waits for the server to answer.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultBackoff retries with exponential delay starting at 200ms, capped
// at 5s per attempt and 8 attempts in total.
func DefaultBackoff() retry.Backoff {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxRetries(7, b)
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenWithRetry opens a pool for driver/dsn and pings it until it responds
// or backoff gives up. The pool is closed on failure.
func OpenWithRetry(ctx context.Context, driver, dsn string, backoff retry.Backoff) (*sql.DB, error) {
	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if backoff == nil {
		backoff = DefaultBackoff()
	}

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}
