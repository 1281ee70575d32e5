package core

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories can run
	// inside or outside of a transaction.
	DBExecutor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	// Transactor runs fn inside a single transaction: fn's error (or a panic) rolls everything back.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

// DefaultQueryTimeout bounds a single storage round-trip when the caller did not set a deadline.
var DefaultQueryTimeout = 5 * time.Second

// WithQueryTimeout derives a context for one storage call. A parent deadline shorter than d wins.
func WithQueryTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultQueryTimeout
	}
	if dl, ok := parent.Deadline(); ok && time.Until(dl) < d {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
