// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// base holds what every repository shares: the default executor and the per-statement timeout.
type base struct {
	exec    core.DBExecutor
	timeout time.Duration
}

func newBase(exec core.DBExecutor, timeout time.Duration) base {
	return base{exec: exec, timeout: timeout}
}

func (b base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return b.exec
}

func (b base) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return core.WithQueryTimeout(parent, b.timeout)
}

// trapNoRowsErr maps psql "no rows" err to core.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func pqCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

// checkAffected turns an update or delete that touched nothing into core.ErrNotFound.
func checkAffected(res sql.Result, err error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// scopeArg renders a church scope as a nullable query argument: NULL matches every church.
func scopeArg(scope *int) sql.NullInt64 {
	if scope == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*scope), Valid: true}
}
