package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
)

// identifiers the cascade rules may name; anything else is refused before reaching SQL
var (
	cascadeTables = map[string]bool{
		"churches": true, "users": true, "magazines": true, "lessons": true, "classes": true,
		"teachers": true, "students": true, "attendance": true, "teacher_schedule": true, "materials": true,
	}
	cascadeColumns = map[string]bool{
		"id": true, "church_id": true, "magazine_id": true, "lesson_id": true,
		"class_id": true, "student_id": true, "teacher_id": true,
	}
)

type cascadeStore struct {
	timeout time.Duration
}

var _ cascade.Store = (*cascadeStore)(nil) // interface compliance check

func NewCascadeStore(timeout time.Duration) *cascadeStore {
	return &cascadeStore{timeout: timeout}
}

func checkIdent(table, column string) error {
	if !cascadeTables[table] || !cascadeColumns[column] {
		return errors.Errorf("cascade: refusing %s.%s", table, column)
	}
	return nil
}

func (s *cascadeStore) SelectIDs(ctx context.Context, exec core.DBExecutor, table, column string, values []int) ([]int, error) {
	if err := checkIdent(table, column); err != nil {
		return nil, err
	}
	ctx, cancel := core.WithQueryTimeout(ctx, s.timeout)
	defer cancel()

	var ids []int
	q := `SELECT id FROM ` + pq.QuoteIdentifier(table) + ` WHERE ` + pq.QuoteIdentifier(column) + ` = ANY($1) ORDER BY id`
	if err := exec.SelectContext(ctx, &ids, q, pq.Array(values)); err != nil {
		return nil, errors.Wrapf(err, "selecting %s by %s", table, column)
	}
	return ids, nil
}

func (s *cascadeStore) DeleteWhere(ctx context.Context, exec core.DBExecutor, table, column string, values []int) (int64, error) {
	if err := checkIdent(table, column); err != nil {
		return 0, err
	}
	ctx, cancel := core.WithQueryTimeout(ctx, s.timeout)
	defer cancel()

	q := `DELETE FROM ` + pq.QuoteIdentifier(table) + ` WHERE ` + pq.QuoteIdentifier(column) + ` = ANY($1)`
	res, err := exec.ExecContext(ctx, q, pq.Array(values))
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return 0, errors.Wrapf(cascade.ErrDependentRows, "deleting %s by %s: %v", table, column, err)
		}
		return 0, errors.Wrapf(err, "deleting %s by %s", table, column)
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted rows")
}
