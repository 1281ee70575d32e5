package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
)

type attendanceRepository struct {
	base
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor, timeout time.Duration) *attendanceRepository {
	return &attendanceRepository{base: newBase(exec, timeout)}
}

// class_id is the student's current class.
const attendanceSelect = `
SELECT a.id, a.student_id, s.name AS student_name, s.class_id, cl.name AS class_name,
	a.lesson_id, l.title AS lesson_title, a.church_id, ch.name AS church_name, a.present,
	to_char(a.date, 'YYYY-MM-DD') AS date
FROM attendance a
LEFT JOIN students s ON s.id = a.student_id
LEFT JOIN classes cl ON cl.id = s.class_id
LEFT JOIN lessons l ON l.id = a.lesson_id
LEFT JOIN churches ch ON ch.id = a.church_id`

const unnestRows = `
SELECT * FROM unnest($1::int[], $2::int[], $3::int[], $4::bool[], $5::date[])`

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter, scope *int, exec ...core.DBExecutor) ([]attendance.Record, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	records := make([]attendance.Record, 0)
	q := attendanceSelect + `
WHERE ($1::int IS NULL OR a.church_id = $1)
	AND ($2 = 0 OR a.lesson_id = $2)
	AND ($3 = 0 OR s.class_id = $3)
	AND ($4 = '' OR a.date = NULLIF($4, '')::date)
ORDER BY a.id`
	err := repo.getExec(exec).SelectContext(ctx, &records, q, scopeArg(scope), filter.LessonID, filter.ClassID, filter.Date)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo *attendanceRepository) CountRecorded(ctx context.Context, lessonID int, date string, churchID int, studentIDs []int, exec ...core.DBExecutor) (int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var n int
	q := `SELECT COUNT(*) FROM attendance
		WHERE lesson_id = $1 AND date = $2::date AND church_id = $3 AND student_id = ANY($4)`
	if err := repo.getExec(exec).GetContext(ctx, &n, q, lessonID, date, churchID, pq.Array(studentIDs)); err != nil {
		return 0, errors.Wrap(err, "counting attendance")
	}
	return n, nil
}

// columns splits rows into the parallel arrays unnest expects.
func columns(rows []attendance.Record) (students, lessons, churches pq.Int64Array, present pq.BoolArray, dates pq.StringArray) {
	for _, r := range rows {
		students = append(students, int64(r.StudentID))
		lessons = append(lessons, int64(r.LessonID))
		churches = append(churches, int64(r.ChurchID))
		present = append(present, r.Present)
		dates = append(dates, r.Date)
	}
	return
}

func (repo *attendanceRepository) InsertAttendance(ctx context.Context, rows []attendance.Record, exec ...core.DBExecutor) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	students, lessons, churches, present, dates := columns(rows)
	q := `INSERT INTO attendance (student_id, lesson_id, church_id, present, date)` + unnestRows
	if _, err := repo.getExec(exec).ExecContext(ctx, q, students, lessons, churches, present, dates); err != nil {
		if pqCode(err) == uniqueViolation {
			return attendance.ErrDuplicate
		}
		return errors.Wrap(err, "inserting attendance")
	}
	return nil
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, rows []attendance.Record, exec ...core.DBExecutor) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	students, lessons, churches, present, dates := columns(rows)
	q := `INSERT INTO attendance (student_id, lesson_id, church_id, present, date)` + unnestRows + `
ON CONFLICT (student_id, lesson_id, date) DO UPDATE SET present = EXCLUDED.present, church_id = EXCLUDED.church_id`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, students, lessons, churches, present, dates); err != nil {
		return errors.Wrap(err, "upserting attendance")
	}
	return nil
}

func (repo *attendanceRepository) SetPresent(ctx context.Context, id int, present bool, scope *int, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE attendance SET present = $2 WHERE id = $1 AND ($3::int IS NULL OR church_id = $3)`
	res, err := repo.getExec(exec).ExecContext(ctx, q, id, present, scopeArg(scope))
	return checkAffected(res, err, "updating attendance")
}

func (repo *attendanceRepository) DeleteAttendance(ctx context.Context, id int, scope *int, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `DELETE FROM attendance WHERE id = $1 AND ($2::int IS NULL OR church_id = $2)`
	res, err := repo.getExec(exec).ExecContext(ctx, q, id, scopeArg(scope))
	return checkAffected(res, err, "deleting attendance")
}
