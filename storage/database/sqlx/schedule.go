package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/schedule"
)

type scheduleRepository struct {
	base
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor, timeout time.Duration) *scheduleRepository {
	return &scheduleRepository{base: newBase(exec, timeout)}
}

const scheduleSelect = `
SELECT ts.id, ts.teacher_id, t.name AS teacher_name, ts.class_id, cl.name AS class_name,
	ts.lesson_id, l.title AS lesson_title, ts.church_id, ch.name AS church_name,
	to_char(ts.date, 'YYYY-MM-DD') AS date
FROM teacher_schedule ts
LEFT JOIN teachers t ON t.id = ts.teacher_id
LEFT JOIN classes cl ON cl.id = ts.class_id
LEFT JOIN lessons l ON l.id = ts.lesson_id
LEFT JOIN churches ch ON ch.id = ts.church_id`

func (repo *scheduleRepository) QuerySchedule(ctx context.Context, scope *int, exec ...core.DBExecutor) ([]schedule.Record, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	records := make([]schedule.Record, 0)
	q := scheduleSelect + ` WHERE ($1::int IS NULL OR ts.church_id = $1) ORDER BY ts.id`
	if err := repo.getExec(exec).SelectContext(ctx, &records, q, scopeArg(scope)); err != nil {
		return nil, errors.Wrap(err, "querying schedule")
	}
	return records, nil
}

func (repo *scheduleRepository) get(ctx context.Context, exec core.DBExecutor, id int) (schedule.Record, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var r schedule.Record
	if err := exec.GetContext(ctx, &r, scheduleSelect+` WHERE ts.id = $1`, id); err != nil {
		return schedule.Record{}, trapNoRowsErr(err, "finding schedule record")
	}
	return r, nil
}

func (repo *scheduleRepository) GetScheduleRecord(ctx context.Context, id int, exec ...core.DBExecutor) (schedule.Record, error) {
	return repo.get(ctx, repo.getExec(exec), id)
}

func (repo *scheduleRepository) CreateScheduleRecord(ctx context.Context, r schedule.Record, exec ...core.DBExecutor) (schedule.Record, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO teacher_schedule (teacher_id, class_id, lesson_id, church_id, date)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := exe.QueryRowxContext(ctx, q, r.TeacherID, r.ClassID, r.LessonID, r.ChurchID, r.Date).Scan(&id); err != nil {
		return schedule.Record{}, errors.Wrap(err, "inserting schedule record")
	}
	return repo.get(ctx, exe, id)
}

func (repo *scheduleRepository) UpdateScheduleRecord(ctx context.Context, r schedule.Record, scope *int, exec ...core.DBExecutor) (schedule.Record, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE teacher_schedule SET teacher_id = $2, class_id = $3, lesson_id = $4, date = $5
		WHERE id = $1 AND ($6::int IS NULL OR church_id = $6)`
	res, err := exe.ExecContext(ctx, q, r.ID, r.TeacherID, r.ClassID, r.LessonID, r.Date, scopeArg(scope))
	if err = checkAffected(res, err, "updating schedule record"); err != nil {
		return schedule.Record{}, err
	}
	return repo.get(ctx, exe, r.ID)
}

func (repo *scheduleRepository) DeleteScheduleRecord(ctx context.Context, id int, scope *int, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `DELETE FROM teacher_schedule WHERE id = $1 AND ($2::int IS NULL OR church_id = $2)`
	res, err := repo.getExec(exec).ExecContext(ctx, q, id, scopeArg(scope))
	return checkAffected(res, err, "deleting schedule record")
}
