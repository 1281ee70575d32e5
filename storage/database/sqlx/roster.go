package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/roster"
)

type rosterRepository struct {
	base
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(exec core.DBExecutor, timeout time.Duration) *rosterRepository {
	return &rosterRepository{base: newBase(exec, timeout)}
}

const (
	classSelect = `
SELECT cl.id, cl.name, cl.church_id, ch.name AS church_name, cl.magazine_id, m.title AS magazine_title, cl.active
FROM classes cl
LEFT JOIN churches ch ON ch.id = cl.church_id
LEFT JOIN magazines m ON m.id = cl.magazine_id`

	teacherSelect = `
SELECT t.id, t.name, t.church_id, ch.name AS church_name, t.class_id, cl.name AS class_name, t.active
FROM teachers t
LEFT JOIN churches ch ON ch.id = t.church_id
LEFT JOIN classes cl ON cl.id = t.class_id`

	studentSelect = `
SELECT s.id, s.name, to_char(s.birth_date, 'YYYY-MM-DD') AS birth_date, s.church_id, ch.name AS church_name,
	s.class_id, cl.name AS class_name, s.active
FROM students s
LEFT JOIN churches ch ON ch.id = s.church_id
LEFT JOIN classes cl ON cl.id = s.class_id`
)

func (repo *rosterRepository) setActive(ctx context.Context, exec core.DBExecutor, table string, id int, active bool) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	// table always comes from the callers below, never from user input
	res, err := exec.ExecContext(ctx, `UPDATE `+table+` SET active = $2 WHERE id = $1`, id, active)
	return checkAffected(res, err, "toggling "+table)
}

// Classes

func (repo *rosterRepository) QueryClasses(ctx context.Context, scope *int, exec ...core.DBExecutor) ([]roster.Class, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	classes := make([]roster.Class, 0)
	q := classSelect + ` WHERE ($1::int IS NULL OR cl.church_id = $1) ORDER BY cl.id`
	if err := repo.getExec(exec).SelectContext(ctx, &classes, q, scopeArg(scope)); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo *rosterRepository) getClass(ctx context.Context, exec core.DBExecutor, id int) (roster.Class, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var c roster.Class
	if err := exec.GetContext(ctx, &c, classSelect+` WHERE cl.id = $1`, id); err != nil {
		return roster.Class{}, trapNoRowsErr(err, "finding class")
	}
	return c, nil
}

func (repo *rosterRepository) GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (roster.Class, error) {
	return repo.getClass(ctx, repo.getExec(exec), id)
}

func (repo *rosterRepository) CreateClass(ctx context.Context, c roster.Class, exec ...core.DBExecutor) (roster.Class, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO classes (name, church_id, magazine_id, active) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := exe.QueryRowxContext(ctx, q, c.Name, c.ChurchID, c.MagazineID, c.Active).Scan(&id); err != nil {
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}
	return repo.getClass(ctx, exe, id)
}

func (repo *rosterRepository) UpdateClass(ctx context.Context, c roster.Class, scope *int, exec ...core.DBExecutor) (roster.Class, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE classes SET name = $2, magazine_id = $3 WHERE id = $1 AND ($4::int IS NULL OR church_id = $4)`
	res, err := exe.ExecContext(ctx, q, c.ID, c.Name, c.MagazineID, scopeArg(scope))
	if err = checkAffected(res, err, "updating class"); err != nil {
		return roster.Class{}, err
	}
	return repo.getClass(ctx, exe, c.ID)
}

func (repo *rosterRepository) SetClassActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error {
	return repo.setActive(ctx, repo.getExec(exec), "classes", id, active)
}

func (repo *rosterRepository) ClassStudentIDs(ctx context.Context, classID int, exec ...core.DBExecutor) ([]int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var ids []int
	q := `SELECT id FROM students WHERE class_id = $1 ORDER BY id`
	if err := repo.getExec(exec).SelectContext(ctx, &ids, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return ids, nil
}

// Teachers

func (repo *rosterRepository) QueryTeachers(ctx context.Context, filter roster.Filter, scope *int, exec ...core.DBExecutor) ([]roster.Teacher, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	teachers := make([]roster.Teacher, 0)
	q := teacherSelect + ` WHERE ($1::int IS NULL OR t.church_id = $1) AND ($2 = 0 OR t.class_id = $2) ORDER BY t.id`
	if err := repo.getExec(exec).SelectContext(ctx, &teachers, q, scopeArg(scope), filter.ClassID); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	return teachers, nil
}

func (repo *rosterRepository) getTeacher(ctx context.Context, exec core.DBExecutor, id int) (roster.Teacher, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var t roster.Teacher
	if err := exec.GetContext(ctx, &t, teacherSelect+` WHERE t.id = $1`, id); err != nil {
		return roster.Teacher{}, trapNoRowsErr(err, "finding teacher")
	}
	return t, nil
}

func (repo *rosterRepository) GetTeacher(ctx context.Context, id int, exec ...core.DBExecutor) (roster.Teacher, error) {
	return repo.getTeacher(ctx, repo.getExec(exec), id)
}

func (repo *rosterRepository) CreateTeacher(ctx context.Context, t roster.Teacher, exec ...core.DBExecutor) (roster.Teacher, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO teachers (name, church_id, class_id, active) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := exe.QueryRowxContext(ctx, q, t.Name, t.ChurchID, t.ClassID, t.Active).Scan(&id); err != nil {
		return roster.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return repo.getTeacher(ctx, exe, id)
}

func (repo *rosterRepository) UpdateTeacher(ctx context.Context, t roster.Teacher, scope *int, exec ...core.DBExecutor) (roster.Teacher, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE teachers SET name = $2, class_id = $3 WHERE id = $1 AND ($4::int IS NULL OR church_id = $4)`
	res, err := exe.ExecContext(ctx, q, t.ID, t.Name, t.ClassID, scopeArg(scope))
	if err = checkAffected(res, err, "updating teacher"); err != nil {
		return roster.Teacher{}, err
	}
	return repo.getTeacher(ctx, exe, t.ID)
}

func (repo *rosterRepository) SetTeacherActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error {
	return repo.setActive(ctx, repo.getExec(exec), "teachers", id, active)
}

// Students

func (repo *rosterRepository) QueryStudents(ctx context.Context, filter roster.Filter, scope *int, exec ...core.DBExecutor) ([]roster.Student, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	students := make([]roster.Student, 0)
	q := studentSelect + ` WHERE ($1::int IS NULL OR s.church_id = $1) AND ($2 = 0 OR s.class_id = $2) ORDER BY s.id`
	if err := repo.getExec(exec).SelectContext(ctx, &students, q, scopeArg(scope), filter.ClassID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *rosterRepository) getStudent(ctx context.Context, exec core.DBExecutor, id int) (roster.Student, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var s roster.Student
	if err := exec.GetContext(ctx, &s, studentSelect+` WHERE s.id = $1`, id); err != nil {
		return roster.Student{}, trapNoRowsErr(err, "finding student")
	}
	return s, nil
}

func (repo *rosterRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (roster.Student, error) {
	return repo.getStudent(ctx, repo.getExec(exec), id)
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, s roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO students (name, birth_date, church_id, class_id, active) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := exe.QueryRowxContext(ctx, q, s.Name, s.BirthDate, s.ChurchID, s.ClassID, s.Active).Scan(&id); err != nil {
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.getStudent(ctx, exe, id)
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, s roster.Student, scope *int, exec ...core.DBExecutor) (roster.Student, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE students SET name = $2, birth_date = $3, class_id = $4 WHERE id = $1 AND ($5::int IS NULL OR church_id = $5)`
	res, err := exe.ExecContext(ctx, q, s.ID, s.Name, s.BirthDate, s.ClassID, scopeArg(scope))
	if err = checkAffected(res, err, "updating student"); err != nil {
		return roster.Student{}, err
	}
	return repo.getStudent(ctx, exe, s.ID)
}

func (repo *rosterRepository) SetStudentActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error {
	return repo.setActive(ctx, repo.getExec(exec), "students", id, active)
}
