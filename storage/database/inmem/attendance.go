package inmemdb

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/tenant"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// withNames resolves names; class_id is the student's current class.
func (repo *attendanceRepository) withNames(r attendance.Record) attendance.Record {
	r.StudentName = repo.db.studentName(r.StudentID)
	r.ClassID, r.ClassName = null.Int{}, null.String{}
	if s, ok := repo.db.students.rows[r.StudentID]; ok && s.ClassID.Valid {
		r.ClassID = s.ClassID
		r.ClassName = repo.db.className(s.ClassID.Int)
	}
	r.LessonTitle = repo.db.lessonTitle(r.LessonID)
	r.ChurchName = repo.db.churchName(r.ChurchID)
	return r
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.Filter, scope *int, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0)
	for _, r := range repo.db.attendance.sorted() {
		if !tenant.InScope(scope, r.ChurchID) {
			continue
		}
		if filter.LessonID != 0 && r.LessonID != filter.LessonID {
			continue
		}
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		r = repo.withNames(r)
		if filter.ClassID != 0 && (!r.ClassID.Valid || r.ClassID.Int != filter.ClassID) {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (repo *attendanceRepository) CountRecorded(_ context.Context, lessonID int, date string, churchID int, studentIDs []int, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, r := range repo.db.attendance.rows {
		if r.LessonID == lessonID && r.Date == date && r.ChurchID == churchID && contains(studentIDs, r.StudentID) {
			n++
		}
	}
	return n, nil
}

// find returns the id of the row of the unique (student_id, lesson_id, date) key.
func (repo *attendanceRepository) find(r attendance.Record) (int, bool) {
	for id, row := range repo.db.attendance.rows {
		if row.StudentID == r.StudentID && row.LessonID == r.LessonID && row.Date == r.Date {
			return id, true
		}
	}
	return 0, false
}

func (repo *attendanceRepository) check(r attendance.Record) error {
	switch {
	case !repo.db.exists("students", r.StudentID):
		return errForeignKey("attendance", "student_id")
	case !repo.db.exists("lessons", r.LessonID):
		return errForeignKey("attendance", "lesson_id")
	case !repo.db.exists("churches", r.ChurchID):
		return errForeignKey("attendance", "church_id")
	}
	return nil
}

func (repo *attendanceRepository) InsertAttendance(_ context.Context, rows []attendance.Record, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	type key struct {
		student, lesson int
		date            string
	}
	seen := make(map[key]bool, len(rows))
	for _, r := range rows {
		if err := repo.check(r); err != nil {
			return err
		}
		k := key{r.StudentID, r.LessonID, r.Date}
		if _, dup := repo.find(r); dup || seen[k] {
			return attendance.ErrDuplicate
		}
		seen[k] = true
	}
	for _, r := range rows {
		r.ID = repo.db.attendance.next()
		repo.db.attendance.rows[r.ID] = r
	}
	return nil
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, rows []attendance.Record, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, r := range rows {
		if err := repo.check(r); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if id, ok := repo.find(r); ok {
			row := repo.db.attendance.rows[id]
			row.Present = r.Present
			row.ChurchID = r.ChurchID
			repo.db.attendance.rows[id] = row
			continue
		}
		r.ID = repo.db.attendance.next()
		repo.db.attendance.rows[r.ID] = r
	}
	return nil
}

func (repo *attendanceRepository) SetPresent(_ context.Context, id int, present bool, scope *int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.attendance.rows[id]
	if !ok || !tenant.InScope(scope, r.ChurchID) {
		return core.ErrNotFound
	}
	r.Present = present
	repo.db.attendance.rows[id] = r
	return nil
}

func (repo *attendanceRepository) DeleteAttendance(_ context.Context, id int, scope *int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.attendance.rows[id]
	if !ok || !tenant.InScope(scope, r.ChurchID) {
		return core.ErrNotFound
	}
	delete(repo.db.attendance.rows, id)
	return nil
}
