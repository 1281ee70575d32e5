package inmemdb

import (
	"context"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/schedule"
	"github.com/conectaebd/backend/core/tenant"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) withNames(r schedule.Record) schedule.Record {
	r.TeacherName = repo.db.teacherName(r.TeacherID)
	r.ClassName = repo.db.className(r.ClassID)
	r.LessonTitle = repo.db.lessonTitle(r.LessonID)
	r.ChurchName = repo.db.churchName(r.ChurchID)
	return r
}

func (repo *scheduleRepository) check(r schedule.Record) error {
	switch {
	case !repo.db.exists("teachers", r.TeacherID):
		return errForeignKey("teacher_schedule", "teacher_id")
	case !repo.db.exists("classes", r.ClassID):
		return errForeignKey("teacher_schedule", "class_id")
	case !repo.db.exists("lessons", r.LessonID):
		return errForeignKey("teacher_schedule", "lesson_id")
	case !repo.db.exists("churches", r.ChurchID):
		return errForeignKey("teacher_schedule", "church_id")
	}
	return nil
}

func (repo *scheduleRepository) QuerySchedule(_ context.Context, scope *int, _ ...core.DBExecutor) ([]schedule.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]schedule.Record, 0)
	for _, r := range repo.db.schedule.sorted() {
		if tenant.InScope(scope, r.ChurchID) {
			records = append(records, repo.withNames(r))
		}
	}
	return records, nil
}

func (repo *scheduleRepository) GetScheduleRecord(_ context.Context, id int, _ ...core.DBExecutor) (schedule.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.schedule.rows[id]; ok {
		return repo.withNames(r), nil
	}
	return schedule.Record{}, core.ErrNotFound
}

func (repo *scheduleRepository) CreateScheduleRecord(_ context.Context, r schedule.Record, _ ...core.DBExecutor) (schedule.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.check(r); err != nil {
		return schedule.Record{}, err
	}
	r.ID = repo.db.schedule.next()
	repo.db.schedule.rows[r.ID] = r
	return repo.withNames(r), nil
}

func (repo *scheduleRepository) UpdateScheduleRecord(_ context.Context, r schedule.Record, scope *int, _ ...core.DBExecutor) (schedule.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.schedule.rows[r.ID]
	if !ok || !tenant.InScope(scope, orig.ChurchID) {
		return schedule.Record{}, core.ErrNotFound
	}
	r.ChurchID = orig.ChurchID
	if err := repo.check(r); err != nil {
		return schedule.Record{}, err
	}
	repo.db.schedule.rows[r.ID] = r
	return repo.withNames(r), nil
}

func (repo *scheduleRepository) DeleteScheduleRecord(_ context.Context, id int, scope *int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.schedule.rows[id]
	if !ok || !tenant.InScope(scope, r.ChurchID) {
		return core.ErrNotFound
	}
	delete(repo.db.schedule.rows, id)
	return nil
}
