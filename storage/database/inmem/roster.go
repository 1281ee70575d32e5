package inmemdb

import (
	"context"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/tenant"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{db: db}
}

// Classes

func (repo *rosterRepository) withClassNames(c roster.Class) roster.Class {
	c.ChurchName = repo.db.churchName(c.ChurchID)
	c.MagazineTitle = repo.db.magazineTitle(c.MagazineID.Int)
	if !c.MagazineID.Valid {
		c.MagazineTitle.Valid = false
	}
	return c
}

func (repo *rosterRepository) checkClass(c roster.Class) error {
	if !repo.db.exists("churches", c.ChurchID) {
		return errForeignKey("classes", "church_id")
	}
	if !repo.db.existsNull("magazines", c.MagazineID) {
		return errForeignKey("classes", "magazine_id")
	}
	return nil
}

func (repo *rosterRepository) QueryClasses(_ context.Context, scope *int, _ ...core.DBExecutor) ([]roster.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]roster.Class, 0)
	for _, c := range repo.db.classes.sorted() {
		if tenant.InScope(scope, c.ChurchID) {
			classes = append(classes, repo.withClassNames(c))
		}
	}
	return classes, nil
}

func (repo *rosterRepository) GetClass(_ context.Context, id int, _ ...core.DBExecutor) (roster.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.classes.rows[id]; ok {
		return repo.withClassNames(c), nil
	}
	return roster.Class{}, core.ErrNotFound
}

func (repo *rosterRepository) CreateClass(_ context.Context, c roster.Class, _ ...core.DBExecutor) (roster.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkClass(c); err != nil {
		return roster.Class{}, err
	}
	c.ID = repo.db.classes.next()
	repo.db.classes.rows[c.ID] = c
	return repo.withClassNames(c), nil
}

func (repo *rosterRepository) UpdateClass(_ context.Context, c roster.Class, scope *int, _ ...core.DBExecutor) (roster.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.classes.rows[c.ID]
	if !ok || !tenant.InScope(scope, orig.ChurchID) {
		return roster.Class{}, core.ErrNotFound
	}
	if err := repo.checkClass(c); err != nil {
		return roster.Class{}, err
	}
	orig.Name = c.Name
	orig.MagazineID = c.MagazineID
	repo.db.classes.rows[c.ID] = orig
	return repo.withClassNames(orig), nil
}

func (repo *rosterRepository) SetClassActive(_ context.Context, id int, active bool, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c, ok := repo.db.classes.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	c.Active = active
	repo.db.classes.rows[id] = c
	return nil
}

func (repo *rosterRepository) ClassStudentIDs(_ context.Context, classID int, _ ...core.DBExecutor) ([]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []int
	for _, s := range repo.db.students.sorted() {
		if s.ClassID.Valid && s.ClassID.Int == classID {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// Teachers

func (repo *rosterRepository) withTeacherNames(t roster.Teacher) roster.Teacher {
	t.ChurchName = repo.db.churchName(t.ChurchID)
	t.ClassName = repo.db.className(t.ClassID.Int)
	if !t.ClassID.Valid {
		t.ClassName.Valid = false
	}
	return t
}

func (repo *rosterRepository) QueryTeachers(_ context.Context, filter roster.Filter, scope *int, _ ...core.DBExecutor) ([]roster.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := make([]roster.Teacher, 0)
	for _, t := range repo.db.teachers.sorted() {
		if !tenant.InScope(scope, t.ChurchID) {
			continue
		}
		if filter.ClassID != 0 && (!t.ClassID.Valid || t.ClassID.Int != filter.ClassID) {
			continue
		}
		teachers = append(teachers, repo.withTeacherNames(t))
	}
	return teachers, nil
}

func (repo *rosterRepository) GetTeacher(_ context.Context, id int, _ ...core.DBExecutor) (roster.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.teachers.rows[id]; ok {
		return repo.withTeacherNames(t), nil
	}
	return roster.Teacher{}, core.ErrNotFound
}

func (repo *rosterRepository) CreateTeacher(_ context.Context, t roster.Teacher, _ ...core.DBExecutor) (roster.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.exists("churches", t.ChurchID) {
		return roster.Teacher{}, errForeignKey("teachers", "church_id")
	}
	if !repo.db.existsNull("classes", t.ClassID) {
		return roster.Teacher{}, errForeignKey("teachers", "class_id")
	}
	t.ID = repo.db.teachers.next()
	repo.db.teachers.rows[t.ID] = t
	return repo.withTeacherNames(t), nil
}

func (repo *rosterRepository) UpdateTeacher(_ context.Context, t roster.Teacher, scope *int, _ ...core.DBExecutor) (roster.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.teachers.rows[t.ID]
	if !ok || !tenant.InScope(scope, orig.ChurchID) {
		return roster.Teacher{}, core.ErrNotFound
	}
	if !repo.db.existsNull("classes", t.ClassID) {
		return roster.Teacher{}, errForeignKey("teachers", "class_id")
	}
	orig.Name = t.Name
	orig.ClassID = t.ClassID
	repo.db.teachers.rows[t.ID] = orig
	return repo.withTeacherNames(orig), nil
}

func (repo *rosterRepository) SetTeacherActive(_ context.Context, id int, active bool, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.teachers.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	t.Active = active
	repo.db.teachers.rows[id] = t
	return nil
}

// Students

func (repo *rosterRepository) withStudentNames(s roster.Student) roster.Student {
	s.ChurchName = repo.db.churchName(s.ChurchID)
	s.ClassName = repo.db.className(s.ClassID.Int)
	if !s.ClassID.Valid {
		s.ClassName.Valid = false
	}
	return s
}

func (repo *rosterRepository) QueryStudents(_ context.Context, filter roster.Filter, scope *int, _ ...core.DBExecutor) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]roster.Student, 0)
	for _, s := range repo.db.students.sorted() {
		if !tenant.InScope(scope, s.ChurchID) {
			continue
		}
		if filter.ClassID != 0 && (!s.ClassID.Valid || s.ClassID.Int != filter.ClassID) {
			continue
		}
		students = append(students, repo.withStudentNames(s))
	}
	return students, nil
}

func (repo *rosterRepository) GetStudent(_ context.Context, id int, _ ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students.rows[id]; ok {
		return repo.withStudentNames(s), nil
	}
	return roster.Student{}, core.ErrNotFound
}

func (repo *rosterRepository) CreateStudent(_ context.Context, s roster.Student, _ ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.exists("churches", s.ChurchID) {
		return roster.Student{}, errForeignKey("students", "church_id")
	}
	if !repo.db.existsNull("classes", s.ClassID) {
		return roster.Student{}, errForeignKey("students", "class_id")
	}
	s.ID = repo.db.students.next()
	repo.db.students.rows[s.ID] = s
	return repo.withStudentNames(s), nil
}

func (repo *rosterRepository) UpdateStudent(_ context.Context, s roster.Student, scope *int, _ ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students.rows[s.ID]
	if !ok || !tenant.InScope(scope, orig.ChurchID) {
		return roster.Student{}, core.ErrNotFound
	}
	if !repo.db.existsNull("classes", s.ClassID) {
		return roster.Student{}, errForeignKey("students", "class_id")
	}
	orig.Name = s.Name
	orig.BirthDate = s.BirthDate
	orig.ClassID = s.ClassID
	repo.db.students.rows[s.ID] = orig
	return repo.withStudentNames(orig), nil
}

func (repo *rosterRepository) SetStudentActive(_ context.Context, id int, active bool, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.students.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	s.Active = active
	repo.db.students.rows[id] = s
	return nil
}
