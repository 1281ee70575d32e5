// Package inmemdb is a process-local implementation of every repository, used as a test double.
// It enforces the same unique and foreign key constraints as the postgres schema.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/material"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/schedule"
	"github.com/conectaebd/backend/core/user"
)

// table holds the rows of one relation keyed by id.
type table[T any] struct {
	rows map[int]T
	seq  int
	// col returns the value of an integer column; ok is false for NULL or unknown columns.
	col func(row T, column string) (val int, ok bool)
}

func newTable[T any](col func(T, string) (int, bool)) *table[T] {
	return &table[T]{rows: make(map[int]T), col: col}
}

func (t *table[T]) next() int {
	t.seq++
	return t.seq
}

// sorted returns the rows ordered by id.
func (t *table[T]) sorted() []T {
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) clone() *table[T] {
	rows := make(map[int]T, len(t.rows))
	for id, r := range t.rows {
		rows[id] = r
	}
	return &table[T]{rows: rows, seq: t.seq, col: t.col}
}

// relation is the untyped view of a table the cascade store works with.
type relation interface {
	ids() []int
	value(id int, column string) (int, bool)
	remove(id int)
}

func (t *table[T]) ids() []int {
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (t *table[T]) value(id int, column string) (int, bool) {
	if column == "id" {
		_, ok := t.rows[id]
		return id, ok
	}
	return t.col(t.rows[id], column)
}

func (t *table[T]) remove(id int) {
	delete(t.rows, id)
}

func nullInt(v interface{ Ptr() *int }) (int, bool) {
	if p := v.Ptr(); p != nil {
		return *p, true
	}
	return 0, false
}

type (
	DB struct {
		mutex   sync.RWMutex
		txMutex sync.Mutex

		churches   *table[church.Church]
		users      *table[user.User]
		magazines  *table[magazine.Magazine]
		lessons    *table[magazine.Lesson]
		classes    *table[roster.Class]
		teachers   *table[roster.Teacher]
		students   *table[roster.Student]
		attendance *table[attendance.Record]
		schedule   *table[schedule.Record]
		materials  *table[material.Material]
	}

	// foreignKey is a column of a referencing table pointing at another table's id.
	foreignKey struct {
		table, column string
		setNull       bool
	}
)

// references lists, per table, the foreign keys pointing at it.
var references = map[string][]foreignKey{
	"churches": {
		{table: "users", column: "church_id"},
		{table: "classes", column: "church_id"},
		{table: "teachers", column: "church_id"},
		{table: "students", column: "church_id"},
		{table: "attendance", column: "church_id"},
		{table: "teacher_schedule", column: "church_id"},
		{table: "materials", column: "church_id"},
	},
	"magazines": {
		{table: "lessons", column: "magazine_id"},
		{table: "classes", column: "magazine_id", setNull: true},
	},
	"lessons": {
		{table: "attendance", column: "lesson_id"},
		{table: "teacher_schedule", column: "lesson_id"},
	},
	"classes": {
		{table: "teachers", column: "class_id"},
		{table: "students", column: "class_id"},
		{table: "teacher_schedule", column: "class_id"},
	},
	"teachers": {
		{table: "teacher_schedule", column: "teacher_id"},
	},
	"students": {
		{table: "attendance", column: "student_id"},
	},
}

func Open() *DB {
	return &DB{
		churches: newTable(func(church.Church, string) (int, bool) { return 0, false }),
		users: newTable(func(u user.User, col string) (int, bool) {
			if col == "church_id" {
				return nullInt(u.ChurchID)
			}
			return 0, false
		}),
		magazines: newTable(func(magazine.Magazine, string) (int, bool) { return 0, false }),
		lessons: newTable(func(l magazine.Lesson, col string) (int, bool) {
			return l.MagazineID, col == "magazine_id"
		}),
		classes: newTable(func(c roster.Class, col string) (int, bool) {
			switch col {
			case "church_id":
				return c.ChurchID, true
			case "magazine_id":
				return nullInt(c.MagazineID)
			}
			return 0, false
		}),
		teachers: newTable(func(t roster.Teacher, col string) (int, bool) {
			switch col {
			case "church_id":
				return t.ChurchID, true
			case "class_id":
				return nullInt(t.ClassID)
			}
			return 0, false
		}),
		students: newTable(func(s roster.Student, col string) (int, bool) {
			switch col {
			case "church_id":
				return s.ChurchID, true
			case "class_id":
				return nullInt(s.ClassID)
			}
			return 0, false
		}),
		attendance: newTable(func(r attendance.Record, col string) (int, bool) {
			switch col {
			case "student_id":
				return r.StudentID, true
			case "lesson_id":
				return r.LessonID, true
			case "church_id":
				return r.ChurchID, true
			}
			return 0, false
		}),
		schedule: newTable(func(r schedule.Record, col string) (int, bool) {
			switch col {
			case "teacher_id":
				return r.TeacherID, true
			case "class_id":
				return r.ClassID, true
			case "lesson_id":
				return r.LessonID, true
			case "church_id":
				return r.ChurchID, true
			}
			return 0, false
		}),
		materials: newTable(func(m material.Material, col string) (int, bool) {
			if col == "church_id" {
				return nullInt(m.ChurchID)
			}
			return 0, false
		}),
	}
}

func (db *DB) relation(name string) relation {
	switch name {
	case "churches":
		return db.churches
	case "users":
		return db.users
	case "magazines":
		return db.magazines
	case "lessons":
		return db.lessons
	case "classes":
		return db.classes
	case "teachers":
		return db.teachers
	case "students":
		return db.students
	case "attendance":
		return db.attendance
	case "teacher_schedule":
		return db.schedule
	case "materials":
		return db.materials
	}
	return nil
}

// referenced reports whether a row of another table still points at id of tbl.
// Callers must hold the write lock.
func (db *DB) referenced(tbl string, id int) bool {
	for _, fk := range references[tbl] {
		if fk.setNull {
			continue
		}
		rel := db.relation(fk.table)
		for _, rid := range rel.ids() {
			if v, ok := rel.value(rid, fk.column); ok && v == id {
				return true
			}
		}
	}
	return false
}

// clearMagazine emulates ON DELETE SET NULL of classes.magazine_id.
func (db *DB) clearMagazine(id int) {
	for cid, c := range db.classes.rows {
		if c.MagazineID.Valid && c.MagazineID.Int == id {
			c.MagazineID.Valid = false
			c.MagazineID.Int = 0
			db.classes.rows[cid] = c
		}
	}
}

type snapshot struct {
	churches   *table[church.Church]
	users      *table[user.User]
	magazines  *table[magazine.Magazine]
	lessons    *table[magazine.Lesson]
	classes    *table[roster.Class]
	teachers   *table[roster.Teacher]
	students   *table[roster.Student]
	attendance *table[attendance.Record]
	schedule   *table[schedule.Record]
	materials  *table[material.Material]
}

func (db *DB) snapshot() snapshot {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return snapshot{
		churches:   db.churches.clone(),
		users:      db.users.clone(),
		magazines:  db.magazines.clone(),
		lessons:    db.lessons.clone(),
		classes:    db.classes.clone(),
		teachers:   db.teachers.clone(),
		students:   db.students.clone(),
		attendance: db.attendance.clone(),
		schedule:   db.schedule.clone(),
		materials:  db.materials.clone(),
	}
}

func (db *DB) restore(s snapshot) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.churches, db.users, db.magazines, db.lessons = s.churches, s.users, s.magazines, s.lessons
	db.classes, db.teachers, db.students = s.classes, s.teachers, s.students
	db.attendance, db.schedule, db.materials = s.attendance, s.schedule, s.materials
}

// WithinTx runs fn alone against the database and restores every table when fn fails.
func (db *DB) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMutex.Lock()
	defer db.txMutex.Unlock()

	saved := db.snapshot()
	defer func() {
		if r := recover(); r != nil {
			db.restore(saved)
			panic(r)
		}
		if err != nil {
			db.restore(saved)
		}
	}()
	return fn(nil)
}

var _ core.Transactor = (*DB)(nil) // interface compliance check

// PingContext always succeeds: there is no connection to lose.
func (db *DB) PingContext(context.Context) error { return nil }
