package inmemdb

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// errForeignKey mirrors a postgres foreign key violation on insert or update.
func errForeignKey(table, column string) error {
	return errors.Errorf("insert or update on %s violates foreign key on %s", table, column)
}

// exists reports whether tbl has a row id. Callers must hold a lock.
func (db *DB) exists(tbl string, id int) bool {
	rel := db.relation(tbl)
	if rel == nil {
		return false
	}
	_, ok := rel.value(id, "id")
	return ok
}

func (db *DB) existsNull(tbl string, id null.Int) bool {
	return !id.Valid || db.exists(tbl, id.Int)
}

// The helpers below resolve display names like the LEFT JOINs of the sql repositories.

func (db *DB) churchName(id int) null.String {
	if c, ok := db.churches.rows[id]; ok {
		return null.StringFrom(c.Name)
	}
	return null.String{}
}

func (db *DB) magazineTitle(id int) null.String {
	if m, ok := db.magazines.rows[id]; ok {
		return null.StringFrom(m.Title)
	}
	return null.String{}
}

func (db *DB) lessonTitle(id int) null.String {
	if l, ok := db.lessons.rows[id]; ok {
		return null.StringFrom(l.Title)
	}
	return null.String{}
}

func (db *DB) className(id int) null.String {
	if c, ok := db.classes.rows[id]; ok {
		return null.StringFrom(c.Name)
	}
	return null.String{}
}

func (db *DB) teacherName(id int) null.String {
	if t, ok := db.teachers.rows[id]; ok {
		return null.StringFrom(t.Name)
	}
	return null.String{}
}

func (db *DB) studentName(id int) null.String {
	if s, ok := db.students.rows[id]; ok {
		return null.StringFrom(s.Name)
	}
	return null.String{}
}
