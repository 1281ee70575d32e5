package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/roster"
)

type fixture struct {
	db       *DB
	churchID int
	classID  int
	lessonID int
	magID    int
	students []int
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := Open()

	chr, err := NewChurchRepository(db).CreateChurch(ctx, church.Church{Name: "Sede", Type: "sede"})
	require.NoError(t, err)
	mag, err := NewMagazineRepository(db).CreateMagazine(ctx, magazine.Magazine{Title: "Revista 1"})
	require.NoError(t, err)
	les, err := NewMagazineRepository(db).CreateLesson(ctx, magazine.Lesson{MagazineID: mag.ID, Title: "Lição 1"})
	require.NoError(t, err)

	rosterRepo := NewRosterRepository(db)
	cls, err := rosterRepo.CreateClass(ctx, roster.Class{Name: "Jovens", ChurchID: chr.ID, MagazineID: null.IntFrom(mag.ID), Active: true})
	require.NoError(t, err)

	f := fixture{db: db, churchID: chr.ID, classID: cls.ID, lessonID: les.ID, magID: mag.ID}
	for _, name := range []string{"Ana", "Bia"} {
		std, err := rosterRepo.CreateStudent(ctx, roster.Student{Name: name, ChurchID: chr.ID, ClassID: null.IntFrom(cls.ID), Active: true})
		require.NoError(t, err)
		f.students = append(f.students, std.ID)
	}
	return f
}

func TestNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	classes, err := NewRosterRepository(f.db).QueryClasses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Sede", classes[0].ChurchName.String)
	assert.Equal(t, "Revista 1", classes[0].MagazineTitle.String)

	other := f.churchID + 1
	classes, err = NewRosterRepository(f.db).QueryClasses(ctx, &other)
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestCascadeStoreForeignKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := NewCascadeStore(f.db)

	// students still reference the class
	_, err := store.DeleteWhere(ctx, nil, "classes", "id", []int{f.classID})
	assert.Equal(t, cascade.ErrDependentRows, errors.Cause(err))
	_, err = NewRosterRepository(f.db).GetClass(ctx, f.classID)
	assert.NoError(t, err)

	ids, err := store.SelectIDs(ctx, nil, "students", "class_id", []int{f.classID})
	require.NoError(t, err)
	assert.Equal(t, f.students, ids)

	n, err := store.DeleteWhere(ctx, nil, "students", "id", ids)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = store.DeleteWhere(ctx, nil, "classes", "id", []int{f.classID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.SelectIDs(ctx, nil, "pg_roles", "id", []int{1})
	assert.Error(t, err)
}

func TestCascadeStoreMagazineSetNull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := NewCascadeStore(f.db)

	_, err := store.DeleteWhere(ctx, nil, "lessons", "magazine_id", []int{f.magID})
	require.NoError(t, err)
	_, err = store.DeleteWhere(ctx, nil, "magazines", "id", []int{f.magID})
	require.NoError(t, err)

	cls, err := NewRosterRepository(f.db).GetClass(ctx, f.classID)
	require.NoError(t, err)
	assert.False(t, cls.MagazineID.Valid)
	assert.False(t, cls.MagazineTitle.Valid)
}

func TestWithinTxRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := NewCascadeStore(f.db)
	boom := errors.New("boom")

	err := f.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := store.DeleteWhere(ctx, exec, "students", "class_id", []int{f.classID}); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)

	students, err := NewRosterRepository(f.db).QueryStudents(ctx, roster.Filter{}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	assert.Panics(t, func() {
		_ = f.db.WithinTx(ctx, func(exec core.DBExecutor) error {
			_, _ = store.DeleteWhere(ctx, exec, "students", "class_id", []int{f.classID})
			panic("boom")
		})
	})
	students, err = NewRosterRepository(f.db).QueryStudents(ctx, roster.Filter{}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestAttendanceUniqueKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewAttendanceRepository(f.db)

	row := attendance.Record{StudentID: f.students[0], LessonID: f.lessonID, ChurchID: f.churchID, Date: "2024-03-10", Present: true}
	require.NoError(t, repo.InsertAttendance(ctx, []attendance.Record{row}))

	other := row
	other.StudentID = f.students[1]
	err := repo.InsertAttendance(ctx, []attendance.Record{other, row})
	assert.Equal(t, attendance.ErrDuplicate, err)

	// all or nothing
	n, err := repo.CountRecorded(ctx, f.lessonID, "2024-03-10", f.churchID, f.students)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row.Present = false
	require.NoError(t, repo.UpsertAttendance(ctx, []attendance.Record{row, other}))
	records, err := repo.QueryAttendance(ctx, attendance.Filter{ClassID: f.classID}, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0].Present)
	assert.Equal(t, "Jovens", records[0].ClassName.String)
	assert.Equal(t, "Ana", records[0].StudentName.String)
}
