package attendance_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/tenant"
	inmemdb "github.com/conectaebd/backend/storage/database/inmem"
)

const date = "2024-03-10"

func newValidator() *validator.Validate {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

type outcomes map[string]int

func (o outcomes) ObserveAttendance(outcome string) { o[outcome]++ }

type env struct {
	svc      *attendance.Service
	repo     attendance.Repository
	roster   roster.Repository
	obs      outcomes
	churchID int
	otherID  int
	classID  int
	emptyID  int
	lessonID int
	students []int
	outsider int
}

func setup(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	db := inmemdb.Open()
	churches := inmemdb.NewChurchRepository(db)
	magazines := inmemdb.NewMagazineRepository(db)
	rosterRepo := inmemdb.NewRosterRepository(db)
	repo := inmemdb.NewAttendanceRepository(db)
	obs := outcomes{}
	e := env{svc: attendance.NewService(repo, rosterRepo, magazines, db, obs), repo: repo, roster: rosterRepo, obs: obs}

	a, err := churches.CreateChurch(ctx, church.Church{Name: "Sede"})
	require.NoError(t, err)
	b, err := churches.CreateChurch(ctx, church.Church{Name: "Filial"})
	require.NoError(t, err)
	e.churchID, e.otherID = a.ID, b.ID

	mag, err := magazines.CreateMagazine(ctx, magazine.Magazine{Title: "Revista"})
	require.NoError(t, err)
	les, err := magazines.CreateLesson(ctx, magazine.Lesson{MagazineID: mag.ID, Title: "Lição 1"})
	require.NoError(t, err)
	e.lessonID = les.ID

	cls, err := rosterRepo.CreateClass(ctx, roster.Class{Name: "Jovens", ChurchID: a.ID})
	require.NoError(t, err)
	e.classID = cls.ID
	empty, err := rosterRepo.CreateClass(ctx, roster.Class{Name: "Vazia", ChurchID: a.ID})
	require.NoError(t, err)
	e.emptyID = empty.ID

	for _, name := range []string{"Ana", "Bia", "Caio"} {
		std, err := rosterRepo.CreateStudent(ctx, roster.Student{Name: name, ChurchID: a.ID, ClassID: null.IntFrom(cls.ID)})
		require.NoError(t, err)
		e.students = append(e.students, std.ID)
	}
	out, err := rosterRepo.CreateStudent(ctx, roster.Student{Name: "Davi", ChurchID: a.ID, ClassID: null.IntFrom(empty.ID)})
	require.NoError(t, err)
	e.outsider = out.ID
	return e
}

func presence(b bool) *attendance.Presence {
	p := attendance.Presence(b)
	return &p
}

func (e env) batch(present ...bool) attendance.Submission {
	sub := attendance.Submission{ClassID: e.classID, LessonID: e.lessonID, Date: date, Records: []attendance.Entry{}}
	for i, p := range present {
		sub.Records = append(sub.Records, attendance.Entry{StudentID: e.students[i], Present: presence(p)})
	}
	return sub
}

func (e env) rows(t *testing.T) map[int]bool {
	t.Helper()
	records, err := e.repo.QueryAttendance(context.Background(), attendance.Filter{LessonID: e.lessonID, Date: date}, nil)
	require.NoError(t, err)
	rows := make(map[int]bool, len(records))
	for _, r := range records {
		rows[r.StudentID] = r.Present
	}
	return rows
}

func TestPresenceUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`1`, true, false},
		{`0`, false, false},
		{`"true"`, true, false},
		{`" TRUE "`, true, false},
		{`"false"`, false, false},
		{`"1"`, true, false},
		{`"0"`, false, false},
		{`"yes"`, false, true},
		{`2`, false, true},
		{`null`, false, true},
		{`[]`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p attendance.Presence
			err := json.Unmarshal([]byte(tt.in), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Bool())
		})
	}
}

func TestSubmissionValidate(t *testing.T) {
	validate := newValidator()
	fieldOf := func(err error) string {
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		require.NotEmpty(t, verr.Fields)
		return verr.Fields[0].Field
	}

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing class", `{"lesson_id":1,"date":"2024-03-10","records":[{"student_id":1,"present":true}]}`, "class_id"},
		{"missing lesson", `{"class_id":1,"date":"2024-03-10","records":[{"student_id":1,"present":true}]}`, "lesson_id"},
		{"missing date", `{"class_id":1,"lesson_id":1,"records":[]}`, "date"},
		{"mixed lessons", `{"class_id":1,"records":[{"student_id":1,"lesson_id":1,"date":"2024-03-10","present":1},{"student_id":2,"lesson_id":2,"date":"2024-03-10","present":0}]}`, "records[1].lesson_id"},
		{"single without present", `{"student_id":1,"lesson_id":1,"date":"2024-03-10"}`, "present"},
		{"single without student", `{"lesson_id":1,"date":"2024-03-10","present":true}`, "student_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sub attendance.Submission
			require.NoError(t, json.Unmarshal([]byte(tt.body), &sub))
			assert.Equal(t, tt.field, fieldOf(sub.Validate(validate)))
		})
	}

	t.Run("lifts lesson and date from the records", func(t *testing.T) {
		var sub attendance.Submission
		body := `{"class_id":3,"records":[{"student_id":1,"lesson_id":7,"date":"2024-03-10","present":"1"}]}`
		require.NoError(t, json.Unmarshal([]byte(body), &sub))
		require.NoError(t, sub.Validate(validate))
		assert.True(t, sub.IsBatch())
		assert.Equal(t, 7, sub.LessonID)
		assert.Equal(t, "2024-03-10", sub.Date)
	})

	t.Run("bad date", func(t *testing.T) {
		var sub attendance.Submission
		require.NoError(t, json.Unmarshal([]byte(`{"class_id":1,"lesson_id":1,"date":"10/03/2024","records":[]}`), &sub))
		assert.Error(t, sub.Validate(validate))
	})
}

func TestSubmitStandardOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}
	key := attendance.CheckQuery{LessonID: e.lessonID, ClassID: e.classID, Date: date}

	recorded, err := e.svc.Check(ctx, standard, key)
	require.NoError(t, err)
	assert.False(t, recorded)

	// Caio is not listed: recorded absent
	res, err := e.svc.Submit(ctx, standard, e.batch(true, false))
	require.NoError(t, err)
	assert.Equal(t, attendance.Result{Written: 3}, res)
	assert.Equal(t, map[int]bool{e.students[0]: true, e.students[1]: false, e.students[2]: false}, e.rows(t))

	recorded, err = e.svc.Check(ctx, standard, key)
	require.NoError(t, err)
	assert.True(t, recorded)

	_, err = e.svc.Submit(ctx, standard, e.batch(false, true, true))
	require.True(t, core.IsConflict(err), "%v", err)
	cerr, _ := core.AsConflict(err)
	assert.Contains(t, cerr.Message, "already recorded")
	assert.Equal(t, map[int]bool{e.students[0]: true, e.students[1]: false, e.students[2]: false}, e.rows(t))

	assert.Equal(t, outcomes{"recorded": 1, "rejected": 1}, e.obs)
}

func TestSubmitMasterOverwrites(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	master := tenant.Principal{UserID: 1, Role: tenant.RoleMaster}

	_, err := e.svc.Submit(ctx, master, e.batch(true, true, true))
	require.NoError(t, err)

	res, err := e.svc.Submit(ctx, master, e.batch(false, true))
	require.NoError(t, err)
	assert.Equal(t, attendance.Result{Written: 3, Resubmitted: true}, res)
	assert.Equal(t, map[int]bool{e.students[0]: false, e.students[1]: true, e.students[2]: false}, e.rows(t))

	// the master has no church: rows carry the class's church
	records, err := e.repo.QueryAttendance(ctx, attendance.Filter{}, &e.churchID)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, outcomes{"recorded": 1, "resubmitted": 1}, e.obs)
}

func TestSubmitRejected(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}
	stranger := tenant.Principal{UserID: 3, Role: tenant.RoleStandard, ChurchID: e.otherID}

	t.Run("student outside the class", func(t *testing.T) {
		sub := e.batch(true)
		sub.Records = append(sub.Records, attendance.Entry{StudentID: e.outsider, Present: presence(true)})
		_, err := e.svc.Submit(ctx, standard, sub)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "records[1].student_id", verr.Fields[0].Field)
	})

	t.Run("student listed twice", func(t *testing.T) {
		sub := e.batch(true, false)
		sub.Records[1].StudentID = e.students[0]
		_, err := e.svc.Submit(ctx, standard, sub)
		_, ok := errors.Cause(err).(*core.ValidationError)
		assert.True(t, ok, "%v", err)
	})

	t.Run("unknown lesson", func(t *testing.T) {
		sub := e.batch(true)
		sub.LessonID = 999
		_, err := e.svc.Submit(ctx, standard, sub)
		_, ok := errors.Cause(err).(*core.ValidationError)
		assert.True(t, ok, "%v", err)
	})

	t.Run("class without students", func(t *testing.T) {
		cls, err := e.roster.CreateClass(ctx, roster.Class{Name: "Nova", ChurchID: e.churchID})
		require.NoError(t, err)
		sub := e.batch()
		sub.ClassID = cls.ID
		_, err = e.svc.Submit(ctx, standard, sub)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "class_id", verr.Fields[0].Field)

		recorded, err := e.svc.Check(ctx, standard, attendance.CheckQuery{LessonID: e.lessonID, ClassID: cls.ID, Date: date})
		require.NoError(t, err)
		assert.False(t, recorded)
	})

	t.Run("other church", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, stranger, e.batch(true))
		assert.Equal(t, core.ErrForbidden, errors.Cause(err))
	})

	t.Run("master bound to another church", func(t *testing.T) {
		master := tenant.Principal{UserID: 1, Role: tenant.RoleMaster, ChurchID: e.otherID}
		_, err := e.svc.Submit(ctx, master, e.batch(true))
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "class_id", verr.Fields[0].Field)

		_, err = e.svc.Submit(ctx, master, attendance.Submission{
			StudentID: e.students[0], LessonID: e.lessonID, Date: date, Present: presence(true),
		})
		verr, ok = errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "class_id", verr.Fields[0].Field)
	})

	assert.Empty(t, e.rows(t))
}

func TestSubmitEmptyRecords(t *testing.T) {
	e := setup(t)
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}

	// nobody listed: every enrolled student is recorded absent
	sub := e.batch()
	sub.ClassID = e.emptyID
	res, err := e.svc.Submit(context.Background(), standard, sub)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, map[int]bool{e.outsider: false}, e.rows(t))
}

func TestSubmitSingle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}

	res, err := e.svc.Submit(ctx, standard, attendance.Submission{
		StudentID: e.students[1], LessonID: e.lessonID, Date: date, Present: presence(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, map[int]bool{e.students[1]: true}, e.rows(t))

	// the key of the student's class is now recorded
	_, err = e.svc.Submit(ctx, standard, attendance.Submission{
		StudentID: e.students[2], LessonID: e.lessonID, Date: date, Present: presence(true),
	})
	assert.True(t, core.IsConflict(err), "%v", err)
}

func TestCheckEmptyClass(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	master := tenant.Principal{UserID: 1, Role: tenant.RoleMaster}

	recorded, err := e.svc.Check(ctx, master, attendance.CheckQuery{LessonID: e.lessonID, ClassID: 999, Date: date})
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestCheckOtherChurch(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}
	bound := tenant.Principal{UserID: 1, Role: tenant.RoleMaster, ChurchID: e.otherID}
	key := attendance.CheckQuery{LessonID: e.lessonID, ClassID: e.classID, Date: date}

	_, err := e.svc.Submit(ctx, standard, e.batch(true, true, true))
	require.NoError(t, err)

	recorded, err := e.svc.Check(ctx, standard, key)
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = e.svc.Check(ctx, bound, key)
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestUpdateDelete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	master := tenant.Principal{UserID: 1, Role: tenant.RoleMaster}
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}

	_, err := e.svc.Submit(ctx, standard, e.batch(true, true, true))
	require.NoError(t, err)
	records, err := e.svc.List(ctx, standard, attendance.Filter{ClassID: e.classID})
	require.NoError(t, err)
	require.Len(t, records, 3)
	id := records[0].ID

	assert.Equal(t, core.ErrForbidden, e.svc.Update(ctx, standard, id, false))
	assert.Equal(t, core.ErrForbidden, e.svc.Delete(ctx, standard, id))

	require.NoError(t, e.svc.Update(ctx, master, id, false))
	assert.False(t, e.rows(t)[records[0].StudentID])
	require.NoError(t, e.svc.Delete(ctx, master, id))
	assert.Len(t, e.rows(t), 2)
	assert.Equal(t, core.ErrNotFound, e.svc.Delete(ctx, master, id))
}

func TestStatsAndExport(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	standard := tenant.Principal{UserID: 2, Role: tenant.RoleStandard, ChurchID: e.churchID}

	_, err := e.svc.Submit(ctx, standard, e.batch(true, true, false))
	require.NoError(t, err)

	stats, err := e.svc.Stats(ctx, standard, attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, stats.Classes, 2)
	assert.Equal(t, attendance.ClassStats{ClassID: e.classID, ClassName: "Jovens", Present: 2, Absent: 1, Total: 3, Rate: 67}, stats.Classes[0])
	assert.Equal(t, attendance.ClassStats{ClassID: e.emptyID, ClassName: "Vazia"}, stats.Classes[1])
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 67, stats.Rate)

	// another church sees neither the classes nor the rows
	stranger := tenant.Principal{UserID: 3, Role: tenant.RoleStandard, ChurchID: e.otherID}
	stats, err = e.svc.Stats(ctx, stranger, attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, stats.Classes)
	assert.Zero(t, stats.Rate)

	buf, err := e.svc.Export(ctx, standard, attendance.Filter{ClassID: e.classID})
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Attendance", "Statistics"}, f.GetSheetList())
	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{date, "Lição 1", "Jovens", "Ana", "Sede", "yes"}, rows[1])
	rows, err = f.GetRows("Statistics")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Jovens", "2", "1", "3", "67"}, rows[1])
	assert.Equal(t, []string{"Total", "2", "1", "3", "67"}, rows[2])
}
