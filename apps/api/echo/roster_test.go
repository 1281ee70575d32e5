package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/conectaebd/backend/apps/api/echo"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/roster"
	inmemdb "github.com/conectaebd/backend/storage/database/inmem"
)

func (f *fixture) get(t *testing.T, path, token string, v interface{}) {
	t.Helper()
	req, rec := newAuthRequest(http.MethodGet, path, token)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, v)
}

func Test_churchApi(t *testing.T) {
	f := setup(t)
	masterToken := f.token(t, f.master)
	path := func(id int) string { return fmt.Sprintf("/api/churches/%d", id) }

	f.run(t, []httpTest{
		{
			name:     "anonymous list",
			method:   http.MethodGet,
			path:     "/api/churches",
			wantCode: http.StatusOK,
		},
		{
			name:     "anonymous create",
			method:   http.MethodPost,
			path:     "/api/churches",
			body:     []byte(`{"name": "Congregação", "type": "congregacao"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "standard create",
			method:   http.MethodPost,
			path:     "/api/churches",
			body:     []byte(`{"name": "Congregação", "type": "congregacao"}`),
			token:    f.token(t, f.standard),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/api/churches",
			body:     []byte(`{"name": "  ", "type": "congregacao"}`),
			token:    masterToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/api/churches",
			body:     []byte(`{"name": "Congregação", "type": "congregacao", "pastor": "João", "members": 40}`),
			token:    masterToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, ID: f.churchB + 1}),
		},
		{
			name:     "update unknown",
			method:   http.MethodPut,
			path:     path(999),
			body:     []byte(`{"name": "X", "type": "sede"}`),
			token:    masterToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})

	var churches []church.Church
	f.get(t, "/api/churches", "", &churches)
	require.Len(t, churches, 3)
	assert.Equal(t, "João", churches[2].Pastor.String)
	assert.Equal(t, 40, churches[2].Members)
}

func Test_churchApi_delete(t *testing.T) {
	f := setup(t)
	masterToken := f.token(t, f.master)

	// a row of church B still points at a student of church A
	err := inmemdb.NewAttendanceRepository(f.db).InsertAttendance(context.Background(), []attendance.Record{
		{StudentID: f.studentIDs[0], LessonID: f.lessonID, ChurchID: f.churchB, Present: true, Date: "2024-03-10"},
	})
	require.NoError(t, err)

	f.run(t, []httpTest{
		{
			name:     "blocked by dependent records",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/churches/%d", f.churchA),
			token:    masterToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "could not delete church: it has dependent records (students, teachers or classes)"}),
		},
		{
			name:     "deleted with its users and attendance",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/churches/%d", f.churchB),
			token:    masterToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
		{
			name:     "now deletable",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/churches/%d", f.churchA),
			token:    masterToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
	})

	var churches []church.Church
	f.get(t, "/api/churches", "", &churches)
	assert.Empty(t, churches)

	var students []roster.Student
	f.get(t, "/api/students", masterToken, &students)
	assert.Empty(t, students)
}

func Test_magazineApi(t *testing.T) {
	f := setup(t)
	masterToken := f.token(t, f.master)
	standardToken := f.token(t, f.standard)

	f.run(t, []httpTest{
		{
			name:     "create lesson of unknown magazine",
			method:   http.MethodPost,
			path:     "/api/lessons",
			body:     []byte(`{"magazine_id": 999, "number": 2, "title": "Lição 2"}`),
			token:    standardToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create lesson with a bad date",
			method:   http.MethodPost,
			path:     "/api/lessons",
			body:     []byte(`{"magazine_id": 1, "number": 2, "title": "Lição 2", "date": "10/03/2024"}`),
			token:    standardToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create lesson",
			method:   http.MethodPost,
			path:     "/api/lessons",
			body:     []byte(`{"magazine_id": 1, "number": 2, "title": "Lição 2", "date": "2024-03-17"}`),
			token:    standardToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, ID: f.lessonID + 1}),
		},
		{
			name:     "standard delete",
			method:   http.MethodDelete,
			path:     "/api/magazines/1",
			token:    standardToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	var lessons []map[string]interface{}
	f.get(t, "/api/lessons?magazine_id=1", standardToken, &lessons)
	require.Len(t, lessons, 2)
	assert.Equal(t, "Revista", lessons[1]["magazine_title"])
	f.get(t, "/api/lessons?magazine_id=2", standardToken, &lessons)
	assert.Empty(t, lessons)

	f.run(t, []httpTest{
		{
			name:     "master delete",
			method:   http.MethodDelete,
			path:     "/api/magazines/1",
			token:    masterToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
	})

	f.get(t, "/api/lessons", standardToken, &lessons)
	assert.Empty(t, lessons)
	var classes []roster.Class
	f.get(t, "/api/classes", standardToken, &classes)
	require.Len(t, classes, 1)
	assert.False(t, classes[0].MagazineID.Valid)
}

func Test_rosterApi_scope(t *testing.T) {
	f := setup(t)
	standardToken := f.token(t, f.standard)
	strangerToken := f.token(t, f.stranger)
	studentPath := fmt.Sprintf("/api/students/%d", f.studentIDs[0])

	f.run(t, []httpTest{
		{
			name:     "enroll in a class of another church",
			method:   http.MethodPost,
			path:     "/api/students",
			body:     []byte(fmt.Sprintf(`{"name": "Caio", "class_id": %d}`, f.classID)),
			token:    strangerToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"class_id": "class belongs to another church"}`),
		},
		{
			name:     "bad birth date",
			method:   http.MethodPost,
			path:     "/api/students",
			body:     []byte(`{"name": "Caio", "birth_date": "2010-02-30"}`),
			token:    standardToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/api/students",
			body:     []byte(fmt.Sprintf(`{"name": "Caio", "birth_date": "2010-02-14", "class_id": %d}`, f.classID)),
			token:    standardToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "update out of scope",
			method:   http.MethodPut,
			path:     studentPath,
			body:     []byte(`{"name": "Ana Maria"}`),
			token:    strangerToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "toggle out of scope",
			method:   http.MethodPatch,
			path:     studentPath + "/toggle",
			token:    strangerToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "toggle",
			method:   http.MethodPatch,
			path:     studentPath + "/toggle",
			token:    standardToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
		{
			name:     "delete out of scope",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/classes/%d", f.classID),
			token:    strangerToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	var students []roster.Student
	f.get(t, "/api/students", strangerToken, &students)
	assert.Empty(t, students)

	f.get(t, fmt.Sprintf("/api/students?class_id=%d", f.classID), standardToken, &students)
	require.Len(t, students, 3)
	assert.False(t, students[0].Active)
	assert.Equal(t, "Jovens", students[2].ClassName.String)
	assert.Equal(t, f.churchA, students[2].ChurchID)

	var teachers []roster.Teacher
	f.get(t, "/api/teachers", f.token(t, f.master), &teachers)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Sede", teachers[0].ChurchName.String)
}

func Test_rosterApi_deleteClass(t *testing.T) {
	f := setup(t)
	standardToken := f.token(t, f.standard)

	sub := fmt.Sprintf(`{"class_id": %d, "lesson_id": %d, "date": "2024-03-10", "records": [{"student_id": %d, "present": true}]}`,
		f.classID, f.lessonID, f.studentIDs[0])
	sched := fmt.Sprintf(`{"teacher_id": %d, "class_id": %d, "lesson_id": %d, "date": "2024-03-10"}`, f.teacherID, f.classID, f.lessonID)

	f.run(t, []httpTest{
		{
			name:     "record attendance",
			method:   http.MethodPost,
			path:     "/api/attendance",
			body:     []byte(sub),
			token:    standardToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "schedule the teacher",
			method:   http.MethodPost,
			path:     "/api/schedule",
			body:     []byte(sched),
			token:    standardToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "delete the class",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/classes/%d", f.classID),
			token:    standardToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
		{
			name:     "delete it again",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/classes/%d", f.classID),
			token:    standardToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})

	var students []roster.Student
	f.get(t, "/api/students", standardToken, &students)
	assert.Empty(t, students)
	var teachers []roster.Teacher
	f.get(t, "/api/teachers", standardToken, &teachers)
	assert.Empty(t, teachers)
	var records []attendance.Record
	f.get(t, "/api/attendance", standardToken, &records)
	assert.Empty(t, records)
	var schedule []map[string]interface{}
	f.get(t, "/api/schedule", standardToken, &schedule)
	assert.Empty(t, schedule)
}

func Test_magazineApi_deleteLesson(t *testing.T) {
	f := setup(t)
	masterToken := f.token(t, f.master)
	standardToken := f.token(t, f.standard)
	path := fmt.Sprintf("/api/lessons/%d", f.lessonID)
	nextID := f.lessonID + 1

	sub := func(lessonID int) []byte {
		return []byte(fmt.Sprintf(`{"class_id": %d, "lesson_id": %d, "date": "2024-03-10", "records": [{"student_id": %d, "present": true}]}`,
			f.classID, lessonID, f.studentIDs[0]))
	}
	sched := func(lessonID int) []byte {
		return []byte(fmt.Sprintf(`{"teacher_id": %d, "class_id": %d, "lesson_id": %d, "date": "2024-03-10"}`, f.teacherID, f.classID, lessonID))
	}

	f.run(t, []httpTest{
		{
			name:     "create another lesson",
			method:   http.MethodPost,
			path:     "/api/lessons",
			body:     []byte(`{"magazine_id": 1, "number": 2, "title": "Lição 2", "date": "2024-03-17"}`),
			token:    standardToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, ID: nextID}),
		},
		{name: "record attendance", method: http.MethodPost, path: "/api/attendance", body: sub(f.lessonID), token: standardToken, wantCode: http.StatusOK},
		{name: "record the other lesson", method: http.MethodPost, path: "/api/attendance", body: sub(nextID), token: standardToken, wantCode: http.StatusOK},
		{name: "schedule the teacher", method: http.MethodPost, path: "/api/schedule", body: sched(f.lessonID), token: standardToken, wantCode: http.StatusOK},
		{name: "schedule the other lesson", method: http.MethodPost, path: "/api/schedule", body: sched(nextID), token: standardToken, wantCode: http.StatusOK},
		{
			name:     "standard delete",
			method:   http.MethodDelete,
			path:     path,
			token:    standardToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	var records []attendance.Record
	f.get(t, "/api/attendance", standardToken, &records)
	require.Len(t, records, 4)
	var schedule []map[string]interface{}
	f.get(t, "/api/schedule", standardToken, &schedule)
	require.Len(t, schedule, 2)

	f.run(t, []httpTest{
		{
			name:     "master delete",
			method:   http.MethodDelete,
			path:     path,
			token:    masterToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
		{
			name:     "delete it again",
			method:   http.MethodDelete,
			path:     path,
			token:    masterToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})

	var lessons []magazine.Lesson
	f.get(t, "/api/lessons", standardToken, &lessons)
	require.Len(t, lessons, 1)
	assert.Equal(t, nextID, lessons[0].ID)
	f.get(t, "/api/attendance", standardToken, &records)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, nextID, r.LessonID)
	}
	f.get(t, "/api/schedule", standardToken, &schedule)
	require.Len(t, schedule, 1)
	assert.EqualValues(t, nextID, schedule[0]["lesson_id"])
}

func Test_scheduleApi(t *testing.T) {
	f := setup(t)
	standardToken := f.token(t, f.standard)
	body := func(teacherID, classID int, date string) []byte {
		return []byte(fmt.Sprintf(`{"teacher_id": %d, "class_id": %d, "lesson_id": %d, "date": %q}`, teacherID, classID, f.lessonID, date))
	}

	f.run(t, []httpTest{
		{
			name:     "unknown teacher",
			method:   http.MethodPost,
			path:     "/api/schedule",
			body:     body(999, f.classID, "2024-03-10"),
			token:    standardToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"teacher_id": "teacher does not exist"}`),
		},
		{
			name:     "class of another church",
			method:   http.MethodPost,
			path:     "/api/schedule",
			body:     body(f.teacherID, f.classID, "2024-03-10"),
			token:    f.token(t, f.stranger),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"class_id": "class belongs to another church"}`),
		},
		{
			name:     "missing date",
			method:   http.MethodPost,
			path:     "/api/schedule",
			body:     body(f.teacherID, f.classID, ""),
			token:    standardToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/api/schedule",
			body:     body(f.teacherID, f.classID, "2024-03-10"),
			token:    standardToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, ID: 1}),
		},
		{
			name:     "move",
			method:   http.MethodPut,
			path:     "/api/schedule/1",
			body:     body(f.teacherID, f.classID, "2024-03-17"),
			token:    standardToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
		{
			name:     "delete out of scope",
			method:   http.MethodDelete,
			path:     "/api/schedule/1",
			token:    f.token(t, f.stranger),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})

	var records []map[string]interface{}
	f.get(t, "/api/schedule", standardToken, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-03-17", records[0]["date"])
	assert.Equal(t, "Paulo", records[0]["teacher_name"])

	f.get(t, "/api/schedule", f.token(t, f.stranger), &records)
	assert.Empty(t, records)
}
