package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	. "github.com/conectaebd/backend/apps/api/echo"
	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/material"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/schedule"
	"github.com/conectaebd/backend/core/tenant"
	"github.com/conectaebd/backend/core/user"
	"github.com/conectaebd/backend/services/metrics"
	"github.com/conectaebd/backend/services/objectstore"
	inmemdb "github.com/conectaebd/backend/storage/database/inmem"
)

const pwd = "Secr3t-pass"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
	okResp          = SuccessResponse{Success: true}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

// fixture is a fresh app over an in-memory database:
// church A (with a class of two students, a teacher and a lesson) and church B.
type fixture struct {
	app     Server
	conf    *core.Config
	db      *inmemdb.DB
	storage *objectstore.Memory

	churchA, churchB int
	lessonID         int
	classID          int
	studentIDs       []int
	teacherID        int

	master, standard, stranger user.User
	unauthorized               user.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	logger := core.NopLogger{}

	churchRepo := inmemdb.NewChurchRepository(db)
	userRepo := inmemdb.NewUserRepository(db)
	magRepo := inmemdb.NewMagazineRepository(db)
	rosterRepo := inmemdb.NewRosterRepository(db)
	deleter := cascade.NewDeleter(db, inmemdb.NewCascadeStore(db), logger, metrics.Observer{})
	storage := objectstore.NewMemory(conf.Storage.PublicURL)

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	materialSvc := material.NewService(inmemdb.NewMaterialRepository(db), churchRepo, storage, deleter, logger, conf.Storage.CoverMaxWidth)
	app := NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		DB:            db,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       user.NewService(userRepo, churchRepo, deleter),
		ChurchSvc:     church.NewService(churchRepo, deleter, materialSvc, logger),
		MagazineSvc:   magazine.NewService(magRepo, deleter),
		RosterSvc:     roster.NewService(rosterRepo, magRepo, deleter),
		AttendanceSvc: attendance.NewService(inmemdb.NewAttendanceRepository(db), rosterRepo, magRepo, db, metrics.Observer{}),
		ScheduleSvc:   schedule.NewService(inmemdb.NewScheduleRepository(db), rosterRepo, magRepo),
		MaterialSvc:   materialSvc,
	})

	f := &fixture{app: app, conf: conf, db: db, storage: storage}

	a, err := churchRepo.CreateChurch(ctx, church.Church{Name: "Sede", Type: "sede"})
	require.NoError(t, err)
	b, err := churchRepo.CreateChurch(ctx, church.Church{Name: "Filial", Type: "filial"})
	require.NoError(t, err)
	f.churchA, f.churchB = a.ID, b.ID

	mag, err := magRepo.CreateMagazine(ctx, magazine.Magazine{Title: "Revista", Quarter: "1", Year: 2024})
	require.NoError(t, err)
	les, err := magRepo.CreateLesson(ctx, magazine.Lesson{MagazineID: mag.ID, Number: 1, Title: "Lição 1", Date: null.StringFrom("2024-03-10")})
	require.NoError(t, err)
	f.lessonID = les.ID

	cls, err := rosterRepo.CreateClass(ctx, roster.Class{Name: "Jovens", ChurchID: a.ID, MagazineID: null.IntFrom(mag.ID), Active: true})
	require.NoError(t, err)
	f.classID = cls.ID
	for _, name := range []string{"Ana", "Bia"} {
		std, err := rosterRepo.CreateStudent(ctx, roster.Student{Name: name, ChurchID: a.ID, ClassID: null.IntFrom(cls.ID), Active: true})
		require.NoError(t, err)
		f.studentIDs = append(f.studentIDs, std.ID)
	}
	tch, err := rosterRepo.CreateTeacher(ctx, roster.Teacher{Name: "Paulo", ChurchID: a.ID, ClassID: null.IntFrom(cls.ID), Active: true})
	require.NoError(t, err)
	f.teacherID = tch.ID

	createUser := func(name, email, role string, churchID null.Int, authorized bool) user.User {
		usr := user.User{Name: name, Email: email, Role: role, ChurchID: churchID, Authorized: authorized}
		require.NoError(t, usr.SetPassword(pwd))
		usr, err := userRepo.CreateUser(ctx, usr)
		require.NoError(t, err)
		return usr
	}
	f.master = createUser("Master", "master@ebd.test", tenant.RoleMaster, null.Int{}, true)
	f.standard = createUser("Secretária", "sede@ebd.test", tenant.RoleStandard, null.IntFrom(a.ID), true)
	f.stranger = createUser("Filial", "filial@ebd.test", tenant.RoleStandard, null.IntFrom(b.ID), true)
	f.unauthorized = createUser("Novo", "novo@ebd.test", tenant.RoleStandard, null.IntFrom(a.ID), false)
	return f
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	t.Helper()
	p := tenant.Principal{UserID: usr.ID, Role: usr.Role}
	if usr.ChurchID.Valid {
		p.ChurchID = usr.ChurchID.Int
	}
	token, err := GenerateToken(f.conf, NewClaims(f.conf, p))
	require.NoError(t, err)
	return token
}

func (f *fixture) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decode unmarshals the recorded body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
