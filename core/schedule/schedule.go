package schedule

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/tenant"
)

// Record assigns a teacher to a class for one lesson on one date.
type Record struct {
	ID          int         `json:"id" db:"id"`
	TeacherID   int         `json:"teacher_id" db:"teacher_id"`
	TeacherName null.String `json:"teacher_name" db:"teacher_name"`
	ClassID     int         `json:"class_id" db:"class_id"`
	ClassName   null.String `json:"class_name" db:"class_name"`
	LessonID    int         `json:"lesson_id" db:"lesson_id"`
	LessonTitle null.String `json:"lesson_title" db:"lesson_title"`
	ChurchID    int         `json:"church_id" db:"church_id"`
	ChurchName  null.String `json:"church_name" db:"church_name"`
	Date        string      `json:"date" db:"date"`
}

type NewRecord struct {
	TeacherID int    `json:"teacher_id" validate:"required,min=1"`
	ClassID   int    `json:"class_id" validate:"required,min=1"`
	LessonID  int    `json:"lesson_id" validate:"required,min=1"`
	Date      string `json:"date" validate:"required,date"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Date = core.CleanString(nr.Date)
	return validate.Struct(nr)
}

type (
	// Repository stores teacher schedule records.
	// A non-nil scope restricts queries, updates and deletes to rows of that church.
	Repository interface {
		QuerySchedule(ctx context.Context, scope *int, exec ...core.DBExecutor) ([]Record, error)
		GetScheduleRecord(ctx context.Context, id int, exec ...core.DBExecutor) (Record, error)
		CreateScheduleRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
		UpdateScheduleRecord(ctx context.Context, r Record, scope *int, exec ...core.DBExecutor) (Record, error)
		DeleteScheduleRecord(ctx context.Context, id int, scope *int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		roster  roster.Repository
		lessons magazine.Repository
	}
)

func NewService(repo Repository, rosterRepo roster.Repository, lessons magazine.Repository) *Service {
	return &Service{repo: repo, roster: rosterRepo, lessons: lessons}
}

func fieldErr(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}

// resolve checks the references of nr and returns the church the record belongs to.
// churchID is the church already owning the record, 0 on creation.
func (svc *Service) resolve(ctx context.Context, p tenant.Principal, nr NewRecord, churchID int) (int, error) {
	cls, err := svc.roster.GetClass(ctx, nr.ClassID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return 0, fieldErr("class_id", "class does not exist")
		}
		return 0, errors.Wrap(err, "finding class")
	}
	if churchID == 0 {
		churchID = p.Stamp(cls.ChurchID)
	}
	if cls.ChurchID != churchID {
		return 0, fieldErr("class_id", "class belongs to another church")
	}

	tchr, err := svc.roster.GetTeacher(ctx, nr.TeacherID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return 0, fieldErr("teacher_id", "teacher does not exist")
		}
		return 0, errors.Wrap(err, "finding teacher")
	}
	if tchr.ChurchID != churchID {
		return 0, fieldErr("teacher_id", "teacher belongs to another church")
	}

	if _, err = svc.lessons.GetLesson(ctx, nr.LessonID); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return 0, fieldErr("lesson_id", "lesson does not exist")
		}
		return 0, errors.Wrap(err, "finding lesson")
	}
	return churchID, nil
}

func (svc *Service) List(ctx context.Context, p tenant.Principal) ([]Record, error) {
	return svc.repo.QuerySchedule(ctx, p.Scope())
}

func (svc *Service) Create(ctx context.Context, p tenant.Principal, nr NewRecord) (Record, error) {
	churchID, err := svc.resolve(ctx, p, nr, 0)
	if err != nil {
		return Record{}, err
	}
	return svc.repo.CreateScheduleRecord(ctx, Record{
		TeacherID: nr.TeacherID,
		ClassID:   nr.ClassID,
		LessonID:  nr.LessonID,
		ChurchID:  churchID,
		Date:      nr.Date,
	})
}

func (svc *Service) Update(ctx context.Context, p tenant.Principal, id int, nr NewRecord) (Record, error) {
	rec, err := svc.repo.GetScheduleRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !tenant.InScope(p.Scope(), rec.ChurchID) {
		return Record{}, core.ErrNotFound
	}
	if _, err = svc.resolve(ctx, p, nr, rec.ChurchID); err != nil {
		return Record{}, err
	}
	rec.TeacherID = nr.TeacherID
	rec.ClassID = nr.ClassID
	rec.LessonID = nr.LessonID
	rec.Date = nr.Date
	return svc.repo.UpdateScheduleRecord(ctx, rec, p.Scope())
}

func (svc *Service) Delete(ctx context.Context, p tenant.Principal, id int) error {
	return svc.repo.DeleteScheduleRecord(ctx, id, p.Scope())
}
