package roster

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/tenant"
)

var (
	errChurchRequired = core.NewValidationError(nil, core.FieldError{Field: "church_id", Error: "a church is required"})
	errClassNotFound  = core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class does not exist"})
	errClassChurch    = core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class belongs to another church"})
	errMagazine       = core.NewValidationError(nil, core.FieldError{Field: "magazine_id", Error: "magazine does not exist"})
)

type (
	// Repository stores classes, teachers and students.
	// A non-nil scope restricts queries, updates and toggles to rows of that church.
	Repository interface {
		QueryClasses(ctx context.Context, scope *int, exec ...core.DBExecutor) ([]Class, error)
		GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		CreateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		UpdateClass(ctx context.Context, c Class, scope *int, exec ...core.DBExecutor) (Class, error)
		SetClassActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error
		// ClassStudentIDs returns the ids of the students currently enrolled in the class.
		ClassStudentIDs(ctx context.Context, classID int, exec ...core.DBExecutor) ([]int, error)

		QueryTeachers(ctx context.Context, filter Filter, scope *int, exec ...core.DBExecutor) ([]Teacher, error)
		GetTeacher(ctx context.Context, id int, exec ...core.DBExecutor) (Teacher, error)
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, scope *int, exec ...core.DBExecutor) (Teacher, error)
		SetTeacherActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error

		QueryStudents(ctx context.Context, filter Filter, scope *int, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, scope *int, exec ...core.DBExecutor) (Student, error)
		SetStudentActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		magazines magazine.Repository
		deleter   *cascade.Deleter
	}
)

func NewService(repo Repository, magazines magazine.Repository, deleter *cascade.Deleter) *Service {
	return &Service{repo: repo, magazines: magazines, deleter: deleter}
}

// stamp resolves the church of a new row. A class, when given, must belong to that church
// and provides the fallback for masters without a church of their own.
func (svc *Service) stamp(ctx context.Context, p tenant.Principal, requested, classID *int) (int, error) {
	fallback := 0
	if requested != nil {
		fallback = *requested
	}
	if classID != nil {
		cls, err := svc.getClassForRef(ctx, *classID)
		if err != nil {
			return 0, err
		}
		if fallback == 0 {
			fallback = cls.ChurchID
		}
		churchID := p.Stamp(fallback)
		if cls.ChurchID != churchID {
			return 0, errClassChurch
		}
		return churchID, nil
	}
	churchID := p.Stamp(fallback)
	if churchID == 0 {
		return 0, errChurchRequired
	}
	return churchID, nil
}

func (svc *Service) getClassForRef(ctx context.Context, id int) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Class{}, errClassNotFound
		}
		return Class{}, errors.Wrap(err, "finding class")
	}
	return cls, nil
}

// checkClassRef validates that classID, when set, belongs to churchID.
func (svc *Service) checkClassRef(ctx context.Context, classID *int, churchID int) error {
	if classID == nil {
		return nil
	}
	cls, err := svc.getClassForRef(ctx, *classID)
	if err != nil {
		return err
	}
	if cls.ChurchID != churchID {
		return errClassChurch
	}
	return nil
}

func (svc *Service) checkMagazine(ctx context.Context, id *int) error {
	if id == nil {
		return nil
	}
	if _, err := svc.magazines.GetMagazine(ctx, *id); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return errMagazine
		}
		return errors.Wrap(err, "finding magazine")
	}
	return nil
}

// owned fetches a row's church and hides rows outside of the principal's scope.
func owned(p tenant.Principal, churchID int, err error) error {
	if err != nil {
		return err
	}
	if !tenant.InScope(p.Scope(), churchID) {
		return core.ErrNotFound
	}
	return nil
}

// Classes

func (svc *Service) ListClasses(ctx context.Context, p tenant.Principal) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, p.Scope())
}

func (svc *Service) CreateClass(ctx context.Context, p tenant.Principal, nc NewClass) (Class, error) {
	if err := svc.checkMagazine(ctx, nc.MagazineID); err != nil {
		return Class{}, err
	}
	churchID, err := svc.stamp(ctx, p, nc.ChurchID, nil)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{
		Name:       nc.Name,
		ChurchID:   churchID,
		MagazineID: null.IntFromPtr(nc.MagazineID),
		Active:     true,
	})
}

func (svc *Service) UpdateClass(ctx context.Context, p tenant.Principal, id int, nc NewClass) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err = owned(p, cls.ChurchID, err); err != nil {
		return Class{}, err
	}
	if err = svc.checkMagazine(ctx, nc.MagazineID); err != nil {
		return Class{}, err
	}
	cls.Name = nc.Name
	cls.MagazineID = null.IntFromPtr(nc.MagazineID)
	return svc.repo.UpdateClass(ctx, cls, p.Scope())
}

func (svc *Service) ToggleClass(ctx context.Context, p tenant.Principal, id int) error {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if err = p.Authorize(cls.ChurchID); err != nil {
		return err
	}
	return svc.repo.SetClassActive(ctx, id, !cls.Active)
}

// DeleteClass removes the class, its students and teachers and everything recorded against them.
func (svc *Service) DeleteClass(ctx context.Context, p tenant.Principal, id int) error {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if err = p.Authorize(cls.ChurchID); err != nil {
		return err
	}
	return svc.deleter.Delete(ctx, cascade.Class, id)
}

// Teachers

func (svc *Service) ListTeachers(ctx context.Context, p tenant.Principal, filter Filter) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, p.Scope())
}

func (svc *Service) CreateTeacher(ctx context.Context, p tenant.Principal, nt NewTeacher) (Teacher, error) {
	churchID, err := svc.stamp(ctx, p, nt.ChurchID, nt.ClassID)
	if err != nil {
		return Teacher{}, err
	}
	return svc.repo.CreateTeacher(ctx, Teacher{
		Name:     nt.Name,
		ChurchID: churchID,
		ClassID:  null.IntFromPtr(nt.ClassID),
		Active:   true,
	})
}

func (svc *Service) UpdateTeacher(ctx context.Context, p tenant.Principal, id int, nt NewTeacher) (Teacher, error) {
	tchr, err := svc.repo.GetTeacher(ctx, id)
	if err = owned(p, tchr.ChurchID, err); err != nil {
		return Teacher{}, err
	}
	if err = svc.checkClassRef(ctx, nt.ClassID, tchr.ChurchID); err != nil {
		return Teacher{}, err
	}
	tchr.Name = nt.Name
	tchr.ClassID = null.IntFromPtr(nt.ClassID)
	return svc.repo.UpdateTeacher(ctx, tchr, p.Scope())
}

func (svc *Service) ToggleTeacher(ctx context.Context, p tenant.Principal, id int) error {
	tchr, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return err
	}
	if err = p.Authorize(tchr.ChurchID); err != nil {
		return err
	}
	return svc.repo.SetTeacherActive(ctx, id, !tchr.Active)
}

func (svc *Service) DeleteTeacher(ctx context.Context, p tenant.Principal, id int) error {
	tchr, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return err
	}
	if err = p.Authorize(tchr.ChurchID); err != nil {
		return err
	}
	return svc.deleter.Delete(ctx, cascade.Teacher, id)
}

// Students

func (svc *Service) ListStudents(ctx context.Context, p tenant.Principal, filter Filter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, p.Scope())
}

func (svc *Service) CreateStudent(ctx context.Context, p tenant.Principal, ns NewStudent) (Student, error) {
	churchID, err := svc.stamp(ctx, p, ns.ChurchID, ns.ClassID)
	if err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, Student{
		Name:      ns.Name,
		BirthDate: null.NewString(ns.BirthDate, ns.BirthDate != ""),
		ChurchID:  churchID,
		ClassID:   null.IntFromPtr(ns.ClassID),
		Active:    true,
	})
}

func (svc *Service) UpdateStudent(ctx context.Context, p tenant.Principal, id int, ns NewStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err = owned(p, std.ChurchID, err); err != nil {
		return Student{}, err
	}
	if err = svc.checkClassRef(ctx, ns.ClassID, std.ChurchID); err != nil {
		return Student{}, err
	}
	std.Name = ns.Name
	std.BirthDate = null.NewString(ns.BirthDate, ns.BirthDate != "")
	std.ClassID = null.IntFromPtr(ns.ClassID)
	return svc.repo.UpdateStudent(ctx, std, p.Scope())
}

func (svc *Service) ToggleStudent(ctx context.Context, p tenant.Principal, id int) error {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if err = p.Authorize(std.ChurchID); err != nil {
		return err
	}
	return svc.repo.SetStudentActive(ctx, id, !std.Active)
}

func (svc *Service) DeleteStudent(ctx context.Context, p tenant.Principal, id int) error {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if err = p.Authorize(std.ChurchID); err != nil {
		return err
	}
	return svc.deleter.Delete(ctx, cascade.Student, id)
}
