package attendance

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/tenant"
)

const msgAlreadyRecorded = "attendance already recorded for this class, lesson and date"

// errClassChurch rejects keys stamped with a church other than the class's own.
var errClassChurch = fieldErr("class_id", "class belongs to another church")

// ErrDuplicate is returned by repositories when a row already exists for (student_id, lesson_id, date).
var ErrDuplicate = errors.New("duplicate attendance row")

type (
	// Repository stores attendance rows.
	// A non-nil scope restricts queries, updates and deletes to rows of that church.
	Repository interface {
		QueryAttendance(ctx context.Context, filter Filter, scope *int, exec ...core.DBExecutor) ([]Record, error)
		// CountRecorded counts the rows of lessonID on date for churchID among studentIDs.
		CountRecorded(ctx context.Context, lessonID int, date string, churchID int, studentIDs []int, exec ...core.DBExecutor) (int, error)
		// InsertAttendance writes all rows or none; an existing (student, lesson, date) row is ErrDuplicate.
		InsertAttendance(ctx context.Context, rows []Record, exec ...core.DBExecutor) error
		// UpsertAttendance overwrites present & church_id of existing (student, lesson, date) rows.
		UpsertAttendance(ctx context.Context, rows []Record, exec ...core.DBExecutor) error
		SetPresent(ctx context.Context, id int, present bool, scope *int, exec ...core.DBExecutor) error
		DeleteAttendance(ctx context.Context, id int, scope *int, exec ...core.DBExecutor) error
	}

	// Observer is notified of every submission; outcome is "recorded", "resubmitted", "rejected" or "failed".
	Observer interface {
		ObserveAttendance(outcome string)
	}

	Service struct {
		repo    Repository
		roster  roster.Repository
		lessons magazine.Repository
		tx      core.Transactor
		obs     Observer
	}
)

func NewService(repo Repository, rosterRepo roster.Repository, lessons magazine.Repository, tx core.Transactor, obs Observer) *Service {
	return &Service{repo: repo, roster: rosterRepo, lessons: lessons, tx: tx, obs: obs}
}

func (svc *Service) observe(outcome string) {
	if svc.obs != nil {
		svc.obs.ObserveAttendance(outcome)
	}
}

// Check reports whether the roll call of the class for lesson on date has been recorded
// for the caller's church. A class without students, an unknown class or a class of
// another church is never recorded.
func (svc *Service) Check(ctx context.Context, p tenant.Principal, q CheckQuery) (bool, error) {
	cls, err := svc.roster.GetClass(ctx, q.ClassID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding class")
	}
	key := Key{ClassID: cls.ID, LessonID: q.LessonID, Date: q.Date, ChurchID: p.Stamp(cls.ChurchID)}
	if key.ChurchID != cls.ChurchID {
		return false, nil
	}

	studentIDs, err := svc.roster.ClassStudentIDs(ctx, key.ClassID)
	if err != nil {
		return false, errors.Wrap(err, "listing class students")
	}
	return svc.recorded(ctx, key, studentIDs)
}

func (svc *Service) recorded(ctx context.Context, key Key, studentIDs []int, exec ...core.DBExecutor) (bool, error) {
	if len(studentIDs) == 0 {
		return false, nil
	}
	n, err := svc.repo.CountRecorded(ctx, key.LessonID, key.Date, key.ChurchID, studentIDs, exec...)
	if err != nil {
		return false, errors.Wrap(err, "counting attendance")
	}
	return n > 0, nil
}

// Submit records a roll call. Standard users may only record a key once;
// masters may submit again, overwriting the stored outcomes.
// All rows of a submission are written in a single transaction.
func (svc *Service) Submit(ctx context.Context, p tenant.Principal, sub Submission) (Result, error) {
	res, err := svc.submit(ctx, p, sub)
	switch {
	case err == nil && res.Resubmitted:
		svc.observe("resubmitted")
	case err == nil:
		svc.observe("recorded")
	case core.IsConflict(err):
		svc.observe("rejected")
	default:
		svc.observe("failed")
	}
	return res, err
}

func (svc *Service) submit(ctx context.Context, p tenant.Principal, sub Submission) (Result, error) {
	classID := sub.ClassID
	if !sub.IsBatch() {
		std, err := svc.roster.GetStudent(ctx, sub.StudentID)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return Result{}, fieldErr("student_id", "student does not exist")
			}
			return Result{}, errors.Wrap(err, "finding student")
		}
		if !std.ClassID.Valid {
			return Result{}, fieldErr("student_id", "student is not enrolled in a class")
		}
		classID = std.ClassID.Int
	}

	cls, err := svc.roster.GetClass(ctx, classID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Result{}, fieldErr("class_id", "class does not exist")
		}
		return Result{}, errors.Wrap(err, "finding class")
	}
	if err = p.Authorize(cls.ChurchID); err != nil {
		return Result{}, err
	}
	if _, err = svc.lessons.GetLesson(ctx, sub.LessonID); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Result{}, fieldErr("lesson_id", "lesson does not exist")
		}
		return Result{}, errors.Wrap(err, "finding lesson")
	}

	key := Key{ClassID: cls.ID, LessonID: sub.LessonID, Date: sub.Date, ChurchID: p.Stamp(cls.ChurchID)}
	if key.ChurchID != cls.ChurchID {
		return Result{}, errClassChurch
	}
	var res Result

	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		studentIDs, err := svc.roster.ClassStudentIDs(ctx, key.ClassID, exec)
		if err != nil {
			return errors.Wrap(err, "listing class students")
		}

		rows, err := buildRows(key, sub, studentIDs)
		if err != nil {
			return err
		}

		recorded, err := svc.recorded(ctx, key, studentIDs, exec)
		if err != nil {
			return err
		}
		if recorded && !p.IsMaster() {
			return core.NewConflictError(msgAlreadyRecorded, nil)
		}

		if p.IsMaster() {
			err = svc.repo.UpsertAttendance(ctx, rows, exec)
		} else {
			err = svc.repo.InsertAttendance(ctx, rows, exec)
		}
		if err != nil {
			if errors.Cause(err) == ErrDuplicate {
				return core.NewConflictError(msgAlreadyRecorded, err)
			}
			return errors.Wrap(err, "writing attendance")
		}
		res = Result{Written: len(rows), Resubmitted: recorded}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// buildRows turns a submission into one row per student. A batch covers every student currently
// enrolled in the class: students missing from the records are recorded absent.
func buildRows(key Key, sub Submission, studentIDs []int) ([]Record, error) {
	enrolled := make(map[int]bool, len(studentIDs))
	for _, id := range studentIDs {
		enrolled[id] = true
	}
	row := func(studentID int, present bool) Record {
		return Record{StudentID: studentID, LessonID: key.LessonID, ChurchID: key.ChurchID, Present: present, Date: key.Date}
	}

	if !sub.IsBatch() {
		if !enrolled[sub.StudentID] {
			return nil, fieldErr("student_id", "student is not enrolled in the class")
		}
		return []Record{row(sub.StudentID, sub.Present.Bool())}, nil
	}

	if len(studentIDs) == 0 {
		return nil, fieldErr("class_id", "class has no students")
	}
	present := make(map[int]bool, len(sub.Records))
	for i, e := range sub.Records {
		if !enrolled[e.StudentID] {
			return nil, fieldErr(fmt.Sprintf("records[%d].student_id", i), "student is not enrolled in the class")
		}
		if _, dup := present[e.StudentID]; dup {
			return nil, fieldErr(fmt.Sprintf("records[%d].student_id", i), "student listed more than once")
		}
		present[e.StudentID] = e.Present.Bool()
	}

	rows := make([]Record, 0, len(studentIDs))
	for _, id := range studentIDs {
		rows = append(rows, row(id, present[id]))
	}
	return rows, nil
}

func (svc *Service) List(ctx context.Context, p tenant.Principal, filter Filter) ([]Record, error) {
	return svc.repo.QueryAttendance(ctx, filter, p.Scope())
}

// Update changes the outcome of one stored row. Masters only.
func (svc *Service) Update(ctx context.Context, p tenant.Principal, id int, present bool) error {
	if err := p.RequireMaster(); err != nil {
		return err
	}
	return svc.repo.SetPresent(ctx, id, present, p.Scope())
}

// Delete removes one stored row. Masters only.
func (svc *Service) Delete(ctx context.Context, p tenant.Principal, id int) error {
	if err := p.RequireMaster(); err != nil {
		return err
	}
	return svc.repo.DeleteAttendance(ctx, id, p.Scope())
}
