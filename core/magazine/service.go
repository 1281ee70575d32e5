package magazine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/tenant"
)

type (
	Repository interface {
		QueryMagazines(ctx context.Context, exec ...core.DBExecutor) ([]Magazine, error)
		GetMagazine(ctx context.Context, id int, exec ...core.DBExecutor) (Magazine, error)
		CreateMagazine(ctx context.Context, m Magazine, exec ...core.DBExecutor) (Magazine, error)
		UpdateMagazine(ctx context.Context, m Magazine, exec ...core.DBExecutor) (Magazine, error)

		QueryLessons(ctx context.Context, filter LessonFilter, exec ...core.DBExecutor) ([]Lesson, error)
		GetLesson(ctx context.Context, id int, exec ...core.DBExecutor) (Lesson, error)
		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
	}

	Service struct {
		repo    Repository
		deleter *cascade.Deleter
	}
)

func NewService(repo Repository, deleter *cascade.Deleter) *Service {
	return &Service{repo: repo, deleter: deleter}
}

// Magazines

func (svc *Service) ListMagazines(ctx context.Context) ([]Magazine, error) {
	return svc.repo.QueryMagazines(ctx)
}

func (svc *Service) CreateMagazine(ctx context.Context, nm NewMagazine) (Magazine, error) {
	return svc.repo.CreateMagazine(ctx, Magazine{Title: nm.Title, Quarter: nm.Quarter, Year: nm.Year})
}

func (svc *Service) UpdateMagazine(ctx context.Context, id int, nm NewMagazine) (Magazine, error) {
	return svc.repo.UpdateMagazine(ctx, Magazine{ID: id, Title: nm.Title, Quarter: nm.Quarter, Year: nm.Year})
}

// DeleteMagazine removes the magazine with its lessons and everything recorded against them. Masters only.
func (svc *Service) DeleteMagazine(ctx context.Context, p tenant.Principal, id int) error {
	if err := p.RequireMaster(); err != nil {
		return err
	}
	if _, err := svc.repo.GetMagazine(ctx, id); err != nil {
		return err
	}
	return svc.deleter.Delete(ctx, cascade.Magazine, id)
}

// Lessons

func (svc *Service) ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, filter)
}

func (svc *Service) checkMagazine(ctx context.Context, id int) error {
	if _, err := svc.repo.GetMagazine(ctx, id); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "magazine_id", Error: "magazine does not exist"})
		}
		return errors.Wrap(err, "finding magazine")
	}
	return nil
}

func (svc *Service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if err := svc.checkMagazine(ctx, nl.MagazineID); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, nl.lesson(0))
}

func (svc *Service) UpdateLesson(ctx context.Context, id int, nl NewLesson) (Lesson, error) {
	if err := svc.checkMagazine(ctx, nl.MagazineID); err != nil {
		return Lesson{}, err
	}
	return svc.repo.UpdateLesson(ctx, nl.lesson(id))
}

// DeleteLesson removes the lesson with its attendance and schedule rows. Masters only.
func (svc *Service) DeleteLesson(ctx context.Context, p tenant.Principal, id int) error {
	if err := p.RequireMaster(); err != nil {
		return err
	}
	if _, err := svc.repo.GetLesson(ctx, id); err != nil {
		return err
	}
	return svc.deleter.Delete(ctx, cascade.Lesson, id)
}
