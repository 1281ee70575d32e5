package church

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
	"github.com/conectaebd/backend/core/tenant"
)

type Church struct {
	ID      int         `json:"id" db:"id"`
	Name    string      `json:"name" db:"name"`
	Type    string      `json:"type" db:"type"`
	Pastor  null.String `json:"pastor" db:"pastor"`
	Members int         `json:"members" db:"members"`
}

// NewChurch contains what may be provided to create or replace a Church.
type NewChurch struct {
	Name    string `json:"name" validate:"notblank"`
	Type    string `json:"type" validate:"notblank"`
	Pastor  string `json:"pastor"`
	Members int    `json:"members" validate:"min=0"`
}

func (nc *NewChurch) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Type = core.CleanString(nc.Type)
	nc.Pastor = core.CleanString(nc.Pastor)
	return validate.Struct(nc)
}

func (nc NewChurch) church(id int) Church {
	return Church{
		ID:      id,
		Name:    nc.Name,
		Type:    nc.Type,
		Pastor:  null.NewString(nc.Pastor, nc.Pastor != ""),
		Members: nc.Members,
	}
}

type (
	Repository interface {
		QueryChurches(ctx context.Context, exec ...core.DBExecutor) ([]Church, error)
		GetChurch(ctx context.Context, id int, exec ...core.DBExecutor) (Church, error)
		CreateChurch(ctx context.Context, c Church, exec ...core.DBExecutor) (Church, error)
		UpdateChurch(ctx context.Context, c Church, exec ...core.DBExecutor) (Church, error)
	}

	// FileJanitor knows which stored objects belong to a church and how to remove them.
	FileJanitor interface {
		ChurchFiles(ctx context.Context, churchID int) ([]string, error)
		RemoveFiles(ctx context.Context, urls ...string) error
	}

	Service struct {
		repo    Repository
		deleter *cascade.Deleter
		files   FileJanitor
		logger  core.Logger
	}
)

func NewService(repo Repository, deleter *cascade.Deleter, files FileJanitor, logger core.Logger) *Service {
	return &Service{repo: repo, deleter: deleter, files: files, logger: logger}
}

func (svc *Service) List(ctx context.Context) ([]Church, error) {
	return svc.repo.QueryChurches(ctx)
}

func (svc *Service) Get(ctx context.Context, id int) (Church, error) {
	return svc.repo.GetChurch(ctx, id)
}

func (svc *Service) Create(ctx context.Context, p tenant.Principal, nc NewChurch) (Church, error) {
	if err := p.RequireMaster(); err != nil {
		return Church{}, err
	}
	return svc.repo.CreateChurch(ctx, nc.church(0))
}

func (svc *Service) Update(ctx context.Context, p tenant.Principal, id int, nc NewChurch) (Church, error) {
	if err := p.RequireMaster(); err != nil {
		return Church{}, err
	}
	return svc.repo.UpdateChurch(ctx, nc.church(id))
}

// Delete removes the church and everything scoped to it.
// Stored material files are removed once the rows are gone; failures there are only logged.
func (svc *Service) Delete(ctx context.Context, p tenant.Principal, id int) error {
	if err := p.RequireMaster(); err != nil {
		return err
	}
	if _, err := svc.repo.GetChurch(ctx, id); err != nil {
		return err
	}

	var urls []string
	if svc.files != nil {
		var err error
		if urls, err = svc.files.ChurchFiles(ctx, id); err != nil {
			return errors.Wrap(err, "listing church files")
		}
	}

	if err := svc.deleter.Delete(ctx, cascade.Church, id); err != nil {
		return err
	}

	if len(urls) > 0 {
		if err := svc.files.RemoveFiles(ctx, urls...); err != nil {
			svc.logger.Warn("removing files of deleted church", map[string]interface{}{"church_id": id, "files": urls}, err)
		}
	}
	return nil
}
