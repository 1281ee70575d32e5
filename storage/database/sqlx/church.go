package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/church"
)

type churchRepository struct {
	base
}

var _ church.Repository = (*churchRepository)(nil) // interface compliance check

func NewChurchRepository(exec core.DBExecutor, timeout time.Duration) *churchRepository {
	return &churchRepository{base: newBase(exec, timeout)}
}

const churchColumns = `id, name, type, pastor, members`

func (repo *churchRepository) QueryChurches(ctx context.Context, exec ...core.DBExecutor) ([]church.Church, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	churches := make([]church.Church, 0)
	q := `SELECT ` + churchColumns + ` FROM churches ORDER BY id`
	if err := repo.getExec(exec).SelectContext(ctx, &churches, q); err != nil {
		return nil, errors.Wrap(err, "querying churches")
	}
	return churches, nil
}

func (repo *churchRepository) GetChurch(ctx context.Context, id int, exec ...core.DBExecutor) (church.Church, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var c church.Church
	q := `SELECT ` + churchColumns + ` FROM churches WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &c, q, id); err != nil {
		return church.Church{}, trapNoRowsErr(err, "finding church")
	}
	return c, nil
}

func (repo *churchRepository) CreateChurch(ctx context.Context, c church.Church, exec ...core.DBExecutor) (church.Church, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `INSERT INTO churches (name, type, pastor, members) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.getExec(exec).QueryRowxContext(ctx, q, c.Name, c.Type, c.Pastor, c.Members).Scan(&c.ID); err != nil {
		return church.Church{}, errors.Wrap(err, "inserting church")
	}
	return c, nil
}

func (repo *churchRepository) UpdateChurch(ctx context.Context, c church.Church, exec ...core.DBExecutor) (church.Church, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE churches SET name = $2, type = $3, pastor = $4, members = $5 WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, q, c.ID, c.Name, c.Type, c.Pastor, c.Members)
	if err = checkAffected(res, err, "updating church"); err != nil {
		return church.Church{}, err
	}
	return c, nil
}
