package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/material"
)

type materialRepository struct {
	base
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(exec core.DBExecutor, timeout time.Duration) *materialRepository {
	return &materialRepository{base: newBase(exec, timeout)}
}

const materialSelect = `
SELECT m.id, m.title, m.file_path, m.file_type, m.cover_path, m.church_id, ch.name AS church_name, m.created_at
FROM materials m
LEFT JOIN churches ch ON ch.id = m.church_id`

func (repo *materialRepository) QueryMaterials(ctx context.Context, scope *int, exec ...core.DBExecutor) ([]material.Material, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	// rows without a church only show up unfiltered
	mats := make([]material.Material, 0)
	q := materialSelect + ` WHERE ($1::int IS NULL OR m.church_id = $1) ORDER BY m.id`
	if err := repo.getExec(exec).SelectContext(ctx, &mats, q, scopeArg(scope)); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	return mats, nil
}

func (repo *materialRepository) get(ctx context.Context, exec core.DBExecutor, id int) (material.Material, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var m material.Material
	if err := exec.GetContext(ctx, &m, materialSelect+` WHERE m.id = $1`, id); err != nil {
		return material.Material{}, trapNoRowsErr(err, "finding material")
	}
	return m, nil
}

func (repo *materialRepository) GetMaterial(ctx context.Context, id int, exec ...core.DBExecutor) (material.Material, error) {
	return repo.get(ctx, repo.getExec(exec), id)
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, m material.Material, exec ...core.DBExecutor) (material.Material, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO materials (title, file_path, file_type, cover_path, church_id) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := exe.QueryRowxContext(ctx, q, m.Title, m.FilePath, m.FileType, m.CoverPath, m.ChurchID).Scan(&id); err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return repo.get(ctx, exe, id)
}
