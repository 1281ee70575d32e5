package inmemdb

import (
	"context"
	"time"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/material"
	"github.com/conectaebd/backend/core/tenant"
)

type materialRepository struct {
	db *DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) *materialRepository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) withChurch(m material.Material) material.Material {
	m.ChurchName = repo.db.churchName(m.ChurchID.Int)
	if !m.ChurchID.Valid {
		m.ChurchName.Valid = false
	}
	return m
}

func (repo *materialRepository) QueryMaterials(_ context.Context, scope *int, _ ...core.DBExecutor) ([]material.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mats := make([]material.Material, 0)
	for _, m := range repo.db.materials.sorted() {
		// rows without a church only show up unfiltered
		if scope != nil && (!m.ChurchID.Valid || !tenant.InScope(scope, m.ChurchID.Int)) {
			continue
		}
		mats = append(mats, repo.withChurch(m))
	}
	return mats, nil
}

func (repo *materialRepository) GetMaterial(_ context.Context, id int, _ ...core.DBExecutor) (material.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.materials.rows[id]; ok {
		return repo.withChurch(m), nil
	}
	return material.Material{}, core.ErrNotFound
}

func (repo *materialRepository) CreateMaterial(_ context.Context, m material.Material, _ ...core.DBExecutor) (material.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.existsNull("churches", m.ChurchID) {
		return material.Material{}, errForeignKey("materials", "church_id")
	}
	m.ID = repo.db.materials.next()
	m.CreatedAt = time.Now().UTC()
	repo.db.materials.rows[m.ID] = m
	return repo.withChurch(m), nil
}
