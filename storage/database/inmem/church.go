package inmemdb

import (
	"context"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/church"
)

type churchRepository struct {
	db *DB
}

var _ church.Repository = (*churchRepository)(nil) // interface compliance check

func NewChurchRepository(db *DB) *churchRepository {
	return &churchRepository{db: db}
}

func (repo *churchRepository) QueryChurches(_ context.Context, _ ...core.DBExecutor) ([]church.Church, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.churches.sorted(), nil
}

func (repo *churchRepository) GetChurch(_ context.Context, id int, _ ...core.DBExecutor) (church.Church, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.churches.rows[id]; ok {
		return c, nil
	}
	return church.Church{}, core.ErrNotFound
}

func (repo *churchRepository) CreateChurch(_ context.Context, c church.Church, _ ...core.DBExecutor) (church.Church, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = repo.db.churches.next()
	repo.db.churches.rows[c.ID] = c
	return c, nil
}

func (repo *churchRepository) UpdateChurch(_ context.Context, c church.Church, _ ...core.DBExecutor) (church.Church, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.churches.rows[c.ID]; !ok {
		return church.Church{}, core.ErrNotFound
	}
	repo.db.churches.rows[c.ID] = c
	return c, nil
}
