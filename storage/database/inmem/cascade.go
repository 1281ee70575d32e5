package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/cascade"
)

type cascadeStore struct {
	db *DB
}

var _ cascade.Store = (*cascadeStore)(nil) // interface compliance check

func NewCascadeStore(db *DB) *cascadeStore {
	return &cascadeStore{db: db}
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func (s *cascadeStore) matching(rel relation, column string, values []int) []int {
	var ids []int
	for _, id := range rel.ids() {
		if v, ok := rel.value(id, column); ok && contains(values, v) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *cascadeStore) SelectIDs(_ context.Context, _ core.DBExecutor, table, column string, values []int) ([]int, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()

	rel := s.db.relation(table)
	if rel == nil {
		return nil, errors.Errorf("unknown table %q", table)
	}
	return s.matching(rel, column, values), nil
}

// DeleteWhere removes the matching rows, all or none: a row still referenced elsewhere
// fails the statement with cascade.ErrDependentRows.
func (s *cascadeStore) DeleteWhere(_ context.Context, _ core.DBExecutor, table, column string, values []int) (int64, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	rel := s.db.relation(table)
	if rel == nil {
		return 0, errors.Errorf("unknown table %q", table)
	}
	ids := s.matching(rel, column, values)
	for _, id := range ids {
		if s.db.referenced(table, id) {
			return 0, errors.Wrapf(cascade.ErrDependentRows, "%s %d", table, id)
		}
	}
	for _, id := range ids {
		rel.remove(id)
		if table == "magazines" {
			s.db.clearMagazine(id)
		}
	}
	return int64(len(ids)), nil
}
