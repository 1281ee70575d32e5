package inmemdb

import (
	"context"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/magazine"
)

type magazineRepository struct {
	db *DB
}

var _ magazine.Repository = (*magazineRepository)(nil) // interface compliance check

func NewMagazineRepository(db *DB) *magazineRepository {
	return &magazineRepository{db: db}
}

func (repo *magazineRepository) QueryMagazines(_ context.Context, _ ...core.DBExecutor) ([]magazine.Magazine, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.magazines.sorted(), nil
}

func (repo *magazineRepository) GetMagazine(_ context.Context, id int, _ ...core.DBExecutor) (magazine.Magazine, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.magazines.rows[id]; ok {
		return m, nil
	}
	return magazine.Magazine{}, core.ErrNotFound
}

func (repo *magazineRepository) CreateMagazine(_ context.Context, m magazine.Magazine, _ ...core.DBExecutor) (magazine.Magazine, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = repo.db.magazines.next()
	repo.db.magazines.rows[m.ID] = m
	return m, nil
}

func (repo *magazineRepository) UpdateMagazine(_ context.Context, m magazine.Magazine, _ ...core.DBExecutor) (magazine.Magazine, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.magazines.rows[m.ID]; !ok {
		return magazine.Magazine{}, core.ErrNotFound
	}
	repo.db.magazines.rows[m.ID] = m
	return m, nil
}

func (repo *magazineRepository) withMagazine(l magazine.Lesson) magazine.Lesson {
	l.MagazineTitle = repo.db.magazineTitle(l.MagazineID)
	return l
}

func (repo *magazineRepository) QueryLessons(_ context.Context, filter magazine.LessonFilter, _ ...core.DBExecutor) ([]magazine.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]magazine.Lesson, 0)
	for _, l := range repo.db.lessons.sorted() {
		if filter.MagazineID != 0 && l.MagazineID != filter.MagazineID {
			continue
		}
		lessons = append(lessons, repo.withMagazine(l))
	}
	return lessons, nil
}

func (repo *magazineRepository) GetLesson(_ context.Context, id int, _ ...core.DBExecutor) (magazine.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if l, ok := repo.db.lessons.rows[id]; ok {
		return repo.withMagazine(l), nil
	}
	return magazine.Lesson{}, core.ErrNotFound
}

func (repo *magazineRepository) CreateLesson(_ context.Context, l magazine.Lesson, _ ...core.DBExecutor) (magazine.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.exists("magazines", l.MagazineID) {
		return magazine.Lesson{}, errForeignKey("lessons", "magazine_id")
	}
	l.ID = repo.db.lessons.next()
	repo.db.lessons.rows[l.ID] = l
	return repo.withMagazine(l), nil
}

func (repo *magazineRepository) UpdateLesson(_ context.Context, l magazine.Lesson, _ ...core.DBExecutor) (magazine.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons.rows[l.ID]; !ok {
		return magazine.Lesson{}, core.ErrNotFound
	}
	if !repo.db.exists("magazines", l.MagazineID) {
		return magazine.Lesson{}, errForeignKey("lessons", "magazine_id")
	}
	repo.db.lessons.rows[l.ID] = l
	return repo.withMagazine(l), nil
}
