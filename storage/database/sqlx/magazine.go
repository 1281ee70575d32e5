package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/magazine"
)

type magazineRepository struct {
	base
}

var _ magazine.Repository = (*magazineRepository)(nil) // interface compliance check

func NewMagazineRepository(exec core.DBExecutor, timeout time.Duration) *magazineRepository {
	return &magazineRepository{base: newBase(exec, timeout)}
}

const (
	magazineColumns = `id, title, quarter, year`

	lessonSelect = `
SELECT l.id, l.magazine_id, m.title AS magazine_title, l.number, l.title,
	to_char(l.date, 'YYYY-MM-DD') AS date, l.golden_text, l.suggested_hymns
FROM lessons l
LEFT JOIN magazines m ON m.id = l.magazine_id`
)

func (repo *magazineRepository) QueryMagazines(ctx context.Context, exec ...core.DBExecutor) ([]magazine.Magazine, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	mags := make([]magazine.Magazine, 0)
	q := `SELECT ` + magazineColumns + ` FROM magazines ORDER BY id`
	if err := repo.getExec(exec).SelectContext(ctx, &mags, q); err != nil {
		return nil, errors.Wrap(err, "querying magazines")
	}
	return mags, nil
}

func (repo *magazineRepository) GetMagazine(ctx context.Context, id int, exec ...core.DBExecutor) (magazine.Magazine, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var m magazine.Magazine
	q := `SELECT ` + magazineColumns + ` FROM magazines WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &m, q, id); err != nil {
		return magazine.Magazine{}, trapNoRowsErr(err, "finding magazine")
	}
	return m, nil
}

func (repo *magazineRepository) CreateMagazine(ctx context.Context, m magazine.Magazine, exec ...core.DBExecutor) (magazine.Magazine, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `INSERT INTO magazines (title, quarter, year) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.getExec(exec).QueryRowxContext(ctx, q, m.Title, m.Quarter, m.Year).Scan(&m.ID); err != nil {
		return magazine.Magazine{}, errors.Wrap(err, "inserting magazine")
	}
	return m, nil
}

func (repo *magazineRepository) UpdateMagazine(ctx context.Context, m magazine.Magazine, exec ...core.DBExecutor) (magazine.Magazine, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE magazines SET title = $2, quarter = $3, year = $4 WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, q, m.ID, m.Title, m.Quarter, m.Year)
	if err = checkAffected(res, err, "updating magazine"); err != nil {
		return magazine.Magazine{}, err
	}
	return m, nil
}

func (repo *magazineRepository) QueryLessons(ctx context.Context, filter magazine.LessonFilter, exec ...core.DBExecutor) ([]magazine.Lesson, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	lessons := make([]magazine.Lesson, 0)
	q := lessonSelect + ` WHERE ($1 = 0 OR l.magazine_id = $1) ORDER BY l.id`
	if err := repo.getExec(exec).SelectContext(ctx, &lessons, q, filter.MagazineID); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons, nil
}

func (repo *magazineRepository) getLesson(ctx context.Context, exec core.DBExecutor, id int) (magazine.Lesson, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var l magazine.Lesson
	if err := exec.GetContext(ctx, &l, lessonSelect+` WHERE l.id = $1`, id); err != nil {
		return magazine.Lesson{}, trapNoRowsErr(err, "finding lesson")
	}
	return l, nil
}

func (repo *magazineRepository) GetLesson(ctx context.Context, id int, exec ...core.DBExecutor) (magazine.Lesson, error) {
	return repo.getLesson(ctx, repo.getExec(exec), id)
}

func (repo *magazineRepository) CreateLesson(ctx context.Context, l magazine.Lesson, exec ...core.DBExecutor) (magazine.Lesson, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO lessons (magazine_id, number, title, date, golden_text, suggested_hymns)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := exe.QueryRowxContext(ctx, q, l.MagazineID, l.Number, l.Title, l.Date, l.GoldenText, l.SuggestedHymns).Scan(&id)
	if err != nil {
		return magazine.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return repo.getLesson(ctx, exe, id)
}

func (repo *magazineRepository) UpdateLesson(ctx context.Context, l magazine.Lesson, exec ...core.DBExecutor) (magazine.Lesson, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	q := `UPDATE lessons SET magazine_id = $2, number = $3, title = $4, date = $5, golden_text = $6,
		suggested_hymns = $7 WHERE id = $1`
	res, err := exe.ExecContext(ctx, q, l.ID, l.MagazineID, l.Number, l.Title, l.Date, l.GoldenText, l.SuggestedHymns)
	if err = checkAffected(res, err, "updating lesson"); err != nil {
		return magazine.Lesson{}, err
	}
	return repo.getLesson(ctx, exe, l.ID)
}
