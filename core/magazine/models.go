package magazine

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
)

type Magazine struct {
	ID      int    `json:"id" db:"id"`
	Title   string `json:"title" db:"title"`
	Quarter string `json:"quarter" db:"quarter"`
	Year    int    `json:"year" db:"year"`
}

type NewMagazine struct {
	Title   string `json:"title" validate:"notblank"`
	Quarter string `json:"quarter"`
	Year    int    `json:"year" validate:"omitempty,min=1900,max=3000"`
}

func (nm *NewMagazine) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Quarter = core.CleanString(nm.Quarter)
	return validate.Struct(nm)
}

type Lesson struct {
	ID             int         `json:"id" db:"id"`
	MagazineID     int         `json:"magazine_id" db:"magazine_id"`
	MagazineTitle  null.String `json:"magazine_title" db:"magazine_title"`
	Number         int         `json:"number" db:"number"`
	Title          string      `json:"title" db:"title"`
	Date           null.String `json:"date" db:"date"` // YYYY-MM-DD
	GoldenText     string      `json:"golden_text" db:"golden_text"`
	SuggestedHymns string      `json:"suggested_hymns" db:"suggested_hymns"`
}

type NewLesson struct {
	MagazineID     int    `json:"magazine_id" validate:"required,min=1"`
	Number         int    `json:"number" validate:"min=0"`
	Title          string `json:"title" validate:"notblank"`
	Date           string `json:"date" validate:"omitempty,date"`
	GoldenText     string `json:"golden_text"`
	SuggestedHymns string `json:"suggested_hymns"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Date = core.CleanString(nl.Date)
	return validate.Struct(nl)
}

func (nl NewLesson) lesson(id int) Lesson {
	return Lesson{
		ID:             id,
		MagazineID:     nl.MagazineID,
		Number:         nl.Number,
		Title:          nl.Title,
		Date:           null.NewString(nl.Date, nl.Date != ""),
		GoldenText:     nl.GoldenText,
		SuggestedHymns: nl.SuggestedHymns,
	}
}

type LessonFilter struct {
	MagazineID int `query:"magazine_id"`
}
