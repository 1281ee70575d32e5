package roster

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
)

type Class struct {
	ID            int         `json:"id" db:"id"`
	Name          string      `json:"name" db:"name"`
	ChurchID      int         `json:"church_id" db:"church_id"`
	ChurchName    null.String `json:"church_name" db:"church_name"`
	MagazineID    null.Int    `json:"magazine_id" db:"magazine_id"`
	MagazineTitle null.String `json:"magazine_title" db:"magazine_title"`
	Active        bool        `json:"active" db:"active"`
}

// NewClass contains what may be provided to create or modify a Class.
// ChurchID is only honoured for masters that are not bound to a church.
type NewClass struct {
	Name       string `json:"name" validate:"notblank"`
	MagazineID *int   `json:"magazine_id" validate:"omitempty,min=1"`
	ChurchID   *int   `json:"church_id" validate:"omitempty,min=1"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type Teacher struct {
	ID         int         `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	ChurchID   int         `json:"church_id" db:"church_id"`
	ChurchName null.String `json:"church_name" db:"church_name"`
	ClassID    null.Int    `json:"class_id" db:"class_id"`
	ClassName  null.String `json:"class_name" db:"class_name"`
	Active     bool        `json:"active" db:"active"`
}

type NewTeacher struct {
	Name     string `json:"name" validate:"notblank"`
	ClassID  *int   `json:"class_id" validate:"omitempty,min=1"`
	ChurchID *int   `json:"church_id" validate:"omitempty,min=1"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

type Student struct {
	ID         int         `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	BirthDate  null.String `json:"birth_date" db:"birth_date"` // YYYY-MM-DD
	ChurchID   int         `json:"church_id" db:"church_id"`
	ChurchName null.String `json:"church_name" db:"church_name"`
	ClassID    null.Int    `json:"class_id" db:"class_id"`
	ClassName  null.String `json:"class_name" db:"class_name"`
	Active     bool        `json:"active" db:"active"`
}

type NewStudent struct {
	Name      string `json:"name" validate:"notblank"`
	BirthDate string `json:"birth_date" validate:"omitempty,date"`
	ClassID   *int   `json:"class_id" validate:"omitempty,min=1"`
	ChurchID  *int   `json:"church_id" validate:"omitempty,min=1"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.BirthDate = core.CleanString(ns.BirthDate)
	return validate.Struct(ns)
}

// Filter narrows teacher & student lists; the church scope is applied on top of it.
type Filter struct {
	ClassID int `query:"class_id"`
}
