package attendance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
)

type Record struct {
	ID          int         `json:"id" db:"id"`
	StudentID   int         `json:"student_id" db:"student_id"`
	StudentName null.String `json:"student_name" db:"student_name"`
	ClassID     null.Int    `json:"class_id" db:"class_id"`
	ClassName   null.String `json:"class_name" db:"class_name"`
	LessonID    int         `json:"lesson_id" db:"lesson_id"`
	LessonTitle null.String `json:"lesson_title" db:"lesson_title"`
	ChurchID    int         `json:"church_id" db:"church_id"`
	ChurchName  null.String `json:"church_name" db:"church_name"`
	Present     bool        `json:"present" db:"present"`
	Date        string      `json:"date" db:"date"`
}

// Key identifies one roll call.
type Key struct {
	ClassID  int
	LessonID int
	Date     string
	ChurchID int
}

// Presence is a strict boolean that also accepts 1/0 and their string forms from clients.
type Presence bool

func (p *Presence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.ToLower(strings.TrimSpace(s)))
	}
	switch string(data) {
	case "true", "1":
		*p = true
	case "false", "0":
		*p = false
	default:
		return fmt.Errorf("present: invalid value %s, want true/false or 1/0", data)
	}
	return nil
}

func (p *Presence) Bool() bool {
	return p != nil && bool(*p)
}

// Entry is the outcome of one student in a submission.
// LessonID and Date may repeat the submission's values; they must then be equal.
type Entry struct {
	StudentID int       `json:"student_id" validate:"required,min=1"`
	LessonID  int       `json:"lesson_id" validate:"omitempty,min=1"`
	Date      string    `json:"date" validate:"omitempty,date"`
	Present   *Presence `json:"present" validate:"required"`
}

// Submission is either a batch (Records set, for a whole class) or a single record (StudentID set).
type Submission struct {
	ClassID  int     `json:"class_id" validate:"omitempty,min=1"`
	LessonID int     `json:"lesson_id" validate:"omitempty,min=1"`
	Date     string  `json:"date" validate:"omitempty,date"`
	Records  []Entry `json:"records" validate:"omitempty,dive"`

	StudentID int       `json:"student_id" validate:"omitempty,min=1"`
	Present   *Presence `json:"present"`
}

func (s Submission) IsBatch() bool {
	return s.Records != nil
}

func fieldErr(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}

// Validate checks the shape of the submission and lifts lesson_id & date from the records
// when the batch does not carry them.
func (s *Submission) Validate(validate *validator.Validate) error {
	s.Date = core.CleanString(s.Date)
	if err := validate.Struct(s); err != nil {
		return err
	}

	if !s.IsBatch() {
		switch {
		case s.StudentID == 0:
			return fieldErr("student_id", "this field is required")
		case s.LessonID == 0:
			return fieldErr("lesson_id", "this field is required")
		case s.Date == "":
			return fieldErr("date", "this field is required")
		case s.Present == nil:
			return fieldErr("present", "this field is required")
		}
		return nil
	}

	for i, e := range s.Records {
		if e.LessonID != 0 {
			if s.LessonID == 0 {
				s.LessonID = e.LessonID
			} else if s.LessonID != e.LessonID {
				return fieldErr(fmt.Sprintf("records[%d].lesson_id", i), "all records must share the same lesson")
			}
		}
		if e.Date != "" {
			if s.Date == "" {
				s.Date = e.Date
			} else if s.Date != e.Date {
				return fieldErr(fmt.Sprintf("records[%d].date", i), "all records must share the same date")
			}
		}
	}
	switch {
	case s.ClassID == 0:
		return fieldErr("class_id", "this field is required")
	case s.LessonID == 0:
		return fieldErr("lesson_id", "this field is required")
	case s.Date == "":
		return fieldErr("date", "this field is required")
	}
	return nil
}

type UpdateRecord struct {
	Present *Presence `json:"present" validate:"required"`
}

func (ur *UpdateRecord) Validate(validate *validator.Validate) error {
	return validate.Struct(ur)
}

type Filter struct {
	LessonID int    `query:"lesson_id"`
	ClassID  int    `query:"class_id"`
	Date     string `query:"date"`
}

type CheckQuery struct {
	LessonID int    `query:"lesson_id" validate:"required,min=1"`
	ClassID  int    `query:"class_id" validate:"required,min=1"`
	Date     string `query:"date" validate:"required,date"`
}

// Result summarizes a successful submission.
type Result struct {
	Written     int  `json:"written"`
	Resubmitted bool `json:"resubmitted"`
}
