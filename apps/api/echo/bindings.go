package echoapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type (
	SuccessResponse struct {
		Success bool `json:"success"`
		ID      int  `json:"id,omitempty"`
	}

	validatable interface {
		Validate(validate *validator.Validate) error
	}
)

var success = SuccessResponse{Success: true}

func created(id int) SuccessResponse {
	return SuccessResponse{Success: true, ID: id}
}

// idParam reads the `:id` path param; anything but a positive integer matches no row.
func idParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// bindAndValidate binds the request into data then runs its own validation.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data validatable) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	return data.Validate(validate)
}
