package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, validate *validator.Validate) {
	api := scheduleApi{svc: svc, validate: validate}

	sg := g.Group("/schedule", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.List(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewRecord
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	rec, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating schedule record")
	}
	return ctx.JSON(http.StatusOK, created(rec.ID))
}

func (api *scheduleApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewRecord
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if _, err = api.svc.Update(ctx.Request().Context(), p, id, data); err != nil {
		return errors.Wrap(err, "updating schedule record")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting schedule record")
	}
	return ctx.JSON(http.StatusOK, success)
}
