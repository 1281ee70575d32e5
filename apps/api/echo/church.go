package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core/church"
)

type churchApi struct {
	svc      *church.Service
	validate *validator.Validate
}

func registerChurchAPI(g *echo.Group, jwt, master echo.MiddlewareFunc, svc *church.Service, validate *validator.Validate) {
	api := churchApi{svc: svc, validate: validate}

	// the list is public: the login screen needs it
	g.GET("/churches", api.query)
	g.POST("/churches", api.create, jwt, master)
	g.PUT("/churches/:id", api.update, jwt, master)
	g.DELETE("/churches/:id", api.destroy, jwt, master)
}

func (api *churchApi) query(ctx echo.Context) error {
	churches, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying churches")
	}
	return ctx.JSON(http.StatusOK, churches)
}

func (api *churchApi) create(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data church.NewChurch
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating church")
	}
	return ctx.JSON(http.StatusOK, created(c.ID))
}

func (api *churchApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data church.NewChurch
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if _, err = api.svc.Update(ctx.Request().Context(), p, id, data); err != nil {
		return errors.Wrap(err, "updating church")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *churchApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting church")
	}
	return ctx.JSON(http.StatusOK, success)
}
