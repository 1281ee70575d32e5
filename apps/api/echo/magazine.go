package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core/magazine"
)

type magazineApi struct {
	svc      *magazine.Service
	validate *validator.Validate
}

func registerMagazineAPI(g *echo.Group, jwt, master echo.MiddlewareFunc, svc *magazine.Service, validate *validator.Validate) {
	api := magazineApi{svc: svc, validate: validate}

	mg := g.Group("/magazines", jwt)
	mg.GET("", api.queryMagazines)
	mg.POST("", api.createMagazine)
	mg.PUT("/:id", api.updateMagazine)
	mg.DELETE("/:id", api.destroyMagazine, master)

	lg := g.Group("/lessons", jwt)
	lg.GET("", api.queryLessons)
	lg.POST("", api.createLesson)
	lg.PUT("/:id", api.updateLesson)
	lg.DELETE("/:id", api.destroyLesson, master)
}

// Magazines

func (api *magazineApi) queryMagazines(ctx echo.Context) error {
	mags, err := api.svc.ListMagazines(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying magazines")
	}
	return ctx.JSON(http.StatusOK, mags)
}

func (api *magazineApi) createMagazine(ctx echo.Context) error {
	var data magazine.NewMagazine
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	mag, err := api.svc.CreateMagazine(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating magazine")
	}
	return ctx.JSON(http.StatusOK, created(mag.ID))
}

func (api *magazineApi) updateMagazine(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data magazine.NewMagazine
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if _, err = api.svc.UpdateMagazine(ctx.Request().Context(), id, data); err != nil {
		return errors.Wrap(err, "updating magazine")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *magazineApi) destroyMagazine(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteMagazine(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting magazine")
	}
	return ctx.JSON(http.StatusOK, success)
}

// Lessons

func (api *magazineApi) queryLessons(ctx echo.Context) error {
	var filter magazine.LessonFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to LessonFilter")
	}
	lessons, err := api.svc.ListLessons(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *magazineApi) createLesson(ctx echo.Context) error {
	var data magazine.NewLesson
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	les, err := api.svc.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusOK, created(les.ID))
}

func (api *magazineApi) updateLesson(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data magazine.NewLesson
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if _, err = api.svc.UpdateLesson(ctx.Request().Context(), id, data); err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *magazineApi) destroyLesson(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLesson(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.JSON(http.StatusOK, success)
}
