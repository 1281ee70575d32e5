package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/tenant"
)

type rosterApi struct {
	svc      *roster.Service
	validate *validator.Validate
}

func registerRosterAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *roster.Service, validate *validator.Validate) {
	api := rosterApi{svc: svc, validate: validate}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)
	cg.PUT("/:id", api.updateClass)
	cg.PATCH("/:id/toggle", api.toggle(svc.ToggleClass))
	cg.DELETE("/:id", api.destroy(svc.DeleteClass))

	tg := g.Group("/teachers", jwt)
	tg.GET("", api.queryTeachers)
	tg.POST("", api.createTeacher)
	tg.PUT("/:id", api.updateTeacher)
	tg.PATCH("/:id/toggle", api.toggle(svc.ToggleTeacher))
	tg.DELETE("/:id", api.destroy(svc.DeleteTeacher))

	sg := g.Group("/students", jwt)
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.PATCH("/:id/toggle", api.toggle(svc.ToggleStudent))
	sg.DELETE("/:id", api.destroy(svc.DeleteStudent))
}

type principalAction func(ctx context.Context, p tenant.Principal, id int) error

// toggle flips the `active` flag of the row at `:id`.
func (api *rosterApi) toggle(action principalAction) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return err
		}
		id, err := idParam(ctx)
		if err != nil {
			return err
		}
		if err = action(ctx.Request().Context(), p, id); err != nil {
			return errors.Wrap(err, "toggling active")
		}
		return ctx.JSON(http.StatusOK, success)
	}
}

// destroy deletes the row at `:id` along with its dependent rows.
func (api *rosterApi) destroy(action principalAction) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return err
		}
		id, err := idParam(ctx)
		if err != nil {
			return err
		}
		if err = action(ctx.Request().Context(), p, id); err != nil {
			return errors.Wrap(err, "deleting")
		}
		return ctx.JSON(http.StatusOK, success)
	}
}

// Classes

func (api *rosterApi) queryClasses(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.ListClasses(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) createClass(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data roster.NewClass
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	cls, err := api.svc.CreateClass(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusOK, created(cls.ID))
}

func (api *rosterApi) updateClass(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data roster.NewClass
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if _, err = api.svc.UpdateClass(ctx.Request().Context(), p, id, data); err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, success)
}

// Teachers

func (api *rosterApi) queryTeachers(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter roster.Filter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	teachers, err := api.svc.ListTeachers(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *rosterApi) createTeacher(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data roster.NewTeacher
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	tch, err := api.svc.CreateTeacher(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusOK, created(tch.ID))
}

func (api *rosterApi) updateTeacher(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data roster.NewTeacher
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if _, err = api.svc.UpdateTeacher(ctx.Request().Context(), p, id, data); err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, success)
}

// Students

func (api *rosterApi) queryStudents(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter roster.Filter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	students, err := api.svc.ListStudents(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) createStudent(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data roster.NewStudent
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	std, err := api.svc.CreateStudent(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusOK, created(std.ID))
}

func (api *rosterApi) updateStudent(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data roster.NewStudent
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if _, err = api.svc.UpdateStudent(ctx.Request().Context(), p, id, data); err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, success)
}
