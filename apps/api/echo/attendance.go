package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core/attendance"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt, master echo.MiddlewareFunc, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance", jwt)
	ag.GET("/check", api.check)
	ag.GET("/stats", api.stats)
	ag.GET("/export", api.export)
	ag.GET("", api.query)
	ag.POST("", api.submit)
	ag.PUT("/:id", api.update, master)
	ag.DELETE("/:id", api.destroy, master)
}

func (api *attendanceApi) check(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var q attendance.CheckQuery
	if err = ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to CheckQuery")
	}
	if err = api.validate.Struct(q); err != nil {
		return err
	}

	exists, err := api.svc.Check(ctx.Request().Context(), p, q)
	if err != nil {
		return errors.Wrap(err, "checking attendance")
	}
	return ctx.JSON(http.StatusOK, CheckResponse{Exists: exists})
}

func (api *attendanceApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter attendance.Filter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	records, err := api.svc.List(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) submit(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data attendance.Submission
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "submitting attendance")
	}
	return ctx.JSON(http.StatusOK, SubmitResponse{SuccessResponse: success, Result: res})
}

func (api *attendanceApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data attendance.UpdateRecord
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Update(ctx.Request().Context(), p, id, data.Present.Bool()); err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter attendance.Filter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter attendance.Filter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	buf, err := api.svc.Export(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "exporting attendance")
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", time.Now().Format("20060102"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

type (
	CheckResponse struct {
		Exists bool `json:"exists"`
	}

	SubmitResponse struct {
		SuccessResponse
		attendance.Result
	}
)
