package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/material"
)

type materialApi struct {
	svc      *material.Service
	validate *validator.Validate
}

func registerMaterialAPI(
	g *echo.Group,
	jwt, master, uploadLimit echo.MiddlewareFunc,
	svc *material.Service,
	validate *validator.Validate,
) {
	api := materialApi{svc: svc, validate: validate}

	mg := g.Group("/materials", jwt)
	mg.GET("", api.query)
	mg.POST("", api.upload, master, uploadLimit)
	mg.DELETE("/:id", api.destroy, master)
}

func (api *materialApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	mats, err := api.svc.List(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	return ctx.JSON(http.StatusOK, mats)
}

// formFile opens the multipart file sent as name; a missing part gives a nil file.
func formFile(ctx echo.Context, name string) (*material.File, io.Closer, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", name)
	}
	return &material.File{Name: fh.Filename, ContentType: contentType(fh), Body: f}, f, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" {
		return ct
	}
	return echo.MIMEOctetStream
}

func (api *materialApi) upload(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	data := material.Upload{Title: ctx.FormValue("title")}
	if v := ctx.FormValue("church_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "church_id", Error: "church_id must be a number"})
		}
		data.ChurchID = &id
	}

	var closer io.Closer
	if data.File, closer, err = formFile(ctx, "file"); err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	if data.Cover, closer, err = formFile(ctx, "cover"); err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mat, err := api.svc.Upload(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "uploading material")
	}
	return ctx.JSON(http.StatusOK, created(mat.ID))
}

func (api *materialApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Delete(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.JSON(http.StatusOK, DeleteMaterialResponse{SuccessResponse: success, DeleteResult: res})
}

type DeleteMaterialResponse struct {
	SuccessResponse
	material.DeleteResult
}
