package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, core.ErrUnauthorized.Error())
	errInvalidCredentials   = echo.NewHTTPError(http.StatusUnauthorized, user.ErrInvalidCredentials.Error())
	errWrongChurch          = echo.NewHTTPError(http.StatusUnauthorized, user.ErrWrongChurch.Error())
	errAccountNotAuthorized = echo.NewHTTPError(http.StatusForbidden, user.ErrNotAuthorized.Error())
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, core.ErrForbidden.Error())
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, core.ErrNotFound.Error())
)

// domainHTTPError maps the sentinel errors of the core packages to their HTTP counterpart.
func domainHTTPError(err error) error {
	switch err {
	case core.ErrNotFound:
		return errHttpNotFound
	case core.ErrForbidden:
		return errHttpForbidden
	case core.ErrUnauthorized:
		return errUnauthorized
	case user.ErrInvalidCredentials:
		return errInvalidCredentials
	case user.ErrWrongChurch:
		return errWrongChurch
	case user.ErrNotAuthorized:
		return errAccountNotAuthorized
	}
	return err
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		// ConflictError exposes Cause, so it has to be looked for before unwrapping
		cause := errors.Cause(err)
		if cerr, ok := core.AsConflict(err); ok {
			cause = cerr
		}

		switch origErr := domainHTTPError(cause).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ConflictError:
			code = http.StatusBadRequest
			message = origErr.Message
			logger.Warn(origErr.Message, map[string]interface{}{"path": ctx.Path()}, err)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			if p, cErr := getContextPrincipal(ctx); cErr == nil {
				logger.Error(msg, errors.Wrap(err, msg), p)
			} else {
				logger.Error(msg, errors.Wrap(err, msg))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}

			if ctx.Echo().Debug {
				message = err.Error()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
