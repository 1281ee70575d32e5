package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// masterMiddleware lets through masters only.
func masterMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.IsMaster() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
