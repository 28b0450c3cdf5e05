package echohttp

import (
	"fmt"
	"net/http"

	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/labstack/echo/v4"
)

func recovermiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) (returnErr error) {
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					monitoring.RecoverAndAlert(fmt.Sprintf("panic while handling %s %s", ctx.Request().Method, ctx.Request().URL.Path), r)
					returnErr = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
			}()
			return next(ctx)
		}
	}
}
