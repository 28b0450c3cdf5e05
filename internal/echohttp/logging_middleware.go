package echohttp

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// custom echo middleware used for request logging
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()

			err := next(c)

			// skip health probes and metric scrapes
			path := c.Request().URL.Path
			if err == nil && !strings.HasPrefix(path, "/api/v1/health") && !strings.HasPrefix(path, "/api/v1/metrics") {
				slog.Info("handled request", "method", c.Request().Method, "url", c.Request().URL, "status", c.Response().Status, "duration", time.Since(now))
			}
			return err
		}
	}
}
