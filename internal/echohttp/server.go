package echohttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func allowedOrigins() []string {
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		return []string{"http://localhost:3000"}
	}
	return strings.Split(origins, ",")
}

func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// do the logging straight inside the error handler
		// this keeps controller methods clean
		if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
			slog.Error(err.Error(), "method", ctx.Request().Method, "path", ctx.Request().URL, "internal", he.Internal)
		} else {
			slog.Error(err.Error(), "method", ctx.Request().Method, "path", ctx.Request().URL)
		}

		if ctx.Response().Committed {
			return
		}

		he, ok := err.(*echo.HTTPError)
		if !ok {
			he = &echo.HTTPError{
				Code:    http.StatusInternalServerError,
				Message: http.StatusText(http.StatusInternalServerError),
			}
		}

		var message any
		switch m := he.Message.(type) {
		case string:
			if e.Debug && he.Internal != nil {
				message = echo.Map{"message": m, "error": he.Internal.Error()}
			} else {
				message = echo.Map{"message": m}
			}
		case json.Marshaler:
			// this type knows how to format itself to JSON
			message = m
		case error:
			message = echo.Map{"message": m.Error()}
		default:
			message = echo.Map{"message": m}
		}

		if ctx.Request().Method == http.MethodHead {
			if err := ctx.NoContent(he.Code); err != nil {
				slog.Error("could not send error response", "error", err)
			}
			return
		}
		if err := ctx.JSON(he.Code, message); err != nil {
			slog.Error("could not send error response", "error", err)
		}
	}
}

func registerMiddlewares(e *echo.Echo, serviceName string) {
	e.Pre(middleware.AddTrailingSlash())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.CORSWithConfig(
		middleware.CORSConfig{
			AllowOrigins: allowedOrigins(),
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Caller"},
			AllowMethods: middleware.DefaultCORSConfig.AllowMethods,
		},
	))
	e.Use(logger())
	e.Use(recovermiddleware())

	e.HTTPErrorHandler = errorHandler(e)
}

// Server creates the echo instance all routers register on
func Server(serviceName string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(99)
	e.Debug = os.Getenv("ENVIRONMENT") == "dev"
	registerMiddlewares(e, serviceName)
	return e
}
