// Copyright (C) 2025 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/l3montree-dev/vulncorrelator/internal/echohttp"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func listenAddress() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

// NewServer creates the echo server and binds it to the application lifecycle
func NewServer(lc fx.Lifecycle) *echo.Echo {
	server := echohttp.Server("vulncorrelator")
	addr := listenAddress()

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				slog.Info("starting server", "addr", addr)
				if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					monitoring.Alert("server stopped unexpectedly", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
	return server
}

var RouterModule = fx.Options(
	fx.Provide(NewServer),
	fx.Provide(NewAPIV1Router),
	// registers the routes
	fx.Invoke(func(APIV1Router) {}),
)
