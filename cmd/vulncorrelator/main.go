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


package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/l3montree-dev/vulncorrelator/controllers"
	"github.com/l3montree-dev/vulncorrelator/daemons"
	"github.com/l3montree-dev/vulncorrelator/database"
	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/router"
	"github.com/l3montree-dev/vulncorrelator/services"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"go.uber.org/fx"

	_ "github.com/lib/pq"
)

var release string // Will be filled at build time

func main() {
	shared.LoadConfig() // nolint: errcheck
	shared.InitLogger()

	if os.Getenv("ERROR_TRACKING_DSN") != "" {
		initSentry()

		// Catch panics
		defer func() {
			if err := recover(); err != nil {
				sentry.CurrentHub().Recover(err)
				// Wait for events to be send to server
				sentry.Flush(time.Second * 5)
			}
		}()
	}

	shutdownTracer, err := monitoring.InitTracer(context.Background(), "vulncorrelator")
	if err != nil {
		slog.Error("could not initialize tracing", "err", err)
		panic(err)
	}
	defer shutdownTracer(context.Background()) // nolint: errcheck

	fx.New(
		fx.Supply(database.GetPoolConfigFromEnv()),
		database.Module,
		// migrations have to run before any daemon subscribes or serves requests
		fx.Invoke(migrateDB),
		repositories.Module,
		vulndb.Module,
		services.ServiceModule,
		controllers.ControllerModule,
		router.RouterModule,
		daemons.Module,
	).Run()
}

func migrateDB(db shared.DB) error {
	if os.Getenv("DISABLE_AUTOMIGRATE") == "true" {
		slog.Info("automatic migrations disabled via DISABLE_AUTOMIGRATE=true")
		return nil
	}

	slog.Info("running database migrations...")
	if err := database.RunMigrationsWithDB(db); err != nil {
		return fmt.Errorf("could not run database migrations: %w", err)
	}
	return nil
}

func initSentry() {
	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "dev"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         os.Getenv("ERROR_TRACKING_DSN"),
		Environment: environment,
		Release:     release,

		// In debug mode, the debug information is printed to stdout to help you
		// understand what Sentry is doing.
		Debug: environment == "dev",

		AttachStacktrace: true,
		SendDefaultPII:   false,
	})
	if err != nil {
		slog.Error("Failed to init logger", "err", err)
	}
}
