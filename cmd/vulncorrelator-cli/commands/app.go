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


package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database"
	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/services"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"go.uber.org/fx"
)

func migrateDB(db shared.DB) error {
	if os.Getenv("DISABLE_AUTOMIGRATE") == "true" {
		slog.Debug("automatic migrations disabled via DISABLE_AUTOMIGRATE=true")
		return nil
	}
	return database.RunMigrationsWithDB(db)
}

// startApp wires the application graph without the http server and the daemons
// and populates the given targets. The returned function stops the app.
func startApp(ctx context.Context, targets ...any) (func(), error) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(database.GetPoolConfigFromEnv()),
		database.Module,
		fx.Invoke(migrateDB),
		repositories.Module,
		vulndb.Module,
		services.ServiceModule,
		fx.Populate(targets...),
	)

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, fmt.Errorf("could not start application: %w", err)
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			slog.Warn("could not stop application", "err", err)
		}
	}, nil
}
