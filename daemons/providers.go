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

package daemons

import (
	"context"

	"go.uber.org/fx"
)

func registerLifecycle(lc fx.Lifecycle, matchingDaemon *MatchingDaemon, vulnDBDaemon *VulnDBDaemon) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// the start context expires once the app has started
			if err := matchingDaemon.Start(context.Background()); err != nil {
				return err
			}
			vulnDBDaemon.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			matchingDaemon.Stop()
			vulnDBDaemon.Stop()
			return nil
		},
	})
}

var Module = fx.Module("daemons",
	fx.Provide(NewMatchingDaemon),
	fx.Provide(NewVulnDBDaemon),
	fx.Invoke(registerLifecycle),
)
