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

package services

import (
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb/scan"
	"go.uber.org/fx"
)

func newCPECandidateLookup(config MatchingConfig, cpeMatchRepository shared.CPEMatchRepository) *scan.CPECandidateLookup {
	return scan.NewCPECandidateLookup(cpeMatchRepository, config.MaxVariants)
}

// ServiceModule provides all service-layer constructors
var ServiceModule = fx.Options(
	fx.Provide(NewMatchingConfig),
	fx.Provide(fx.Annotate(newCPECandidateLookup, fx.As(new(shared.CPECandidateLookup)))),
	fx.Provide(fx.Annotate(NewMatchingService, fx.As(new(shared.MatchingService)))),
)
