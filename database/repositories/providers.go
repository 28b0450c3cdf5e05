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

package repositories

import (
	"github.com/l3montree-dev/vulncorrelator/shared"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewPackageRepository, fx.As(new(shared.PackageRepository)))),
	fx.Provide(fx.Annotate(NewCPEMatchRepository, fx.As(new(shared.CPEMatchRepository)))),
	fx.Provide(fx.Annotate(NewCVERepository, fx.As(new(shared.CveRepository)))),
	fx.Provide(fx.Annotate(NewCWERepository, fx.As(new(shared.CweRepository)))),
	fx.Provide(fx.Annotate(NewManualMappingRepository, fx.As(new(shared.ManualMappingRepository)))),
	fx.Provide(fx.Annotate(NewObsolescenceRuleRepository, fx.As(new(shared.ObsolescenceRuleRepository)))),
	fx.Provide(fx.Annotate(NewFindingRepository, fx.As(new(shared.FindingRepository)))),
)
