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

package scan

import (
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ManualMappingResolver struct {
	manualMappingRepository shared.ManualMappingRepository
}

func NewManualMappingResolver(manualMappingRepository shared.ManualMappingRepository) *ManualMappingResolver {
	return &ManualMappingResolver{
		manualMappingRepository: manualMappingRepository,
	}
}

// Resolve returns the active mapping of the exact package version or, if there is none,
// the active versionless mapping of the package. A nil result means automatic correlation.
func (r *ManualMappingResolver) Resolve(packageName, packageVersion string) (*dtos.MappingResult, error) {
	if packageVersion != "" {
		mapping, err := r.manualMappingRepository.FindExact(nil, packageName, packageVersion)
		if err == nil {
			return toMappingResult(mapping), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(err, "could not find exact manual mapping")
		}
	}

	mapping, err := r.manualMappingRepository.FindGeneric(nil, packageName)
	if err == nil {
		return toMappingResult(mapping), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, errors.Wrap(err, "could not find generic manual mapping")
}

func toMappingResult(mapping models.ManualCPEMapping) *dtos.MappingResult {
	return &dtos.MappingResult{
		MappingID:       mapping.ID,
		CPEURI:          mapping.CPEURI,
		ConfidenceLevel: mapping.ConfidenceLevel,
		Generic:         mapping.IsGeneric(),
	}
}
