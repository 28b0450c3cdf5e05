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

package models

import (
	"time"

	"github.com/l3montree-dev/vulncorrelator/dtos"
)

// ManualCPEMapping binds a package (and optionally a single version of it) to a cpe.
// Mappings are never deleted, only deactivated.
type ManualCPEMapping struct {
	Model
	PackageName string `json:"packageName" gorm:"type:text;not null;index"`
	// PackageVersion nil means the mapping applies to every version
	PackageVersion  *string              `json:"packageVersion" gorm:"type:text"`
	CPEURI          string               `json:"cpeUri" gorm:"column:cpe_uri;type:text;not null"`
	Vendor          string               `json:"vendor" gorm:"type:text"`
	Product         string               `json:"product" gorm:"type:text"`
	ConfidenceLevel dtos.ConfidenceLevel `json:"confidenceLevel" gorm:"type:text;not null"`
	UsageCount      int                  `json:"usageCount" gorm:"not null"`
	LastUsedAt      *time.Time           `json:"lastUsedAt"`
	IsActive        bool                 `json:"isActive" gorm:"not null"`
	IsValidated     bool                 `json:"isValidated" gorm:"not null"`
	CreatedBy       string               `json:"createdBy" gorm:"type:text"`
	Notes           string               `json:"notes" gorm:"type:text"`
}

func (ManualCPEMapping) TableName() string {
	return "manual_cpe_mappings"
}

func (m ManualCPEMapping) IsGeneric() bool {
	return m.PackageVersion == nil
}
