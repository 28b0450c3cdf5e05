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

import "github.com/google/uuid"

// Package is a single observation of an installed package inside of a scan.
// The rows are written by the import pipeline.
type Package struct {
	Model
	ScanID  string    `json:"scanId" gorm:"type:text;not null;index"`
	AssetID uuid.UUID `json:"assetId" gorm:"type:uuid;not null;index"`
	Name    string    `json:"name" gorm:"type:text;not null"`
	Version string    `json:"version" gorm:"type:text"`
	// Position keeps the import order stable
	Position int `json:"position"`
}

func (Package) TableName() string {
	return "packages"
}
