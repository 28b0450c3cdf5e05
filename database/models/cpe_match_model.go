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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CPEMatch is one flattened applicability fact of a cve.
// A cve has one row per cpe match entry of its configurations.
type CPEMatch struct {
	ID              uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CVEID           string    `json:"cveId" gorm:"column:cve_id;type:text;not null;index"`
	MatchCriteriaID string    `json:"matchCriteriaId" gorm:"type:text"`
	Criteria        string    `json:"criteria" gorm:"type:text"`

	Part    string  `json:"part" gorm:"type:text"`
	Vendor  string  `json:"vendor" gorm:"type:text;index:idx_cpe_matches_vendor_product"`
	Product string  `json:"product" gorm:"type:text;index:idx_cpe_matches_vendor_product;index"`
	Version *string `json:"version" gorm:"type:text"`

	VersionStartIncluding *string `json:"versionStartIncluding" gorm:"type:text"`
	VersionStartExcluding *string `json:"versionStartExcluding" gorm:"type:text"`
	VersionEndIncluding   *string `json:"versionEndIncluding" gorm:"type:text"`
	VersionEndExcluding   *string `json:"versionEndExcluding" gorm:"type:text"`

	Vulnerable bool `json:"vulnerable"`
	// Seq is the position of the row inside of the configurations of its cve
	Seq int `json:"seq"`
}

func (CPEMatch) TableName() string {
	return "cpe_matches"
}

func (c *CPEMatch) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasRange reports whether any of the four version bounds is set.
func (c CPEMatch) HasRange() bool {
	for _, b := range []*string{c.VersionStartIncluding, c.VersionStartExcluding, c.VersionEndIncluding, c.VersionEndExcluding} {
		if b != nil && *b != "" {
			return true
		}
	}
	return false
}

// CPECandidate groups the rows of one cve for one product. Rows keep their index order.
type CPECandidate struct {
	CVEID   string
	Product string
	Rows    []CPEMatch
}
