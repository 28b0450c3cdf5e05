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
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"gorm.io/datatypes"
)

type ExploitAvailability string

const (
	ExploitAvailabilityNone           ExploitAvailability = "none"
	ExploitAvailabilityProofOfConcept ExploitAvailability = "proof_of_concept"
	ExploitAvailabilityFunctional     ExploitAvailability = "functional"
)

// VulnerabilityFinding is unique per cve and asset.
type VulnerabilityFinding struct {
	Model
	CVEID   string    `json:"cveId" gorm:"column:cve_id;type:text;not null;uniqueIndex:idx_vulnerability_findings_cve_asset"`
	AssetID uuid.UUID `json:"assetId" gorm:"type:uuid;not null;uniqueIndex:idx_vulnerability_findings_cve_asset"`
	ScanID  string    `json:"scanId" gorm:"type:text;not null;index"`

	PackageName    string `json:"packageName" gorm:"type:text"`
	PackageVersion string `json:"packageVersion" gorm:"type:text"`

	BaseScore    float32  `json:"baseScore" gorm:"type:decimal(4,2)"`
	BaseSeverity Severity `json:"baseSeverity" gorm:"type:text"`
	VectorString string   `json:"vectorString" gorm:"type:text"`

	CWE     string `json:"cwe" gorm:"column:cwe;type:text"`
	CWEName string `json:"cweName" gorm:"column:cwe_name;type:text"`

	ExploitAvailability ExploitAvailability `json:"exploitAvailability" gorm:"type:text"`
	EPSSScore           *float64            `json:"epssScore" gorm:"column:epss_score;type:decimal(6,5)"`
	IsPriority          bool                `json:"isPriority"`

	ObsolescenceFlag       bool            `json:"obsolescenceFlag"`
	ObsolescenceTechnology string          `json:"obsolescenceTechnology" gorm:"type:text"`
	EndOfLife              *datatypes.Date `json:"endOfLife" gorm:"type:date"`

	MatchConfidence float64        `json:"matchConfidence"`
	MatchType       dtos.MatchType `json:"matchType" gorm:"type:text"`
	MatchedCPE      string         `json:"matchedCpe" gorm:"column:matched_cpe;type:text"`
	ManualMappingID *uuid.UUID     `json:"manualMappingId" gorm:"type:uuid"`

	CISAKEVDate *datatypes.Date `json:"cisaKevDate" gorm:"column:cisa_kev_date;type:date"`
	CERTFRDate  *datatypes.Date `json:"certFrDate" gorm:"column:cert_fr_date;type:date"`

	// analyst annotations live on the finding itself
	CommentsAnalyst *string  `json:"commentsAnalyst" gorm:"type:text"`
	ModifiedScore   *float32 `json:"modifiedScore" gorm:"type:decimal(4,2)"`
}

func (VulnerabilityFinding) TableName() string {
	return "vulnerability_findings"
}
