// Copyright (C) 2024 Tim Bastin, l3montree GmbH
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
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
)

type CVEReference struct {
	URL    string   `json:"url"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

func (r CVEReference) HasTag(tag string) bool {
	return slices.ContainsFunc(r.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

type CVE struct {
	CVE              string    `json:"cve" gorm:"column:cve;primaryKey;not null;type:text;"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	DatePublished    time.Time `json:"datePublished"`
	DateLastModified time.Time `json:"dateLastModified"`

	Description string     `json:"description" gorm:"type:text;"`
	Weaknesses  []Weakness `json:"weaknesses" gorm:"foreignKey:CVEID;constraint:OnDelete:CASCADE;"`

	CVSS        float32  `json:"cvss" gorm:"column:cvss;type:decimal(4,2);"`
	Severity    Severity `json:"severity" gorm:"type:text;"`
	Vector      string   `json:"vector" gorm:"type:text;"`
	CVSSVersion string   `json:"cvssVersion" gorm:"column:cvss_version;type:text;"`

	References datatypes.JSONSlice[CVEReference] `json:"references" gorm:"column:cve_references"`

	CISAExploitAdd        *datatypes.Date `json:"cisaExploitAdd" gorm:"column:cisa_exploit_add;type:date;"`
	CISAActionDue         *datatypes.Date `json:"cisaActionDue" gorm:"column:cisa_action_due;type:date;"`
	CISARequiredAction    string          `json:"cisaRequiredAction" gorm:"column:cisa_required_action;type:text;"`
	CISAVulnerabilityName string          `json:"cisaVulnerabilityName" gorm:"column:cisa_vulnerability_name;type:text;"`

	EPSS       *float64 `json:"epss" gorm:"column:epss;type:decimal(6,5);"`
	Percentile *float32 `json:"percentile" gorm:"type:decimal(6,5);"`
}

type Weakness struct {
	Source string `json:"source" gorm:"type:text;"`
	Type   string `json:"type" gorm:"type:text;"`
	CVEID  string `json:"cve" gorm:"column:cve_id;primaryKey;not null;type:text;"`
	CWEID  string `json:"cwe" gorm:"column:cwe_id;primaryKey;not null;type:text;"`
}

func (m Weakness) TableName() string {
	return "weaknesses"
}

func (m CVE) TableName() string {
	return "cves"
}

// CWEIDs returns the distinct weakness ids in their stored order.
func (m CVE) CWEIDs() []string {
	ids := make([]string, 0, len(m.Weaknesses))
	for _, w := range m.Weaknesses {
		if w.CWEID == "" || slices.Contains(ids, w.CWEID) {
			continue
		}
		ids = append(ids, w.CWEID)
	}
	return ids
}
