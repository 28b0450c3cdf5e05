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

package dtos

import (
	"time"

	"github.com/google/uuid"
)

type MatchType string

const (
	MatchTypeExactVersion     MatchType = "exact_version"
	MatchTypeVersionRange     MatchType = "version_range"
	MatchTypeAllVersions      MatchType = "all_versions"
	MatchTypeProductMatchOnly MatchType = "product_match_only"
)

const (
	ConfidenceExactVersion     = 1.0
	ConfidenceVersionRange     = 0.85
	ConfidenceAllVersions      = 0.6
	ConfidenceProductMatchOnly = 0.5
)

type MatchEvaluation struct {
	Matched    bool      `json:"matched"`
	Confidence float64   `json:"confidence"`
	MatchType  MatchType `json:"matchType"`
}

type ConfidenceLevel string

const (
	ConfidenceLevelHigh   ConfidenceLevel = "HIGH"
	ConfidenceLevelMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLevelLow    ConfidenceLevel = "LOW"
)

// MappingResult is the outcome of a manual cpe mapping lookup
type MappingResult struct {
	MappingID       uuid.UUID       `json:"mappingId"`
	CPEURI          string          `json:"cpeUri"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	// Generic is true if the mapping applies to any version of the package
	Generic bool `json:"generic"`
}

type ObsolescenceMatch struct {
	Detected       bool       `json:"detected"`
	TechnologyName string     `json:"technologyName"`
	EndOfSupport   *time.Time `json:"endOfSupport"`
	EndOfLife      *time.Time `json:"endOfLife"`
	Recommendation string     `json:"recommendation"`
}

// Caller identifies who triggered a matching run. It is only used for logging and auditing.
type Caller struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

func (c Caller) String() string {
	if c.Source == "" {
		return c.Name
	}
	return c.Source + ":" + c.Name
}

type MatchingSummary struct {
	ScanID             string  `json:"scanId"`
	TotalPackages      int     `json:"totalPackages"`
	VulnerablePackages int     `json:"vulnerablePackages"`
	TotalFindings      int     `json:"totalFindings"`
	ElapsedSeconds     float64 `json:"elapsedSeconds"`

	FailedPackages int    `json:"failedPackages"`
	EmptyVulnDB    bool   `json:"emptyVulnDB"`
	EmptyCPEIndex  bool   `json:"emptyCPEIndex"`
	Note           string `json:"note,omitempty"`
	Caller         string `json:"caller"`
}
