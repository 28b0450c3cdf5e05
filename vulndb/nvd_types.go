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

package vulndb

import "github.com/l3montree-dev/vulncorrelator/utils"

type NVDCPEMatch struct {
	Vulnerable bool   `json:"vulnerable"`
	Criteria   string `json:"criteria"`

	VersionStartIncluding string `json:"versionStartIncluding"`
	VersionStartExcluding string `json:"versionStartExcluding"`
	VersionEndIncluding   string `json:"versionEndIncluding"`
	VersionEndExcluding   string `json:"versionEndExcluding"`
	MatchCriteriaID       string `json:"matchCriteriaId"`
}

type NVDDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type NVDReference struct {
	URL    string   `json:"url"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

type nvdCVSSData struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type nvdCVSSMetric struct {
	Source   string      `json:"source"`
	Type     string      `json:"type"`
	CvssData nvdCVSSData `json:"cvssData"`
	// only set for cvss v2, later versions carry the severity inside of cvssData
	BaseSeverity        string  `json:"baseSeverity"`
	ExploitabilityScore float64 `json:"exploitabilityScore"`
	ImpactScore         float64 `json:"impactScore"`
}

// NVDCVE is the cve object of the nvd cve api 2.0 and of the 2.0 json feeds
type NVDCVE struct {
	ID               string           `json:"id"`
	SourceIdentifier string           `json:"sourceIdentifier"`
	Published        string           `json:"published"`
	LastModified     string           `json:"lastModified"`
	VulnStatus       string           `json:"vulnStatus"`
	Descriptions     []NVDDescription `json:"descriptions"`

	CISAExploitAdd        *utils.Date `json:"cisaExploitAdd"`
	CISAActionDue         *utils.Date `json:"cisaActionDue"`
	CISARequiredAction    string      `json:"cisaRequiredAction"`
	CISAVulnerabilityName string      `json:"cisaVulnerabilityName"`

	Metrics struct {
		CvssMetricV40 []nvdCVSSMetric `json:"cvssMetricV40"`
		CvssMetricV31 []nvdCVSSMetric `json:"cvssMetricV31"`
		CvssMetricV30 []nvdCVSSMetric `json:"cvssMetricV30"`
		CvssMetricV2  []nvdCVSSMetric `json:"cvssMetricV2"`
	} `json:"metrics"`
	Weaknesses []struct {
		Source      string           `json:"source"`
		Type        string           `json:"type"`
		Description []NVDDescription `json:"description"`
	} `json:"weaknesses"`
	Configurations []struct {
		Operator string `json:"operator"`
		Nodes    []struct {
			Operator string        `json:"operator"`
			Negate   bool          `json:"negate"`
			CpeMatch []NVDCPEMatch `json:"cpeMatch"`
		} `json:"nodes"`
	} `json:"configurations"`
	References []NVDReference `json:"references"`
}

type nvdVulnerability struct {
	Cve NVDCVE `json:"cve"`
}

// nistResponse is the response of https://services.nvd.nist.gov/rest/json/cves/2.0
type nistResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Format          string             `json:"format"`
	Version         string             `json:"version"`
	Timestamp       string             `json:"timestamp"`
	Vulnerabilities []nvdVulnerability `json:"vulnerabilities"`
}
