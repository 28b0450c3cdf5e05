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
	"log/slog"
	"strings"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"gorm.io/datatypes"
)

const (
	priorityScoreThreshold = 7.0

	cisaKEVURLMarker = "cisa.gov/known-exploited-vulnerabilities"
	certFRURLMarker  = "cert.ssi.gouv.fr"
)

type FindingEnricher struct {
	cweCatalog shared.CWECatalog
}

func NewFindingEnricher(cweCatalog shared.CWECatalog) *FindingEnricher {
	return &FindingEnricher{cweCatalog: cweCatalog}
}

// Enrich copies the scoring, weakness and threat intelligence data of the cve onto the finding
// and classifies its priority.
func (e *FindingEnricher) Enrich(finding *models.VulnerabilityFinding, cve models.CVE) {
	finding.BaseScore = cve.CVSS
	finding.BaseSeverity = cve.Severity
	finding.VectorString = cve.Vector
	if finding.BaseScore == 0 && cve.Vector != "" {
		score, _, err := vulndb.BaseScoreFromVector(cve.Vector)
		if err != nil {
			slog.Warn("could not derive base score from vector", "cveID", cve.CVE, "vector", cve.Vector, "err", err)
		} else {
			finding.BaseScore = float32(score)
			finding.BaseSeverity = vulndb.SeverityFromScore(score)
		}
	}
	if finding.BaseSeverity == "" && finding.BaseScore > 0 {
		finding.BaseSeverity = vulndb.SeverityFromScore(float64(finding.BaseScore))
	}

	cweIDs := cve.CWEIDs()
	finding.CWE = strings.Join(cweIDs, ",")
	names := make([]string, 0, len(cweIDs))
	for _, id := range cweIDs {
		if name, ok := e.cweCatalog.Name(id); ok {
			names = append(names, name)
		}
	}
	finding.CWEName = strings.Join(names, "; ")

	finding.ExploitAvailability = exploitAvailability(cve)
	finding.EPSSScore = cve.EPSS
	finding.CISAKEVDate = cisaKEVDate(cve)
	finding.CERTFRDate = certFRDate(cve)

	finding.IsPriority = finding.CISAKEVDate != nil ||
		finding.ExploitAvailability != models.ExploitAvailabilityNone ||
		finding.BaseScore >= priorityScoreThreshold
}

func exploitAvailability(cve models.CVE) models.ExploitAvailability {
	availability := models.ExploitAvailabilityNone
	for _, ref := range cve.References {
		if ref.HasTag("Exploit") {
			return models.ExploitAvailabilityFunctional
		}
		if ref.HasTag("Proof-of-Concept") {
			availability = models.ExploitAvailabilityProofOfConcept
		}
	}
	return availability
}

func referencesURL(cve models.CVE, marker string) bool {
	for _, ref := range cve.References {
		if strings.Contains(strings.ToLower(ref.URL), marker) {
			return true
		}
	}
	return false
}

func cisaKEVDate(cve models.CVE) *datatypes.Date {
	if cve.CISAExploitAdd != nil {
		return cve.CISAExploitAdd
	}
	if referencesURL(cve, cisaKEVURLMarker) {
		d := datatypes.Date(cve.DatePublished)
		return &d
	}
	return nil
}

// the feeds carry no advisory date, the cve publication date is used instead
func certFRDate(cve models.CVE) *datatypes.Date {
	if !referencesURL(cve, certFRURLMarker) {
		return nil
	}
	d := datatypes.Date(cve.DatePublished)
	return &d
}

func applyObsolescence(finding *models.VulnerabilityFinding, match dtos.ObsolescenceMatch) {
	if !match.Detected {
		return
	}
	finding.ObsolescenceFlag = true
	finding.ObsolescenceTechnology = match.TechnologyName
	if match.EndOfLife != nil {
		d := datatypes.Date(*match.EndOfLife)
		finding.EndOfLife = &d
	}
}
