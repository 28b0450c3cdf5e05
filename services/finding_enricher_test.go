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
	"testing"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestEnricher(t *testing.T) *FindingEnricher {
	catalog, err := vulndb.NewCWECatalog()
	require.NoError(t, err)
	return NewFindingEnricher(catalog)
}

func TestEnrich(t *testing.T) {
	published := time.Date(2021, 12, 10, 0, 0, 0, 0, time.UTC)
	enricher := newTestEnricher(t)

	t.Run("should mark kev cves as priority even with a low score", func(t *testing.T) {
		kevDate := datatypes.Date(time.Date(2021, 12, 10, 0, 0, 0, 0, time.UTC))
		var f models.VulnerabilityFinding
		enricher.Enrich(&f, models.CVE{CVE: "CVE-1", CVSS: 3.1, Severity: models.SeverityLow, CISAExploitAdd: &kevDate})

		require.NotNil(t, f.CISAKEVDate)
		assert.Equal(t, kevDate, *f.CISAKEVDate)
		assert.True(t, f.IsPriority)
	})

	t.Run("should detect kev and cert-fr through reference urls", func(t *testing.T) {
		var f models.VulnerabilityFinding
		enricher.Enrich(&f, models.CVE{
			CVE:           "CVE-2",
			DatePublished: published,
			References: []models.CVEReference{
				{URL: "https://www.cisa.gov/known-exploited-vulnerabilities-catalog"},
				{URL: "https://www.cert.ssi.gouv.fr/avis/CERTFR-2021-AVI-940/"},
			},
		})

		require.NotNil(t, f.CISAKEVDate)
		assert.Equal(t, datatypes.Date(published), *f.CISAKEVDate)
		require.NotNil(t, f.CERTFRDate)
		assert.Equal(t, datatypes.Date(published), *f.CERTFRDate)
		assert.True(t, f.IsPriority)
	})

	t.Run("should prefer a functional exploit over a proof of concept", func(t *testing.T) {
		var f models.VulnerabilityFinding
		enricher.Enrich(&f, models.CVE{CVE: "CVE-3", References: []models.CVEReference{
			{URL: "https://example.com/poc", Tags: []string{"Proof-of-Concept"}},
			{URL: "https://example.com/exploit", Tags: []string{"exploit"}},
		}})
		assert.Equal(t, models.ExploitAvailabilityFunctional, f.ExploitAvailability)
		assert.True(t, f.IsPriority)

		enricher.Enrich(&f, models.CVE{CVE: "CVE-4", References: []models.CVEReference{
			{URL: "https://example.com/poc", Tags: []string{"Proof-of-Concept"}},
		}})
		assert.Equal(t, models.ExploitAvailabilityProofOfConcept, f.ExploitAvailability)
		assert.True(t, f.IsPriority)
	})

	t.Run("should not prioritize a medium cve without threat intelligence", func(t *testing.T) {
		var f models.VulnerabilityFinding
		enricher.Enrich(&f, models.CVE{
			CVE:        "CVE-5",
			CVSS:       6.9,
			Severity:   models.SeverityMedium,
			EPSS:       utils.Ptr(0.01),
			References: []models.CVEReference{{URL: "https://example.com/advisory", Tags: []string{"Vendor Advisory"}}},
		})
		assert.False(t, f.IsPriority)
		assert.Equal(t, models.ExploitAvailabilityNone, f.ExploitAvailability)
		assert.Nil(t, f.CISAKEVDate)
		assert.Nil(t, f.CERTFRDate)
		require.NotNil(t, f.EPSSScore)
		assert.InDelta(t, 0.01, *f.EPSSScore, 0.0001)
	})

	t.Run("should derive the score and severity from the vector", func(t *testing.T) {
		var f models.VulnerabilityFinding
		enricher.Enrich(&f, models.CVE{CVE: "CVE-6", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"})
		assert.InDelta(t, 9.8, f.BaseScore, 0.001)
		assert.Equal(t, models.SeverityCritical, f.BaseSeverity)
		assert.True(t, f.IsPriority)
	})

	t.Run("should join cwe ids and known names", func(t *testing.T) {
		var f models.VulnerabilityFinding
		enricher.Enrich(&f, models.CVE{CVE: "CVE-7", Weaknesses: []models.Weakness{
			{CWEID: "CWE-79"},
			{CWEID: "CWE-999999"},
			{CWEID: "CWE-79"},
		}})
		assert.Equal(t, "CWE-79,CWE-999999", f.CWE)
		assert.Equal(t, "Improper Neutralization of Input During Web Page Generation ('Cross-site Scripting')", f.CWEName)
	})
}

func TestApplyObsolescence(t *testing.T) {
	t.Run("should copy the end of life", func(t *testing.T) {
		eol := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		var f models.VulnerabilityFinding
		applyObsolescence(&f, dtos.ObsolescenceMatch{Detected: true, TechnologyName: "python", EndOfLife: &eol})

		assert.True(t, f.ObsolescenceFlag)
		assert.Equal(t, "python", f.ObsolescenceTechnology)
		require.NotNil(t, f.EndOfLife)
		assert.Equal(t, datatypes.Date(eol), *f.EndOfLife)
	})

	t.Run("should leave the finding untouched without a match", func(t *testing.T) {
		var f models.VulnerabilityFinding
		applyObsolescence(&f, dtos.ObsolescenceMatch{})
		assert.False(t, f.ObsolescenceFlag)
	})
}
