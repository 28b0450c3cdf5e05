// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package scan

import (
	"testing"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/stretchr/testify/assert"
)

func heartbleedRow() models.CPEMatch {
	return models.CPEMatch{
		CVEID:                 "CVE-2014-0160",
		Vendor:                "openssl",
		Product:               "openssl",
		VersionStartIncluding: utils.Ptr("1.0.1"),
		VersionEndExcluding:   utils.Ptr("1.0.1g"),
		Vulnerable:            true,
	}
}

func TestEvaluateMatch(t *testing.T) {
	t.Run("should match the heartbleed range", func(t *testing.T) {
		evaluation := EvaluateMatch("1.0.1", heartbleedRow())
		assert.True(t, evaluation.Matched)
		assert.Equal(t, dtos.MatchTypeVersionRange, evaluation.MatchType)
		assert.Equal(t, 0.85, evaluation.Confidence)
	})

	t.Run("should fall through to product match only for the excluded upper bound", func(t *testing.T) {
		evaluation := EvaluateMatch("1.0.1g", heartbleedRow())
		assert.True(t, evaluation.Matched)
		assert.Equal(t, dtos.MatchTypeProductMatchOnly, evaluation.MatchType)
		assert.Equal(t, 0.5, evaluation.Confidence)
	})

	t.Run("should prefer the exact version over an overlapping range", func(t *testing.T) {
		row := heartbleedRow()
		row.Version = utils.Ptr("1.0.1f")

		evaluation := EvaluateMatch("1.0.1f", row)
		assert.Equal(t, dtos.MatchTypeExactVersion, evaluation.MatchType)
		assert.Equal(t, 1.0, evaluation.Confidence)
	})

	t.Run("should treat a wildcard row without bounds as all versions", func(t *testing.T) {
		for _, version := range []*string{nil, utils.Ptr("*"), utils.Ptr("-")} {
			row := models.CPEMatch{CVEID: "CVE-2020-0001", Product: "libfoo", Version: version}
			evaluation := EvaluateMatch("2.3", row)
			assert.Equal(t, dtos.MatchTypeAllVersions, evaluation.MatchType)
			assert.Equal(t, 0.6, evaluation.Confidence)
		}
	})

	t.Run("should not treat a wildcard version as exact", func(t *testing.T) {
		row := heartbleedRow()
		row.Version = utils.Ptr("*")
		assert.Equal(t, dtos.MatchTypeVersionRange, EvaluateMatch("1.0.1c", row).MatchType)
	})

	t.Run("should match a different exact version as product match only", func(t *testing.T) {
		row := models.CPEMatch{CVEID: "CVE-2020-0001", Product: "libfoo", Version: utils.Ptr("1.0")}
		evaluation := EvaluateMatch("2.0", row)
		assert.True(t, evaluation.Matched)
		assert.Equal(t, dtos.MatchTypeProductMatchOnly, evaluation.MatchType)
	})

	t.Run("should never fail on unparsable versions", func(t *testing.T) {
		evaluation := EvaluateMatch("not-a-version", heartbleedRow())
		assert.True(t, evaluation.Matched)
	})
}

func TestEvaluateCandidate(t *testing.T) {
	t.Run("should pick the row with the highest confidence", func(t *testing.T) {
		candidate := models.CPECandidate{
			CVEID:   "CVE-2014-0160",
			Product: "openssl",
			Rows: []models.CPEMatch{
				{CVEID: "CVE-2014-0160", Product: "openssl", Version: utils.Ptr("1.0.1"), Criteria: "a"},
				heartbleedRow(),
				{CVEID: "CVE-2014-0160", Product: "openssl", Version: utils.Ptr("1.0.1f"), Criteria: "c"},
			},
		}

		evaluation, row, ok := EvaluateCandidate("1.0.1f", candidate)
		assert.True(t, ok)
		assert.Equal(t, dtos.MatchTypeExactVersion, evaluation.MatchType)
		assert.Equal(t, "c", row.Criteria)
	})

	t.Run("should keep the first row on equal confidence", func(t *testing.T) {
		candidate := models.CPECandidate{
			Rows: []models.CPEMatch{
				{Version: utils.Ptr("1.0"), Criteria: "first"},
				{Version: utils.Ptr("1.1"), Criteria: "second"},
			},
		}
		evaluation, row, ok := EvaluateCandidate("3.0", candidate)
		assert.True(t, ok)
		assert.Equal(t, dtos.MatchTypeProductMatchOnly, evaluation.MatchType)
		assert.Equal(t, "first", row.Criteria)
	})

	t.Run("should report nothing for a candidate without rows", func(t *testing.T) {
		_, _, ok := EvaluateCandidate("1.0", models.CPECandidate{})
		assert.False(t, ok)
	})
}
