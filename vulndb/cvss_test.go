// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package vulndb

import (
	"testing"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseScoreFromVector(t *testing.T) {
	t.Run("should compute the score of a cvss 3.1 vector", func(t *testing.T) {
		score, version, err := BaseScoreFromVector("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N")
		require.NoError(t, err)
		assert.Equal(t, "3.1", version)
		assert.InDelta(t, 7.5, score, 0.001)
	})

	t.Run("should compute the score of a cvss 3.0 vector", func(t *testing.T) {
		score, version, err := BaseScoreFromVector("CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
		require.NoError(t, err)
		assert.Equal(t, "3.0", version)
		assert.InDelta(t, 9.8, score, 0.001)
	})

	t.Run("should treat vectors without prefix as cvss 2.0", func(t *testing.T) {
		score, version, err := BaseScoreFromVector("AV:N/AC:L/Au:N/C:P/I:N/A:N")
		require.NoError(t, err)
		assert.Equal(t, "2.0", version)
		assert.InDelta(t, 5.0, score, 0.001)
	})

	t.Run("should return an error for invalid vectors", func(t *testing.T) {
		_, _, err := BaseScoreFromVector("CVSS:3.1/AV:X")
		assert.Error(t, err)

		_, _, err = BaseScoreFromVector("")
		assert.Error(t, err)
	})
}

func TestSeverityFromScore(t *testing.T) {
	assert.Equal(t, models.SeverityNone, SeverityFromScore(0))
	assert.Equal(t, models.SeverityLow, SeverityFromScore(3.9))
	assert.Equal(t, models.SeverityMedium, SeverityFromScore(4.0))
	assert.Equal(t, models.SeverityHigh, SeverityFromScore(7.0))
	assert.Equal(t, models.SeverityHigh, SeverityFromScore(8.9))
	assert.Equal(t, models.SeverityCritical, SeverityFromScore(9.0))
}
