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

package scan_test

import (
	"testing"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/l3montree-dev/vulncorrelator/vulndb/scan"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestObsolescenceDetector(t *testing.T) {
	eol := datatypes.Date(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	t.Run("should flag every version if the rule has no pattern", func(t *testing.T) {
		detector := scan.NewObsolescenceDetector([]models.ObsolescenceRule{
			{TechnologyName: "Adobe Flash Player", IsObsolete: true, EndOfLife: &eol, ReplacementRecommendation: "remove it"},
		})
		for _, version := range []string{"", "1.0", "32.0.0.465", "garbage"} {
			match := detector.Check("adobe-flash-player", version)
			assert.True(t, match.Detected, version)
			assert.Equal(t, "Adobe Flash Player", match.TechnologyName)
			assert.Equal(t, "remove it", match.Recommendation)
			assert.Equal(t, time.Time(eol), *match.EndOfLife)
			assert.Nil(t, match.EndOfSupport)
		}
	})

	t.Run("should match if the package name contains the technology name", func(t *testing.T) {
		detector := scan.NewObsolescenceDetector([]models.ObsolescenceRule{
			{TechnologyName: "python2", VersionPattern: utils.Ptr("2.x"), IsObsolete: true},
		})
		assert.True(t, detector.Check("python2.7-minimal", "2.7.18").Detected)
		assert.True(t, detector.Check("python", "2.7.18").Detected)
		assert.False(t, detector.Check("python3", "3.11.2").Detected)
		assert.False(t, detector.Check("nginx", "2.0").Detected)
	})

	t.Run("should not flag python libraries which share the major version of python 2", func(t *testing.T) {
		detector := scan.NewObsolescenceDetector([]models.ObsolescenceRule{
			{TechnologyName: "python2", VersionPattern: utils.Ptr("2.x"), IsObsolete: true},
		})
		assert.False(t, detector.Check("python-requests", "2.31.0").Detected)
		assert.False(t, detector.Check("python3-urllib3", "2.0.7").Detected)
	})

	t.Run("should not match technologies which only share a generic word", func(t *testing.T) {
		detector := scan.NewObsolescenceDetector([]models.ObsolescenceRule{
			{TechnologyName: "Apache HTTP Server", IsObsolete: true},
		})
		assert.False(t, detector.Check("python-http-client", "3.3.7").Detected)
		assert.True(t, detector.Check("apache-http-server", "2.2.34").Detected)
	})

	t.Run("should match through the generated variants", func(t *testing.T) {
		detector := scan.NewObsolescenceDetector([]models.ObsolescenceRule{
			{TechnologyName: "openssl", VersionPattern: utils.Ptr("1.0.*"), IsObsolete: true},
		})
		assert.True(t, detector.Check("libssl", "1.0.2k").Detected)
	})

	t.Run("should return the first matching rule", func(t *testing.T) {
		detector := scan.NewObsolescenceDetector([]models.ObsolescenceRule{
			{TechnologyName: "java", VersionPattern: utils.Ptr("<11"), IsObsolete: true, ReplacementRecommendation: "first"},
			{TechnologyName: "java", VersionPattern: utils.Ptr("<=8"), IsObsolete: true, ReplacementRecommendation: "second"},
		})
		match := detector.Check("java", "8")
		assert.True(t, match.Detected)
		assert.Equal(t, "first", match.Recommendation)
	})

	t.Run("should not detect anything without rules", func(t *testing.T) {
		assert.False(t, scan.NewObsolescenceDetector(nil).Check("python", "2.7").Detected)
	})
}

func TestVersionPatternMatches(t *testing.T) {
	cases := []struct {
		pattern *string
		version string
		want    bool
	}{
		{nil, "1.0", true},
		{utils.Ptr(""), "1.0", true},
		{utils.Ptr("2.x"), "2.7.18", true},
		{utils.Ptr("2.X"), "3.0", false},
		{utils.Ptr("1.*"), "1.2", true},
		{utils.Ptr("<11"), "8.0", true},
		{utils.Ptr("<11"), "11", false},
		{utils.Ptr("<=11"), "11.0", true},
		{utils.Ptr(">= 3.0"), "3.0.1", true},
		{utils.Ptr(">3.0"), "3.0", false},
		{utils.Ptr("1.8.0-ALPHA"), "1.8.0-alpha", true},
		{utils.Ptr("1.8.0"), "1.8.1", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, scan.VersionPatternMatches(c.pattern, c.version), "pattern %v version %s", utils.OrDefault(c.pattern, "<nil>"), c.version)
	}
}
