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


package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("should treat an empty value as everything", func(t *testing.T) {
		since, err := parseSince("", now)
		require.NoError(t, err)
		assert.True(t, since.IsZero())
	})

	t.Run("should subtract a duration from now", func(t *testing.T) {
		since, err := parseSince("48h", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC), since)
	})

	t.Run("should parse a date", func(t *testing.T) {
		since, err := parseSince("2024-01-31", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), since)
	})

	t.Run("should parse a timestamp", func(t *testing.T) {
		since, err := parseSince("2024-01-31T10:00:00Z", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC), since)
	})

	t.Run("should reject negative durations and garbage", func(t *testing.T) {
		_, err := parseSince("-1h", now)
		assert.Error(t, err)
		_, err = parseSince("yesterday", now)
		assert.Error(t, err)
	})
}

func TestFlagValue(t *testing.T) {
	t.Run("should join lists from a config file", func(t *testing.T) {
		assert.Equal(t, "cisa-kev,epss", flagValue([]any{"cisa-kev", "epss"}))
		assert.Equal(t, "cwe", flagValue([]string{"cwe"}))
	})

	t.Run("should format scalars", func(t *testing.T) {
		assert.Equal(t, "debug", flagValue("debug"))
		assert.Equal(t, "true", flagValue(true))
	})
}

func TestLoadRules(t *testing.T) {
	t.Run("should fall back to the bundled rules", func(t *testing.T) {
		rules, err := loadRules("")
		require.NoError(t, err)
		assert.NotEmpty(t, rules)
	})

	t.Run("should read the rules from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- technologyName: angularjs\n  endOfLife: \"2021-12-31\"\n"), 0o600))

		rules, err := loadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "angularjs", rules[0].TechnologyName)
		assert.True(t, rules[0].IsObsolete)

		rendered := rulesTable(rules).Render()
		assert.Contains(t, rendered, "angularjs")
		assert.Contains(t, rendered, "2021-12-31")
	})

	t.Run("should fail for a missing file", func(t *testing.T) {
		_, err := loadRules(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestTables(t *testing.T) {
	t.Run("should render the summary", func(t *testing.T) {
		rendered := summaryTable(dtos.MatchingSummary{ScanID: "scan-1", TotalPackages: 3, TotalFindings: 2, Caller: "cli:alice"}).Render()
		assert.Contains(t, rendered, "scan-1")
		assert.Contains(t, rendered, "cli:alice")
	})

	t.Run("should render findings", func(t *testing.T) {
		rendered := findingsTable([]models.VulnerabilityFinding{{
			CVEID:           "CVE-2014-0160",
			PackageName:     "openssl",
			PackageVersion:  "1.0.1f",
			BaseScore:       7.5,
			MatchType:       dtos.MatchTypeVersionRange,
			MatchConfidence: 0.85,
			IsPriority:      true,
		}}).Render()
		assert.Contains(t, rendered, "CVE-2014-0160")
		assert.Contains(t, rendered, "7.5")
		assert.Contains(t, rendered, "0.85")
	})

	t.Run("should render generic mappings with a wildcard version", func(t *testing.T) {
		rendered := mappingsTable([]models.ManualCPEMapping{{
			PackageName: "libssl",
			CPEURI:      "cpe:2.3:a:openssl:openssl:*:*:*:*:*:*:*:*",
			UsageCount:  4,
		}, {
			PackageName:    "zlib1g",
			PackageVersion: utils.Ptr("1.2.11"),
		}}).Render()
		assert.Contains(t, rendered, "libssl")
		assert.Contains(t, rendered, "1.2.11")
	})
}
