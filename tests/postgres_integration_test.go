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

package tests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/services"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"github.com/l3montree-dev/vulncorrelator/vulndb/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgreSQLIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	db, pool, terminate := InitDatabaseContainer()
	defer terminate()

	t.Run("should report the latest migration version", func(t *testing.T) {
		version, dirty, err := database.GetMigrationVersionWithDB(db)
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.GreaterOrEqual(t, version, uint(1))
	})

	t.Run("should deliver published messages to subscribers", func(t *testing.T) {
		broker := database.NewPostgreSQLBroker(pool)
		broker.SetShouldReceiveOwnMessages(true)
		defer broker.Close()

		messages, err := broker.Subscribe(shared.ScanImportedChannel)
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)

		err = broker.Publish(context.Background(), shared.NewSimplePubSubMessage(shared.ScanImportedChannel, map[string]any{
			"scanId": "scan-42",
			"caller": "ci",
		}))
		require.NoError(t, err)

		select {
		case payload := <-messages:
			assert.Equal(t, "scan-42", payload["scanId"])
			assert.Equal(t, "ci", payload["caller"])
		case <-time.After(2 * time.Second):
			t.Error("message not received within timeout")
		}
	})

	t.Run("should run matching against the migrated schema", func(t *testing.T) {
		cveRepository := repositories.NewCVERepository(db)
		cpeMatchRepository := repositories.NewCPEMatchRepository(db)
		findingRepository := repositories.NewFindingRepository(db)
		catalog, err := vulndb.NewCWECatalog()
		require.NoError(t, err)

		CreateCVE(t, db, models.CVE{
			CVE:         "CVE-2014-0160",
			Description: "heartbleed",
			CVSS:        7.5,
			Severity:    models.SeverityHigh,
			Weaknesses:  []models.Weakness{{CVEID: "CVE-2014-0160", CWEID: "CWE-125"}},
		})
		CreateCPEMatches(t, db, HeartbleedRow())
		CreatePackages(t, db, "scan-pg", uuid.New(), [2]string{"openssl", "1.0.1"}, [2]string{"zlib", "1.2.13"})

		service := services.NewMatchingService(
			services.MatchingConfig{Workers: 2, MaxVariants: scan.DefaultMaxVariants},
			repositories.NewPackageRepository(db),
			cpeMatchRepository,
			cveRepository,
			repositories.NewObsolescenceRuleRepository(db),
			repositories.NewManualMappingRepository(db),
			findingRepository,
			scan.NewCPECandidateLookup(cpeMatchRepository, scan.DefaultMaxVariants),
			catalog,
		)

		summary, err := service.RunMatching(context.Background(), dtos.Caller{Name: "integration", Source: "test"}, "scan-pg")
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalPackages)
		assert.Equal(t, 1, summary.VulnerablePackages)
		assert.Equal(t, 1, summary.TotalFindings)

		// a second run replaces the findings of the scan
		summary, err = service.RunMatching(context.Background(), dtos.Caller{Name: "integration", Source: "test"}, "scan-pg")
		require.NoError(t, err)
		assert.Equal(t, 1, summary.TotalFindings)

		findings, err := findingRepository.ListByScan(nil, "scan-pg")
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, dtos.MatchTypeVersionRange, findings[0].MatchType)
		assert.Equal(t, "Out-of-bounds Read", findings[0].CWEName)
	})
}
