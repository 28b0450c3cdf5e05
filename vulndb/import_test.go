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

import (
	"context"
	"strings"
	"testing"

	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportServiceSync(t *testing.T) {
	db := tests.InitSQLiteDatabase(t)
	cveRepository := repositories.NewCVERepository(db)
	cweRepository := repositories.NewCWERepository(db)
	catalog, err := NewCWECatalog()
	require.NoError(t, err)

	service := NewImportService(
		NewNVDService(cveRepository, repositories.NewCPEMatchRepository(db)),
		NewCISAKEVService(cveRepository),
		NewEPSSService(cveRepository),
		catalog,
		cweRepository,
	)

	t.Run("should reject unknown databases before syncing anything", func(t *testing.T) {
		err := service.Sync(context.Background(), []string{DatabaseCWE, "osv"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "osv"))

		_, err = cweRepository.Read("CWE-79")
		assert.Error(t, err)
	})

	t.Run("should persist the cwe catalog", func(t *testing.T) {
		require.NoError(t, service.Sync(context.Background(), []string{DatabaseCWE}))

		cwe, err := cweRepository.Read("CWE-79")
		require.NoError(t, err)
		assert.Contains(t, cwe.Name, "Cross-site Scripting")
	})

	t.Run("should import a feed through the nvd service", func(t *testing.T) {
		stats, err := service.ImportFeed(context.Background(), strings.NewReader(heartbleedFeed))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.CVEs)
	})
}
