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


package router

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/l3montree-dev/vulncorrelator/controllers"
	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/internal/echohttp"
	"github.com/l3montree-dev/vulncorrelator/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIV1Router(t *testing.T) {
	db := tests.InitSQLiteDatabase(t)
	findingRepository := repositories.NewFindingRepository(db)
	manualMappingRepository := repositories.NewManualMappingRepository(db)

	srv := echohttp.Server("test")
	NewAPIV1Router(srv, db, nil,
		controllers.NewMatchingController(nil, findingRepository),
		controllers.NewManualMappingController(manualMappingRepository),
	)

	t.Run("should report a healthy database", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

		assert.Equal(t, 200, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	})

	t.Run("should expose the prometheus metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/metrics", nil))

		assert.Equal(t, 200, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	t.Run("should route the findings of a scan", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/scans/scan-1/findings", nil))

		assert.Equal(t, 200, rec.Code)
	})

	t.Run("should route the mappings", func(t *testing.T) {
		tests.CreateManualMapping(t, db, "libssl", nil, "cpe:2.3:a:openssl:openssl:*:*:*:*:*:*:*:*")

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/mappings", nil))
		require.Equal(t, 200, rec.Code)

		var mappings []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mappings))
		assert.Len(t, mappings, 1)
	})

	t.Run("should include the vulndb counters in the info", func(t *testing.T) {
		info := collectInfo(db, nil)
		assert.Equal(t, "healthy", info.Database.Status)
		assert.Equal(t, int64(0), info.VulnDB.CVEs)
		assert.Nil(t, info.VulnDB.LastModified)
	})
}
