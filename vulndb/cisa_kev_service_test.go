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
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kevCatalog = `{
  "title": "CISA Catalog of Known Exploited Vulnerabilities",
  "catalogVersion": "2025.01.01",
  "dateReleased": "2025-01-01T12:00:00.000Z",
  "count": 2,
  "vulnerabilities": [
    {"cveID": "CVE-2014-0160", "vendorProject": "OpenSSL", "product": "OpenSSL", "vulnerabilityName": "OpenSSL Information Disclosure Vulnerability", "dateAdded": "2022-05-04", "requiredAction": "Apply updates per vendor instructions.", "dueDate": "2022-05-25", "cwes": ["CWE-125"]},
    {"cveID": "CVE-2099-0001", "vendorProject": "Broken", "product": "Broken", "dateAdded": "not a date", "dueDate": "2022-05-25"}
  ]
}`

func TestParseKEVCatalog(t *testing.T) {
	t.Run("should skip entries with invalid dates", func(t *testing.T) {
		cves, err := parseKEVCatalog(strings.NewReader(kevCatalog))
		require.NoError(t, err)
		require.Len(t, cves, 1)

		assert.Equal(t, "CVE-2014-0160", cves[0].CVE)
		assert.Equal(t, time.Date(2022, 5, 4, 0, 0, 0, 0, time.UTC), time.Time(*cves[0].CISAExploitAdd))
		assert.Equal(t, time.Date(2022, 5, 25, 0, 0, 0, 0, time.UTC), time.Time(*cves[0].CISAActionDue))
		assert.Equal(t, "OpenSSL Information Disclosure Vulnerability", cves[0].CISAVulnerabilityName)
	})

	t.Run("should return an error for invalid json", func(t *testing.T) {
		_, err := parseKEVCatalog(strings.NewReader("<html>"))
		assert.Error(t, err)
	})
}

func TestCISAKEVMirror(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(kevCatalog)) // nolint:errcheck
	}))
	defer srv.Close()

	original := CisaKEVURL
	CisaKEVURL = srv.URL
	defer func() { CisaKEVURL = original }()

	t.Run("should only update cves which already exist", func(t *testing.T) {
		db := tests.InitSQLiteDatabase(t)
		cveRepository := repositories.NewCVERepository(db)
		tests.CreateCVE(t, db, models.CVE{CVE: "CVE-2014-0160", CVSS: 7.5, Severity: models.SeverityHigh})

		require.NoError(t, NewCISAKEVService(cveRepository).Mirror(context.Background()))

		cve, err := cveRepository.FindByID(nil, "CVE-2014-0160")
		require.NoError(t, err)
		require.NotNil(t, cve.CISAExploitAdd)
		assert.Equal(t, "Apply updates per vendor instructions.", cve.CISARequiredAction)
		// untouched columns survive
		assert.Equal(t, float32(7.5), cve.CVSS)

		_, err = cveRepository.FindByID(nil, "CVE-2099-0001")
		assert.Error(t, err)
	})
}

const epssCSV = `#model_version:v2023.03.01,score_date:2025-01-01T00:00:00+0000
cve,epss,percentile
CVE-2014-0160,0.97547,0.99996
CVE-2021-44228,0.97560,0.99999
broken line
`

func TestParseEPSSCSV(t *testing.T) {
	t.Run("should skip comments the header and malformed lines", func(t *testing.T) {
		cves, err := parseEPSSCSV(strings.NewReader(epssCSV))
		require.NoError(t, err)
		require.Len(t, cves, 2)

		assert.Equal(t, "CVE-2014-0160", cves[0].CVE)
		assert.InDelta(t, 0.97547, *cves[0].EPSS, 0.000001)
		assert.InDelta(t, 0.99996, float64(*cves[0].Percentile), 0.0001)
	})

	t.Run("should fail on a score which is not a number", func(t *testing.T) {
		_, err := parseEPSSCSV(strings.NewReader("CVE-2014-0160,high,0.9\n"))
		assert.Error(t, err)
	})
}

func TestEPSSMirror(t *testing.T) {
	t.Run("should decompress the feed and update the scores", func(t *testing.T) {
		body := gzipped(t, epssCSV)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(body) // nolint:errcheck
		}))
		defer srv.Close()

		original := EpssURL
		EpssURL = srv.URL
		defer func() { EpssURL = original }()

		db := tests.InitSQLiteDatabase(t)
		cveRepository := repositories.NewCVERepository(db)
		tests.CreateCVE(t, db, models.CVE{CVE: "CVE-2014-0160"})

		require.NoError(t, NewEPSSService(cveRepository).Mirror(context.Background()))

		cve, err := cveRepository.FindByID(nil, "CVE-2014-0160")
		require.NoError(t, err)
		require.NotNil(t, cve.EPSS)
		assert.InDelta(t, 0.97547, *cve.EPSS, 0.00001)
	})

	t.Run("should fail when the feed is not gzip encoded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(bytes.Repeat([]byte("x"), 32)) // nolint:errcheck
		}))
		defer srv.Close()

		original := EpssURL
		EpssURL = srv.URL
		defer func() { EpssURL = original }()

		db := tests.InitSQLiteDatabase(t)
		err := NewEPSSService(repositories.NewCVERepository(db)).Mirror(context.Background())
		assert.Error(t, err)
	})
}
