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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
)

func CreatePackages(t testing.TB, db shared.DB, scanID string, assetID uuid.UUID, nameVersions ...[2]string) []models.Package {
	t.Helper()
	packages := make([]models.Package, 0, len(nameVersions))
	for i, nv := range nameVersions {
		packages = append(packages, models.Package{
			ScanID:   scanID,
			AssetID:  assetID,
			Name:     nv[0],
			Version:  nv[1],
			Position: i,
		})
	}
	if len(packages) == 0 {
		return packages
	}
	if err := db.Create(&packages).Error; err != nil {
		t.Fatalf("could not create packages: %v", err)
	}
	return packages
}

func CreateCVE(t testing.TB, db shared.DB, cve models.CVE) models.CVE {
	t.Helper()
	if cve.DatePublished.IsZero() {
		cve.DatePublished = time.Date(2014, 4, 7, 0, 0, 0, 0, time.UTC)
	}
	if cve.DateLastModified.IsZero() {
		cve.DateLastModified = cve.DatePublished
	}
	if err := db.Create(&cve).Error; err != nil {
		t.Fatalf("could not create cve: %v", err)
	}
	return cve
}

// CreateCPEMatches stores the rows. Seq is set to the argument position.
func CreateCPEMatches(t testing.TB, db shared.DB, matches ...models.CPEMatch) {
	t.Helper()
	for i := range matches {
		matches[i].Seq = i
	}
	if err := db.Create(&matches).Error; err != nil {
		t.Fatalf("could not create cpe matches: %v", err)
	}
}

func CreateManualMapping(t testing.TB, db shared.DB, packageName string, packageVersion *string, cpeURI string) models.ManualCPEMapping {
	t.Helper()
	mapping := models.ManualCPEMapping{
		PackageName:     packageName,
		PackageVersion:  packageVersion,
		CPEURI:          cpeURI,
		ConfidenceLevel: dtos.ConfidenceLevelHigh,
		IsActive:        true,
		IsValidated:     true,
		CreatedBy:       "test",
	}
	if err := db.Create(&mapping).Error; err != nil {
		t.Fatalf("could not create manual mapping: %v", err)
	}
	return mapping
}

// HeartbleedRow is the openssl row of CVE-2014-0160
func HeartbleedRow() models.CPEMatch {
	return models.CPEMatch{
		CVEID:                 "CVE-2014-0160",
		Criteria:              "cpe:2.3:a:openssl:openssl:*:*:*:*:*:*:*:*",
		Part:                  "a",
		Vendor:                "openssl",
		Product:               "openssl",
		Version:               utils.Ptr("*"),
		VersionStartIncluding: utils.Ptr("1.0.1"),
		VersionEndExcluding:   utils.Ptr("1.0.1g"),
		Vulnerable:            true,
	}
}
