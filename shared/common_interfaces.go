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

package shared

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/utils"
)

type PackageRepository interface {
	utils.Repository[uuid.UUID, models.Package, DB]
	ListByScan(tx DB, scanID string) ([]models.Package, error)
}

type CPEMatchRepository interface {
	utils.Repository[uuid.UUID, models.CPEMatch, DB]
	FindByVendorProduct(tx DB, vendor, product string) ([]models.CPEMatch, error)
	FindByProducts(tx DB, products []string) ([]models.CPEMatch, error)
	ReplaceForCVEs(tx DB, cveIDs []string, matches []models.CPEMatch) error
	IsEmpty(tx DB) (bool, error)
}

type CveRepository interface {
	utils.Repository[string, models.CVE, DB]
	FindByID(tx DB, id string) (models.CVE, error)
	SaveCVEs(tx DB, cves []models.CVE) error
	UpdateEpssBatch(tx DB, batch []models.CVE) error
	UpdateCISAKEVBatch(tx DB, batch []models.CVE) error
	IsEmpty(tx DB) (bool, error)
}

type CweRepository interface {
	utils.Repository[string, models.CWE, DB]
}

type ManualMappingRepository interface {
	utils.Repository[uuid.UUID, models.ManualCPEMapping, DB]
	FindExact(tx DB, packageName, packageVersion string) (models.ManualCPEMapping, error)
	FindGeneric(tx DB, packageName string) (models.ManualCPEMapping, error)
	// IncrementUsage increments the usage counter in a single statement
	IncrementUsage(tx DB, id uuid.UUID) error
	ListActive(tx DB) ([]models.ManualCPEMapping, error)
	Deactivate(tx DB, id uuid.UUID) error
}

type ObsolescenceRuleRepository interface {
	utils.Repository[uuid.UUID, models.ObsolescenceRule, DB]
	ListObsolete(tx DB) ([]models.ObsolescenceRule, error)
	UpsertByTechnology(tx DB, rules []models.ObsolescenceRule) error
}

type FindingRepository interface {
	utils.Repository[uuid.UUID, models.VulnerabilityFinding, DB]
	TransactionWithContext(ctx context.Context, f func(tx DB) error) error
	DeleteByScan(tx DB, scanID string) (int64, error)
	DeleteByAsset(tx DB, assetID uuid.UUID) error
	ExistsFor(tx DB, cveID string, assetID uuid.UUID) (bool, error)
	// CreateIfAbsent inserts the finding unless one exists for the same cve and asset.
	CreateIfAbsent(tx DB, finding *models.VulnerabilityFinding) (bool, error)
	ListByScan(tx DB, scanID string) ([]models.VulnerabilityFinding, error)
}

type CPECandidateLookup interface {
	// ByCPE fetches the candidates of the vendor and product of a resolved cpe uri
	ByCPE(cpeURI string) ([]models.CPECandidate, error)
	// ByPackageName fetches the candidates of the generated product variants of the package name
	ByPackageName(packageName string) ([]models.CPECandidate, error)
	Purge()
}

type CWECatalog interface {
	Name(cweID string) (string, bool)
	All() []models.CWE
}

type MatchingService interface {
	RunMatching(ctx context.Context, caller dtos.Caller, scanID string) (dtos.MatchingSummary, error)
}

type VulnDBImportService interface {
	// ImportFeed imports an nvd 2.0 json feed, optionally gzip or xz compressed
	ImportFeed(ctx context.Context, r io.Reader) (dtos.ImportStats, error)
	// Fetch pulls the cves modified since the given time from the nvd api. A zero time fetches everything.
	Fetch(ctx context.Context, since time.Time) (dtos.ImportStats, error)
	// Sync mirrors the named supplementary databases (cisa-kev, epss, cwe)
	Sync(ctx context.Context, databases []string) error
}
