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

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/normalize"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/l3montree-dev/vulncorrelator/vulndb/scan"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrPurgeFailed = errors.New("could not purge findings of scan")

type MatchingConfig struct {
	Workers     int `validate:"min=1"`
	MaxVariants int `validate:"min=1"`
}

func NewMatchingConfig() (MatchingConfig, error) {
	cfg := MatchingConfig{
		Workers:     utils.GetEnvInt("MATCHING_WORKERS", 4),
		MaxVariants: utils.GetEnvInt("MATCHING_MAX_VARIANTS", scan.DefaultMaxVariants),
	}
	if err := shared.V.Struct(cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid matching configuration")
	}
	return cfg, nil
}

type matchingService struct {
	config                     MatchingConfig
	packageRepository          shared.PackageRepository
	cpeMatchRepository         shared.CPEMatchRepository
	cveRepository              shared.CveRepository
	obsolescenceRuleRepository shared.ObsolescenceRuleRepository
	manualMappingRepository    shared.ManualMappingRepository
	findingRepository          shared.FindingRepository
	lookup                     shared.CPECandidateLookup
	resolver                   *scan.ManualMappingResolver
	enricher                   *FindingEnricher
}

var _ shared.MatchingService = &matchingService{}

func NewMatchingService(
	config MatchingConfig,
	packageRepository shared.PackageRepository,
	cpeMatchRepository shared.CPEMatchRepository,
	cveRepository shared.CveRepository,
	obsolescenceRuleRepository shared.ObsolescenceRuleRepository,
	manualMappingRepository shared.ManualMappingRepository,
	findingRepository shared.FindingRepository,
	lookup shared.CPECandidateLookup,
	cweCatalog shared.CWECatalog,
) *matchingService {
	return &matchingService{
		config:                     config,
		packageRepository:          packageRepository,
		cpeMatchRepository:         cpeMatchRepository,
		cveRepository:              cveRepository,
		obsolescenceRuleRepository: obsolescenceRuleRepository,
		manualMappingRepository:    manualMappingRepository,
		findingRepository:          findingRepository,
		lookup:                     lookup,
		resolver:                   scan.NewManualMappingResolver(manualMappingRepository),
		enricher:                   NewFindingEnricher(cweCatalog),
	}
}

type packageResult struct {
	findings  int
	mappingID *uuid.UUID
}

// RunMatching replaces the findings of the scan with freshly correlated ones.
// Purge and repopulation share one transaction, a cancelled context rolls both back.
func (s *matchingService) RunMatching(ctx context.Context, caller dtos.Caller, scanID string) (dtos.MatchingSummary, error) {
	start := time.Now()
	ctx, span := monitoring.Tracer().Start(ctx, "RunMatching", trace.WithAttributes(
		attribute.String("scan.id", scanID),
		attribute.String("caller", caller.String()),
	))
	defer span.End()

	summary := dtos.MatchingSummary{ScanID: scanID, Caller: caller.String()}

	packages, err := s.packageRepository.ListByScan(nil, scanID)
	if err != nil {
		span.SetStatus(codes.Error, "could not list packages")
		return summary, errors.Wrap(err, "could not list packages of scan")
	}
	summary.TotalPackages = len(packages)
	s.checkPreconditions(&summary)

	rules, err := s.obsolescenceRuleRepository.ListObsolete(nil)
	if err != nil {
		slog.Warn("could not load obsolescence rules, continuing without obsolescence detection", "err", err)
	}
	detector := scan.NewObsolescenceDetector(rules)
	s.lookup.Purge()

	var (
		mu      sync.Mutex
		results []packageResult
	)
	err = s.findingRepository.TransactionWithContext(ctx, func(tx shared.DB) error {
		deleted, err := s.findingRepository.DeleteByScan(tx, scanID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPurgeFailed, err)
		}
		slog.Debug("purged findings of scan", "scanID", scanID, "deleted", deleted)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Workers)
		for _, pkg := range packages {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				result, err := s.matchPackage(gctx, tx, &mu, pkg, detector)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					slog.Error("could not match package, skipping", "packageName", pkg.Name, "packageVersion", pkg.Version, "scanID", scanID, "err", err)
					monitoring.MatchingPackageErrorsTotal.Inc()
					mu.Lock()
					summary.FailedPackages++
					mu.Unlock()
					return nil
				}
				monitoring.MatchingPackagesTotal.Inc()
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return ctx.Err()
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "matching failed")
		if errors.Is(err, ErrPurgeFailed) {
			monitoring.Alert("could not purge findings before matching", err)
			return summary, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			slog.Info("matching cancelled, findings rolled back", "scanID", scanID, "err", ctxErr)
			return summary, ctxErr
		}
		return summary, errors.Wrap(err, "could not persist findings")
	}

	for _, result := range results {
		if result.findings == 0 {
			continue
		}
		summary.VulnerablePackages++
		summary.TotalFindings += result.findings
		if result.mappingID == nil {
			continue
		}
		// usage statistics only, a failed increment keeps the findings
		if err := s.manualMappingRepository.IncrementUsage(nil, *result.mappingID); err != nil {
			slog.Warn("could not increment usage of manual mapping", "mappingID", *result.mappingID, "err", err)
			monitoring.ManualMappingUsageErrorsTotal.Inc()
		}
	}

	elapsed := time.Since(start)
	summary.ElapsedSeconds = elapsed.Seconds()
	monitoring.MatchingDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("packages.total", summary.TotalPackages),
		attribute.Int("findings.total", summary.TotalFindings),
	)

	slog.Info("finished matching", "scanID", scanID, "caller", summary.Caller, "packages", summary.TotalPackages, "vulnerablePackages", summary.VulnerablePackages, "findings", summary.TotalFindings, "failedPackages", summary.FailedPackages, "duration", elapsed.String())
	return summary, nil
}

// checkPreconditions sets the explanatory flags of the summary. An empty store is no error.
func (s *matchingService) checkPreconditions(summary *dtos.MatchingSummary) {
	emptyVulnDB, err := s.cveRepository.IsEmpty(nil)
	if err != nil {
		slog.Warn("could not check if the vulnerability database is empty", "err", err)
	}
	emptyCPEIndex, err := s.cpeMatchRepository.IsEmpty(nil)
	if err != nil {
		slog.Warn("could not check if the cpe index is empty", "err", err)
	}
	summary.EmptyVulnDB = emptyVulnDB
	summary.EmptyCPEIndex = emptyCPEIndex

	switch {
	case emptyVulnDB && emptyCPEIndex:
		summary.Note = "the vulnerability database and the cpe index are empty. Import a vulnerability feed first"
	case emptyVulnDB:
		summary.Note = "the vulnerability database is empty. Import a vulnerability feed first"
	case emptyCPEIndex:
		summary.Note = "the cpe index is empty. Import a vulnerability feed first"
	case summary.TotalPackages == 0:
		summary.Note = "the scan has no packages"
	}
}

// matchPackage reads through the base connection and only writes through tx.
// Writes are serialized with mu and wrapped in a savepoint, so a failing package leaves no findings behind.
func (s *matchingService) matchPackage(ctx context.Context, tx shared.DB, mu *sync.Mutex, pkg models.Package, detector *scan.ObsolescenceDetector) (result packageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.RecoverAndAlert("panic while matching package", r)
			err = fmt.Errorf("panic while matching package %s: %v", pkg.Name, r)
		}
	}()

	_, span := monitoring.Tracer().Start(ctx, "matchPackage", trace.WithAttributes(
		attribute.String("package.name", pkg.Name),
		attribute.String("package.version", pkg.Version),
	))
	defer span.End()

	mapping, err := s.resolver.Resolve(pkg.Name, pkg.Version)
	if err != nil {
		return result, errors.Wrap(err, "could not resolve manual mapping")
	}

	var candidates []models.CPECandidate
	if mapping != nil {
		candidates, err = s.lookup.ByCPE(mapping.CPEURI)
		if errors.Is(err, normalize.ErrInvalidCPE) {
			slog.Warn("manual mapping has a malformed cpe uri, skipping package", "packageName", pkg.Name, "packageVersion", pkg.Version, "mappingID", mapping.MappingID, "cpe", mapping.CPEURI, "err", err)
			return result, nil
		}
	} else {
		candidates, err = s.lookup.ByPackageName(pkg.Name)
	}
	if err != nil {
		return result, errors.Wrap(err, "could not look up cpe candidates")
	}
	if len(candidates) == 0 {
		return result, nil
	}

	obsolescence := detector.Check(pkg.Name, pkg.Version)
	findings := make([]models.VulnerabilityFinding, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		evaluation, row, ok := scan.EvaluateCandidate(pkg.Version, candidate)
		if !ok || !evaluation.Matched {
			continue
		}

		cve, err := s.cveRepository.FindByID(nil, candidate.CVEID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				slog.Warn("cpe row references an unknown cve, skipping", "cveID", candidate.CVEID, "packageName", pkg.Name)
				continue
			}
			return result, errors.Wrapf(err, "could not load cve %s", candidate.CVEID)
		}

		finding := models.VulnerabilityFinding{
			CVEID:           cve.CVE,
			AssetID:         pkg.AssetID,
			ScanID:          pkg.ScanID,
			PackageName:     pkg.Name,
			PackageVersion:  pkg.Version,
			MatchConfidence: evaluation.Confidence,
			MatchType:       evaluation.MatchType,
			MatchedCPE:      row.Criteria,
		}
		if mapping != nil {
			finding.ManualMappingID = &mapping.MappingID
		}
		s.enricher.Enrich(&finding, cve)
		applyObsolescence(&finding, obsolescence)
		findings = append(findings, finding)
	}

	created, err := s.persist(tx, mu, findings)
	if err != nil {
		return result, err
	}

	result.findings = created
	if mapping != nil && created > 0 {
		result.mappingID = &mapping.MappingID
	}
	span.SetAttributes(attribute.Int("findings", created))
	return result, nil
}

func (s *matchingService) persist(tx shared.DB, mu *sync.Mutex, findings []models.VulnerabilityFinding) (int, error) {
	if len(findings) == 0 {
		return 0, nil
	}

	mu.Lock()
	defer mu.Unlock()

	created := make([]dtos.MatchType, 0, len(findings))
	err := tx.Transaction(func(sp shared.DB) error {
		for i := range findings {
			exists, err := s.findingRepository.ExistsFor(sp, findings[i].CVEID, findings[i].AssetID)
			if err != nil {
				return errors.Wrap(err, "could not check for an existing finding")
			}
			if exists {
				continue
			}
			ok, err := s.findingRepository.CreateIfAbsent(sp, &findings[i])
			if err != nil {
				return errors.Wrap(err, "could not save finding")
			}
			if ok {
				created = append(created, findings[i].MatchType)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, matchType := range created {
		monitoring.MatchingFindingsTotal.WithLabelValues(string(matchType)).Inc()
	}
	return len(created), nil
}
