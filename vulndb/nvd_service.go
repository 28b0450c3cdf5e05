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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/l3montree-dev/vulncorrelator/common"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/normalize"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

var NVDBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

const (
	nvdResultsPerPage = 2000
	nvdMaxTries       = 3
	// the api rejects date ranges longer than 120 days
	nvdMaxRange   = 119 * 24 * time.Hour
	saveBatchSize = 500
)

type NVDService struct {
	cveRepository      shared.CveRepository
	cpeMatchRepository shared.CPEMatchRepository
	httpClient         *http.Client
	limiter            *rate.Limiter
	apiKey             string
	baseURL            string
}

func NewNVDService(cveRepository shared.CveRepository, cpeMatchRepository shared.CPEMatchRepository) *NVDService {
	apiKey := os.Getenv("NVD_API_KEY")
	// 5 requests in 30 seconds without api key, 50 with one
	limit := rate.Every(6 * time.Second)
	if apiKey != "" {
		limit = rate.Every(600 * time.Millisecond)
	}

	return &NVDService{
		cveRepository:      cveRepository,
		cpeMatchRepository: cpeMatchRepository,
		httpClient:         common.NewHTTPClient(60 * time.Second),
		limiter:            rate.NewLimiter(limit, 1),
		apiKey:             apiKey,
		baseURL:            NVDBaseURL,
	}
}

// ImportFeed imports an nvd 2.0 json feed. The feed may be gzip or xz compressed.
// The cpe rows of every imported cve are replaced.
func (nvdService *NVDService) ImportFeed(ctx context.Context, r io.Reader) (dtos.ImportStats, error) {
	start := time.Now()
	defer func() {
		monitoring.VulnDBImportDuration.WithLabelValues("nvd-feed").Observe(time.Since(start).Minutes())
	}()

	reader, closeFn, err := decompress(r)
	if err != nil {
		return dtos.ImportStats{}, err
	}
	defer closeFn() // nolint:errcheck

	var stats dtos.ImportStats
	err = streamVulnerabilities(reader, saveBatchSize, func(batch []NVDCVE) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batchStats, err := nvdService.saveBatch(batch)
		stats.Add(batchStats)
		return err
	})
	if err != nil {
		return stats, err
	}

	slog.Info("imported nvd feed", "cves", stats.CVEs, "cpeMatches", stats.CPEMatches, "skipped", stats.Skipped, "duration", time.Since(start).String())
	return stats, nil
}

// Fetch pulls every cve modified after since from the nvd api. A zero since fetches everything.
func (nvdService *NVDService) Fetch(ctx context.Context, since time.Time) (dtos.ImportStats, error) {
	start := time.Now()
	defer func() {
		monitoring.VulnDBImportDuration.WithLabelValues("nvd-api").Observe(time.Since(start).Minutes())
	}()

	var stats dtos.ImportStats
	if since.IsZero() {
		slog.Info("starting initial nvd population. This takes a while - we have to respect the nvd api rate limits.")
		err := nvdService.fetchAllPages(ctx, url.Values{}, &stats)
		return stats, err
	}

	now := time.Now().UTC()
	from := since.UTC()
	for from.Before(now) {
		to := minTime(now, from.Add(nvdMaxRange))
		q := url.Values{}
		q.Set("lastModStartDate", from.Format(utils.NVDQueryFormat))
		q.Set("lastModEndDate", to.Format(utils.NVDQueryFormat))

		slog.Info("fetching nvd changes", "from", from, "to", to)
		if err := nvdService.fetchAllPages(ctx, q, &stats); err != nil {
			return stats, err
		}
		from = to
	}
	return stats, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func (nvdService *NVDService) fetchAllPages(ctx context.Context, query url.Values, stats *dtos.ImportStats) error {
	startIndex := 0
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("resultsPerPage", fmt.Sprint(nvdResultsPerPage))
		q.Set("startIndex", fmt.Sprint(startIndex))

		resp, err := nvdService.fetchJSON(ctx, nvdService.baseURL+"?"+q.Encode())
		if err != nil {
			return err
		}

		batch := utils.Map(resp.Vulnerabilities, func(v nvdVulnerability) NVDCVE { return v.Cve })
		batchStats, err := nvdService.saveBatch(batch)
		stats.Add(batchStats)
		if err != nil {
			return err
		}

		startIndex += resp.ResultsPerPage
		slog.Debug("fetched nvd page", "totalResults", resp.TotalResults, "currentIndex", startIndex)
		if resp.ResultsPerPage == 0 || startIndex >= resp.TotalResults {
			return nil
		}
	}
}

// fetchJSON retries on transport errors, rate limit responses and server errors
func (nvdService *NVDService) fetchJSON(ctx context.Context, u string) (nistResponse, error) {
	var lastErr error
	for try := 1; try <= nvdMaxTries; try++ {
		if err := nvdService.limiter.Wait(ctx); err != nil {
			return nistResponse{}, err
		}

		resp, retry, err := nvdService.doFetch(ctx, u)
		if err == nil {
			return resp, nil
		}
		if !retry {
			return nistResponse{}, err
		}
		lastErr = err
		slog.Warn("could not fetch from nvd, retrying", "try", try, "err", err)
	}
	return nistResponse{}, errors.Wrap(lastErr, "could not fetch from nvd")
}

func (nvdService *NVDService) doFetch(ctx context.Context, u string) (nistResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nistResponse{}, false, errors.Wrap(err, "could not create request before fetching from nvd")
	}
	if nvdService.apiKey != "" {
		req.Header.Set("apiKey", nvdService.apiKey)
	}

	res, err := nvdService.httpClient.Do(req)
	if err != nil {
		return nistResponse{}, ctx.Err() == nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return nistResponse{}, true, fmt.Errorf("nvd responded with status code %d", res.StatusCode)
	default:
		return nistResponse{}, false, fmt.Errorf("nvd responded with status code %d", res.StatusCode)
	}

	var resp nistResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nistResponse{}, true, errors.Wrap(err, "could not decode response from nvd")
	}
	return resp, false, nil
}

func (nvdService *NVDService) saveBatch(batch []NVDCVE) (dtos.ImportStats, error) {
	var stats dtos.ImportStats
	// the same cve may appear twice in one feed. The later entry wins.
	byID := make(map[string]int, len(batch))
	cves := make([]models.CVE, 0, len(batch))
	matches := make([][]models.CPEMatch, 0, len(batch))

	for _, nistCVE := range batch {
		if nistCVE.ID == "" {
			stats.Skipped++
			continue
		}
		cve, rows := fromNVDCVE(nistCVE)
		if i, ok := byID[cve.CVE]; ok {
			cves[i] = cve
			matches[i] = rows
			continue
		}
		byID[cve.CVE] = len(cves)
		cves = append(cves, cve)
		matches = append(matches, rows)
	}
	if len(cves) == 0 {
		return stats, nil
	}

	ids := utils.Map(cves, func(c models.CVE) string { return c.CVE })
	var rows []models.CPEMatch
	for _, m := range matches {
		rows = append(rows, m...)
	}

	err := nvdService.cveRepository.Transaction(func(tx shared.DB) error {
		if err := nvdService.cveRepository.SaveCVEs(tx, cves); err != nil {
			return errors.Wrap(err, "could not save cves")
		}
		if err := nvdService.cpeMatchRepository.ReplaceForCVEs(tx, ids, rows); err != nil {
			return errors.Wrap(err, "could not save cpe matches")
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.CVEs = len(cves)
	stats.CPEMatches = len(rows)
	return stats, nil
}

type cvssMetric struct {
	Severity string
	CVSS     float64
	Vector   string
	Version  string
}

// getCVSSMetric prefers v4.0 over v3.1 over v3.0 over v2 and the primary source over secondary ones
func getCVSSMetric(nistCVE NVDCVE) cvssMetric {
	for _, metrics := range [][]nvdCVSSMetric{
		nistCVE.Metrics.CvssMetricV40,
		nistCVE.Metrics.CvssMetricV31,
		nistCVE.Metrics.CvssMetricV30,
		nistCVE.Metrics.CvssMetricV2,
	} {
		if len(metrics) == 0 {
			continue
		}
		m := metrics[0]
		for _, candidate := range metrics {
			if candidate.Type == "Primary" {
				m = candidate
				break
			}
		}
		severity := m.CvssData.BaseSeverity
		if severity == "" {
			severity = m.BaseSeverity
		}
		return cvssMetric{
			Severity: strings.ToUpper(severity),
			CVSS:     m.CvssData.BaseScore,
			Vector:   m.CvssData.VectorString,
			Version:  m.CvssData.Version,
		}
	}
	return cvssMetric{}
}

func toDate(date *utils.Date) *datatypes.Date {
	if date == nil {
		return nil
	}
	t := datatypes.Date(*date)
	return &t
}

func fromNVDCVE(nistCVE NVDCVE) (models.CVE, []models.CPEMatch) {
	published, err := utils.ParseTimestamp(nistCVE.Published)
	if err != nil {
		published = time.Now()
	}

	lastModified, err := utils.ParseTimestamp(nistCVE.LastModified)
	if err != nil {
		slog.Warn("could not parse last modified date", "cveID", nistCVE.ID, "err", err)
		lastModified = published
	}

	description := ""
	for _, d := range nistCVE.Descriptions {
		if d.Lang == "en" {
			description = d.Value
			break
		}
	}

	weaknesses := []models.Weakness{}
	for _, w := range nistCVE.Weaknesses {
		for _, d := range w.Description {
			// nvd also reports NVD-CWE-Other and NVD-CWE-noinfo
			if d.Lang != "en" || !strings.HasPrefix(d.Value, "CWE-") {
				continue
			}
			if utils.Any(weaknesses, func(existing models.Weakness) bool { return existing.CWEID == d.Value }) {
				continue
			}
			weaknesses = append(weaknesses, models.Weakness{
				Source: w.Source,
				Type:   w.Type,
				CWEID:  d.Value,
				CVEID:  nistCVE.ID,
			})
		}
	}

	metric := getCVSSMetric(nistCVE)
	if metric.CVSS == 0 && metric.Vector != "" {
		if score, version, err := BaseScoreFromVector(metric.Vector); err == nil {
			metric.CVSS = score
			metric.Version = version
		} else {
			slog.Warn("could not parse cvss vector", "cveID", nistCVE.ID, "vector", metric.Vector, "err", err)
		}
	}
	severity := models.Severity(metric.Severity)
	if severity == "" && metric.Vector != "" {
		severity = SeverityFromScore(metric.CVSS)
	}

	references := make([]models.CVEReference, 0, len(nistCVE.References))
	for _, r := range nistCVE.References {
		references = append(references, models.CVEReference{URL: r.URL, Source: r.Source, Tags: r.Tags})
	}

	cve := models.CVE{
		CVE:              nistCVE.ID,
		DatePublished:    published,
		DateLastModified: lastModified,
		Description:      description,
		Weaknesses:       weaknesses,

		CVSS:        roundScore(metric.CVSS),
		Severity:    severity,
		Vector:      metric.Vector,
		CVSSVersion: metric.Version,

		References: references,

		CISAExploitAdd:        toDate(nistCVE.CISAExploitAdd),
		CISAActionDue:         toDate(nistCVE.CISAActionDue),
		CISARequiredAction:    nistCVE.CISARequiredAction,
		CISAVulnerabilityName: nistCVE.CISAVulnerabilityName,
	}

	return cve, cpeMatchesFromNVDCVE(nistCVE)
}

// cpeMatchesFromNVDCVE flattens the configurations into rows. Seq keeps the document order.
func cpeMatchesFromNVDCVE(nistCVE NVDCVE) []models.CPEMatch {
	rows := make([]models.CPEMatch, 0)
	seq := 0
	for _, configuration := range nistCVE.Configurations {
		for _, node := range configuration.Nodes {
			if node.Negate {
				continue
			}
			for _, match := range node.CpeMatch {
				cpe, err := normalize.ParseCPE(match.Criteria)
				if err != nil {
					slog.Warn("skipping malformed cpe", "cveID", nistCVE.ID, "criteria", match.Criteria, "err", err)
					continue
				}
				rows = append(rows, models.CPEMatch{
					CVEID:                 nistCVE.ID,
					MatchCriteriaID:       match.MatchCriteriaID,
					Criteria:              match.Criteria,
					Part:                  cpe.Part,
					Vendor:                cpe.Vendor,
					Product:               cpe.Product,
					Version:               utils.EmptyThenNil(cpe.Version),
					VersionStartIncluding: utils.EmptyThenNil(match.VersionStartIncluding),
					VersionStartExcluding: utils.EmptyThenNil(match.VersionStartExcluding),
					VersionEndIncluding:   utils.EmptyThenNil(match.VersionEndIncluding),
					VersionEndExcluding:   utils.EmptyThenNil(match.VersionEndExcluding),
					Vulnerable:            match.Vulnerable,
					Seq:                   seq,
				})
				seq++
			}
		}
	}
	return rows
}
