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
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/l3montree-dev/vulncorrelator/common"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/pkg/errors"
)

type EPSSService struct {
	cveRepository shared.CveRepository
	httpClient    *http.Client
}

func NewEPSSService(cveRepository shared.CveRepository) *EPSSService {
	return &EPSSService{
		cveRepository: cveRepository,
		httpClient:    common.NewHTTPClient(60 * time.Second),
	}
}

var EpssURL = "https://epss.cyentia.com/epss_scores-current.csv.gz"

// parseEPSSCSV skips the model comment line and the header
func parseEPSSCSV(r io.Reader) ([]models.CVE, error) {
	results := make([]models.CVE, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "cve,") {
			continue
		}
		columns := strings.Split(line, ",")
		if len(columns) != 3 {
			slog.Warn("could not parse line", "line", line)
			continue
		}
		epss, err := strconv.ParseFloat(columns[1], 64)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse epss")
		}
		percentile, err := strconv.ParseFloat(columns[2], 32)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse percentile")
		}
		results = append(results, models.CVE{
			CVE:        columns[0],
			EPSS:       utils.Ptr(epss),
			Percentile: utils.Ptr(float32(percentile)),
		})
	}
	return results, scanner.Err()
}

func (s *EPSSService) fetchCSV(ctx context.Context) ([]models.CVE, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, EpssURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch epss scores: %s", res.Status)
	}

	// the body is gzip encoded, so we need to decode it first
	body, err := gzip.NewReader(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "could not create gzip reader")
	}
	defer body.Close()

	return parseEPSSCSV(body)
}

const epssBatchSize int = 5_000

// Mirror updates the epss score and percentile of every known cve
func (s *EPSSService) Mirror(ctx context.Context) error {
	start := time.Now()
	defer func() {
		monitoring.VulnDBImportDuration.WithLabelValues("epss").Observe(time.Since(start).Minutes())
	}()

	cves, err := s.fetchCSV(ctx)
	if err != nil {
		return errors.Wrap(err, "could not fetch epss data")
	}

	slog.Info("updating EPSS scores", "entries", len(cves))
	return s.cveRepository.Transaction(func(tx shared.DB) error {
		for _, batch := range utils.Chunk(cves, epssBatchSize) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.cveRepository.UpdateEpssBatch(tx, batch); err != nil {
				return errors.Wrap(err, "could not save epss batch")
			}
		}
		return nil
	})
}
