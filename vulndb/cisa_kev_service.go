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
	"time"

	"github.com/l3montree-dev/vulncorrelator/common"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

type CISAKEVService struct {
	cveRepository shared.CveRepository
	httpClient    *http.Client
}

func NewCISAKEVService(cveRepository shared.CveRepository) *CISAKEVService {
	return &CISAKEVService{
		cveRepository: cveRepository,
		httpClient:    common.NewHTTPClient(60 * time.Second),
	}
}

var CisaKEVURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

type cisaKEVCatalog struct {
	Title           string         `json:"title"`
	CatalogVersion  string         `json:"catalogVersion"`
	DateReleased    string         `json:"dateReleased"`
	Count           int            `json:"count"`
	Vulnerabilities []cisaKEVEntry `json:"vulnerabilities"`
}

type cisaKEVEntry struct {
	CVEID                      string   `json:"cveID"`
	VendorProject              string   `json:"vendorProject"`
	Product                    string   `json:"product"`
	VulnerabilityName          string   `json:"vulnerabilityName"`
	DateAdded                  string   `json:"dateAdded"`
	ShortDescription           string   `json:"shortDescription"`
	RequiredAction             string   `json:"requiredAction"`
	DueDate                    string   `json:"dueDate"`
	KnownRansomwareCampaignUse string   `json:"knownRansomwareCampaignUse"`
	Notes                      string   `json:"notes"`
	CWEs                       []string `json:"cwes"`
}

const kevBatchSize int = 5_000

func parseKEVCatalog(r io.Reader) ([]models.CVE, error) {
	var catalog cisaKEVCatalog
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("could not parse JSON: %w", err)
	}

	results := make([]models.CVE, 0, len(catalog.Vulnerabilities))
	for _, entry := range catalog.Vulnerabilities {
		dateAdded, err := parseDate(entry.DateAdded)
		if err != nil {
			slog.Warn("could not parse dateAdded", "cveID", entry.CVEID, "date", entry.DateAdded)
			continue
		}

		dueDate, err := parseDate(entry.DueDate)
		if err != nil {
			slog.Warn("could not parse dueDate", "cveID", entry.CVEID, "date", entry.DueDate)
			continue
		}

		results = append(results, models.CVE{
			CVE:                   entry.CVEID,
			CISAExploitAdd:        dateAdded,
			CISAActionDue:         dueDate,
			CISARequiredAction:    entry.RequiredAction,
			CISAVulnerabilityName: entry.VulnerabilityName,
		})
	}
	return results, nil
}

func (s *CISAKEVService) fetchJSON(ctx context.Context) ([]models.CVE, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CisaKEVURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch cisa kev catalog: %s", res.Status)
	}
	return parseKEVCatalog(res.Body)
}

func parseDate(dateStr string) (*datatypes.Date, error) {
	t, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return nil, err
	}
	d := datatypes.Date(t)
	return &d, nil
}

// Mirror sets the cisa kev columns of every known cve listed in the catalog
func (s *CISAKEVService) Mirror(ctx context.Context) error {
	start := time.Now()
	defer func() {
		monitoring.VulnDBImportDuration.WithLabelValues("cisa-kev").Observe(time.Since(start).Minutes())
	}()

	cves, err := s.fetchJSON(ctx)
	if err != nil {
		return errors.Wrap(err, "could not fetch cisa kev data")
	}

	slog.Info("updating CISA KEV data", "entries", len(cves))
	return s.cveRepository.Transaction(func(tx shared.DB) error {
		for i := 0; i < len(cves); i += kevBatchSize {
			end := min(i+kevBatchSize, len(cves))
			if err := s.cveRepository.UpdateCISAKEVBatch(tx.WithContext(ctx), cves[i:end]); err != nil {
				return errors.Wrap(err, "could not save cisa kev batch")
			}
		}
		return nil
	})
}
