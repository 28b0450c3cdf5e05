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
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/pkg/errors"
)

const (
	DatabaseCISAKEV = "cisa-kev"
	DatabaseEPSS    = "epss"
	DatabaseCWE     = "cwe"
)

// SupportedDatabases lists the databases accepted by Sync in the order they are mirrored
var SupportedDatabases = []string{DatabaseCWE, DatabaseCISAKEV, DatabaseEPSS}

type importService struct {
	nvdService     *NVDService
	cisaKEVService *CISAKEVService
	epssService    *EPSSService
	cweCatalog     *CWECatalog
	cweRepository  shared.CweRepository
}

var _ shared.VulnDBImportService = &importService{}

func NewImportService(nvdService *NVDService, cisaKEVService *CISAKEVService, epssService *EPSSService, cweCatalog *CWECatalog, cweRepository shared.CweRepository) *importService {
	return &importService{
		nvdService:     nvdService,
		cisaKEVService: cisaKEVService,
		epssService:    epssService,
		cweCatalog:     cweCatalog,
		cweRepository:  cweRepository,
	}
}

func (service *importService) ImportFeed(ctx context.Context, r io.Reader) (dtos.ImportStats, error) {
	return service.nvdService.ImportFeed(ctx, r)
}

func (service *importService) Fetch(ctx context.Context, since time.Time) (dtos.ImportStats, error) {
	return service.nvdService.Fetch(ctx, since)
}

func (service *importService) Sync(ctx context.Context, databases []string) error {
	for _, db := range databases {
		if !slices.Contains(SupportedDatabases, db) {
			return fmt.Errorf("unknown database %q, supported are %s", db, strings.Join(SupportedDatabases, ","))
		}
	}

	begin := time.Now()
	for _, db := range SupportedDatabases {
		if !slices.Contains(databases, db) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		slog.Info("syncing database", "database", db)
		var err error
		switch db {
		case DatabaseCWE:
			err = service.cweCatalog.Persist(nil, service.cweRepository)
		case DatabaseCISAKEV:
			err = service.cisaKEVService.Mirror(ctx)
		case DatabaseEPSS:
			err = service.epssService.Mirror(ctx)
		}
		if err != nil {
			return errors.Wrapf(err, "could not sync %s", db)
		}
	}
	slog.Info("finished syncing databases", "databases", databases, "duration", time.Since(begin))
	return nil
}
