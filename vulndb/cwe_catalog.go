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
	_ "embed"
	"strings"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed cwe_catalog.yaml
var cweCatalogYAML []byte

type cweCatalogEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// CWECatalog is a read only id to name lookup
type CWECatalog struct {
	entries []models.CWE
	byID    map[string]int
}

var _ shared.CWECatalog = &CWECatalog{}

// NewCWECatalog loads the embedded catalog
func NewCWECatalog() (*CWECatalog, error) {
	return ParseCWECatalog(cweCatalogYAML)
}

func ParseCWECatalog(b []byte) (*CWECatalog, error) {
	var entries []cweCatalogEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, errors.Wrap(err, "could not parse cwe catalog")
	}

	catalog := &CWECatalog{
		entries: make([]models.CWE, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		id := strings.ToUpper(strings.TrimSpace(e.ID))
		if !strings.HasPrefix(id, "CWE-") {
			return nil, errors.Errorf("invalid cwe id %q in catalog", e.ID)
		}
		if _, ok := catalog.byID[id]; ok {
			continue
		}
		catalog.byID[id] = len(catalog.entries)
		catalog.entries = append(catalog.entries, models.CWE{CWE: id, Name: e.Name, Description: e.Description})
	}
	return catalog, nil
}

func (c *CWECatalog) Name(cweID string) (string, bool) {
	i, ok := c.byID[strings.ToUpper(strings.TrimSpace(cweID))]
	if !ok {
		return "", false
	}
	return c.entries[i].Name, true
}

func (c *CWECatalog) All() []models.CWE {
	return append([]models.CWE(nil), c.entries...)
}

// Persist stores the catalog in the cwes table
func (c *CWECatalog) Persist(tx shared.DB, cweRepository shared.CweRepository) error {
	return cweRepository.SaveBatch(tx, c.All())
}
