// Copyright (C) 2024 Tim Bastin, l3montree GmbH
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

package scan

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/normalize"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/pkg/errors"
)

const DefaultMaxVariants = 8

type CPECandidateLookup struct {
	cpeMatchRepository shared.CPEMatchRepository
	maxVariants        int
	generateVariants   func(string) []string
	cache              *expirable.LRU[string, []models.CPECandidate]
}

var _ shared.CPECandidateLookup = &CPECandidateLookup{}

func NewCPECandidateLookup(cpeMatchRepository shared.CPEMatchRepository, maxVariants int) *CPECandidateLookup {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	return &CPECandidateLookup{
		cpeMatchRepository: cpeMatchRepository,
		maxVariants:        maxVariants,
		generateVariants:   normalize.GenerateVariants,
		cache:              expirable.NewLRU[string, []models.CPECandidate](4096, nil, 15*time.Minute),
	}
}

// Purge drops every cached lookup. Called before each matching run so freshly imported rows are visible.
func (l *CPECandidateLookup) Purge() {
	l.cache.Purge()
}

func (l *CPECandidateLookup) ByCPE(cpeURI string) ([]models.CPECandidate, error) {
	cpe, err := normalize.ParseCPE(cpeURI)
	if err != nil {
		return nil, err
	}
	if normalize.IsAny(cpe.Product) {
		return nil, errors.Wrapf(normalize.ErrInvalidCPE, "cpe %q does not name a product", cpeURI)
	}

	key := "cpe|" + cpe.Vendor + "|" + cpe.Product
	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	var rows []models.CPEMatch
	if normalize.IsAny(cpe.Vendor) {
		// vendor unknown, fall back to the product only
		rows, err = l.cpeMatchRepository.FindByProducts(nil, []string{cpe.Product})
	} else {
		rows, err = l.cpeMatchRepository.FindByVendorProduct(nil, cpe.Vendor, cpe.Product)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch cpe matches")
	}

	candidates := groupCandidates(rows)
	l.cache.Add(key, candidates)
	return candidates, nil
}

func (l *CPECandidateLookup) ByPackageName(packageName string) ([]models.CPECandidate, error) {
	variants := l.variants(packageName)
	if len(variants) == 0 {
		return nil, nil
	}

	key := "variants|" + strings.Join(variants, "|")
	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	rows, err := l.cpeMatchRepository.FindByProducts(nil, variants)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch cpe matches")
	}

	// rows of the most literal variant come first
	position := make(map[string]int, len(variants))
	for i, v := range variants {
		position[v] = i
	}
	slices.SortStableFunc(rows, func(a, b models.CPEMatch) int {
		return cmp.Compare(position[strings.ToLower(a.Product)], position[strings.ToLower(b.Product)])
	})

	candidates := groupCandidates(rows)
	slog.Debug("looked up cpe candidates", "package", packageName, "variants", variants, "candidates", len(candidates))
	l.cache.Add(key, candidates)
	return candidates, nil
}

func (l *CPECandidateLookup) variants(packageName string) []string {
	variants := make([]string, 0, l.maxVariants)
	for _, v := range l.generateVariants(packageName) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || slices.Contains(variants, v) {
			continue
		}
		variants = append(variants, v)
		if len(variants) == l.maxVariants {
			break
		}
	}
	return variants
}

// groupCandidates collapses the rows into one candidate per (cve, product) pair in first-seen order.
// Rows which only describe the platform a vulnerable product runs on are dropped.
func groupCandidates(rows []models.CPEMatch) []models.CPECandidate {
	candidates := make([]models.CPECandidate, 0)
	index := make(map[[2]string]int)

	vulnerable := utils.Filter(rows, func(row models.CPEMatch) bool { return row.Vulnerable })
	for _, row := range vulnerable {
		key := [2]string{row.CVEID, strings.ToLower(row.Product)}
		if i, ok := index[key]; ok {
			candidates[i].Rows = append(candidates[i].Rows, row)
			continue
		}
		index[key] = len(candidates)
		candidates = append(candidates, models.CPECandidate{
			CVEID:   row.CVEID,
			Product: key[1],
			Rows:    []models.CPEMatch{row},
		})
	}
	return candidates
}
