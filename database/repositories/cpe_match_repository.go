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

package repositories

import (
	"strings"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type cpeMatchRepository struct {
	db *gorm.DB
	utils.Repository[uuid.UUID, models.CPEMatch, *gorm.DB]
}

var _ shared.CPEMatchRepository = &cpeMatchRepository{}

func NewCPEMatchRepository(db *gorm.DB) *cpeMatchRepository {
	return &cpeMatchRepository{
		db:         db,
		Repository: newGormRepository[uuid.UUID, models.CPEMatch](db),
	}
}

// FindByVendorProduct compares vendor and product case-insensitive
func (r *cpeMatchRepository) FindByVendorProduct(tx *gorm.DB, vendor, product string) ([]models.CPEMatch, error) {
	var matches []models.CPEMatch
	err := r.GetDB(tx).
		Where("LOWER(vendor) = ? AND LOWER(product) = ?", strings.ToLower(vendor), strings.ToLower(product)).
		Order("cve_id ASC").Order("seq ASC").
		Find(&matches).Error
	return matches, err
}

// FindByProducts returns every row whose product equals one of the products (case-insensitive).
// The caller is responsible for ordering the rows by product.
func (r *cpeMatchRepository) FindByProducts(tx *gorm.DB, products []string) ([]models.CPEMatch, error) {
	if len(products) == 0 {
		return nil, nil
	}
	lowered := utils.Map(products, strings.ToLower)

	var matches []models.CPEMatch
	err := r.GetDB(tx).
		Where("LOWER(product) IN ?", lowered).
		Order("cve_id ASC").Order("seq ASC").
		Find(&matches).Error
	return matches, err
}

// ReplaceForCVEs removes all rows of the given cves and inserts the new ones.
func (r *cpeMatchRepository) ReplaceForCVEs(tx *gorm.DB, cveIDs []string, matches []models.CPEMatch) error {
	db := r.GetDB(tx).Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	for _, chunk := range utils.Chunk(cveIDs, 1000) {
		if err := db.Where("cve_id IN ?", chunk).Delete(&models.CPEMatch{}).Error; err != nil {
			return err
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return db.CreateInBatches(&matches, 1000).Error
}

func (r *cpeMatchRepository) IsEmpty(tx *gorm.DB) (bool, error) {
	var ids []string
	err := r.GetDB(tx).Model(&models.CPEMatch{}).Limit(1).Pluck("cve_id", &ids).Error
	return len(ids) == 0, err
}
