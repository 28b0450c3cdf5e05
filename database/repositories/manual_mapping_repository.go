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
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
)

type manualMappingRepository struct {
	db *gorm.DB
	utils.Repository[uuid.UUID, models.ManualCPEMapping, *gorm.DB]
}

var _ shared.ManualMappingRepository = &manualMappingRepository{}

func NewManualMappingRepository(db *gorm.DB) *manualMappingRepository {
	return &manualMappingRepository{
		db:         db,
		Repository: newGormRepository[uuid.UUID, models.ManualCPEMapping](db),
	}
}

func (r *manualMappingRepository) FindExact(tx *gorm.DB, packageName, packageVersion string) (models.ManualCPEMapping, error) {
	var mapping models.ManualCPEMapping
	err := r.GetDB(tx).
		Where("package_name = ? AND package_version = ? AND is_active = ?", packageName, packageVersion, true).
		Order("updated_at DESC").
		First(&mapping).Error
	return mapping, err
}

func (r *manualMappingRepository) FindGeneric(tx *gorm.DB, packageName string) (models.ManualCPEMapping, error) {
	var mapping models.ManualCPEMapping
	err := r.GetDB(tx).
		Where("package_name = ? AND package_version IS NULL AND is_active = ?", packageName, true).
		Order("updated_at DESC").
		First(&mapping).Error
	return mapping, err
}

// IncrementUsage does not read the counter, so concurrent scans cannot lose increments
func (r *manualMappingRepository) IncrementUsage(tx *gorm.DB, id uuid.UUID) error {
	res := r.GetDB(tx).Model(&models.ManualCPEMapping{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"usage_count":  gorm.Expr("usage_count + ?", 1),
		"last_used_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *manualMappingRepository) ListActive(tx *gorm.DB) ([]models.ManualCPEMapping, error) {
	var mappings []models.ManualCPEMapping
	err := r.GetDB(tx).Where("is_active = ?", true).Order("package_name ASC").Order("package_version ASC").Find(&mappings).Error
	return mappings, err
}

// Deactivate is a soft delete. Mappings are kept for auditing.
func (r *manualMappingRepository) Deactivate(tx *gorm.DB, id uuid.UUID) error {
	return r.GetDB(tx).Model(&models.ManualCPEMapping{}).Where("id = ?", id).Update("is_active", false).Error
}
