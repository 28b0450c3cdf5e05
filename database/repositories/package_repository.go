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
	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
)

type packageRepository struct {
	db *gorm.DB
	utils.Repository[uuid.UUID, models.Package, *gorm.DB]
}

var _ shared.PackageRepository = &packageRepository{}

func NewPackageRepository(db *gorm.DB) *packageRepository {
	return &packageRepository{
		db:         db,
		Repository: newGormRepository[uuid.UUID, models.Package](db),
	}
}

// ListByScan returns the packages in import order
func (r *packageRepository) ListByScan(tx *gorm.DB, scanID string) ([]models.Package, error) {
	var packages []models.Package
	err := r.GetDB(tx).Where("scan_id = ?", scanID).Order("position ASC").Order("created_at ASC").Order("id ASC").Find(&packages).Error
	return packages, err
}
