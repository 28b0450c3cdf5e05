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
	"context"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type findingRepository struct {
	db *gorm.DB
	utils.Repository[uuid.UUID, models.VulnerabilityFinding, *gorm.DB]
}

var _ shared.FindingRepository = &findingRepository{}

func NewFindingRepository(db *gorm.DB) *findingRepository {
	return &findingRepository{
		db:         db,
		Repository: newGormRepository[uuid.UUID, models.VulnerabilityFinding](db),
	}
}

// TransactionWithContext runs f inside of a transaction bound to ctx.
// The transaction is rolled back if f returns an error or panics.
func (r *findingRepository) TransactionWithContext(ctx context.Context, f func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(f)
}

func (r *findingRepository) DeleteByScan(tx *gorm.DB, scanID string) (int64, error) {
	res := r.GetDB(tx).Where("scan_id = ?", scanID).Delete(&models.VulnerabilityFinding{})
	return res.RowsAffected, res.Error
}

func (r *findingRepository) DeleteByAsset(tx *gorm.DB, assetID uuid.UUID) error {
	return r.GetDB(tx).Where("asset_id = ?", assetID).Delete(&models.VulnerabilityFinding{}).Error
}

func (r *findingRepository) ExistsFor(tx *gorm.DB, cveID string, assetID uuid.UUID) (bool, error) {
	var count int64
	err := r.GetDB(tx).Model(&models.VulnerabilityFinding{}).Where("cve_id = ? AND asset_id = ?", cveID, assetID).Count(&count).Error
	return count > 0, err
}

// CreateIfAbsent never overwrites an existing finding. The insert runs inside of a savepoint
// so a failing insert does not abort a surrounding transaction.
func (r *findingRepository) CreateIfAbsent(tx *gorm.DB, finding *models.VulnerabilityFinding) (bool, error) {
	created := false
	err := r.GetDB(tx).Transaction(func(sp *gorm.DB) error {
		res := sp.Clauses(clause.OnConflict{DoNothing: true}).Create(finding)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	if database.IsDuplicateKeyError(err) {
		return false, nil
	}
	return created, err
}

func (r *findingRepository) ListByScan(tx *gorm.DB, scanID string) ([]models.VulnerabilityFinding, error) {
	var findings []models.VulnerabilityFinding
	err := r.GetDB(tx).Where("scan_id = ?", scanID).Order("cve_id ASC").Order("asset_id ASC").Find(&findings).Error
	return findings, err
}
