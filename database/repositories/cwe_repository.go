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

package repositories

import (
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cweRepository struct {
	utils.Repository[string, models.CWE, *gorm.DB]
	db *gorm.DB
}

var _ shared.CweRepository = &cweRepository{}

func NewCWERepository(db *gorm.DB) *cweRepository {
	return &cweRepository{
		db:         db,
		Repository: newGormRepository[string, models.CWE](db),
	}
}

func (g *cweRepository) SaveBatch(tx *gorm.DB, cwes []models.CWE) error {
	if len(cwes) == 0 {
		return nil
	}
	return g.GetDB(tx).Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&cwes, 1000).Error
}

func (g *cweRepository) Read(id string) (models.CWE, error) {
	var cwe models.CWE
	err := g.GetDB(nil).First(&cwe, "cwe = ?", id).Error
	return cwe, err
}
