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
	"log/slog"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type cveRepository struct {
	db *gorm.DB
	utils.Repository[string, models.CVE, *gorm.DB]
}

var _ shared.CveRepository = &cveRepository{}

func NewCVERepository(db *gorm.DB) *cveRepository {
	return &cveRepository{
		db:         db,
		Repository: newGormRepository[string, models.CVE](db),
	}
}

func (g *cveRepository) FindByID(tx *gorm.DB, id string) (models.CVE, error) {
	var t models.CVE
	err := g.GetDB(tx).Preload("Weaknesses").First(&t, "cve = ?", id).Error

	return t, err
}

func (g *cveRepository) Read(id string) (models.CVE, error) {
	return g.FindByID(nil, id)
}

// nvdUpsert only overwrites the columns which are owned by the nvd feed. epss and percentile
// belong to the epss mirror. The cisa columns keep their mirrored values when the feed has none.
var nvdUpsert = clause.OnConflict{
	Columns: []clause.Column{{Name: "cve"}},
	DoUpdates: append(clause.AssignmentColumns([]string{
		"updated_at",
		"date_published",
		"date_last_modified",
		"description",
		"cvss",
		"severity",
		"vector",
		"cvss_version",
		"cve_references",
	}),
		clause.Assignment{Column: clause.Column{Name: "cisa_exploit_add"}, Value: gorm.Expr("COALESCE(excluded.cisa_exploit_add, cves.cisa_exploit_add)")},
		clause.Assignment{Column: clause.Column{Name: "cisa_action_due"}, Value: gorm.Expr("COALESCE(excluded.cisa_action_due, cves.cisa_action_due)")},
		clause.Assignment{Column: clause.Column{Name: "cisa_required_action"}, Value: gorm.Expr("COALESCE(NULLIF(excluded.cisa_required_action, ''), cves.cisa_required_action)")},
		clause.Assignment{Column: clause.Column{Name: "cisa_vulnerability_name"}, Value: gorm.Expr("COALESCE(NULLIF(excluded.cisa_vulnerability_name, ''), cves.cisa_vulnerability_name)")},
	),
}

func (g *cveRepository) createInBatches(tx *gorm.DB, cves []models.CVE, batchSize int) error {
	err := g.GetDB(tx).Session(
		&gorm.Session{
			Logger:               logger.Default.LogMode(logger.Silent),
			FullSaveAssociations: true,
		}).Clauses(nvdUpsert).CreateInBatches(&cves, batchSize).Error
	if err != nil && isParameterLimitError(err) {
		newBatchSize := batchSize / 2
		if newBatchSize < 1 {
			return err
		}
		slog.Warn("protocol error, trying to reduce batch size", "newBatchSize", newBatchSize, "oldBatchSize", batchSize, "err", err)
		return g.createInBatches(tx, cves, newBatchSize)
	}
	return err
}

// SaveCVEs upserts the cves together with their weaknesses
func (g *cveRepository) SaveCVEs(tx *gorm.DB, cves []models.CVE) error {
	if len(cves) == 0 {
		return nil
	}
	return g.createInBatches(tx, cves, 500)
}

func (g *cveRepository) SaveBatch(tx *gorm.DB, cves []models.CVE) error {
	return g.SaveCVEs(tx, cves)
}

func (g *cveRepository) Save(tx *gorm.DB, cve *models.CVE) error {
	return g.createInBatches(tx, []models.CVE{*cve}, 1)
}

// UpdateEpssBatch only touches the epss columns of cves which already exist
func (g *cveRepository) UpdateEpssBatch(tx *gorm.DB, batch []models.CVE) error {
	db := g.GetDB(tx).Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	for _, cve := range batch {
		err := db.Model(&models.CVE{}).Where("cve = ?", cve.CVE).UpdateColumns(map[string]any{
			"epss":       cve.EPSS,
			"percentile": cve.Percentile,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateCISAKEVBatch only touches the cisa columns of cves which already exist
func (g *cveRepository) UpdateCISAKEVBatch(tx *gorm.DB, batch []models.CVE) error {
	db := g.GetDB(tx).Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	for _, cve := range batch {
		err := db.Model(&models.CVE{}).Where("cve = ?", cve.CVE).UpdateColumns(map[string]any{
			"cisa_exploit_add":        cve.CISAExploitAdd,
			"cisa_action_due":         cve.CISAActionDue,
			"cisa_required_action":    cve.CISARequiredAction,
			"cisa_vulnerability_name": cve.CISAVulnerabilityName,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *cveRepository) IsEmpty(tx *gorm.DB) (bool, error) {
	var ids []string
	err := g.GetDB(tx).Model(&models.CVE{}).Limit(1).Pluck("cve", &ids).Error
	return len(ids) == 0, err
}
