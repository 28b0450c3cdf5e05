// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package repositories

import (
	"errors"

	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"gorm.io/gorm"
)

type obsolescenceRuleRepository struct {
	db *gorm.DB
	utils.Repository[uuid.UUID, models.ObsolescenceRule, *gorm.DB]
}

var _ shared.ObsolescenceRuleRepository = &obsolescenceRuleRepository{}

func NewObsolescenceRuleRepository(db *gorm.DB) *obsolescenceRuleRepository {
	return &obsolescenceRuleRepository{
		db:         db,
		Repository: newGormRepository[uuid.UUID, models.ObsolescenceRule](db),
	}
}

// ListObsolete returns the rules in a stable order. The first matching rule wins.
func (r *obsolescenceRuleRepository) ListObsolete(tx *gorm.DB) ([]models.ObsolescenceRule, error) {
	var rules []models.ObsolescenceRule
	err := r.GetDB(tx).Where("is_obsolete = ?", true).Order("created_at ASC").Order("id ASC").Find(&rules).Error
	return rules, err
}

// UpsertByTechnology updates rules with the same technology and version pattern or creates them.
func (r *obsolescenceRuleRepository) UpsertByTechnology(tx *gorm.DB, rules []models.ObsolescenceRule) error {
	return r.GetDB(tx).Transaction(func(tx *gorm.DB) error {
		for _, rule := range rules {
			var existing models.ObsolescenceRule
			q := tx.Where("technology_name = ?", rule.TechnologyName)
			if rule.VersionPattern == nil {
				q = q.Where("version_pattern IS NULL")
			} else {
				q = q.Where("version_pattern = ?", *rule.VersionPattern)
			}

			err := q.First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&rule).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				rule.ID = existing.ID
				rule.CreatedAt = existing.CreatedAt
				if err := tx.Save(&rule).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
