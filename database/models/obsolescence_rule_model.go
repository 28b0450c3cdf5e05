// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package models

import "gorm.io/datatypes"

type ObsolescenceRule struct {
	Model
	TechnologyName string `json:"technologyName" gorm:"type:text;not null"`
	// VersionPattern nil or empty matches every version
	VersionPattern            *string         `json:"versionPattern" gorm:"type:text"`
	IsObsolete                bool            `json:"isObsolete" gorm:"not null"`
	EndOfSupport              *datatypes.Date `json:"endOfSupport" gorm:"type:date"`
	EndOfLife                 *datatypes.Date `json:"endOfLife" gorm:"type:date"`
	ReplacementRecommendation string          `json:"replacementRecommendation" gorm:"type:text"`
	Justification             string          `json:"justification" gorm:"type:text"`
}

func (ObsolescenceRule) TableName() string {
	return "obsolescence_rules"
}
