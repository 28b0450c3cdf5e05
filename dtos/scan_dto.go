// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package dtos

// ScanImportedEvent is published by the import pipeline after the packages of a scan were stored.
type ScanImportedEvent struct {
	ScanID string `json:"scanId" validate:"required"`
	Caller string `json:"caller"`
}

type RunMatchingRequest struct {
	ScanID string `param:"scanID" validate:"required,max=255"`
}

type CreateManualMappingRequest struct {
	PackageName     string          `json:"packageName" validate:"required"`
	PackageVersion  *string         `json:"packageVersion"`
	CPEURI          string          `json:"cpeUri" validate:"required"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Notes           string          `json:"notes"`
}
