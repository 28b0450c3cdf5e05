// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package dtos

type ImportStats struct {
	CVEs       int `json:"cves"`
	CPEMatches int `json:"cpeMatches"`
	Skipped    int `json:"skipped"`
}

func (s *ImportStats) Add(other ImportStats) {
	s.CVEs += other.CVEs
	s.CPEMatches += other.CPEMatches
	s.Skipped += other.Skipped
}
