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

package vulndb

import (
	"math"
	"strings"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
	"github.com/pkg/errors"
)

// BaseScoreFromVector returns the base score and the cvss version of a vector.
// CVSS v2 vectors do not carry a version prefix.
func BaseScoreFromVector(vector string) (float64, string, error) {
	vector = strings.TrimSpace(vector)
	switch {
	case vector == "":
		return 0, "", errors.New("empty cvss vector")
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		cvss, err := gocvss40.ParseVector(vector)
		if err != nil {
			return 0, "", errors.Wrap(err, "could not parse cvss 4.0 vector")
		}
		return cvss.Score(), "4.0", nil
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		cvss, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, "", errors.Wrap(err, "could not parse cvss 3.1 vector")
		}
		return cvss.BaseScore(), "3.1", nil
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, "", errors.Wrap(err, "could not parse cvss 3.0 vector")
		}
		return cvss.BaseScore(), "3.0", nil
	default:
		cvss, err := gocvss20.ParseVector(strings.Trim(vector, "()"))
		if err != nil {
			return 0, "", errors.Wrap(err, "could not parse cvss 2.0 vector")
		}
		return cvss.BaseScore(), "2.0", nil
	}
}

// SeverityFromScore uses the cvss v3 qualitative rating scale
func SeverityFromScore(score float64) models.Severity {
	switch {
	case score <= 0:
		return models.SeverityNone
	case score < 4.0:
		return models.SeverityLow
	case score < 7.0:
		return models.SeverityMedium
	case score < 9.0:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

func roundScore(score float64) float32 {
	return float32(math.Round(score*10) / 10)
}
