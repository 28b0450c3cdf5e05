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

package scan

import (
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/normalize"
)

// EvaluateMatch checks the rules in priority order. The first satisfied rule wins.
// A row which reached the evaluator always matches, at least as product_match_only.
func EvaluateMatch(packageVersion string, row models.CPEMatch) dtos.MatchEvaluation {
	if !normalize.IsWildcardVersion(row.Version) && normalize.CompareVersions(packageVersion, *row.Version) == 0 {
		return dtos.MatchEvaluation{
			Matched:    true,
			Confidence: dtos.ConfidenceExactVersion,
			MatchType:  dtos.MatchTypeExactVersion,
		}
	}

	if row.HasRange() && normalize.IsInRange(packageVersion, row.VersionStartIncluding, row.VersionStartExcluding, row.VersionEndIncluding, row.VersionEndExcluding) {
		return dtos.MatchEvaluation{
			Matched:    true,
			Confidence: dtos.ConfidenceVersionRange,
			MatchType:  dtos.MatchTypeVersionRange,
		}
	}

	if normalize.IsWildcardVersion(row.Version) && !row.HasRange() {
		return dtos.MatchEvaluation{
			Matched:    true,
			Confidence: dtos.ConfidenceAllVersions,
			MatchType:  dtos.MatchTypeAllVersions,
		}
	}

	return dtos.MatchEvaluation{
		Matched:    true,
		Confidence: dtos.ConfidenceProductMatchOnly,
		MatchType:  dtos.MatchTypeProductMatchOnly,
	}
}

// EvaluateCandidate evaluates every row of the candidate and returns the evaluation with the highest confidence.
// On a tie the earlier row wins.
func EvaluateCandidate(packageVersion string, candidate models.CPECandidate) (dtos.MatchEvaluation, models.CPEMatch, bool) {
	var best dtos.MatchEvaluation
	var bestRow models.CPEMatch
	found := false

	for _, row := range candidate.Rows {
		evaluation := EvaluateMatch(packageVersion, row)
		if !evaluation.Matched {
			continue
		}
		if !found || evaluation.Confidence > best.Confidence {
			best = evaluation
			bestRow = row
			found = true
		}
		if best.MatchType == dtos.MatchTypeExactVersion {
			break
		}
	}
	return best, bestRow, found
}
