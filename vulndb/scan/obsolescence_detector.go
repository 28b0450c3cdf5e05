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

package scan

import (
	"strings"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/normalize"
	"gorm.io/datatypes"
)

type obsolescenceRule struct {
	models.ObsolescenceRule
	normalizedName string
	variants       map[string]struct{}
}

// ObsolescenceDetector checks packages against a fixed set of rules.
// The rules are evaluated in the given order and the first match wins.
type ObsolescenceDetector struct {
	rules []obsolescenceRule
}

func NewObsolescenceDetector(rules []models.ObsolescenceRule) *ObsolescenceDetector {
	prepared := make([]obsolescenceRule, 0, len(rules))
	for _, rule := range rules {
		normalizedName := normalize.NormalizeTechnologyName(rule.TechnologyName)
		if normalizedName == "" {
			continue
		}
		prepared = append(prepared, obsolescenceRule{
			ObsolescenceRule: rule,
			normalizedName:   normalizedName,
			variants:         normalizedVariants(rule.TechnologyName),
		})
	}
	return &ObsolescenceDetector{rules: prepared}
}

func (d *ObsolescenceDetector) Check(packageName, packageVersion string) dtos.ObsolescenceMatch {
	normalizedName := normalize.NormalizeTechnologyName(packageName)
	if normalizedName == "" || len(d.rules) == 0 {
		return dtos.ObsolescenceMatch{}
	}

	var packageVariants map[string]struct{}
	for _, rule := range d.rules {
		if !strings.Contains(normalizedName, rule.normalizedName) && !strings.Contains(rule.normalizedName, normalizedName) {
			if packageVariants == nil {
				packageVariants = normalizedVariants(packageName)
			}
			if !overlaps(packageVariants, rule.variants) {
				continue
			}
		}

		if !VersionPatternMatches(rule.VersionPattern, packageVersion) {
			continue
		}

		return dtos.ObsolescenceMatch{
			Detected:       true,
			TechnologyName: rule.TechnologyName,
			EndOfSupport:   toTime(rule.EndOfSupport),
			EndOfLife:      toTime(rule.EndOfLife),
			Recommendation: rule.ReplacementRecommendation,
		}
	}
	return dtos.ObsolescenceMatch{}
}

// VersionPatternMatches matches a version against patterns like "2.x", "<11", ">= 3.0" or "1.8.0".
// A nil or empty pattern matches every version.
func VersionPatternMatches(pattern *string, version string) bool {
	if pattern == nil {
		return true
	}
	p := strings.TrimSpace(*pattern)
	if p == "" {
		return true
	}

	if i := strings.IndexAny(p, "xX*"); i >= 0 {
		return strings.HasPrefix(strings.ToLower(version), strings.ToLower(p[:i]))
	}

	for _, op := range []string{"<=", ">=", "<", ">"} {
		if !strings.HasPrefix(p, op) {
			continue
		}
		c := normalize.CompareVersions(version, strings.TrimSpace(p[len(op):]))
		switch op {
		case "<=":
			return c <= 0
		case ">=":
			return c >= 0
		case "<":
			return c < 0
		default:
			return c > 0
		}
	}

	return strings.EqualFold(p, strings.TrimSpace(version))
}

func normalizedVariants(name string) map[string]struct{} {
	variants := make(map[string]struct{})
	for _, v := range normalize.GenerateVariants(name) {
		if n := normalize.NormalizeTechnologyName(v); n != "" {
			variants[n] = struct{}{}
		}
	}
	return variants
}

func overlaps(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func toTime(d *datatypes.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}
