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

package normalize

import (
	"strings"
)

type versionPart struct {
	number int
	suffix string
}

// splitVersion breaks a version on "." and "-" into its numeric prefix and
// the remaining (lowercased) suffix. "1g" becomes {1, "g"}, "rc1" becomes {0, "rc1"}.
func splitVersion(v string) []versionPart {
	fields := strings.FieldsFunc(strings.TrimSpace(v), func(r rune) bool {
		return r == '.' || r == '-'
	})

	parts := make([]versionPart, 0, len(fields))
	for _, f := range fields {
		i := 0
		n := 0
		for i < len(f) && f[i] >= '0' && f[i] <= '9' {
			// clamp absurdly long numbers instead of overflowing
			if n < 1<<30 {
				n = n*10 + int(f[i]-'0')
			}
			i++
		}
		parts = append(parts, versionPart{number: n, suffix: strings.ToLower(f[i:])})
	}
	return parts
}

// CompareVersions compares two version strings leniently. It never fails:
// unparsable segments count as 0 and missing segments are padded with 0.
// When the numeric prefixes of a segment are equal, the trailing letters decide
// ("1.0.1" < "1.0.1f" < "1.0.1g").
//
// It returns -1 if v1 < v2, 0 if both are equal and 1 if v1 > v2.
func CompareVersions(v1, v2 string) int {
	a := splitVersion(v1)
	b := splitVersion(v2)

	l := max(len(a), len(b))
	for i := range l {
		var pa, pb versionPart
		if i < len(a) {
			pa = a[i]
		}
		if i < len(b) {
			pb = b[i]
		}

		if pa.number != pb.number {
			if pa.number < pb.number {
				return -1
			}
			return 1
		}

		if c := strings.Compare(pa.suffix, pb.suffix); c != 0 {
			return c
		}
	}
	return 0
}

// IsInRange reports whether v satisfies every bound that is set.
// nil or empty bounds are unconstrained.
func IsInRange(v string, startIncluding, startExcluding, endIncluding, endExcluding *string) bool {
	if isSet(startIncluding) && CompareVersions(v, *startIncluding) < 0 {
		return false
	}
	if isSet(startExcluding) && CompareVersions(v, *startExcluding) <= 0 {
		return false
	}
	if isSet(endIncluding) && CompareVersions(v, *endIncluding) > 0 {
		return false
	}
	if isSet(endExcluding) && CompareVersions(v, *endExcluding) >= 0 {
		return false
	}
	return true
}

// IsWildcardVersion is true for versions which apply to any version in cpe notation.
func IsWildcardVersion(v *string) bool {
	if v == nil {
		return true
	}
	s := strings.TrimSpace(*v)
	return s == "" || s == "*" || s == "-"
}

func isSet(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
