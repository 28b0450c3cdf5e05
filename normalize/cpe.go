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

	"github.com/pkg/errors"
)

var ErrInvalidCPE = errors.New("invalid cpe uri")

// CPE holds the leading attributes of a cpe uri. Values are unescaped and lowercased.
type CPE struct {
	Part    string
	Vendor  string
	Product string
	Version string
	Update  string
}

// splitCPE splits on ":" but keeps escaped colons ("\:") inside of a component.
func splitCPE(uri string) []string {
	var parts []string
	var current strings.Builder
	escaped := false
	for _, r := range uri {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(parts, current.String())
}

// ParseCPE parses a cpe 2.3 formatted string (cpe:2.3:a:vendor:product:version:...)
// or a cpe 2.2 uri (cpe:/a:vendor:product:version).
func ParseCPE(uri string) (CPE, error) {
	parts := splitCPE(strings.ToLower(strings.TrimSpace(uri)))
	if len(parts) < 4 || parts[0] != "cpe" {
		return CPE{}, errors.Wrapf(ErrInvalidCPE, "could not parse %q", uri)
	}

	// cpe 2.2 has the part glued to the prefix: cpe:/a:vendor:product
	offset := 3
	part := ""
	if strings.HasPrefix(parts[1], "/") {
		offset = 2
		part = strings.TrimPrefix(parts[1], "/")
	} else {
		if len(parts) < 5 {
			return CPE{}, errors.Wrapf(ErrInvalidCPE, "could not parse %q", uri)
		}
		part = parts[2]
	}

	at := func(i int) string {
		if offset+i < len(parts) {
			return parts[offset+i]
		}
		return ""
	}

	cpe := CPE{
		Part:    part,
		Vendor:  at(0),
		Product: at(1),
		Version: at(2),
		Update:  at(3),
	}
	if cpe.Vendor == "" || cpe.Product == "" {
		return CPE{}, errors.Wrapf(ErrInvalidCPE, "missing vendor or product in %q", uri)
	}
	return cpe, nil
}

// IsAny is true for the cpe logical values ANY (*) and NA (-).
func IsAny(value string) bool {
	return value == "" || value == "*" || value == "-"
}
