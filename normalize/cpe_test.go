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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseCPE(t *testing.T) {
	t.Run("should parse a cpe 2.3 formatted string", func(t *testing.T) {
		cpe, err := ParseCPE("cpe:2.3:a:openssl:openssl:1.0.1:beta1:*:*:*:*:*:*")
		assert.NoError(t, err)
		assert.Equal(t, CPE{Part: "a", Vendor: "openssl", Product: "openssl", Version: "1.0.1", Update: "beta1"}, cpe)
	})

	t.Run("should parse a short cpe with wildcard version", func(t *testing.T) {
		cpe, err := ParseCPE("cpe:2.3:a:foovendor:libfoo:*")
		assert.NoError(t, err)
		assert.Equal(t, "foovendor", cpe.Vendor)
		assert.Equal(t, "libfoo", cpe.Product)
		assert.Equal(t, "*", cpe.Version)
		assert.Equal(t, "", cpe.Update)
	})

	t.Run("should lowercase vendor and product", func(t *testing.T) {
		cpe, err := ParseCPE("CPE:2.3:a:Apache:HTTP_Server:2.4.49")
		assert.NoError(t, err)
		assert.Equal(t, "apache", cpe.Vendor)
		assert.Equal(t, "http_server", cpe.Product)
	})

	t.Run("should keep escaped colons inside of a component", func(t *testing.T) {
		cpe, err := ParseCPE(`cpe:2.3:a:acme:foo\:bar:1.0`)
		assert.NoError(t, err)
		assert.Equal(t, "foo:bar", cpe.Product)
	})

	t.Run("should parse a cpe 2.2 uri", func(t *testing.T) {
		cpe, err := ParseCPE("cpe:/a:nginx:nginx:1.20.0")
		assert.NoError(t, err)
		assert.Equal(t, CPE{Part: "a", Vendor: "nginx", Product: "nginx", Version: "1.20.0"}, cpe)
	})

	t.Run("should reject malformed uris", func(t *testing.T) {
		for _, uri := range []string{"", "openssl", "cpe:2.3:a", "cpe:2.3:a:openssl", "cpe:2.3:a::openssl", "foo:2.3:a:b:c"} {
			_, err := ParseCPE(uri)
			assert.True(t, errors.Is(err, ErrInvalidCPE), uri)
		}
	})
}

func TestSplitCPE(t *testing.T) {
	assert.Equal(t, []string{"cpe", "2.3", "a"}, splitCPE("cpe:2.3:a"))
	assert.Equal(t, []string{"a", "b:c", ""}, splitCPE(`a:b\:c:`))
}
