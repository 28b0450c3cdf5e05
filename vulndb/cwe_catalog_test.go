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
	"strings"
	"testing"
	"time"

	"github.com/l3montree-dev/vulncorrelator/database/repositories"
	"github.com/l3montree-dev/vulncorrelator/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCWECatalog(t *testing.T) {
	catalog, err := NewCWECatalog()
	require.NoError(t, err)

	t.Run("should resolve names case insensitive", func(t *testing.T) {
		name, ok := catalog.Name("cwe-125")
		assert.True(t, ok)
		assert.Equal(t, "Out-of-bounds Read", name)
	})

	t.Run("should report unknown ids", func(t *testing.T) {
		_, ok := catalog.Name("CWE-999999")
		assert.False(t, ok)
	})

	t.Run("should reject ids without the cwe prefix", func(t *testing.T) {
		_, err := ParseCWECatalog([]byte("- id: 79\n  name: XSS\n"))
		assert.Error(t, err)
	})

	t.Run("should keep the first entry of a duplicated id", func(t *testing.T) {
		c, err := ParseCWECatalog([]byte("- id: CWE-79\n  name: first\n- id: cwe-79\n  name: second\n"))
		require.NoError(t, err)
		assert.Len(t, c.All(), 1)
		name, _ := c.Name("CWE-79")
		assert.Equal(t, "first", name)
	})

	t.Run("should persist the catalog", func(t *testing.T) {
		db := tests.InitSQLiteDatabase(t)
		cweRepository := repositories.NewCWERepository(db)

		require.NoError(t, catalog.Persist(db, cweRepository))

		cwe, err := cweRepository.Read("CWE-125")
		require.NoError(t, err)
		assert.Equal(t, "Out-of-bounds Read", cwe.Name)
	})
}

func TestLoadObsolescenceRules(t *testing.T) {
	t.Run("should load the default rules", func(t *testing.T) {
		rules, err := DefaultObsolescenceRules()
		require.NoError(t, err)
		require.NotEmpty(t, rules)

		assert.Equal(t, "python2", rules[0].TechnologyName)
		assert.Equal(t, "2.x", *rules[0].VersionPattern)
		assert.True(t, rules[0].IsObsolete)
		require.NotNil(t, rules[0].EndOfLife)
	})

	t.Run("should default isObsolete to true and treat an empty pattern as every version", func(t *testing.T) {
		rules, err := LoadObsolescenceRules(strings.NewReader(`
- technologyName: " angularjs "
  versionPattern: ""
- technologyName: jquery
  versionPattern: "3.x"
  isObsolete: false
`))
		require.NoError(t, err)
		require.Len(t, rules, 2)

		assert.Equal(t, "angularjs", rules[0].TechnologyName)
		assert.Nil(t, rules[0].VersionPattern)
		assert.True(t, rules[0].IsObsolete)
		assert.False(t, rules[1].IsObsolete)
	})

	t.Run("should reject rules without a technology", func(t *testing.T) {
		_, err := LoadObsolescenceRules(strings.NewReader("- versionPattern: 1.x\n"))
		assert.Error(t, err)
	})

	t.Run("should reject invalid dates", func(t *testing.T) {
		_, err := LoadObsolescenceRules(strings.NewReader("- technologyName: php\n  endOfLife: soon\n"))
		assert.Error(t, err)
	})

	t.Run("should return no rules for an empty document", func(t *testing.T) {
		rules, err := LoadObsolescenceRules(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, rules)
	})

	t.Run("should parse dates", func(t *testing.T) {
		rules, err := LoadObsolescenceRules(strings.NewReader("- technologyName: php\n  endOfLife: \"2021-11-28\"\n"))
		require.NoError(t, err)
		assert.Equal(t, datatypes.Date(time.Date(2021, 11, 28, 0, 0, 0, 0, time.UTC)), *rules[0].EndOfLife)
	})
}
