// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	t.Run("should unmarshal a date only string", func(t *testing.T) {
		var v struct {
			Added *Date `json:"added"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"added":"2022-03-25"}`), &v))
		require.NotNil(t, v.Added)
		assert.Equal(t, time.Date(2022, 3, 25, 0, 0, 0, 0, time.UTC), time.Time(*v.Added))
	})

	t.Run("should marshal back to a date only string", func(t *testing.T) {
		b, err := json.Marshal(Date(time.Date(2022, 3, 25, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.Equal(t, `"2022-03-25"`, string(b))
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Run("should parse the nvd timestamp format", func(t *testing.T) {
		ts, err := ParseTimestamp("2014-04-07T22:55:03.893")
		require.NoError(t, err)
		assert.Equal(t, 2014, ts.Year())
		assert.Equal(t, 893*time.Millisecond, time.Duration(ts.Nanosecond()))
	})

	t.Run("should parse rfc3339 timestamps", func(t *testing.T) {
		_, err := ParseTimestamp("2024-01-01T10:00:00Z")
		assert.NoError(t, err)
	})

	t.Run("should fail on garbage", func(t *testing.T) {
		_, err := ParseTimestamp("yesterday")
		assert.Error(t, err)
	})
}
