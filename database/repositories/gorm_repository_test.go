// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsParameterLimitError(t *testing.T) {
	t.Run("postgres parameter limit", func(t *testing.T) {
		err := fmt.Errorf("insert failed: %w", errors.New("extended protocol limited to 65535 parameters"))
		assert.True(t, isParameterLimitError(err))
	})
	t.Run("sqlite parameter limit", func(t *testing.T) {
		assert.True(t, isParameterLimitError(errors.New("too many SQL variables")))
	})
	t.Run("other error", func(t *testing.T) {
		assert.False(t, isParameterLimitError(errors.New("connection refused")))
	})
}
