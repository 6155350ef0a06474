// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err carries code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	requireOops(t, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext asserts that err carries key with value in its context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}

// AssertNoErrorContext asserts that none of keys appear in err's context.
func AssertNoErrorContext(t *testing.T, err error, keys ...string) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	for _, key := range keys {
		assert.NotContains(t, ctx, key)
	}
}

// AssertErrorKind asserts that err wraps target and carries code.
func AssertErrorKind(t *testing.T, err, target error, code string) {
	t.Helper()
	require.ErrorIs(t, err, target)
	AssertErrorCode(t, err, code)
}
