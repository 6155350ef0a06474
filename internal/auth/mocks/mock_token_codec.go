// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pookietalk/authcore/internal/auth"
	"github.com/pookietalk/authcore/internal/token"
)

// MockTokenCodec is a mock implementation of auth.TokenCodec.
type MockTokenCodec struct {
	mock.Mock
}

// NewMockTokenCodec creates a MockTokenCodec whose expectations are asserted
// when the test ends.
func NewMockTokenCodec(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockTokenCodec {
	m := &MockTokenCodec{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Issue provides a mock function.
func (m *MockTokenCodec) Issue(subject string, ttl time.Duration, extra map[string]any) (string, error) {
	args := m.Called(subject, ttl, extra)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockTokenCodec) Verify(raw string) (*token.Claims, error) {
	args := m.Called(raw)
	var claims *token.Claims
	if v := args.Get(0); v != nil {
		claims = v.(*token.Claims)
	}
	return claims, args.Error(1)
}

// Refresh provides a mock function.
func (m *MockTokenCodec) Refresh(raw string) (string, error) {
	args := m.Called(raw)
	return args.String(0), args.Error(1)
}

var _ auth.TokenCodec = (*MockTokenCodec)(nil)
