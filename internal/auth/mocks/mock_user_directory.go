// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/pookietalk/authcore/internal/auth"
)

// MockUserDirectory is a mock implementation of auth.UserDirectory.
type MockUserDirectory struct {
	mock.Mock
}

// NewMockUserDirectory creates a MockUserDirectory whose expectations are
// asserted when the test ends.
func NewMockUserDirectory(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserDirectory {
	m := &MockUserDirectory{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByUsername provides a mock function.
func (m *MockUserDirectory) FindByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	args := m.Called(ctx, username)
	return credentialArg(args, 0), args.Error(1)
}

// FindByID provides a mock function.
func (m *MockUserDirectory) FindByID(ctx context.Context, id ulid.ULID) (*auth.Credential, error) {
	args := m.Called(ctx, id)
	return credentialArg(args, 0), args.Error(1)
}

// Save provides a mock function. The first return value may be a
// *auth.Credential or a func(context.Context, *auth.Credential) *auth.Credential.
func (m *MockUserDirectory) Save(ctx context.Context, credential *auth.Credential) (*auth.Credential, error) {
	args := m.Called(ctx, credential)
	if fn, ok := args.Get(0).(func(context.Context, *auth.Credential) *auth.Credential); ok {
		return fn(ctx, credential), args.Error(1)
	}
	return credentialArg(args, 0), args.Error(1)
}

func credentialArg(args mock.Arguments, i int) *auth.Credential {
	if v := args.Get(i); v != nil {
		return v.(*auth.Credential)
	}
	return nil
}

var _ auth.UserDirectory = (*MockUserDirectory)(nil)
