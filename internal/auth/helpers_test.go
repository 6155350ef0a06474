// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pookietalk/authcore/internal/auth"
)

func errFromCode(t *testing.T, code string) error {
	t.Helper()
	return oops.Code(code).Errorf("test error")
}

// failingDirectory fails every call with err.
type failingDirectory struct {
	err error
}

func (d failingDirectory) FindByUsername(context.Context, string) (*auth.Credential, error) {
	return nil, d.err
}

func (d failingDirectory) FindByID(context.Context, ulid.ULID) (*auth.Credential, error) {
	return nil, d.err
}

func (d failingDirectory) Save(context.Context, *auth.Credential) (*auth.Credential, error) {
	return nil, d.err
}

// staticDirectory returns cred for every lookup.
type staticDirectory struct {
	cred *auth.Credential
}

func (d staticDirectory) FindByUsername(context.Context, string) (*auth.Credential, error) {
	c := *d.cred
	return &c, nil
}

func (d staticDirectory) FindByID(context.Context, ulid.ULID) (*auth.Credential, error) {
	c := *d.cred
	return &c, nil
}

func (d staticDirectory) Save(_ context.Context, c *auth.Credential) (*auth.Credential, error) {
	return c, nil
}

// blockingHasher signals entered on the first Verify and blocks every Verify
// until release is closed.
type blockingHasher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingHasher() *blockingHasher {
	return &blockingHasher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (h *blockingHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *blockingHasher) Verify(string, string) bool {
	h.once.Do(func() { close(h.entered) })
	<-h.release
	return true
}
