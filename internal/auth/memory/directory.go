// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package memory provides an in-process auth.UserDirectory for tests and
// local tooling.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pookietalk/authcore/internal/auth"
)

// UserDirectory keeps credentials in maps guarded by a mutex. Usernames and
// emails are unique case-insensitively, matching the PostgreSQL schema.
type UserDirectory struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.Credential
	byUsername map[string]ulid.ULID
	byEmail    map[string]ulid.ULID
	now        func() time.Time
}

// NewUserDirectory creates an empty UserDirectory.
func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		byID:       make(map[ulid.ULID]*auth.Credential),
		byUsername: make(map[string]ulid.ULID),
		byEmail:    make(map[string]ulid.ULID),
		now:        time.Now,
	}
}

// FindByUsername returns a copy of the credential for username.
func (d *UserDirectory) FindByUsername(_ context.Context, username string) (*auth.Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byUsername[foldKey(username)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return clone(d.byID[id]), nil
}

// FindByID returns a copy of the credential with id.
func (d *UserDirectory) FindByID(_ context.Context, id ulid.ULID) (*auth.Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cred, ok := d.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return clone(cred), nil
}

// Save stores a copy of credential with a new ID and creation time. The
// uniqueness check and insert happen under one lock.
func (d *UserDirectory) Save(_ context.Context, credential *auth.Credential) (*auth.Credential, error) {
	if credential == nil {
		return nil, oops.Code("USER_SAVE_FAILED").Errorf("credential is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	userKey := foldKey(credential.Username)
	emailKey := foldKey(credential.Email)
	if _, taken := d.byUsername[userKey]; taken {
		return nil, oops.Code("USER_DUPLICATE").
			With("username", credential.Username).
			Wrap(auth.ErrDuplicateUsername)
	}
	if _, taken := d.byEmail[emailKey]; taken {
		return nil, oops.Code("USER_DUPLICATE").Wrap(auth.ErrDuplicateEmail)
	}

	stored := clone(credential)
	stored.ID = ulid.Make()
	stored.CreatedAt = d.now().UTC()

	d.byID[stored.ID] = stored
	d.byUsername[userKey] = stored.ID
	d.byEmail[emailKey] = stored.ID

	return clone(stored), nil
}

// Len returns the number of stored credentials.
func (d *UserDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func foldKey(s string) string {
	return strings.ToLower(s)
}

func clone(c *auth.Credential) *auth.Credential {
	cp := *c
	return &cp
}

var _ auth.UserDirectory = (*UserDirectory)(nil)
