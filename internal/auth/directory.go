// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// UserDirectory stores credential records. Implementations own uniqueness of
// usernames and emails, including under concurrent Save calls.
type UserDirectory interface {
	// FindByUsername returns the credential for username.
	// Returns an error wrapping ErrNotFound when no such user exists.
	FindByUsername(ctx context.Context, username string) (*Credential, error)

	// FindByID returns the credential with the given ID.
	// Returns an error wrapping ErrNotFound when no such user exists.
	FindByID(ctx context.Context, id ulid.ULID) (*Credential, error)

	// Save persists a new credential and returns the stored record with its
	// assigned ID and creation time. Uniqueness violations wrap
	// ErrDuplicateUsername or ErrDuplicateEmail.
	Save(ctx context.Context, credential *Credential) (*Credential, error)
}
