// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package store

// Names of the unique indexes on the users table. PostgreSQL reports them as
// the constraint name of a unique violation.
const (
	UsernameConstraint = "users_username_key"
	EmailConstraint    = "users_email_key"
)
