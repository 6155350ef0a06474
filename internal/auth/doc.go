// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package auth verifies user credentials and issues session tokens.
//
// # Components
//
//   - PasswordHasher / BcryptHasher - salted, cost-configurable password hashing
//   - UserDirectory - credential storage, owned by the caller (see the memory
//     and postgres subpackages)
//   - Service - authenticate, register, refresh and identify
//
// # Errors
//
// Service failures are oops errors carrying a Code* constant and wrapping one
// of the Err* sentinels, so callers can use either errors.Is or the code.
// An unknown username and a wrong password are indistinguishable: both are
// ErrInvalidCredentials with no further context. PublicMessage maps any
// service or token error to text that is safe to show to end users.
package auth
