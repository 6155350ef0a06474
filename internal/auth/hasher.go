// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost used when none is configured.
const DefaultHashCost = 12

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Error codes for password input failures.
const (
	CodeEmptyPassword   = "AUTH_EMPTY_PASSWORD"
	CodePasswordTooLong = "AUTH_PASSWORD_TOO_LONG"
)

// Password input errors returned by Hash.
var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password is too long")
)

func emptyPassword() error {
	return oops.Code(CodeEmptyPassword).Wrap(ErrEmptyPassword)
}

func passwordTooLong(length int) error {
	return oops.Code(CodePasswordTooLong).
		With("length", length).
		With("max_bytes", MaxPasswordBytes).
		Wrap(ErrPasswordTooLong)
}

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password. Each call uses a fresh salt.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A malformed hash is a
	// mismatch, not an error.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost outside
// [bcrypt.MinCost, bcrypt.MaxCost] is a configuration error.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_HASH_COST_INVALID").
			With("cost", cost).
			With("min", bcrypt.MinCost).
			With("max", bcrypt.MaxCost).
			Errorf("hash cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash produces a bcrypt hash in modular crypt format ($2a$<cost>$...).
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", emptyPassword()
	}
	if len(password) > MaxPasswordBytes {
		return "", passwordTooLong(len(password))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", passwordTooLong(len(password))
		}
		return "", oops.Code("AUTH_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(hash), nil
}

// Verify recomputes the digest with the salt and cost embedded in hash and
// compares in constant time.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashCost returns the cost embedded in a bcrypt hash, or an error when hash
// is not a bcrypt hash.
func HashCost(hash string) (int, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return 0, oops.Code("AUTH_HASH_MALFORMED").Wrap(err)
	}
	return cost, nil
}
