// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package auth

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the coarse authorization level embedded in issued tokens.
type Role string

// Known roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credential is a stored user account. PasswordHash is always a hasher
// output, never the raw password.
type Credential struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	Email        string
	Role         Role
	CreatedAt    time.Time
}

// Registration is the input to Service.Register.
type Registration struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
}

// Outcome is returned after a successful authentication, registration or
// refresh. It only carries public user fields.
type Outcome struct {
	Token    string
	UserID   ulid.ULID
	Username string
	Email    string
	Role     Role
}

func newOutcome(tok string, c *Credential) *Outcome {
	return &Outcome{
		Token:    tok,
		UserID:   c.ID,
		Username: c.Username,
		Email:    c.Email,
		Role:     c.Role,
	}
}

// ValidateUsername checks that a username meets requirements.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("length", len(username)).
			With("min", MinUsernameLength).
			With("max", MaxUsernameLength).
			Wrap(ErrInvalidUsername)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidUsername).
			With("reason", "must start with a letter and contain only letters, numbers, and underscores").
			Wrap(ErrInvalidUsername)
	}
	return nil
}

// ValidateEmail checks that email is a syntactically valid address.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return oops.Code(CodeInvalidEmail).Wrap(ErrInvalidEmail)
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
