// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/pookietalk/authcore/internal/token"
	"github.com/pookietalk/authcore/pkg/errutil"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Uniqueness violations reported by a UserDirectory on Save.
var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
)

// Error codes for authentication failures.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodePasswordMismatch   = "AUTH_PASSWORD_MISMATCH"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeInvalidEmail       = "AUTH_INVALID_EMAIL"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"
	CodeRegisterFailed     = "AUTH_REGISTER_FAILED"
	CodeIdentifyFailed     = "AUTH_IDENTIFY_FAILED"
)

// Sentinel errors for the service failure kinds.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidEmail       = errors.New("invalid email")
)

// invalidCredentials carries no context: the caller must not learn whether
// the username or the password was wrong.
func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func usernameTaken(username string) error {
	return oops.Code(CodeUsernameTaken).With("username", username).Wrap(ErrUsernameTaken)
}

func emailTaken() error {
	return oops.Code(CodeEmailTaken).Wrap(ErrEmailTaken)
}

func passwordMismatch() error {
	return oops.Code(CodePasswordMismatch).Wrap(ErrPasswordMismatch)
}

// Caller-facing messages. None of them reveal internal detail.
const (
	msgInvalidCredentials = "Invalid username or password."
	msgUsernameTaken      = "That username is already taken."
	msgEmailTaken         = "That email address is already registered."
	msgPasswordMismatch   = "Passwords do not match."
	msgInvalidUsername    = "Usernames must be 3-30 characters, start with a letter and contain only letters, digits or underscores."
	msgInvalidEmail       = "Enter a valid email address."
	msgInvalidPassword    = "Passwords must be between 1 and 72 bytes."
	msgSessionInvalid     = "Your session is invalid. Please sign in again."
	msgSessionExpired     = "Your session has expired. Please sign in again."
	msgGeneric            = "Something went wrong. Try again."
)

// PublicMessage translates an error returned by this package or by the token
// codec into text safe to show to an end user.
func PublicMessage(err error) string {
	if err == nil {
		return msgGeneric
	}
	switch errutil.Code(err) {
	case CodeInvalidCredentials:
		return msgInvalidCredentials
	case CodeUsernameTaken:
		return msgUsernameTaken
	case CodeEmailTaken:
		return msgEmailTaken
	case CodePasswordMismatch:
		return msgPasswordMismatch
	case CodeInvalidUsername:
		return msgInvalidUsername
	case CodeInvalidEmail:
		return msgInvalidEmail
	case CodeEmptyPassword, CodePasswordTooLong:
		return msgInvalidPassword
	case token.CodeExpired:
		return msgSessionExpired
	case token.CodeMalformed, token.CodeInvalidSignature, token.CodeUnrefreshable:
		return msgSessionInvalid
	default:
		return msgGeneric
	}
}
