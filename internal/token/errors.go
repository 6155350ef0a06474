// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package token

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached to codec failures.
const (
	CodeMalformed        = "TOKEN_MALFORMED"
	CodeExpired          = "TOKEN_EXPIRED"
	CodeInvalidSignature = "TOKEN_INVALID_SIGNATURE"
	CodeUnrefreshable    = "TOKEN_UNREFRESHABLE"
)

// Sentinel errors for the failure kinds. Codec errors wrap exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrUnrefreshable    = errors.New("token cannot be refreshed")
)

func malformedError(reason string) error {
	return oops.Code(CodeMalformed).With("reason", reason).Wrap(ErrMalformed)
}

func invalidSignatureError() error {
	return oops.Code(CodeInvalidSignature).Wrap(ErrInvalidSignature)
}

func unrefreshableError(reason string) error {
	return oops.Code(CodeUnrefreshable).With("reason", reason).Wrap(ErrUnrefreshable)
}
