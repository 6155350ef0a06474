// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package token

import "strings"

const bearerScheme = "bearer"

// FromAuthorizationHeader extracts the token from an "Authorization: Bearer
// <token>" header value. The scheme is matched case-insensitively.
func FromAuthorizationHeader(header string) (string, error) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", malformedError("authorization header is not a bearer credential")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t") || strings.Count(raw, ".") != 2 {
		return "", malformedError("bearer credential is not a compact token")
	}
	return raw, nil
}
