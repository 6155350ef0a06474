// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package token

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Registered claim names managed by the codec. Extra claims using these
// names are overwritten on issue and excluded from Claims.Extra on read.
const (
	claimSubject   = "sub"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	claimIssuer    = "iss"
	claimNotBefore = "nbf"
)

// Claims is the decoded content of a verified token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds every non-registered claim. Top-level JSON numbers decode as
	// float64.
	Extra map[string]any
}

// StringClaim returns the extra claim value for key, or "" when it is absent or
// not a string.
func (c *Claims) StringClaim(key string) string {
	s, _ := c.Extra[key].(string)
	return s
}

func isRegistered(key string) bool {
	switch key {
	case claimSubject, claimIssuedAt, claimExpiresAt, claimIssuer, claimNotBefore:
		return true
	}
	return false
}

// buildMapClaims merges extra with the registered claims. Registered values win.
func buildMapClaims(subject, issuer string, issuedAt, expiresAt time.Time, extra map[string]any) jwt.MapClaims {
	mc := make(jwt.MapClaims, len(extra)+4)
	for k, v := range extra {
		if isRegistered(k) {
			continue
		}
		mc[k] = v
	}
	mc[claimSubject] = subject
	mc[claimIssuedAt] = jwt.NewNumericDate(issuedAt)
	mc[claimExpiresAt] = jwt.NewNumericDate(expiresAt)
	if issuer != "" {
		mc[claimIssuer] = issuer
	}
	return mc
}

// claimsFromMap converts parsed map claims. A token without a subject or an
// expiry is structurally invalid.
func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, malformedError("missing subject")
	}
	exp, ok := instantClaim(mc, claimExpiresAt)
	if !ok {
		return nil, malformedError("missing expiry")
	}
	claims := &Claims{
		Subject:   sub,
		ExpiresAt: exp,
		Extra:     make(map[string]any),
	}
	if iat, ok := instantClaim(mc, claimIssuedAt); ok {
		claims.IssuedAt = iat
	}
	for k, v := range mc {
		if isRegistered(k) {
			continue
		}
		if n, ok := v.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, malformedError("invalid numeric claim")
			}
			v = f
		}
		claims.Extra[k] = v
	}
	return claims, nil
}

// instantClaim reads a NumericDate claim at millisecond resolution. Decimal
// text is parsed digit by digit so that values like 1760000060.001 are exact.
func instantClaim(mc jwt.MapClaims, key string) (time.Time, bool) {
	switch v := mc[key].(type) {
	case json.Number:
		if t, ok := parseDecimalSeconds(string(v)); ok {
			return t, true
		}
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return secondsToTime(f), true
	case float64:
		return secondsToTime(v), true
	default:
		return time.Time{}, false
	}
}

// parseDecimalSeconds handles the plain "seconds[.fraction]" form the codec
// writes. Signs and exponents are left to the float path.
func parseDecimalSeconds(s string) (time.Time, bool) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || strings.ContainsAny(s, "eE+-") {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	var ms int64
	if frac != "" {
		if ms, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return time.Time{}, false
		}
		for i := len(frac); i < 3; i++ {
			ms *= 10
		}
	}
	return time.Unix(sec, ms*int64(time.Millisecond)), true
}

func secondsToTime(f float64) time.Time {
	return time.UnixMilli(int64(math.Round(f * 1e3)))
}
