// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package token issues and verifies signed, self-contained session tokens.
//
// Tokens are compact HS256 JWTs carrying the subject, issued-at and expiry
// instants and any extra claims. Verification is stateless: a token is valid
// while its signature checks out and now is strictly before its expiry.
package token

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// MinKeyLength is the minimum signing key size in bytes (the HS256 block size
// recommendation).
const MinKeyLength = 32

func init() {
	// Encode iat/exp with millisecond resolution instead of whole seconds.
	jwt.TimePrecision = time.Millisecond
}

// Codec issues, verifies and refreshes session tokens with a single
// process-wide HMAC key. It is safe for concurrent use.
type Codec struct {
	key           []byte
	ttl           time.Duration
	refreshWindow time.Duration
	issuer        string
	now           func() time.Time
	logger        *slog.Logger

	parser  *jwt.Parser
	decoder *jwt.Parser
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRefreshWindow bounds how long after expiry a token may still be
// refreshed. Zero means no bound.
func WithRefreshWindow(d time.Duration) Option {
	return func(c *Codec) {
		c.refreshWindow = d
	}
}

// WithIssuer stamps tokens with an "iss" claim and requires it on verify.
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCodec creates a Codec. The key must be at least MinKeyLength bytes and
// ttl must be positive; both are startup configuration errors otherwise.
func NewCodec(key []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(key) == 0 {
		return nil, oops.Code("TOKEN_KEY_MISSING").Errorf("signing key is required")
	}
	if len(key) < MinKeyLength {
		return nil, oops.Code("TOKEN_KEY_TOO_SHORT").
			With("length", len(key)).
			With("min_length", MinKeyLength).
			Errorf("signing key must be at least %d bytes", MinKeyLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_TTL_INVALID").With("ttl", ttl.String()).Errorf("token ttl must be positive")
	}

	c := &Codec{
		key:    append([]byte(nil), key...),
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.refreshWindow < 0 {
		return nil, oops.Code("TOKEN_REFRESH_WINDOW_INVALID").
			With("refresh_window", c.refreshWindow.String()).
			Errorf("refresh window must not be negative")
	}

	// Claims are checked by the codec: jwt/v5 reads fractional NumericDates
	// through float64, which can land a millisecond early.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithJSONNumber(),
		jwt.WithoutClaimsValidation(),
	)
	c.decoder = jwt.NewParser(jwt.WithStrictDecoding())

	return c, nil
}

// TTL returns the default token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject valid for ttl from now. Extra claims are
// embedded alongside the registered ones; registered names in extra are
// overwritten.
func (c *Codec) Issue(subject string, ttl time.Duration, extra map[string]any) (string, error) {
	if subject == "" {
		return "", oops.Code("TOKEN_SUBJECT_REQUIRED").Errorf("token subject is required")
	}
	if ttl <= 0 {
		return "", oops.Code("TOKEN_TTL_INVALID").With("ttl", ttl.String()).Errorf("token ttl must be positive")
	}

	now := c.now()
	claims := buildMapClaims(subject, c.issuer, now, now.Add(ttl), extra)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("subject", subject).Wrap(err)
	}
	return signed, nil
}

// Verify decodes raw, checks its signature and then its expiry.
//
// Failures wrap ErrMalformed when raw is not a structurally valid token,
// ErrInvalidSignature when the signature or algorithm does not check out, and
// ErrExpired when an authentic token is at or past its expiry.
func (c *Codec) Verify(raw string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, err := c.parser.ParseWithClaims(raw, mc, c.keyFunc); err != nil {
		return nil, c.classify(raw, err)
	}
	claims, err := claimsFromMap(mc)
	if err != nil {
		return nil, err
	}
	if c.issuer != "" {
		if iss, _ := mc.GetIssuer(); iss != c.issuer {
			return nil, malformedError("issuer mismatch")
		}
	}
	now := c.now()
	if nbf, ok := instantClaim(mc, claimNotBefore); ok && now.Before(nbf) {
		return nil, malformedError("token not yet valid")
	}
	if !now.Before(claims.ExpiresAt) {
		return nil, oops.Code(CodeExpired).With("expired_at", claims.ExpiresAt).Wrap(ErrExpired)
	}
	return claims, nil
}

// IsValid reports whether raw verifies and names expectedSubject. It never
// fails; the reason for a false result is only logged.
func (c *Codec) IsValid(raw, expectedSubject string) bool {
	claims, err := c.Verify(raw)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}

// Refresh re-issues an authentic token, expired or not, with the original
// subject and extra claims and a fresh issued-at/expiry pair using the codec
// TTL. Tampered or corrupt tokens, and tokens past the refresh window, wrap
// ErrUnrefreshable.
func (c *Codec) Refresh(raw string) (string, error) {
	mc := jwt.MapClaims{}
	if _, err := c.parser.ParseWithClaims(raw, mc, c.keyFunc); err != nil {
		c.logger.Debug("token refresh rejected", "reason", "parse", "error", err)
		return "", unrefreshableError("token is not authentic")
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		c.logger.Debug("token refresh rejected", "reason", "claims", "error", err)
		return "", unrefreshableError("token payload is incomplete")
	}
	if c.issuer != "" {
		if iss, _ := mc.GetIssuer(); iss != c.issuer {
			return "", unrefreshableError("issuer mismatch")
		}
	}
	if c.refreshWindow > 0 && !c.now().Before(claims.ExpiresAt.Add(c.refreshWindow)) {
		return "", oops.Code(CodeUnrefreshable).
			With("reason", "refresh window elapsed").
			With("expired_at", claims.ExpiresAt).
			Wrap(ErrUnrefreshable)
	}

	refreshed, err := c.Issue(claims.Subject, c.ttl, claims.Extra)
	if err != nil {
		return "", oops.With("operation", "reissue token").Wrap(err)
	}
	return refreshed, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.key, nil
}

// classify maps a parser error onto the codec failure kinds. Claims are not
// validated by the parser, so only decoding and signature failures reach it.
func (c *Codec) classify(raw string, err error) error {
	var kind error
	if c.structurallyInvalid(raw) {
		kind = malformedError("undecodable token")
	} else {
		// Header and payload decoded, so the failure is in the signature segment
		// or the algorithm.
		kind = invalidSignatureError()
	}
	c.logger.Debug("token verification failed", "kind", kind.Error(), "error", err)
	return kind
}

// structurallyInvalid reports whether raw fails to decode as a JWT at all,
// ignoring the signature segment.
func (c *Codec) structurallyInvalid(raw string) bool {
	_, _, err := c.decoder.ParseUnverified(raw, jwt.MapClaims{})
	return errors.Is(err, jwt.ErrTokenMalformed)
}
