// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/pookietalk/authcore/internal/observability"
	"github.com/pookietalk/authcore/internal/token"
	"github.com/pookietalk/authcore/pkg/errutil"
)

var tracer = otel.Tracer("pookietalk/auth")

// Claim names embedded in issued tokens next to the subject (the username).
const (
	ClaimRole   = "role"
	ClaimUserID = "uid"
)

// DefaultTokenTTL is used when neither WithTokenTTL nor the codec supplies one.
const DefaultTokenTTL = 24 * time.Hour

// Operation names used for spans, metrics and logs.
const (
	opAuthenticate = "authenticate"
	opRegister     = "register"
	opRefresh      = "refresh"
	opIdentify     = "identify"
)

// dummyPassword is hashed once to produce a hash of the configured cost that
// unknown-user logins are verified against.
//
//nolint:gosec // G101: not a credential, only used to equalize login timing.
const dummyPassword = "pookietalk-timing-equalizer"

// TokenCodec issues and checks session tokens. *token.Codec implements it.
type TokenCodec interface {
	Issue(subject string, ttl time.Duration, extra map[string]any) (string, error)
	Verify(raw string) (*token.Claims, error)
	Refresh(raw string) (string, error)
}

// Service authenticates users, registers new ones and issues their tokens.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	users   UserDirectory
	hasher  PasswordHasher
	tokens  TokenCodec
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	hashSem *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records service outcomes into m.
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTokenTTL sets the lifetime of tokens issued on login and registration.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithHashConcurrency bounds the number of password hash computations running
// at once. Callers over the bound wait, honouring context cancellation.
// Zero or less means unbounded.
func WithHashConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.hashSem = semaphore.NewWeighted(int64(n))
		} else {
			s.hashSem = nil
		}
	}
}

// NewService creates a Service. The token TTL defaults to the codec's own TTL
// when it exposes one.
func NewService(users UserDirectory, hasher PasswordHasher, tokens TokenCodec, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("user directory is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token codec is required")
	}

	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		ttl:    DefaultTokenTTL,
		logger: slog.Default(),
	}
	if withTTL, ok := tokens.(interface{ TTL() time.Duration }); ok {
		s.ttl = withTTL.TTL()
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("logger is required")
	}
	if s.ttl <= 0 {
		return nil, oops.Code("AUTH_CONFIG_INVALID").
			With("ttl", s.ttl.String()).
			Errorf("token ttl must be positive")
	}
	return s, nil
}

// Authenticate checks username and password and issues a token on success.
// An unknown username and a wrong password both fail with
// ErrInvalidCredentials, and both pay for one password verification.
func (s *Service) Authenticate(ctx context.Context, username, password string) (outcome *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate",
		trace.WithAttributes(attribute.String("auth.username", username)),
	)
	defer func() { s.finish(ctx, span, opAuthenticate, err) }()

	cred, lookupErr := s.users.FindByUsername(ctx, username)

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = cred.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		cred = nil
		targetHash = s.timingHash()
	default:
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "find user by username").
			Wrap(lookupErr)
	}

	match, err := s.verifyPassword(ctx, password, targetHash)
	if err != nil {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "verify password").
			Wrap(err)
	}
	if cred == nil || !match {
		return nil, invalidCredentials()
	}

	tok, err := s.issue(cred)
	if err != nil {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "issue token").
			Wrap(err)
	}

	span.SetAttributes(attribute.String("auth.user_id", cred.ID.String()))
	return newOutcome(tok, cred), nil
}

// Register creates a USER account and issues its first token. The password
// confirmation is checked before the directory is touched. The returned
// outcome reflects the record as persisted by the directory.
func (s *Service) Register(ctx context.Context, reg Registration) (outcome *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "auth.register",
		trace.WithAttributes(attribute.String("auth.username", reg.Username)),
	)
	defer func() { s.finish(ctx, span, opRegister, err) }()

	if reg.Password != reg.ConfirmPassword {
		return nil, passwordMismatch()
	}
	if err := ValidateUsername(reg.Username); err != nil {
		return nil, err
	}
	email := NormalizeEmail(reg.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	_, lookupErr := s.users.FindByUsername(ctx, reg.Username)
	switch {
	case lookupErr == nil:
		return nil, usernameTaken(reg.Username)
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "find user by username").
			Wrap(lookupErr)
	}

	hash, err := s.hashPassword(ctx, reg.Password)
	if err != nil {
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	saved, err := s.users.Save(ctx, &Credential{
		Username:     reg.Username,
		PasswordHash: hash,
		Email:        email,
		Role:         RoleUser,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			return nil, usernameTaken(reg.Username)
		case errors.Is(err, ErrDuplicateEmail):
			return nil, emailTaken()
		default:
			return nil, oops.Code(CodeRegisterFailed).
				With("operation", "save credential").
				Wrap(err)
		}
	}
	s.metrics.RecordRegistration()

	tok, err := s.issue(saved)
	if err != nil {
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "issue token").
			With("user_id", saved.ID.String()).
			Wrap(err)
	}

	span.SetAttributes(attribute.String("auth.user_id", saved.ID.String()))
	s.logger.InfoContext(ctx, "user registered",
		"user_id", saved.ID.String(),
		"username", saved.Username)
	return newOutcome(tok, saved), nil
}

// Refresh re-issues raw through the codec and reports the user it belongs
// to. Expired but authentic tokens are accepted. A token whose user no longer
// exists is unrefreshable.
func (s *Service) Refresh(ctx context.Context, raw string) (outcome *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "auth.refresh")
	defer func() { s.finish(ctx, span, opRefresh, err) }()

	refreshed, err := s.tokens.Refresh(raw)
	if err != nil {
		return nil, oops.With("operation", "refresh token").Wrap(err)
	}
	claims, err := s.tokens.Verify(refreshed)
	if err != nil {
		return nil, oops.With("operation", "verify refreshed token").Wrap(err)
	}

	cred, err := s.lookupSubject(ctx, claims)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(token.CodeUnrefreshable).
				With("reason", "subject no longer exists").
				Wrap(token.ErrUnrefreshable)
		}
		return nil, oops.Code(CodeIdentifyFailed).
			With("operation", "load token subject").
			Wrap(err)
	}

	return newOutcome(refreshed, cred), nil
}

// Identify verifies raw and loads the credential it was issued for.
func (s *Service) Identify(ctx context.Context, raw string) (cred *Credential, err error) {
	ctx, span := tracer.Start(ctx, "auth.identify")
	defer func() { s.finish(ctx, span, opIdentify, err) }()

	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.metrics.RecordTokenCheck(errutil.Code(err))
		return nil, oops.With("operation", "verify token").Wrap(err)
	}
	s.metrics.RecordTokenCheck("valid")

	cred, err = s.lookupSubject(ctx, claims)
	if err != nil {
		return nil, oops.Code(CodeIdentifyFailed).
			With("operation", "load token subject").
			With("subject", claims.Subject).
			Wrap(err)
	}
	return cred, nil
}

// lookupSubject resolves token claims to a credential, preferring the uid
// claim and falling back to the subject username.
func (s *Service) lookupSubject(ctx context.Context, claims *token.Claims) (*Credential, error) {
	if uid := claims.StringClaim(ClaimUserID); uid != "" {
		if id, err := ulid.Parse(uid); err == nil {
			return s.users.FindByID(ctx, id)
		}
	}
	return s.users.FindByUsername(ctx, claims.Subject)
}

func (s *Service) issue(cred *Credential) (string, error) {
	role := cred.Role
	if role == "" {
		role = RoleUser
	}
	return s.tokens.Issue(cred.Username, s.ttl, map[string]any{
		ClaimRole:   string(role),
		ClaimUserID: cred.ID.String(),
	})
}

// timingHash returns a hash of the configured cost for verifying logins of
// unknown users. It is derived once on first use.
func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("failed to derive timing hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) verifyPassword(ctx context.Context, password, hash string) (bool, error) {
	release, err := s.acquireHashSlot(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	start := time.Now()
	match := s.hasher.Verify(password, hash)
	s.metrics.ObserveHash("verify", time.Since(start))
	return match, nil
}

func (s *Service) hashPassword(ctx context.Context, password string) (string, error) {
	release, err := s.acquireHashSlot(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	hash, err := s.hasher.Hash(password)
	s.metrics.ObserveHash("hash", time.Since(start))
	if err != nil {
		return "", err //nolint:wrapcheck // hasher errors already carry their code
	}
	return hash, nil
}

func (s *Service) acquireHashSlot(ctx context.Context) (func(), error) {
	if s.hashSem == nil {
		return func() {}, nil
	}
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return nil, oops.With("operation", "acquire hash slot").Wrap(err)
	}
	return func() { s.hashSem.Release(1) }, nil
}

// finish ends span and records the outcome of operation.
func (s *Service) finish(ctx context.Context, span trace.Span, operation string, err error) {
	defer span.End()

	if err == nil {
		s.metrics.RecordRequest(operation, observability.OutcomeSuccess)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if isRejection(err) {
		s.metrics.RecordRequest(operation, observability.OutcomeFailure)
		s.logger.DebugContext(ctx, "auth request rejected",
			"operation", operation,
			"code", errutil.Code(err))
		return
	}

	s.metrics.RecordRequest(operation, observability.OutcomeError)
	errutil.LogErrorContext(ctx, s.logger.With("operation", operation), "auth request failed", err)
}

// rejections are caller-caused failures rather than faults.
var rejections = []error{
	ErrInvalidCredentials,
	ErrUsernameTaken,
	ErrEmailTaken,
	ErrPasswordMismatch,
	ErrInvalidUsername,
	ErrInvalidEmail,
	ErrEmptyPassword,
	ErrPasswordTooLong,
	token.ErrMalformed,
	token.ErrExpired,
	token.ErrInvalidSignature,
	token.ErrUnrefreshable,
}

func isRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
