// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package store owns the PostgreSQL connection and the users schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 200 * time.Millisecond
)

type connectConfig struct {
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
	open     func(ctx context.Context, url string) (pinger, error)
}

// pinger is the part of *pgxpool.Pool Connect needs to probe the server.
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// ConnectOption configures Connect.
type ConnectOption func(*connectConfig)

// WithConnectAttempts sets the number of retries after the first failure.
func WithConnectAttempts(n uint64) ConnectOption {
	return func(c *connectConfig) { c.attempts = n }
}

// WithConnectBackoff sets the initial exponential backoff interval. Zero or
// less keeps DefaultConnectBackoff.
func WithConnectBackoff(d time.Duration) ConnectOption {
	return func(c *connectConfig) { c.backoff = d }
}

// WithConnectLogger logs each failed attempt to logger.
func WithConnectLogger(logger *slog.Logger) ConnectOption {
	return func(c *connectConfig) { c.logger = logger }
}

func openPool(ctx context.Context, url string) (pinger, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	return pool, nil
}

// Connect opens a pgx pool for databaseURL and waits until the server answers
// a ping, retrying with exponential backoff. An unparsable URL is not retried.
func Connect(ctx context.Context, databaseURL string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	p, err := connect(ctx, databaseURL, opts...)
	if err != nil {
		return nil, err
	}
	return p.(*pgxpool.Pool), nil
}

func connect(ctx context.Context, databaseURL string, opts ...ConnectOption) (pinger, error) {
	cfg := connectConfig{
		attempts: DefaultConnectAttempts,
		backoff:  DefaultConnectBackoff,
		logger:   slog.Default(),
		open:     openPool,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.backoff <= 0 {
		cfg.backoff = DefaultConnectBackoff
	}

	if _, err := pgxpool.ParseConfig(databaseURL); err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	backoff := retry.WithMaxRetries(cfg.attempts, retry.NewExponential(cfg.backoff))

	var (
		pool    pinger
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := cfg.open(ctx, databaseURL)
		if err != nil {
			cfg.logger.WarnContext(ctx, "database connect failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			cfg.logger.WarnContext(ctx, "database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return pool, nil
}
