// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"golang.org/x/term"

	"github.com/pookietalk/authcore/internal/auth"
	"github.com/pookietalk/authcore/internal/auth/postgres"
	"github.com/pookietalk/authcore/internal/config"
	"github.com/pookietalk/authcore/internal/observability"
	"github.com/pookietalk/authcore/internal/store"
	"github.com/pookietalk/authcore/internal/xdg"
)

// Migrator is the part of store.Migrator used by the migrate command.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Status() (*store.Status, error)
	Close() error
}

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// DirectoryFactory opens the user directory. The returned func releases it.
	// Default: a retrying pgx pool behind postgres.UserDirectory.
	DirectoryFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserDirectory, func(), error)

	// MigratorFactory opens a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ReadinessFactory builds the readiness probe for metrics serve.
	// Default: pings the database when one is configured.
	ReadinessFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (observability.ReadinessChecker, func(), error)

	// Serve runs handler on addr until ctx is done.
	// Default: an http.Server shut down on cancellation.
	Serve func(ctx context.Context, addr string, handler http.Handler) error

	// ConfigFileLocator returns the default config file path and whether it exists.
	// Default: xdg.ConfigFile
	ConfigFileLocator func() (string, bool, error)

	// Stdin is read by --password-stdin and non-terminal prompts.
	// Default: os.Stdin
	Stdin io.Reader

	// Now is the clock handed to the token codec.
	// Default: time.Now
	Now func() time.Time
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.DirectoryFactory == nil {
		out.DirectoryFactory = openPostgresDirectory
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) { return store.NewMigrator(url) }
	}
	if out.ReadinessFactory == nil {
		out.ReadinessFactory = databaseReadiness
	}
	if out.Serve == nil {
		out.Serve = serveHTTP
	}
	if out.ConfigFileLocator == nil {
		out.ConfigFileLocator = xdg.ConfigFile
	}
	if out.Stdin == nil {
		out.Stdin = os.Stdin
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

func requireDatabaseURL(cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database.url").
			Errorf("database url is required (--database-url or AUTHCORE_DATABASE__URL)")
	}
	return nil
}

func connectPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := requireDatabaseURL(cfg); err != nil {
		return nil, err
	}
	pool, err := store.Connect(ctx, cfg.Database.URL,
		store.WithConnectAttempts(cfg.Database.ConnectAttempts),
		store.WithConnectBackoff(cfg.Database.ConnectBackoff),
		store.WithConnectLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func openPostgresDirectory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserDirectory, func(), error) {
	pool, err := connectPool(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserDirectory(pool), pool.Close, nil
}

func databaseReadiness(ctx context.Context, cfg *config.Config, logger *slog.Logger) (observability.ReadinessChecker, func(), error) {
	if cfg.Database.URL == "" {
		return nil, func() {}, nil
	}
	pool, err := connectPool(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	check := func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	}
	return check, pool.Close, nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return oops.Code("METRICS_SERVE_FAILED").With("addr", addr).Wrap(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return oops.Code("METRICS_SHUTDOWN_FAILED").Wrap(err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("METRICS_SERVE_FAILED").With("addr", addr).Wrap(err)
		}
		return nil
	}
}

// passwordReader reads secrets either from a terminal without echo or, when
// stdin is not a terminal, line by line.
type passwordReader struct {
	in     io.Reader
	prompt io.Writer
	lines  *bufio.Reader
}

func newPasswordReader(in io.Reader, prompt io.Writer) *passwordReader {
	return &passwordReader{in: in, prompt: prompt}
}

func (r *passwordReader) Read(label string) (string, error) {
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = io.WriteString(r.prompt, label+": ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(r.prompt, "\n")
		if err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return string(b), nil
	}
	return r.ReadLine()
}

// ReadLine returns the next line of input without its line ending.
func (r *passwordReader) ReadLine() (string, error) {
	if r.lines == nil {
		r.lines = bufio.NewReader(r.in)
	}
	line, err := r.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", oops.Code("PASSWORD_READ_FAILED").Errorf("no password on input")
		}
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
