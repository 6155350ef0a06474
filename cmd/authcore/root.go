// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pookietalk/authcore/internal/auth"
	"github.com/pookietalk/authcore/internal/config"
	"github.com/pookietalk/authcore/internal/logging"
	"github.com/pookietalk/authcore/internal/token"
)

// app carries what every subcommand needs once the configuration is loaded.
type app struct {
	deps       *Deps
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the authcore CLI. A nil deps uses
// the default implementations.
func NewRootCmd(deps *Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "PookieTalk credential and session-token administration",
		Long: `authcore registers and authenticates PookieTalk users, issues and
checks their session tokens, and manages the users schema.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newTokenCmd(a))
	cmd.AddCommand(newHashCmd(a))
	cmd.AddCommand(newMetricsCmd(a))

	return cmd
}

// load reads the configuration and sets up logging.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	file := a.configFile
	if file == "" {
		path, exists, err := a.deps.ConfigFileLocator()
		if err != nil {
			return err
		}
		if exists {
			file = path
		}
	}

	cfg, err := config.Load(config.LoadOptions{File: file, Flags: cmd.Root().PersistentFlags()})
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.Setup("authcore", version, cfg.Log.Format, level, cmd.ErrOrStderr())
	return nil
}

func (a *app) codec() (*token.Codec, error) {
	key, err := a.cfg.Auth.Key()
	if err != nil {
		return nil, err
	}
	opts := []token.Option{
		token.WithRefreshWindow(a.cfg.Auth.RefreshWindow),
		token.WithClock(a.deps.Now),
		token.WithLogger(a.logger),
	}
	if a.cfg.Auth.Issuer != "" {
		opts = append(opts, token.WithIssuer(a.cfg.Auth.Issuer))
	}
	return token.NewCodec(key, a.cfg.Auth.TokenTTL, opts...)
}

// service wires an auth.Service to the configured directory. The returned
// func releases the directory.
func (a *app) service(ctx context.Context) (*auth.Service, func(), error) {
	codec, err := a.codec()
	if err != nil {
		return nil, nil, err
	}
	hasher, err := auth.NewBcryptHasher(a.cfg.Auth.HashCost)
	if err != nil {
		return nil, nil, err
	}
	users, release, err := a.deps.DirectoryFactory(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := auth.NewService(users, hasher, codec,
		auth.WithLogger(a.logger),
		auth.WithTokenTTL(a.cfg.Auth.TokenTTL),
		auth.WithHashConcurrency(a.cfg.Auth.HashConcurrency),
	)
	if err != nil {
		release()
		return nil, nil, err
	}
	return svc, release, nil
}

func printYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return enc.Close()
}

// errorMessage renders err for the terminal. Caller-caused failures use the
// same safe text an end user would see.
func errorMessage(err error) string {
	for _, target := range []error{
		auth.ErrInvalidCredentials,
		auth.ErrUsernameTaken,
		auth.ErrEmailTaken,
		auth.ErrPasswordMismatch,
		auth.ErrInvalidUsername,
		auth.ErrInvalidEmail,
		auth.ErrEmptyPassword,
		auth.ErrPasswordTooLong,
		token.ErrExpired,
		token.ErrMalformed,
		token.ErrInvalidSignature,
		token.ErrUnrefreshable,
	} {
		if errors.Is(err, target) {
			return auth.PublicMessage(err)
		}
	}
	return err.Error()
}
