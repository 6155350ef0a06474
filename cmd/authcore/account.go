// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/pookietalk/authcore/internal/auth"
)

// outcomeView is the printed form of an auth.Outcome.
type outcomeView struct {
	UserID   string `yaml:"user_id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Token    string `yaml:"token"`
}

func viewOutcome(o *auth.Outcome) outcomeView {
	return outcomeView{
		UserID:   o.UserID.String(),
		Username: o.Username,
		Email:    o.Email,
		Role:     string(o.Role),
		Token:    o.Token,
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		reg           auth.Registration
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account and print its first token",
		Long: `Create a USER account. The password is prompted for twice, or read from
standard input with --password-stdin (one line, optionally followed by a
confirmation line).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pr := newPasswordReader(a.deps.Stdin, cmd.ErrOrStderr())
			var err error
			if passwordStdin {
				if reg.Password, err = pr.ReadLine(); err != nil {
					return err
				}
				if reg.ConfirmPassword, err = pr.ReadLine(); err != nil {
					reg.ConfirmPassword = reg.Password
				}
			} else {
				if reg.Password, err = pr.Read("Password"); err != nil {
					return err
				}
				if reg.ConfirmPassword, err = pr.Read("Confirm password"); err != nil {
					return err
				}
			}

			svc, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			outcome, err := svc.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			return printYAML(cmd, viewOutcome(outcome))
		},
	}
	cmd.Flags().StringVar(&reg.Username, "username", "", "account username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email address")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from standard input")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a username and password and print a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pr := newPasswordReader(a.deps.Stdin, cmd.ErrOrStderr())
			var (
				password string
				err      error
			)
			if passwordStdin {
				password, err = pr.ReadLine()
			} else {
				password, err = pr.Read("Password")
			}
			if err != nil {
				return err
			}

			svc, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			outcome, err := svc.Authenticate(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			return printYAML(cmd, viewOutcome(outcome))
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from standard input")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
