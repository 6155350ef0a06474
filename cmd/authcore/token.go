// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pookietalk/authcore/internal/token"
)

// claimsView is the printed form of verified token claims.
type claimsView struct {
	Subject   string         `yaml:"subject"`
	IssuedAt  string         `yaml:"issued_at"`
	ExpiresAt string         `yaml:"expires_at"`
	Claims    map[string]any `yaml:"claims,omitempty"`
}

func viewClaims(c *token.Claims) claimsView {
	return claimsView{
		Subject:   c.Subject,
		IssuedAt:  c.IssuedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt: c.ExpiresAt.UTC().Format(time.RFC3339Nano),
		Claims:    c.Extra,
	}
}

// rawToken accepts either a bare token or an Authorization header value.
func rawToken(arg string) (string, error) {
	if strings.Contains(arg, " ") {
		return token.FromAuthorizationHeader(arg)
	}
	return arg, nil
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue, verify and refresh session tokens",
	}
	cmd.AddCommand(newTokenVerifyCmd(a))
	cmd.AddCommand(newTokenRefreshCmd(a))
	cmd.AddCommand(newTokenIssueCmd(a))
	cmd.AddCommand(newTokenIdentifyCmd(a))
	return cmd
}

func newTokenVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Check a token's signature and expiry and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rawToken(args[0])
			if err != nil {
				return err
			}
			codec, err := a.codec()
			if err != nil {
				return err
			}
			claims, err := codec.Verify(raw)
			if err != nil {
				return err
			}
			return printYAML(cmd, viewClaims(claims))
		},
	}
}

func newTokenRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh TOKEN",
		Short: "Re-issue an authentic token, even if expired, with a new expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rawToken(args[0])
			if err != nil {
				return err
			}
			codec, err := a.codec()
			if err != nil {
				return err
			}
			refreshed, err := codec.Refresh(raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), refreshed)
			return nil
		},
	}
}

func newTokenIssueCmd(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		claims  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for a subject without checking any account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := a.codec()
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = codec.TTL()
			}
			if ttl < 0 {
				return oops.Code("INVALID_ARGUMENT").With("ttl", ttl.String()).Errorf("ttl must be positive")
			}
			extra := make(map[string]any, len(claims))
			for k, v := range claims {
				extra[k] = v
			}
			signed, err := codec.Issue(subject, ttl, extra)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (username)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: configured token ttl)")
	cmd.Flags().StringToStringVar(&claims, "claim", nil, "extra claim as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newTokenIdentifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identify TOKEN",
		Short: "Verify a token and print the account it belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rawToken(args[0])
			if err != nil {
				return err
			}
			svc, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			cred, err := svc.Identify(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return printYAML(cmd, struct {
				UserID    string `yaml:"user_id"`
				Username  string `yaml:"username"`
				Email     string `yaml:"email"`
				Role      string `yaml:"role"`
				CreatedAt string `yaml:"created_at"`
			}{
				cred.ID.String(),
				cred.Username,
				cred.Email,
				string(cred.Role),
				cred.CreatedAt.UTC().Format(time.RFC3339),
			})
		},
	}
}
