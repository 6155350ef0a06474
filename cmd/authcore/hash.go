// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pookietalk/authcore/internal/auth"
)

func newHashCmd(a *app) *cobra.Command {
	var (
		cost          int
		check         string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password, or check one against an existing hash",
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

			if cost == 0 {
				cost = a.cfg.Auth.HashCost
			}
			hasher, err := auth.NewBcryptHasher(cost)
			if err != nil {
				return err
			}

			if check != "" {
				stored, err := auth.HashCost(check)
				if err != nil {
					return err
				}
				if !hasher.Verify(password, check) {
					return oops.Code("HASH_MISMATCH").Errorf("password does not match hash")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "match")
				if stored != hasher.Cost() {
					fmt.Fprintf(cmd.ErrOrStderr(), "note: hash cost %d differs from configured cost %d\n", stored, hasher.Cost())
				}
				return nil
			}

			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (default: configured hash cost)")
	cmd.Flags().StringVar(&check, "check", "", "compare the password with this hash instead of hashing")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from standard input")
	return cmd
}
