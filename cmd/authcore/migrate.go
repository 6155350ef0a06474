// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the users schema",
		Long:  `Apply, roll back or inspect the embedded users schema migrations.`,
	}
	cmd.AddCommand(newMigrateUpCmd(a))
	cmd.AddCommand(newMigrateDownCmd(a))
	cmd.AddCommand(newMigrateVersionCmd(a))
	return cmd
}

// withMigrator opens a migrator for the configured database and closes it
// after fn returns.
func (a *app) withMigrator(fn func(Migrator) error) (err error) {
	if err := requireDatabaseURL(a.cfg); err != nil {
		return err
	}
	m, err := a.deps.MigratorFactory(a.cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func newMigrateUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				if len(st.Pending) == 0 {
					cmd.Printf("Schema is up to date at version %d\n", st.Version)
					return nil
				}
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Printf("Applied %d migration(s)\n", len(st.Pending))
				return nil
			})
		},
	}
}

func newMigrateDownCmd(a *app) *cobra.Command {
	var (
		steps int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the given number of migrations, or every migration with --all.
Rolling back the first migration drops the users table and all accounts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (steps > 0) {
				return oops.Code("INVALID_ARGUMENT").Errorf("specify exactly one of --steps N or --all")
			}
			return a.withMigrator(func(m Migrator) error {
				if all {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("Rolled back all migrations")
					return nil
				}
				if err := m.Steps(-steps); err != nil {
					return err
				}
				cmd.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"status"},
		Short:   "Show the applied schema version",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				view := struct {
					Version uint   `yaml:"version"`
					Name    string `yaml:"name,omitempty"`
					Dirty   bool   `yaml:"dirty"`
					Pending []uint `yaml:"pending,flow"`
				}{st.Version, st.Name, st.Dirty, st.Pending}
				return printYAML(cmd, view)
			})
		},
	}
}
