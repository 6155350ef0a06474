// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/pookietalk/authcore/internal/observability"
)

func newMetricsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Expose authentication metrics and health probes",
	}
	cmd.AddCommand(newMetricsServeCmd(a))
	return cmd
}

func newMetricsServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /metrics and /healthz probes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Metrics.Addr
			}

			ready, release, err := a.deps.ReadinessFactory(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer release()

			registry := observability.NewRegistry()
			observability.NewMetrics(registry)

			a.logger.InfoContext(cmd.Context(), "serving metrics", "addr", addr)
			return a.deps.Serve(cmd.Context(), addr, observability.NewHandler(registry, ready))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: metrics.addr)")
	return cmd
}
