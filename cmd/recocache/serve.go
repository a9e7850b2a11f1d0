package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/explore-jakarta/recocache/pkg/config"
	"github.com/explore-jakarta/recocache/pkg/logger"
	"github.com/explore-jakarta/recocache/pkg/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recommendation gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if listen != "" {
				cfg.Listen = listen
			}

			log := logger.New(cfg.Log)

			st, err := buildStack(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var history server.History
			if st.tracker != nil {
				history = st.tracker
			}
			srv := server.New(cfg.Listen, st.gateway, st.upstream, history, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("starting recocache",
				"config", configPath,
				"upstream", cfg.Upstream.BaseURL,
				"dedupe_inflight", cfg.Cache.DedupeInflight,
				"tracker", cfg.Tracker.Enabled,
			)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "recocache.yaml", "path to config file")
	cmd.Flags().StringVar(&listen, "listen", "", "override listen address")
	return cmd
}
