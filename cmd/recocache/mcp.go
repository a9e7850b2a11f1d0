package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/explore-jakarta/recocache/pkg/config"
	"github.com/explore-jakarta/recocache/pkg/logger"
	"github.com/explore-jakarta/recocache/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve recommendations as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// stdout carries the protocol.
			log := logger.NewWithWriter(os.Stderr, cfg.Log)

			st, err := buildStack(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var history mcp.History
			if st.tracker != nil {
				history = st.tracker
			}
			srv := mcp.New(st.gateway, history, version, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "recocache.yaml", "path to config file")
	return cmd
}
