package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askroute/askroute/pkg/audit"
	"github.com/askroute/askroute/pkg/provider"
	"github.com/askroute/askroute/pkg/router"
	"github.com/askroute/askroute/pkg/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the query routing server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			adapters := make(map[string]provider.Adapter, len(cfg.Providers))
			for _, pc := range cfg.Providers {
				a, err := provider.New(pc, cfg.CallTimeout)
				if err != nil {
					return fmt.Errorf("init provider %q: %w", pc.ID, err)
				}
				adapters[pc.ID] = a
			}

			var reqlog *audit.Logger
			if cfg.RequestLog.Enabled {
				reqlog, err = audit.New(cfg.RequestLog)
				if err != nil {
					return fmt.Errorf("init request log: %w", err)
				}
				defer func() { _ = reqlog.Close() }()
			}

			rt := router.New(cfg, adapters, logger)
			srv := server.New(cfg, rt, reqlog, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "askroute.yaml", "path to config file")
	return cmd
}
