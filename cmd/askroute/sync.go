package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askroute/askroute/pkg/client"
)

func newSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Send all pending offline queries to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cache, store, cleanup, err := openClientStores(cfg.Client)
			if err != nil {
				return err
			}
			defer cleanup()

			m := client.NewSyncManager(cfg.Client, cache, store, nil)
			stats, err := m.Sync(context.Background())
			if err != nil {
				return err
			}

			if stats.Sent == 0 {
				fmt.Println("Nothing to sync.")
				return nil
			}
			fmt.Printf("Sent:      %d\nSynced:    %d\nFailed:    %d\nRemaining: %d\n",
				stats.Sent, stats.Synced, stats.Failed, stats.Remaining)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
