package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sqlitecache "github.com/askroute/askroute/pkg/cache/sqlite"
	"github.com/askroute/askroute/pkg/client"
	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/queue"
)

func newAskCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a question (cache first, then the server, queued if offline)",
		Args:  cobra.ExactArgs(1),
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

			c := client.New(cfg.Client, cache, store, nil)
			res, err := c.Ask(context.Background(), args[0])
			if err != nil {
				return err
			}

			switch res.Source {
			case client.SourceQueued:
				fmt.Printf("Server unreachable. Query saved to the offline queue (id %d); run `askroute sync` when back online.\n", res.QueueID)
			case client.SourceCache:
				fmt.Printf("%s\n\n(cached; provider %s, category %s)\n",
					res.Result.Text, res.Result.ProviderID, res.Result.Category)
			default:
				fmt.Printf("%s\n\n(provider %s, category %s)\n",
					res.Result.Text, res.Result.ProviderID, res.Result.Category)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func openClientStores(cfg config.ClientConfig) (*sqlitecache.Cache, *queue.Store, func(), error) {
	cache, err := sqlitecache.New(cfg.CachePath, cfg.CacheTTL, cfg.CacheMaxBytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open cache: %w", err)
	}

	store, err := queue.New(cfg.QueuePath)
	if err != nil {
		_ = cache.Close()
		return nil, nil, nil, fmt.Errorf("open queue: %w", err)
	}

	cleanup := func() {
		_ = store.Close()
		_ = cache.Close()
	}
	return cache, store, cleanup, nil
}
