package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqlitecache "github.com/askroute/askroute/pkg/cache/sqlite"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openCache(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\nBytes:   %d\nHits:    %d\nMisses:  %d\n",
				stats.Entries, stats.TotalBytes, stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openCache(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := c.Clear(expiredOnly); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Println("Expired cache entries cleared.")
			} else {
				fmt.Println("All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func openCache(configPath string) (*sqlitecache.Cache, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	c, err := sqlitecache.New(cfg.Client.CachePath, cfg.Client.CacheTTL, cfg.Client.CacheMaxBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}
