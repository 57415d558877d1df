package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askroute/askroute/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "askroute",
		Short:   "askroute — keyword-routed LLM queries with failover, caching, and offline sync",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newSyncCmd(),
		newQueueCmd(),
		newCacheCmd(),
		newLogCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
