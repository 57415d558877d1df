package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/askroute/askroute/pkg/audit"
	"github.com/askroute/askroute/pkg/models"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Query and manage the server-side request log",
	}

	cmd.AddCommand(
		newLogSearchCmd(),
		newLogCleanupCmd(),
	)
	return cmd
}

func newLogSearchCmd() *cobra.Command {
	var (
		configPath string
		category   string
		outcome    string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search request log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openRequestLog(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.LogQueryOpts{
				Category: category,
				Outcome:  outcome,
				Limit:    limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatLogEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (success, all_providers_failed, rate_limited, rejected)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newLogCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete request log entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openRequestLog(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d request log entries.\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func openRequestLog(configPath string) (*audit.Logger, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	l, err := audit.New(cfg.RequestLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open request log db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatLogEntries(entries []models.LogEntry) string {
	if len(entries) == 0 {
		return "No request log entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-20s %-22s %-14s %8s %-20s\n",
		"REQUEST ID", "CATEGORY", "OUTCOME", "PROVIDER", "LATENCY", "TIME")
	b.WriteString(strings.Repeat("-", 114) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-24s %-20s %-22s %-14s %6dms %-20s\n",
			e.RequestID, e.Category, e.Outcome, e.ProviderID,
			e.LatencyMs, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
