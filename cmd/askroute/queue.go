package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/askroute/askroute/pkg/models"
	"github.com/askroute/askroute/pkg/queue"
)

func newQueueCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline query queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queued queries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openQueue(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := store.List(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatQueueItems(items))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every queue item, pending and synced",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openQueue(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("Queue cleared.")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func openQueue(configPath string) (*queue.Store, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := queue.New(cfg.Client.QueuePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open queue: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func formatQueueItems(items []models.QueueItem) string {
	if len(items) == 0 {
		return "Queue is empty.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%6s %-8s %-20s %s\n", "ID", "STATUS", "ENQUEUED", "QUERY")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, it := range items {
		q := it.QueryText
		if len(q) > 40 {
			q = q[:37] + "..."
		}
		fmt.Fprintf(&b, "%6d %-8s %-20s %s\n",
			it.ID, it.Status, it.EnqueuedAt.Format(time.DateTime), q)
	}
	return b.String()
}
