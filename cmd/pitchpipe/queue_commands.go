package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pitchpipe/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work ledger",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ledger items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Campaign", "Title", "Stage", "Size", "Claim Age"},
					buildQueueListRows(items, time.Now()),
					0, 4, 5,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var campaignID string
	var mediaID string
	var mediaTitle string
	var audioURL string
	var sizeBytes int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a campaign/media pairing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if campaignID == "" || mediaID == "" {
				return errors.New("--campaign and --media are required")
			}
			if audioURL == "" {
				return errors.New("--audio-url is required")
			}
			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.NewDiscovery(cmd.Context(), campaignID, mediaID, mediaTitle, audioURL, sizeBytes)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d (%s / %s)\n", item.ID, item.CampaignID, item.MediaID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign identifier")
	cmd.Flags().StringVar(&mediaID, "media", "", "Media identifier")
	cmd.Flags().StringVar(&mediaTitle, "title", "", "Media title")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "Audio payload URL")
	cmd.Flags().Int64Var(&sizeBytes, "size", 0, "Declared payload size in bytes")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove ledger items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case clearCompleted:
					removed, err := store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
				case clearFailed:
					removed, err := store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed items\n", removed)
				default:
					removed, err := store.ClearAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <itemID...>",
		Short: "Reset failed stages of items back to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					item, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if item == nil {
						fmt.Fprintf(out, "Item %d not found\n", id)
						continue
					}
					if !item.Failed() {
						fmt.Fprintf(out, "Item %d has no failed stages\n", id)
						continue
					}
					if err := store.RetryFailed(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Item %d reset for retry\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show ledger health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total: %d\nPending: %d\nClaimed: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Claimed,
					health.Failed,
					health.Completed,
				)

				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Database: %s\nReadable: %s\nIntegrity: %s\n",
					db.DBPath,
					yesNo(db.DatabaseReadable),
					yesNo(db.IntegrityCheck),
				)
				return nil
			})
		},
	}
}
