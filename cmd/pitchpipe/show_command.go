package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pitchpipe/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show full detail for one ledger item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}

			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %d\n", item.ID)
				fmt.Fprintf(out, "  Campaign:   %s\n", item.CampaignID)
				fmt.Fprintf(out, "  Media:      %s\n", item.MediaID)
				fmt.Fprintf(out, "  Title:      %s\n", item.MediaTitle)
				fmt.Fprintf(out, "  Audio URL:  %s\n", item.AudioURL)
				fmt.Fprintf(out, "  Size:       %s\n", itemSizeLabel(item))
				fmt.Fprintf(out, "  Created:    %s\n", item.CreatedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "  Updated:    %s\n", item.UpdatedAt.Format(time.RFC3339))
				fmt.Fprintln(out)

				table := renderTable(
					[]string{"Stage", "Status", "Attempts", "Retry At", "Error"},
					buildStageRows(item),
					2,
				)
				fmt.Fprintln(out, table)

				printArtifacts(out, item)
				return nil
			})
		},
	}
}

func buildStageRows(item *queue.Item) [][]string {
	rows := make([][]string, 0, len(queue.Stages()))
	for _, stg := range queue.Stages() {
		st := item.State(stg)
		retryAt := "-"
		if st.RetryAt != nil {
			retryAt = st.RetryAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			string(stg),
			string(st.Status),
			strconv.Itoa(st.Attempts),
			retryAt,
			truncateTitle(st.LastError, 60),
		})
	}
	return rows
}

func printArtifacts(out io.Writer, item *queue.Item) {
	if item.TranscriptPath != "" {
		fmt.Fprintf(out, "Transcript: %s\n", item.TranscriptPath)
	}
	if item.VettingJSON != "" {
		fmt.Fprintf(out, "Vetting score: %.2f\n", item.VettingScore)
	}
	if item.MatchNotes != "" {
		fmt.Fprintf(out, "Match notes:\n%s\n", indent(item.MatchNotes))
	}
	if item.PitchDraft != "" {
		fmt.Fprintf(out, "Pitch draft:\n%s\n", indent(item.PitchDraft))
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
