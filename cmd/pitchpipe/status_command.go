package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pitchpipe/internal/preflight"
	"pitchpipe/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("System Status", colorize))
			daemonKind := statusWarn
			daemonDetail := "not running"
			if ctx.daemonRunning() {
				daemonKind = statusOK
				daemonDetail = "running"
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", daemonKind, daemonDetail, colorize))
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Dependencies", colorize))
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				if dep.Available {
					fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
					continue
				}
				kind := statusError
				if dep.Optional {
					kind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine(dep.Name, kind, dep.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Services and Paths", colorize))
			for _, check := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusError
				if check.Passed {
					kind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Queue Status", colorize))
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildStageStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"Stage", "Pending", "Claimed", "Completed", "Failed"},
					rows,
					1, 2, 3, 4,
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}
