package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			daemonKind := statusOK
			daemonMsg := fmt.Sprintf("pid %d, up %s", status.PID, formatUptime(status.UptimeSecs))
			if !status.Running {
				daemonKind = statusError
				daemonMsg = "not running"
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, daemonMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Job store", statusInfo, status.StoreBackend, colorize))

			jobsKind := statusInfo
			if status.Jobs.Errored > 0 {
				jobsKind = statusWarn
			}
			jobsMsg := fmt.Sprintf("%d total (%d pending, %d processing, %d complete, %d errored)",
				status.Jobs.Total, status.Jobs.Pending, status.Jobs.Processing, status.Jobs.Complete, status.Jobs.Errored)
			fmt.Fprintln(out, renderStatusLine("Jobs", jobsKind, jobsMsg, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func formatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return (time.Duration(seconds) * time.Second).String()
}
