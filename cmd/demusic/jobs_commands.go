package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect processing jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.client().jobs(cmd.Context(), statusFilter)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs.")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					shortID(job.ID),
					job.Status,
					strconv.Itoa(job.Progress) + "%",
					job.OriginalFilename,
					formatTimestamp(job.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "STATUS", "PROGRESS", "FILE", "UPDATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, processing, complete, error)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s\n", job.ID)
			fmt.Fprintf(out, "  Status:   %s (%d%%)\n", job.Status, job.Progress)
			fmt.Fprintf(out, "  File:     %s\n", job.OriginalFilename)
			if job.OutputFile != "" {
				fmt.Fprintf(out, "  Output:   %s\n", job.OutputFile)
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:    %s\n", job.ErrorMessage)
			}
			fmt.Fprintf(out, "  Created:  %s\n", formatTimestamp(job.CreatedAt))
			fmt.Fprintf(out, "  Updated:  %s\n", formatTimestamp(job.UpdatedAt))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(value string) string {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
