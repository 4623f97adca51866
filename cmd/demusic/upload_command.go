package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const waitPollInterval = 2 * time.Second

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "upload <video-file>",
		Short: "Submit a video for background music removal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			result, err := client.upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !wait {
				if jsonOut {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Accepted job %s\n", result.JobID)
				fmt.Fprintf(out, "Poll it with `demusic jobs show %s`\n", result.JobID)
				return nil
			}

			job, err := pollUntilDone(cmd, client, result.JobID)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			out := cmd.OutOrStdout()
			if job.Status == "error" {
				return fmt.Errorf("job %s failed: %s", job.ID, job.ErrorMessage)
			}
			fmt.Fprintf(out, "Job %s complete: %s\n", job.ID, job.OutputFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func pollUntilDone(cmd *cobra.Command, client *apiClient, jobID string) (jobView, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := client.job(cmd.Context(), jobID)
		if err != nil {
			return jobView{}, err
		}
		if job.Status == "complete" || job.Status == "error" {
			return job, nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s %d%%\n", job.Status, job.Progress)

		select {
		case <-cmd.Context().Done():
			return jobView{}, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}
