package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	videosCmd := &cobra.Command{
		Use:   "videos",
		Short: "Manage processed videos",
	}

	videosCmd.AddCommand(newVideosListCommand(ctx))
	videosCmd.AddCommand(newVideosShowCommand(ctx))
	videosCmd.AddCommand(newVideosDeleteCommand(ctx))

	return videosCmd
}

func newVideosListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processed videos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := ctx.client().videos(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, videos)
			}

			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "No processed videos.")
				return nil
			}

			rows := make([][]string, 0, len(videos))
			for _, video := range videos {
				rows = append(rows, []string{
					video.DisplayName,
					video.Filename,
					formatSize(video.SizeBytes),
					formatTimestamp(video.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"NAME", "FILE", "SIZE", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newVideosShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <filename>",
		Short: "Show one processed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := ctx.client().video(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, video)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", video.DisplayName)
			fmt.Fprintf(out, "  File:     %s\n", video.Filename)
			fmt.Fprintf(out, "  Size:     %s\n", formatSize(video.SizeBytes))
			fmt.Fprintf(out, "  Created:  %s\n", formatTimestamp(video.CreatedAt))
			fmt.Fprintf(out, "  Stream:   %s\n", video.StreamURL)
			fmt.Fprintf(out, "  Download: %s\n", video.DownloadURL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newVideosDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete a processed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().deleteVideo(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
