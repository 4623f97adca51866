package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"demusic/internal/config"
	"demusic/internal/deps"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set replicate api_token (or export REPLICATE_API_TOKEN) before running demusicd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, usedDefaults, err := config.Load(strings.TrimSpace(configPath))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if usedDefaults {
				fmt.Fprintln(out, renderStatusLine("Config file", statusWarn, "not found, using defaults", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config file", statusOK, resolvedPath, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Input dir", statusInfo, cfg.Paths.InputDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Output dir", statusInfo, cfg.Paths.OutputDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Store", statusInfo, cfg.Store.Backend, colorize))
			fmt.Fprintln(out, renderStatusLine("Provider", statusInfo, cfg.Isolation.Provider, colorize))
			fmt.Fprintln(out, renderStatusLine("Dry run", statusInfo, yesNo(cfg.Isolation.DryRun), colorize))

			tokenKind := statusOK
			tokenMsg := "set"
			if cfg.Isolation.Provider == "replicate" && strings.TrimSpace(cfg.Replicate.APIToken) == "" {
				tokenKind = statusWarn
				tokenMsg = "missing (set replicate api_token or REPLICATE_API_TOKEN)"
			}
			if cfg.Isolation.Provider == "replicate" || tokenKind == statusWarn {
				fmt.Fprintln(out, renderStatusLine("API token", tokenKind, tokenMsg, colorize))
			}

			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				kind := statusOK
				message := status.Command
				if !status.Available {
					message = status.Detail
					if status.Optional {
						kind = statusInfo
						message += " (optional)"
					} else {
						kind = statusError
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config-file", "f", "", "Configuration file to validate")
	return cmd
}
