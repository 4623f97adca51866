package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
//
// A missing Replicate token deliberately does not fail validation: the token is
// only required once a job reaches the isolate stage, and dry-run or demucs
// deployments never need one. The pipeline surfaces the configuration error on
// the job instead.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateIsolation(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	for name, dir := range map[string]string{
		"paths.input_dir":   c.Paths.InputDir,
		"paths.output_dir":  c.Paths.OutputDir,
		"paths.working_dir": c.Paths.WorkingDir,
		"paths.log_dir":     c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "", "memory", "sqlite":
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (expected memory or sqlite)", c.Store.Backend)
	}
}

func (c *Config) validateIsolation() error {
	switch c.Isolation.Provider {
	case "", "replicate", "demucs":
	default:
		return fmt.Errorf("isolation.provider: unsupported value %q (expected replicate or demucs)", c.Isolation.Provider)
	}
	if c.Replicate.TimeoutSeconds < 0 {
		return errors.New("replicate.timeout_seconds must not be negative")
	}
	if c.Replicate.PollIntervalSeconds < 0 {
		return errors.New("replicate.poll_interval_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if strings.TrimSpace(c.Media.FFmpegBin) == "" {
		return errors.New("media.ffmpeg_bin must be set")
	}
	if strings.TrimSpace(c.Media.FFprobeBin) == "" {
		return errors.New("media.ffprobe_bin must be set")
	}
	if c.Media.TimeoutSeconds < 0 {
		return errors.New("media.timeout_seconds must not be negative")
	}
	return nil
}
