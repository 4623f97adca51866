package main

import (
	"demusic/internal/config"
	"demusic/internal/pipeline"
	"demusic/internal/services/demucs"
	"demusic/internal/services/replicate"
)

// buildIsolator selects the vocal isolation provider from configuration.
// Replicate is the default; demucs runs locally and needs no API token.
func buildIsolator(cfg *config.Config) pipeline.Isolator {
	if cfg != nil && cfg.Isolation.Provider == "demucs" {
		return demucs.NewSeparator(demucs.Config{
			PythonBin: cfg.Demucs.PythonBin,
			Model:     cfg.Demucs.Model,
		})
	}
	return replicate.NewClient(replicate.Config{
		APIToken:            cfg.Replicate.APIToken,
		Model:               cfg.Replicate.Model,
		BaseURL:             cfg.Replicate.BaseURL,
		TimeoutSeconds:      cfg.Replicate.TimeoutSeconds,
		PollIntervalSeconds: cfg.Replicate.PollIntervalSeconds,
	})
}
