package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	InputDir   string `toml:"input_dir"`
	OutputDir  string `toml:"output_dir"`
	WorkingDir string `toml:"working_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Store selects the job store backend.
type Store struct {
	Backend string `toml:"backend"` // "memory" (default) or "sqlite"
}

// Isolation selects the vocal isolation provider and its mode.
type Isolation struct {
	Provider string `toml:"provider"` // "replicate" (default) or "demucs"
	// DryRun skips the isolation call entirely and muxes the extracted
	// audio back unchanged. Used to exercise the split/merge path without
	// touching the external service.
	DryRun bool `toml:"dry_run"`
}

// Replicate contains configuration for the remote vocal isolation service.
type Replicate struct {
	APIToken            string `toml:"api_token"`
	Model               string `toml:"model"`
	BaseURL             string `toml:"base_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// Demucs contains configuration for local vocal isolation.
type Demucs struct {
	PythonBin string `toml:"python_bin"`
	Model     string `toml:"model"`
}

// Media contains configuration for the ffmpeg toolchain.
type Media struct {
	FFmpegBin      string `toml:"ffmpeg_bin"`
	FFprobeBin     string `toml:"ffprobe_bin"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Cleanup controls retention of job inputs and scratch space.
type Cleanup struct {
	RemoveSourceOnSuccess bool `toml:"remove_source_on_success"`
	KeepSourceOnError     bool `toml:"keep_source_on_error"`
	// KeepWorkspace preserves per-job scratch directories for debugging.
	KeepWorkspace bool `toml:"keep_workspace"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for demusic.
//
// Configuration sections by subsystem:
//   - Paths: input/output/working/log directories and API bind address
//   - Store: job store backend selection
//   - Isolation: vocal isolation provider and dry-run mode
//   - Replicate: remote inference service connection settings
//   - Demucs: local isolation fallback settings
//   - Media: ffmpeg/ffprobe binaries and invocation timeout
//   - Cleanup: source and workspace retention policy
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Store     Store     `toml:"store"`
	Isolation Isolation `toml:"isolation"`
	Replicate Replicate `toml:"replicate"`
	Demucs    Demucs    `toml:"demucs"`
	Media     Media     `toml:"media"`
	Cleanup   Cleanup   `toml:"cleanup"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/demusic/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories demusic relies on at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InputDir, c.Paths.OutputDir, c.Paths.WorkingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	fields := []*string{
		&c.Paths.InputDir,
		&c.Paths.OutputDir,
		&c.Paths.WorkingDir,
		&c.Paths.LogDir,
	}
	for _, field := range fields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Isolation.Provider = strings.ToLower(strings.TrimSpace(c.Isolation.Provider))
	c.Replicate.APIToken = strings.TrimSpace(c.Replicate.APIToken)
	if c.Replicate.APIToken == "" {
		c.Replicate.APIToken = strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN"))
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
