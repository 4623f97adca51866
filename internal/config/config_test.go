package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"demusic/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("expected memory store default, got %s", cfg.Store.Backend)
	}
	if cfg.Isolation.Provider != "replicate" {
		t.Fatalf("expected replicate provider default, got %s", cfg.Isolation.Provider)
	}
	if cfg.Replicate.TimeoutSeconds != 600 {
		t.Fatalf("expected 600s isolation timeout, got %d", cfg.Replicate.TimeoutSeconds)
	}
	if !cfg.Cleanup.RemoveSourceOnSuccess || !cfg.Cleanup.KeepSourceOnError {
		t.Fatalf("unexpected cleanup defaults: %#v", cfg.Cleanup)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing file to be reported")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7465" {
		t.Fatalf("expected default bind, got %s", cfg.Paths.APIBind)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
input_dir = "` + dir + `/in"
output_dir = "` + dir + `/out"
working_dir = "` + dir + `/work"
log_dir = "` + dir + `/logs"
api_bind = "0.0.0.0:9000"

[store]
backend = "SQLite"

[isolation]
provider = "Demucs"
dry_run = true

[replicate]
api_token = "  r8_secret  "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %s exists=%v", resolved, exists)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("expected normalized backend, got %q", cfg.Store.Backend)
	}
	if cfg.Isolation.Provider != "demucs" || !cfg.Isolation.DryRun {
		t.Fatalf("unexpected isolation settings: %#v", cfg.Isolation)
	}
	if cfg.Replicate.APIToken != "r8_secret" {
		t.Fatalf("expected trimmed token, got %q", cfg.Replicate.APIToken)
	}
	if cfg.Paths.InputDir != filepath.Join(dir, "in") {
		t.Fatalf("expected expanded input dir, got %s", cfg.Paths.InputDir)
	}
}

func TestLoadTokenFromEnvironment(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8_from_env")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Replicate.APIToken != "r8_from_env" {
		t.Fatalf("expected env token fallback, got %q", cfg.Replicate.APIToken)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad store backend",
			content: "[store]\nbackend = \"redis\"\n",
			wantErr: "store.backend",
		},
		{
			name:    "bad provider",
			content: "[isolation]\nprovider = \"local-gpu\"\n",
			wantErr: "isolation.provider",
		},
		{
			name:    "negative timeout",
			content: "[replicate]\ntimeout_seconds = -1\n",
			wantErr: "timeout_seconds",
		},
		{
			name:    "empty ffmpeg",
			content: "[media]\nffmpeg_bin = \" \"\n",
			wantErr: "ffmpeg_bin",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMissingTokenDoesNotFailValidation(t *testing.T) {
	cfg := config.Default()
	cfg.Replicate.APIToken = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("missing token must not fail validation: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(content), "[replicate]") {
		t.Fatalf("sample config missing replicate section:\n%s", content)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "a", "in")
	cfg.Paths.OutputDir = filepath.Join(base, "b", "out")
	cfg.Paths.WorkingDir = filepath.Join(base, "c", "work")
	cfg.Paths.LogDir = filepath.Join(base, "d", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.InputDir, cfg.Paths.OutputDir, cfg.Paths.WorkingDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
