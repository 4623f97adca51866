// Package demucs implements local vocal isolation by shelling out to the
// Demucs source separator. It exists as an offline alternative to the remote
// provider and shares the same Isolate contract.
package demucs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"demusic/internal/services"
)

// Config captures the settings for a local Demucs invocation.
type Config struct {
	PythonBin string
	Model     string
}

// Separator invokes `python -m demucs.separate` for one audio file at a time.
type Separator struct {
	pythonBin string
	model     string
}

// NewSeparator constructs a Demucs separator from configuration.
func NewSeparator(cfg Config) *Separator {
	pythonBin := strings.TrimSpace(cfg.PythonBin)
	if pythonBin == "" {
		pythonBin = "python3"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "htdemucs"
	}
	return &Separator{pythonBin: pythonBin, model: model}
}

// Name identifies the provider in logs and status output.
func (s *Separator) Name() string { return "demucs" }

// Isolate runs Demucs over the audio file and returns the path of the
// isolated stem. Demucs writes results under <out>/<model>/<input-stem>/, so
// the separator points it at a sibling directory of the input and picks the
// requested stem file out of that layout.
func (s *Separator) Isolate(ctx context.Context, audioPath, stem string) (string, error) {
	outRoot := filepath.Join(filepath.Dir(audioPath), "demucs")
	if err := os.MkdirAll(outRoot, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "isolate", "demucs", err.Error(), nil)
	}

	args := []string{
		"-m", "demucs.separate",
		"-n", s.model,
		"--two-stems", stem,
		"--out", outRoot,
		audioPath,
	}
	cmd := exec.CommandContext(ctx, s.pythonBin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := fmt.Sprintf("%s: %s", err, lastLines(output))
		return "", services.Wrap(services.ErrExternalTool, "isolate", "demucs", detail, nil)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	resultPath := filepath.Join(outRoot, s.model, base, stem+".wav")
	if _, err := os.Stat(resultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrExternalTool, "isolate", "demucs",
				fmt.Sprintf("expected stem file missing at %s", resultPath), nil)
		}
		return "", services.Wrap(services.ErrExternalTool, "isolate", "demucs", err.Error(), nil)
	}
	return resultPath, nil
}

func lastLines(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "(no output)"
	}
	lines := strings.Split(text, "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
