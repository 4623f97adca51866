// Package deps reports the availability of the external binaries the
// pipeline shells out to, so operators see missing tools before a job fails.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"demusic/internal/config"
)

// Requirement defines an external binary demusic relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the binary checklist from configuration. ffmpeg and
// ffprobe are always required; the demucs python interpreter only matters for
// local isolation and is reported as optional otherwise.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Media.FFmpegBin, Description: "Splits and remuxes audio/video streams"},
		{Name: "FFprobe", Command: cfg.Media.FFprobeBin, Description: "Inspects media containers"},
		{
			Name:        "Python (demucs)",
			Command:     cfg.Demucs.PythonBin,
			Description: "Runs local vocal isolation",
			Optional:    cfg.Isolation.Provider != "demucs",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired filters the statuses down to unavailable required binaries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status)
		}
	}
	return missing
}
