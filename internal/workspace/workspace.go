// Package workspace allocates and tears down per-job scratch directories
// under the configured working root.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"demusic/internal/logging"
)

// Manager creates private scratch directories for pipeline jobs. Directories
// are never shared across jobs.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager constructs a workspace manager rooted at the working directory.
func NewManager(root string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   root,
		logger: logging.NewComponentLogger(logger, "workspace"),
	}
}

// Handle references one job's scratch directory. Release is safe to call any
// number of times, including after a partially failed Acquire.
type Handle struct {
	path   string
	logger *slog.Logger

	once     sync.Once
	released bool
}

// Acquire creates a unique scratch directory for the job.
func (m *Manager) Acquire(jobID string) (*Handle, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, errors.New("workspace acquire: empty job id")
	}
	path := filepath.Join(m.root, "job_"+jobID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("workspace acquire: %w", err)
	}
	return &Handle{path: path, logger: m.logger}, nil
}

// Path returns the scratch directory location.
func (h *Handle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Release removes the scratch directory recursively. Cleanup is best-effort:
// removal failures are logged and swallowed so they never mask the pipeline
// outcome, and releasing an already-removed directory is a no-op.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.released = true
		if h.path == "" {
			return
		}
		if _, err := os.Stat(h.path); errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err := os.RemoveAll(h.path); err != nil {
			if h.logger != nil {
				h.logger.Warn("workspace cleanup failed",
					logging.String("path", h.path),
					logging.Error(err),
				)
			}
			return
		}
		if h.logger != nil {
			h.logger.Debug("workspace removed", logging.String("path", h.path))
		}
	})
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	if h == nil {
		return true
	}
	return h.released
}
