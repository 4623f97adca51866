package jobs

import (
	"context"
	"fmt"

	"demusic/internal/config"
)

// Store is the single source of truth for job lifecycle state. It is read
// concurrently by the HTTP layer and written by exactly one pipeline runner
// per job; implementations must apply updates as whole records so readers
// never observe a partially written job.
type Store interface {
	// NewJob creates a pending job for the given upload and returns it.
	NewJob(ctx context.Context, sourcePath, originalFilename string) (*Job, error)
	// GetByID returns a snapshot of the job or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Job, error)
	// Update persists the whole job record. Updates to jobs that already
	// reached a terminal state fail with ErrTerminal, and progress may
	// never decrease.
	Update(ctx context.Context, job *Job) error
	// List returns snapshots filtered by status (or all jobs), ordered by
	// creation time.
	List(ctx context.Context, statuses ...Status) ([]*Job, error)
	// HealthSummary aggregates job counts per lifecycle state.
	HealthSummary(ctx context.Context) (HealthSummary, error)
	Close() error
}

// Open constructs the store backend selected by configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// checkTransition enforces the shared update invariants against the currently
// stored record.
func checkTransition(current, next *Job) error {
	if current.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, current.ID, current.Status)
	}
	if next.Progress < current.Progress {
		return fmt.Errorf("progress may not decrease (%d -> %d)", current.Progress, next.Progress)
	}
	return nil
}
