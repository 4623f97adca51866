package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"demusic/internal/config"
)

// SQLiteStore persists jobs in SQLite so they survive daemon restarts. It
// implements the same contract as MemoryStore and is selected with
// store.backend = "sqlite".
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const jobColumns = `id, source_path, original_filename, status, progress, error_message, output_file, created_at, updated_at`

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    source_path TEXT,
    original_filename TEXT,
    status TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    output_file TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

// OpenSQLite initializes or connects to the job database in the log directory.
func OpenSQLite(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewJob creates a pending job for the given upload.
func (s *SQLiteStore) NewJob(ctx context.Context, sourcePath, originalFilename string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:               uuid.NewString(),
		SourcePath:       sourcePath,
		OriginalFilename: originalFilename,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		nullableString(job.SourcePath),
		nullableString(job.OriginalFilename),
		string(job.Status),
		job.Progress,
		nullableString(job.ErrorMessage),
		nullableString(job.OutputFile),
		job.CreatedAt.Format(time.RFC3339Nano),
		job.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID returns a snapshot of the job or ErrNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists the whole job record, enforcing the shared transition rules.
func (s *SQLiteStore) Update(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	current, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := checkTransition(current, job); err != nil {
		return err
	}

	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET source_path = ?, original_filename = ?, status = ?, progress = ?,
             error_message = ?, output_file = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(job.SourcePath),
		nullableString(job.OriginalFilename),
		string(job.Status),
		job.Progress,
		nullableString(job.ErrorMessage),
		nullableString(job.OutputFile),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns job snapshots filtered by status, ordered by creation time.
func (s *SQLiteStore) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// HealthSummary aggregates job counts per lifecycle state.
func (s *SQLiteStore) HealthSummary(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("summarize jobs: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan summary: %w", err)
		}
		for i := 0; i < count; i++ {
			summary.count(Status(status))
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job          Job
		sourcePath   sql.NullString
		originalName sql.NullString
		status       string
		errorMessage sql.NullString
		outputFile   sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(&job.ID, &sourcePath, &originalName, &status, &job.Progress, &errorMessage, &outputFile, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	job.SourcePath = sourcePath.String
	job.OriginalFilename = originalName.String
	job.Status = Status(status)
	job.ErrorMessage = errorMessage.String
	job.OutputFile = outputFile.String

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
