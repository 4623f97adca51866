package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a processing job.
type Status string

const (
	StatusPending Status = "pending"
	// StatusDownloading is reserved for a future remote-fetch source and has
	// no producer today.
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusProcessing,
	StatusComplete,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ErrNotFound is returned when a job id is unknown to the store.
var ErrNotFound = errors.New("job not found")

// ErrTerminal is returned when an update targets a job that already reached
// Complete or Error.
var ErrTerminal = errors.New("job already terminal")

// Job represents one video-processing request tracked through the pipeline.
type Job struct {
	ID               string
	SourcePath       string
	OriginalFilename string
	Status           Status
	Progress         int
	ErrorMessage     string
	OutputFile       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the job reached a final state.
func (j Job) IsTerminal() bool {
	return j.Status == StatusComplete || j.Status == StatusError
}

// Clone returns an independent copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

// SetProcessing marks the job in-flight at the given progress marker.
func (j *Job) SetProcessing(progress int) {
	j.Status = StatusProcessing
	if progress > j.Progress {
		j.Progress = progress
	}
}

// SetComplete marks the job finished with the named output artifact.
func (j *Job) SetComplete(outputFile string) {
	j.Status = StatusComplete
	j.Progress = 100
	j.OutputFile = outputFile
	j.ErrorMessage = ""
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusError
	j.Progress = 100
	j.ErrorMessage = message
	j.OutputFile = ""
}

// Validate enforces the record-level invariants every store update must hold.
func (j *Job) Validate() error {
	if j == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is empty")
	}
	if _, ok := statusSet[j.Status]; !ok {
		return fmt.Errorf("unknown status %q", j.Status)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("progress %d out of range", j.Progress)
	}
	switch j.Status {
	case StatusComplete:
		if j.OutputFile == "" {
			return errors.New("complete job missing output file")
		}
		if j.ErrorMessage != "" {
			return errors.New("complete job carries an error message")
		}
	case StatusError:
		if j.ErrorMessage == "" {
			return errors.New("errored job missing error message")
		}
		if j.OutputFile != "" {
			return errors.New("errored job carries an output file")
		}
	default:
		if j.OutputFile != "" || j.ErrorMessage != "" {
			return fmt.Errorf("non-terminal job %s carries terminal fields", j.Status)
		}
		if j.Progress == 100 {
			return errors.New("progress 100 requires a terminal status")
		}
	}
	return nil
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Complete   int `json:"complete"`
	Errored    int `json:"errored"`
}

func (s *HealthSummary) count(status Status) {
	s.Total++
	switch status {
	case StatusPending, StatusDownloading:
		s.Pending++
	case StatusProcessing:
		s.Processing++
	case StatusComplete:
		s.Complete++
	case StatusError:
		s.Errored++
	}
}
