package outputs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"demusic/internal/jobs"
	"demusic/internal/media"
	"demusic/internal/services"
)

// ProcessedSuffix marks completed artifacts in the output store.
const ProcessedSuffix = "_processed"

// Artifact describes one completed output file.
type Artifact struct {
	Filename    string
	DisplayName string
	SizeBytes   int64
	CreatedAt   time.Time
}

// Store manages the directory holding completed artifacts and the placeholder
// markers for jobs still in flight.
type Store struct {
	root string
}

// NewStore constructs an artifact store rooted at the output directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the output directory.
func (s *Store) Root() string { return s.root }

// List enumerates completed artifacts, newest first.
func (s *Store) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !media.AllowedExtension(name) || !strings.Contains(name, ProcessedSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Filename:    name,
			DisplayName: DisplayName(name),
			SizeBytes:   info.Size(),
			CreatedAt:   info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].Filename < artifacts[j].Filename
		}
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// Resolve maps an artifact name to its path inside the store. Names that
// escape the output directory or do not exist resolve to a not-found error.
func (s *Store) Resolve(name string) (string, error) {
	cleaned := filepath.Base(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || cleaned != name {
		return "", services.Wrap(services.ErrNotFound, "outputs", "resolve", fmt.Sprintf("invalid artifact name %q", name), nil)
	}
	path := filepath.Join(s.root, cleaned)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "outputs", "resolve", cleaned, nil)
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "outputs", "resolve", cleaned, nil)
	}
	return path, nil
}

// Stat returns the artifact metadata for a single name.
func (s *Store) Stat(name string) (Artifact, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return Artifact{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	return Artifact{
		Filename:    name,
		DisplayName: DisplayName(name),
		SizeBytes:   info.Size(),
		CreatedAt:   info.ModTime(),
	}, nil
}

// Delete removes a named artifact from the store.
func (s *Store) Delete(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// OutputName derives the stable artifact name for an upload:
// <sanitized stem>_processed<ext>.
func OutputName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	stem := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	return SanitizeFilename(stem) + ProcessedSuffix + ext
}

var (
	spacesRE      = regexp.MustCompile(`\s+`)
	specialRE     = regexp.MustCompile(`[^a-zA-Z0-9_.]`)
	underscoresRE = regexp.MustCompile(`_+`)

	leadingIDRE  = regexp.MustCompile(`^[0-9a-fA-F-]+_`)
	trailingIDRE = regexp.MustCompile(`_processed(_[0-9a-fA-F-]+)?`)
	extensionRE  = regexp.MustCompile(`\.[^.]+$`)

	titleCaser = cases.Title(language.English)
)

// SanitizeFilename replaces whitespace and special characters with
// underscores so derived names stay filesystem- and URL-safe.
func SanitizeFilename(name string) string {
	name = spacesRE.ReplaceAllString(name, "_")
	name = specialRE.ReplaceAllString(name, "_")
	name = underscoresRE.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// DisplayName extracts a user-friendly title from an artifact filename by
// stripping the leading job-id prefix, the trailing processed marker and id
// fragment, and the extension.
func DisplayName(filename string) string {
	name := leadingIDRE.ReplaceAllString(filename, "")
	name = trailingIDRE.ReplaceAllString(name, "")
	name = extensionRE.ReplaceAllString(name, "")
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return filename
	}
	return titleCaser.String(name)
}

// PlaceholderName returns the marker filename written while a job is in
// flight.
func PlaceholderName(jobID string) string {
	return jobID + "_placeholder.txt"
}

// WritePlaceholder drops a marker file for a newly created job so the output
// directory reflects in-flight work.
func (s *Store) WritePlaceholder(job *jobs.Job) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("ensure output directory: %w", err)
	}
	content := fmt.Sprintf("Processing video: %s\nJob ID: %s\nStatus: %s\n", job.OriginalFilename, job.ID, job.Status)
	path := filepath.Join(s.root, PlaceholderName(job.ID))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write placeholder: %w", err)
	}
	return nil
}

// RemovePlaceholder deletes the job's marker file if present.
func (s *Store) RemovePlaceholder(jobID string) {
	_ = os.Remove(filepath.Join(s.root, PlaceholderName(jobID)))
}
