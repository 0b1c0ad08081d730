// Package store keeps the on-disk build history under ~/.mobctl/builds.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Build statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// BuildRecord is the persisted state of one build invocation.
type BuildRecord struct {
	ID          string `json:"id"`
	AppName     string `json:"app_name"`
	Platform    string `json:"platform"`
	Environment string `json:"environment"`
	BuildType   string `json:"build_type"`
	Version     string `json:"version"`
	BuildNumber int    `json:"build_number"`
	ProjectDir  string `json:"project_dir"`
	Artifact    string `json:"artifact,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

// Store manages build history on disk.
type Store struct {
	baseDir string // defaults to ~/.mobctl/builds
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.mobctl/builds, creating the directory
// if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".mobctl", "builds")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) buildDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.buildDir(id), "build.json")
}

// Create persists a new build record with status running.
func (s *Store) Create(record *BuildRecord) error {
	if record.ID == "" {
		return fmt.Errorf("build record has no id")
	}
	if _, err := os.Stat(s.buildDir(record.ID)); err == nil {
		return fmt.Errorf("build %s already exists", record.ID)
	}
	record.Status = StatusRunning
	record.StartedAt = time.Now().UTC().Format(time.RFC3339)
	if err := writeJSON(s.recordPath(record.ID), record); err != nil {
		return fmt.Errorf("write build.json: %w", err)
	}
	return nil
}

// Get reads the record for a build id.
func (s *Store) Get(id string) (*BuildRecord, error) {
	var record BuildRecord
	if err := readJSON(s.recordPath(id), &record); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("build %s not found", id)
		}
		return nil, err
	}
	return &record, nil
}

// Update performs a read-modify-write of a build record.
func (s *Store) Update(id string, fn func(*BuildRecord)) error {
	record, err := s.Get(id)
	if err != nil {
		return err
	}
	fn(record)
	return writeJSON(s.recordPath(id), record)
}

// Finish marks a build succeeded or failed and stamps the finish time.
func (s *Store) Finish(id string, artifact string, buildErr error) error {
	return s.Update(id, func(record *BuildRecord) {
		record.FinishedAt = time.Now().UTC().Format(time.RFC3339)
		if buildErr != nil {
			record.Status = StatusFailed
			record.Error = buildErr.Error()
			return
		}
		record.Status = StatusSucceeded
		record.Artifact = artifact
	})
}

// List returns all builds, newest first, optionally filtered by status.
// Pass "" for statusFilter to return everything.
func (s *Store) List(statusFilter string) ([]BuildRecord, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var builds []BuildRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		record, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || record.Status == statusFilter {
			builds = append(builds, *record)
		}
	}

	sort.Slice(builds, func(i, j int) bool {
		return builds[i].StartedAt > builds[j].StartedAt
	})
	return builds, nil
}

// Latest returns the most recent build matching platform and environment.
// Empty filters match everything.
func (s *Store) Latest(platform, environment string) (*BuildRecord, error) {
	builds, err := s.List(StatusSucceeded)
	if err != nil {
		return nil, err
	}
	for i := range builds {
		b := &builds[i]
		if platform != "" && b.Platform != platform {
			continue
		}
		if environment != "" && b.Environment != environment {
			continue
		}
		return b, nil
	}
	return nil, fmt.Errorf("no successful build found")
}

// Delete removes all data for a build.
func (s *Store) Delete(id string) error {
	dir := s.buildDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("build %s not found", id)
	}
	return os.RemoveAll(dir)
}

// WriteAtomic replaces the file at path in a single rename so a crash mid
// write can never leave a truncated build.json behind. The temp file lives
// in the target directory; rename across filesystems is not atomic.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".build-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return fmt.Errorf("write temp file: %w", werr)
		}
		return fmt.Errorf("close temp file: %w", cerr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s -> %s: %w", tmp.Name(), path, err)
	}
	return nil
}

// writeJSON persists a build record as indented JSON. Records are rewritten
// whole on every status change, so every write goes through WriteAtomic.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return WriteAtomic(path, append(data, '\n'))
}

// readJSON loads a build record, passing os.IsNotExist errors through
// untouched so callers can report a missing build distinctly.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
