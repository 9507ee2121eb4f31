// Package staging persists per-project review artifacts between a forge
// success and the human decision: metadata, the PR diff, and per-file stats,
// one directory per project.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
)

// Status is a staged project's lifecycle state.
type Status string

const (
	StatusStaged   Status = "STAGED"
	StatusPending  Status = "PENDING"
	StatusMerged   Status = "MERGED"
	StatusRejected Status = "REJECTED"
)

// ErrNotFound reports a project ID with no staging directory.
var ErrNotFound = errors.New("staging: project not found")

const (
	metadataFile = "metadata.json"
	diffFile     = "diff.patch"
	filesFile    = "files.json"
)

// FileStat is one file's contribution to a staged diff.
type FileStat struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Project is the metadata record persisted per staged project.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Repo        string    `json:"repo,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	PRURL       string    `json:"pr_url,omitempty"`
	Score       int       `json:"score,omitempty"`
	Status      Status    `json:"status"`
	StagedAt    time.Time `json:"staged_at"`
	FilesCount  int       `json:"files_count"`
	Additions   int       `json:"additions"`
	Deletions   int       `json:"deletions"`
	Reason      string    `json:"reason,omitempty"`
	DecidedAt   time.Time `json:"decided_at,omitzero"`
}

// Git is the PR lifecycle surface decisions need.
type Git interface {
	MergePR(ctx context.Context, prURL string, squash bool) bool
	ClosePR(ctx context.Context, prURL string) bool
	DeleteBranch(ctx context.Context, prURL string) bool
}

// Logger is the subset of a structured logger the store uses. A nil Logger
// silently discards.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Store is a directory-per-project holding area. Live projects sit under
// staging/<id>, rejected skeletons under rejected/<id>; the two trees never
// share an ID.
type Store struct {
	mu       sync.Mutex
	staging  string
	rejected string
	git      Git
	logger   Logger
}

// New creates the staging and rejected trees under root.
func New(root string, git Git, logger Logger) (*Store, error) {
	s := &Store{
		staging:  filepath.Join(root, "staging"),
		rejected: filepath.Join(root, "rejected"),
		git:      git,
		logger:   logger,
	}
	for _, dir := range []string{s.staging, s.rejected} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("staging: creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// --- Writes ---

// Stage persists a new project. Missing fields are completed in place: a
// fresh ID, STAGED status, the staging timestamp, and file stats parsed from
// the diff.
func (s *Store) Stage(p Project, diff string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusStaged
	}
	if p.StagedAt.IsZero() {
		p.StagedAt = time.Now().UTC()
	}
	files := ParseFileStats(diff)
	p.FilesCount = len(files)
	p.Additions, p.Deletions = 0, 0
	for _, f := range files {
		p.Additions += f.Additions
		p.Deletions += f.Deletions
	}

	dir := filepath.Join(s.staging, p.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Project{}, fmt.Errorf("staging: creating project dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, diffFile), []byte(diff)); err != nil {
		return Project{}, err
	}
	if err := writeJSON(filepath.Join(dir, filesFile), files); err != nil {
		return Project{}, err
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), p); err != nil {
		return Project{}, err
	}
	s.debug("project staged", "id", p.ID, "title", p.Title, "files", p.FilesCount)
	return p, nil
}

// UpdateStatus rewrites the project's status in place and returns the
// updated record.
func (s *Store) UpdateStatus(id string, status Status) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.get(id)
	if err != nil {
		return Project{}, err
	}
	p.Status = status
	if err := writeJSON(filepath.Join(s.staging, id, metadataFile), p); err != nil {
		return Project{}, err
	}
	return p, nil
}

// SetPending parks a project awaiting a later decision.
func (s *Store) SetPending(id string) (Project, error) {
	return s.UpdateStatus(id, StatusPending)
}

// Accept merges the project's PR. On merge failure the record is left
// untouched so the project stays staged; on success the record becomes
// MERGED and the staging folder is removed.
func (s *Store) Accept(ctx context.Context, id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.get(id)
	if err != nil {
		return Project{}, err
	}
	if p.PRURL == "" {
		return Project{}, fmt.Errorf("staging: project %s has no pull request to merge", id)
	}
	if !s.git.MergePR(ctx, p.PRURL, true) {
		return Project{}, fmt.Errorf("staging: merging %s failed", p.PRURL)
	}
	p.Status = StatusMerged
	p.DecidedAt = time.Now().UTC()
	if err := os.RemoveAll(filepath.Join(s.staging, id)); err != nil {
		s.warn("removing merged project dir", "id", id, "error", err)
	}
	s.debug("project merged", "id", id, "pr", p.PRURL)
	return p, nil
}

// Reject closes the project's PR and deletes its branch (git failures are
// logged, never fatal to the rejection), keeps a metadata skeleton under
// rejected/ for dedup memory, and removes the staging folder.
func (s *Store) Reject(ctx context.Context, id, reason string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.get(id)
	if err != nil {
		return Project{}, err
	}
	if p.PRURL != "" {
		if !s.git.ClosePR(ctx, p.PRURL) {
			s.warn("closing rejected pr failed", "pr", p.PRURL)
		}
		if !s.git.DeleteBranch(ctx, p.PRURL) {
			s.warn("deleting rejected branch failed", "pr", p.PRURL)
		}
	}
	p.Status = StatusRejected
	p.Reason = reason
	p.DecidedAt = time.Now().UTC()

	dir := filepath.Join(s.rejected, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Project{}, fmt.Errorf("staging: creating rejected dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), p); err != nil {
		return Project{}, err
	}
	if err := os.RemoveAll(filepath.Join(s.staging, id)); err != nil {
		s.warn("removing rejected project dir", "id", id, "error", err)
	}
	s.debug("project rejected", "id", id, "reason", reason)
	return p, nil
}

// --- Reads ---

// List returns staged projects, newest staged first.
func (s *Store) List() ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDir(s.staging)
}

// Get returns one staged project's metadata.
func (s *Store) Get(id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// Diff returns the stored diff for a staged project.
func (s *Store) Diff(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.staging, id, diffFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("staging: reading diff: %w", err)
	}
	return string(data), nil
}

// Files returns the stored per-file stats for a staged project.
func (s *Store) Files(id string) ([]FileStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []FileStat
	if err := readJSON(filepath.Join(s.staging, id, filesFile), &files); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return files, nil
}

// Rejected returns the metadata skeletons of rejected projects.
func (s *Store) Rejected() ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDir(s.rejected)
}

// RejectedTitles snapshots the normalized titles of every rejected project,
// the dedup memory the council consults before dispatching a mission.
func (s *Store) RejectedTitles() (map[string]bool, error) {
	rejected, err := s.Rejected()
	if err != nil {
		return nil, err
	}
	titles := make(map[string]bool, len(rejected))
	for _, p := range rejected {
		titles[mission.NormalizeTitle(p.Title)] = true
	}
	return titles, nil
}

func (s *Store) get(id string) (Project, error) {
	var p Project
	if err := readJSON(filepath.Join(s.staging, id, metadataFile), &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

func (s *Store) listDir(dir string) ([]Project, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("staging: listing %s: %w", dir, err)
	}
	projects := make([]Project, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var p Project
		if err := readJSON(filepath.Join(dir, e.Name(), metadataFile), &p); err != nil {
			s.warn("skipping unreadable project", "id", e.Name(), "error", err)
			continue
		}
		projects = append(projects, p)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].StagedAt.Equal(projects[j].StagedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].StagedAt.After(projects[j].StagedAt)
	})
	return projects, nil
}

// --- Plumbing ---

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("staging: reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("staging: parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("staging: encoding %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, data)
}

// writeFile is atomic: temp file in the same directory, then rename.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("staging: writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("staging: committing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) debug(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keyvals...)
	}
}

func (s *Store) warn(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keyvals...)
	}
}
