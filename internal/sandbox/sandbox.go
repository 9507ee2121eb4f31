// Package sandbox runs a project's test suite in a child process and owns
// the probation lock that throttles how often the watchdog re-reviews one
// project. The runner is always an explicit argument vector; nothing here
// ever passes through a shell.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
)

// lockFileName is the probation marker inside the project root.
const lockFileName = ".probation_lock"

// Logger is the minimal logging surface the sandbox needs.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Result is the outcome of one test run. Error is empty on success.
type Result struct {
	Passed bool
	Error  string
}

// Sandbox runs tests for one project root.
type Sandbox struct {
	root        string
	runner      []string
	timeout     time.Duration
	outputLimit int
	probation   time.Duration
	logger      Logger
}

// New creates a Sandbox over the project root. probation is the base age
// under which a lock defers review. The logger may be nil.
func New(root string, cfg config.SandboxConfig, probation time.Duration, logger Logger) *Sandbox {
	return &Sandbox{
		root:        root,
		runner:      cfg.Runner,
		timeout:     cfg.Timeout,
		outputLimit: cfg.OutputLimit,
		probation:   probation,
		logger:      logger,
	}
}

// RunTests launches the configured test runner with the project root on the
// module path. On failure the captured streams are truncated into Error.
// With no runner configured the run passes vacuously.
func (s *Sandbox) RunTests(ctx context.Context) Result {
	if len(s.runner) == 0 {
		s.debug("no test runner configured, skipping")
		return Result{Passed: true}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.runner[0], s.runner[1:]...)
	cmd.Dir = s.root
	cmd.Env = append(os.Environ(), "PYTHONPATH="+s.root)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		s.debug("tests passed", "runner", s.runner[0])
		return Result{Passed: true}
	}

	reason := err.Error()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = fmt.Sprintf("test run timed out after %s", s.timeout)
	}
	msg := reason
	if out := strings.TrimSpace(stdout.String()); out != "" {
		msg += "\nstdout: " + truncate(out, s.outputLimit)
	}
	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		msg += "\nstderr: " + truncate(errOut, s.outputLimit)
	}
	s.warn("tests failed", "runner", s.runner[0], "reason", reason)
	return Result{Passed: false, Error: msg}
}

// CheckProbation reports whether the project may be processed. A lock file
// younger than the probation window blocks; a stale lock is removed. The
// window shrinks as lastConfidence rises, so near-ready work is revisited
// sooner. Pass a negative lastConfidence when no review has happened yet.
func (s *Sandbox) CheckProbation(lastConfidence int) bool {
	path := filepath.Join(s.root, lockFileName)
	info, err := os.Stat(path)
	if err != nil {
		return true
	}

	window := s.probationWindow(lastConfidence)
	if age := time.Since(info.ModTime()); age < window {
		s.debug("probation active", "age", age.Round(time.Second), "window", window)
		return false
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.warn("removing stale probation lock", "error", err)
	}
	return true
}

// ArmProbation drops or refreshes the lock file, starting a new window.
func (s *Sandbox) ArmProbation() error {
	path := filepath.Join(s.root, lockFileName)
	now := time.Now()
	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(now.UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("sandbox: arming probation: %w", err)
	}
	return nil
}

// probationWindow scales the base window by how confident the last review
// was. Unknown confidence keeps the full window.
func (s *Sandbox) probationWindow(lastConfidence int) time.Duration {
	if lastConfidence <= 0 {
		return s.probation
	}
	if lastConfidence > 100 {
		lastConfidence = 100
	}
	return s.probation * time.Duration(100-lastConfidence) / 100
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func (s *Sandbox) debug(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keyvals...)
	}
}

func (s *Sandbox) warn(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keyvals...)
	}
}
