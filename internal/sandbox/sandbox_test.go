package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
)

func skipWithoutPOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test fixtures use POSIX tools")
	}
}

func newSandbox(t *testing.T, runner []string) *Sandbox {
	t.Helper()
	cfg := config.SandboxConfig{
		Runner:      runner,
		Timeout:     5 * time.Second,
		OutputLimit: 1000,
	}
	return New(t.TempDir(), cfg, 600*time.Second, nil)
}

func TestRunTests_Pass(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIX(t)

	s := newSandbox(t, []string{"true"})
	res := s.RunTests(context.Background())
	assert.True(t, res.Passed)
	assert.Empty(t, res.Error)
}

func TestRunTests_FailureCapturesOutput(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIX(t)

	// ls on a missing path exits nonzero and writes to stderr.
	s := newSandbox(t, []string{"ls", "definitely-not-here-xyz"})
	res := s.RunTests(context.Background())
	assert.False(t, res.Passed)
	assert.Contains(t, res.Error, "exit status")
	assert.Contains(t, res.Error, "stderr:")
}

func TestRunTests_TruncatesOutput(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIX(t)

	s := newSandbox(t, []string{"ls", "definitely-not-here-xyz"})
	s.outputLimit = 10
	res := s.RunTests(context.Background())
	require.False(t, res.Passed)
	// reason line + both stream labels bound the message size.
	assert.Less(t, len(res.Error), 120)
}

func TestRunTests_Timeout(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIX(t)

	s := newSandbox(t, []string{"sleep", "10"})
	s.timeout = 100 * time.Millisecond
	res := s.RunTests(context.Background())
	assert.False(t, res.Passed)
	assert.Contains(t, res.Error, "timed out")
}

func TestRunTests_NoRunnerPassesVacuously(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	res := s.RunTests(context.Background())
	assert.True(t, res.Passed)
}

func TestRunTests_MissingBinary(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, []string{"no-such-binary-zz9"})
	res := s.RunTests(context.Background())
	assert.False(t, res.Passed)
	assert.NotEmpty(t, res.Error)
}

func TestCheckProbation_NoLock(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	assert.True(t, s.CheckProbation(-1))
}

func TestCheckProbation_FreshLockBlocks(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	require.NoError(t, s.ArmProbation())
	assert.False(t, s.CheckProbation(-1))
	// The lock survives a blocked check.
	_, err := os.Stat(filepath.Join(s.root, lockFileName))
	assert.NoError(t, err)
}

func TestCheckProbation_StaleLockRemoved(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	require.NoError(t, s.ArmProbation())

	old := time.Now().Add(-700 * time.Second)
	lock := filepath.Join(s.root, lockFileName)
	require.NoError(t, os.Chtimes(lock, old, old))

	assert.True(t, s.CheckProbation(-1))
	_, err := os.Stat(lock)
	assert.True(t, os.IsNotExist(err), "stale lock must be cleaned up")
}

func TestCheckProbation_ConfidenceShrinksWindow(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	require.NoError(t, s.ArmProbation())

	// Two minutes old: inside the base window, outside the scaled one.
	old := time.Now().Add(-2 * time.Minute)
	lock := filepath.Join(s.root, lockFileName)
	require.NoError(t, os.Chtimes(lock, old, old))

	assert.False(t, s.CheckProbation(0), "unknown confidence keeps the full window")
	assert.True(t, s.CheckProbation(90), "high confidence shortens the window to 60s")
}

func TestProbationWindow(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	assert.Equal(t, 600*time.Second, s.probationWindow(-1))
	assert.Equal(t, 600*time.Second, s.probationWindow(0))
	assert.Equal(t, 300*time.Second, s.probationWindow(50))
	assert.Equal(t, 60*time.Second, s.probationWindow(90))
	assert.Equal(t, time.Duration(0), s.probationWindow(100))
	assert.Equal(t, time.Duration(0), s.probationWindow(140))
}

func TestArmProbation_RefreshesExistingLock(t *testing.T) {
	t.Parallel()

	s := newSandbox(t, nil)
	require.NoError(t, s.ArmProbation())

	lock := filepath.Join(s.root, lockFileName)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lock, old, old))

	require.NoError(t, s.ArmProbation())
	info, err := os.Stat(lock)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), info.ModTime(), time.Minute)
}
