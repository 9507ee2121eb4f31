package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is an isolated working directory with a freshly built trinity
// binary. Every test gets its own so runs cannot see each other's state.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject builds the trinity binary into a fresh temp directory and
// returns a testProject ready for use. Must be called from a test function;
// uses t.Helper() to mark itself accordingly.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("E2E tests are not supported on Windows")
	}

	dir := t.TempDir()

	// Build the trinity binary into the temp dir. The build cache makes
	// repeated invocations cheap.
	binary := filepath.Join(dir, "trinity")
	build := exec.Command("go", "build", "-o", binary, "./cmd/trinity")
	build.Dir = projectRoot()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building trinity: %s", string(out))

	return &testProject{Dir: dir, BinaryPath: binary, t: t}
}

// projectRoot returns the absolute path to the root of the repository. It
// uses runtime.Caller(0) to find this source file's location and navigates
// two directories up (tests/e2e/ -> tests/ -> repo root).
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeConfig writes content to trinity.toml in tp.Dir.
func (tp *testProject) writeConfig(content string) {
	tp.t.Helper()
	err := os.WriteFile(filepath.Join(tp.Dir, "trinity.toml"), []byte(content), 0o644)
	require.NoError(tp.t, err)
}

// run creates an exec.Cmd for trinity with a deterministic environment.
// Relative paths in trinity.toml resolve against tp.Dir, and any TRINITY_*
// secrets leaking in from the host environment are blanked out.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",              // disable ANSI color in output
		"TRINITY_LOG_FORMAT=json", // structured logs for easier parsing
		"TRINITY_AGENT_TOKEN=",
		"TRINITY_GIT_TOKEN=",
		"TRINITY_LLM_KEY=",
	)
	return cmd
}

// runExpectSuccess runs trinity and asserts exit code 0.
// Returns combined stdout+stderr output.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	cmd := tp.run(args...)
	out, err := cmd.CombinedOutput()
	require.NoError(tp.t, err, "trinity %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs trinity and asserts a non-zero exit code.
// Returns combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	cmd := tp.run(args...)
	out, err := cmd.CombinedOutput()
	require.Error(tp.t, err, "trinity %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}

// minimalConfig returns a trinity.toml that keeps all state inside the test
// directory and points the agent and LLM endpoints at unroutable addresses
// so no command can accidentally reach the network.
func minimalConfig() string {
	return `[core]
language = "en"
memory_dir = "memory"
repos_dir = "repos"

[agent]
base_url = "http://127.0.0.1:1/v1alpha"

[llm]
base_url = "http://127.0.0.1:1/v1"
model = "test-model"

[http]
addr = "127.0.0.1:0"
`
}
