// Package gitops wraps the gh and git CLIs for the PR lifecycle: merge,
// close, branch deletion and diff retrieval. Operations are best-effort
// booleans in the spirit of cleanup code; a PR that is already closed or a
// branch that is already gone counts as done.
package gitops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
)

// Logger is the minimal logging surface the wrapper needs.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// protectedBranches must never be deleted, whatever a PR says its head is.
var protectedBranches = map[string]bool{
	"main":   true,
	"master": true,
}

// nonFatalErrors are remote complaints that mean the desired end state
// already holds (PR closed, ref gone) or that the remote refuses harmlessly.
var nonFatalErrors = []string{
	"protected branch rules not configured",
	"pull request is closed",
	"reference does not exist",
	"http 422",
	"not found",
}

// needsUpdateErrors signal a merge blocked by a stale head branch.
var needsUpdateErrors = []string{
	"not mergeable",
	"out of date",
	"base branch was modified",
	"merge conflict",
}

// runFunc executes one child process. Tests swap it for a recorder.
type runFunc func(ctx context.Context, name string, args, env []string) (stdout, stderr string, err error)

// Client drives gh and git.
type Client struct {
	ghBin  string
	gitBin string
	token  string
	logger Logger
	run    runFunc
}

// New creates a Client from the resolved git configuration. The logger may
// be nil.
func New(cfg config.GitConfig, logger Logger) *Client {
	ghBin := cfg.GHBin
	if ghBin == "" {
		ghBin = "gh"
	}
	gitBin := cfg.Bin
	if gitBin == "" {
		gitBin = "git"
	}
	return &Client{
		ghBin:  ghBin,
		gitBin: gitBin,
		token:  cfg.Token,
		logger: logger,
		run:    runCommand,
	}
}

// runCommand is the real runner: argument vector in, both streams out.
func runCommand(ctx context.Context, name string, args, env []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// --- PR operations ---

// MergePR merges the PR, squashing by default. When the remote reports a
// stale head it rebases the PR branch once and retries.
func (c *Client) MergePR(ctx context.Context, prURL string, squash bool) bool {
	method := "--squash"
	if !squash {
		method = "--merge"
	}

	_, errOut, err := c.gh(ctx, "pr", "merge", prURL, method)
	if err == nil {
		c.debug("pr merged", "pr", prURL)
		return true
	}
	if !matchesAny(errOut, needsUpdateErrors) {
		c.warn("merge failed", "pr", prURL, "stderr", firstLine(errOut))
		return false
	}

	c.debug("head stale, updating branch before retry", "pr", prURL)
	if !c.UpdatePRBranch(ctx, prURL) {
		return false
	}
	_, errOut, err = c.gh(ctx, "pr", "merge", prURL, method)
	if err != nil {
		c.warn("merge retry failed", "pr", prURL, "stderr", firstLine(errOut))
		return false
	}
	c.debug("pr merged after rebase", "pr", prURL)
	return true
}

// ClosePR closes the PR. A PR that is already closed counts as success.
func (c *Client) ClosePR(ctx context.Context, prURL string) bool {
	_, errOut, err := c.gh(ctx, "pr", "close", prURL)
	if err == nil || matchesAny(errOut, nonFatalErrors) {
		return true
	}
	c.warn("closing pr failed", "pr", prURL, "stderr", firstLine(errOut))
	return false
}

// DeleteBranch removes the PR's head branch on the remote. Protected
// branches are refused outright; a branch that is already gone counts as
// deleted.
func (c *Client) DeleteBranch(ctx context.Context, prURL string) bool {
	branch := c.GetPRBranch(ctx, prURL)
	if branch == "" {
		return false
	}
	if protectedBranches[branch] {
		c.warn("refusing to delete protected branch", "branch", branch, "pr", prURL)
		return false
	}
	ref, err := parsePRURL(prURL)
	if err != nil {
		c.warn("deleting branch", "pr", prURL, "error", err)
		return false
	}

	path := fmt.Sprintf("repos/%s/%s/git/refs/heads/%s", ref.Owner, ref.Repo, branch)
	_, errOut, err := c.gh(ctx, "api", "-X", "DELETE", path)
	if err == nil || matchesAny(errOut, nonFatalErrors) {
		return true
	}
	c.warn("deleting branch failed", "branch", branch, "stderr", firstLine(errOut))
	return false
}

// CleanupPR retires a PR: close it unless it was merged, then best-effort
// delete its branch. The result reflects the close/merge state only.
func (c *Client) CleanupPR(ctx context.Context, prURL string, merged bool) bool {
	ok := true
	if !merged {
		ok = c.ClosePR(ctx, prURL)
	}
	c.DeleteBranch(ctx, prURL)
	return ok
}

// UpdatePRBranch brings the PR's head up to date with its base, rebasing
// first and falling back to a merge commit.
func (c *Client) UpdatePRBranch(ctx context.Context, prURL string) bool {
	ref, err := parsePRURL(prURL)
	if err != nil {
		c.warn("updating pr branch", "pr", prURL, "error", err)
		return false
	}
	path := fmt.Sprintf("repos/%s/%s/pulls/%s/update-branch", ref.Owner, ref.Repo, ref.Number)

	_, errOut, err := c.gh(ctx, "api", "-X", "PUT", path, "-f", "update_method=rebase")
	if err == nil || matchesAny(errOut, nonFatalErrors) {
		return true
	}
	_, errOut, err = c.gh(ctx, "api", "-X", "PUT", path, "-f", "update_method=merge")
	if err == nil || matchesAny(errOut, nonFatalErrors) {
		return true
	}
	c.warn("updating pr branch failed", "pr", prURL, "stderr", firstLine(errOut))
	return false
}

// GetPRDiff returns the PR's unified diff, or "" on failure. It is the
// fallback when the agent's activity timeline has no patch.
func (c *Client) GetPRDiff(ctx context.Context, prURL string) string {
	out, errOut, err := c.gh(ctx, "pr", "diff", prURL)
	if err != nil {
		c.warn("fetching pr diff", "pr", prURL, "stderr", firstLine(errOut))
		return ""
	}
	return out
}

// GetPRBranch returns the PR's head branch name, or "" on failure.
func (c *Client) GetPRBranch(ctx context.Context, prURL string) string {
	out, errOut, err := c.gh(ctx, "pr", "view", prURL, "--json", "headRefName")
	if err != nil {
		c.warn("fetching pr branch", "pr", prURL, "stderr", firstLine(errOut))
		return ""
	}
	var v struct {
		HeadRefName string `json:"headRefName"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		c.warn("parsing pr branch", "pr", prURL, "error", err)
		return ""
	}
	return v.HeadRefName
}

// IsPRMerged reports whether the PR has been merged.
func (c *Client) IsPRMerged(ctx context.Context, prURL string) bool {
	out, errOut, err := c.gh(ctx, "pr", "view", prURL, "--json", "state")
	if err != nil {
		c.warn("fetching pr state", "pr", prURL, "stderr", firstLine(errOut))
		return false
	}
	var v struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return false
	}
	return strings.EqualFold(v.State, "MERGED")
}

// --- Local repository operations ---

// ListTree returns the tracked files of a local checkout, or nil on failure.
func (c *Client) ListTree(ctx context.Context, dir string) []string {
	out, errOut, err := c.run(ctx, c.gitBin, []string{"-C", dir, "ls-files"}, nil)
	if err != nil {
		c.warn("listing repo tree", "dir", dir, "stderr", firstLine(errOut))
		return nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}

// --- Plumbing ---

// prRef locates a PR on its host.
type prRef struct {
	Owner  string
	Repo   string
	Number string
}

// parsePRURL extracts owner/repo/number from a web PR URL like
// https://github.com/acme/widget/pull/42.
func parsePRURL(raw string) (prRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return prRef{}, fmt.Errorf("gitops: parsing pr url %q: %w", raw, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return prRef{}, fmt.Errorf("gitops: %q is not a pull request url", raw)
	}
	return prRef{Owner: parts[0], Repo: parts[1], Number: parts[3]}, nil
}

// gh invokes the gh binary with the auth token in the environment.
func (c *Client) gh(ctx context.Context, args ...string) (string, string, error) {
	var env []string
	if c.token != "" {
		env = append(env, "GH_TOKEN="+c.token)
	}
	return c.run(ctx, c.ghBin, args, env)
}

// matchesAny reports whether s contains any needle, case-insensitively.
func matchesAny(s string, needles []string) bool {
	low := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(low, n) {
			return true
		}
	}
	return false
}

// firstLine keeps log lines single-line.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (c *Client) debug(msg string, keyvals ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func (c *Client) warn(msg string, keyvals ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, keyvals...)
	}
}
