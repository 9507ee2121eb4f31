// Package sanitize screens agent diffs for constructs that have no place in
// generated application code: direct process, filesystem or interpreter
// access. Only added lines are scanned, and test code is exempt so agents
// can still mock and exercise those modules.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pattern pairs a human-readable threat name with its detector.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// forbiddenPatterns are checked in order; the first hit wins.
var forbiddenPatterns = []pattern{
	{"import os", regexp.MustCompile(`\bimport\s+os\b`)},
	{"from os import", regexp.MustCompile(`\bfrom\s+os\b`)},
	{"import subprocess", regexp.MustCompile(`\bimport\s+subprocess\b`)},
	{"from subprocess import", regexp.MustCompile(`\bfrom\s+subprocess\b`)},
	{"import shutil", regexp.MustCompile(`\bimport\s+shutil\b`)},
	{"from shutil import", regexp.MustCompile(`\bfrom\s+shutil\b`)},
	{"import sys", regexp.MustCompile(`\bimport\s+sys\b`)},
	{"from sys import", regexp.MustCompile(`\bfrom\s+sys\b`)},
	{"eval(", regexp.MustCompile(`\beval\s*\(`)},
	{"exec(", regexp.MustCompile(`\bexec\s*\(`)},
	{"__import__", regexp.MustCompile(`__import__`)},
	{"os.system", regexp.MustCompile(`\bos\.system\b`)},
	{"os.popen", regexp.MustCompile(`\bos\.popen\b`)},
}

// testPathGlobs mark files whose added lines are always exempt.
var testPathGlobs = []string{
	"**/tests/**",
	"**/test_*",
	"**/conftest.py",
}

// Scanner screens diffs with the built-in exemptions plus any deployment
// specific globs from the configuration.
type Scanner struct {
	globs []string
}

// NewScanner returns a Scanner whose exemptions are the built-in test-path
// globs plus extraGlobs. Blank entries are dropped.
func NewScanner(extraGlobs []string) *Scanner {
	globs := make([]string, 0, len(testPathGlobs)+len(extraGlobs))
	globs = append(globs, testPathGlobs...)
	for _, g := range extraGlobs {
		if strings.TrimSpace(g) == "" {
			continue
		}
		globs = append(globs, g)
	}
	return &Scanner{globs: globs}
}

var defaultScanner = NewScanner(nil)

// ScanDiff scans the added lines of a unified diff with only the built-in
// exemptions. It returns (true, "") when the diff is clean, otherwise
// (false, threat) naming the first forbidden pattern found.
func ScanDiff(diff string) (bool, string) {
	return defaultScanner.ScanDiff(diff)
}

// ScanDiff scans the added lines of a unified diff. It returns (true, "")
// when the diff is clean, otherwise (false, threat) naming the first
// forbidden pattern found.
func (s *Scanner) ScanDiff(diff string) (bool, string) {
	file := ""
	exempt := false

	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			file = fileFromGitHeader(line)
			exempt = s.isTestPath(file)
			continue
		case strings.HasPrefix(line, "+++ b/"):
			file = strings.TrimPrefix(line, "+++ b/")
			exempt = s.isTestPath(file)
			continue
		case strings.HasPrefix(line, "+++"):
			continue
		}

		if !strings.HasPrefix(line, "+") {
			continue
		}
		if exempt {
			continue
		}

		content := line[1:]
		if strings.HasPrefix(strings.TrimSpace(content), "#") {
			continue
		}
		if strings.Contains(strings.ToLower(content), "mock") {
			continue
		}
		for _, p := range forbiddenPatterns {
			if p.re.MatchString(content) {
				return false, p.name
			}
		}
	}
	return true, ""
}

// fileFromGitHeader extracts the post-image path from a "diff --git a/x b/x"
// line.
func fileFromGitHeader(line string) string {
	fields := strings.Fields(line)
	last := fields[len(fields)-1]
	return strings.TrimPrefix(last, "b/")
}

// isTestPath reports whether the path lives in test territory: under a
// tests/ directory, a test_-prefixed file, a conftest.py, or anything the
// extra globs name.
func (s *Scanner) isTestPath(path string) bool {
	if path == "" {
		return false
	}
	for _, glob := range s.globs {
		if ok, err := doublestar.Match(glob, path); err == nil && ok {
			return true
		}
	}
	return false
}
