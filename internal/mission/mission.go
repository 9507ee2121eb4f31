// Package mission defines the work item exchanged between the council, the
// forge, and the persistent memories. A Mission is immutable after creation.
package mission

import (
	"fmt"
	"strings"
)

// Source identifies where a mission came from.
type Source string

const (
	// SourceCreative marks open-ended ideation proposals.
	SourceCreative Source = "creative"
	// SourceInsider marks proposals grounded in a structural repo scan.
	SourceInsider Source = "insider"
	// SourceHarvest marks proposals from the harvested suggestion cache.
	SourceHarvest Source = "harvest"
	// SourceEvolution marks proposals fed through the evolution file.
	SourceEvolution Source = "evolution"
	// SourceSentinel marks heal suggestions queued after session failures.
	SourceSentinel Source = "sentinel"
	// SourceHuman marks missions submitted directly by an operator.
	SourceHuman Source = "human"
)

// Kind classifies the shape of the work.
type Kind string

const (
	KindFeature  Kind = "feature"
	KindFix      Kind = "fix"
	KindRefactor Kind = "refactor"
	KindDocs     Kind = "docs"
	KindTest     Kind = "test"
)

// Mission is a single unit of work for the forge.
type Mission struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Rationale    string `json:"rationale,omitempty"`
	RequiresRepo bool   `json:"requires_repo"`
	Confidence   int    `json:"confidence"`
	Source       Source `json:"source"`
	Repo         string `json:"repo,omitempty"`
	Kind         Kind   `json:"kind,omitempty"`
}

// Validate reports whether the mission is dispatchable.
func (m Mission) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("mission: title must not be empty")
	}
	if strings.TrimSpace(m.Description) == "" {
		return fmt.Errorf("mission: %q: description must not be empty", m.Title)
	}
	if m.RequiresRepo && m.Repo == "" {
		return fmt.Errorf("mission: %q: requires a repo but names none", m.Title)
	}
	return nil
}

// Key returns the normalized title used for duplicate and rejection checks.
func (m Mission) Key() string {
	return NormalizeTitle(m.Title)
}

// NormalizeTitle lowercases and collapses inner whitespace so that titles
// differing only in case or spacing compare equal.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// --- Forge results ---

// Status is the outcome of one forge attempt.
type Status string

const (
	// StatusSuccess means the mission was staged (or completed repoless).
	StatusSuccess Status = "SUCCESS"
	// StatusFailed means the mission terminated without staging.
	StatusFailed Status = "FAILED"
)

// Result is what the forge reports back to its caller.
type Result struct {
	Status    Status `json:"status"`
	PRURL     string `json:"pr_url,omitempty"`
	Score     int    `json:"score,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Succeeded reports whether the attempt ended in SUCCESS.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}
