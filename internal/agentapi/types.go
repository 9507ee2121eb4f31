package agentapi

import (
	"sort"
	"strings"
	"time"
)

// Status is Trinity's view of a session's lifecycle. The agent's raw state
// strings map one-to-one; anything unrecognized becomes StatusOther so a new
// agent-side state never crashes a watcher.
type Status string

const (
	StatusPending              Status = "PENDING"
	StatusPlanning             Status = "PLANNING"
	StatusAwaitingPlanApproval Status = "AWAITING_PLAN_APPROVAL"
	StatusExecuting            Status = "EXECUTING"
	StatusWorking              Status = "WORKING"
	StatusPROpen               Status = "PR_OPEN"
	StatusCompleted            Status = "COMPLETED"
	StatusFailed               Status = "FAILED"
	StatusError                Status = "ERROR"
	StatusOther                Status = "OTHER"
)

// knownStates maps agent state strings to statuses. "IN_PROGRESS" is the
// wire spelling some agent versions use for WORKING.
var knownStates = map[string]Status{
	"PENDING":                StatusPending,
	"PLANNING":               StatusPlanning,
	"AWAITING_PLAN_APPROVAL": StatusAwaitingPlanApproval,
	"EXECUTING":              StatusExecuting,
	"WORKING":                StatusWorking,
	"IN_PROGRESS":            StatusWorking,
	"COMPLETED":              StatusCompleted,
	"FAILED":                 StatusFailed,
	"ERROR":                  StatusError,
}

// ParseStatus maps a raw agent state to a Status, defaulting to StatusOther.
func ParseStatus(raw string) Status {
	if s, ok := knownStates[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusOther
}

// Terminal reports whether the status is an end state for a session.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusError:
		return true
	}
	return false
}

// Source is one repository the agent can work against.
type Source struct {
	Name       string      `json:"name"` // e.g. "sources/github/acme/widget"
	ID         string      `json:"id,omitempty"`
	GitHubRepo *GitHubRepo `json:"githubRepo,omitempty"`
}

// GitHubRepo identifies the repository behind a source.
type GitHubRepo struct {
	Owner string `json:"owner,omitempty"`
	Repo  string `json:"repo,omitempty"`
}

// Matches reports whether the source serves the given repo, accepting
// "repo", "owner/repo" or a full source resource name.
func (s Source) Matches(repo string) bool {
	if repo == "" {
		return false
	}
	if s.Name == repo {
		return true
	}
	if s.GitHubRepo != nil {
		full := s.GitHubRepo.Owner + "/" + s.GitHubRepo.Repo
		if full == repo || s.GitHubRepo.Repo == repo {
			return true
		}
	}
	return strings.HasSuffix(s.Name, "/"+repo)
}

// Session is one agent working session.
type Session struct {
	Name    string   `json:"name"` // e.g. "sessions/abc123"
	Title   string   `json:"title,omitempty"`
	State   string   `json:"state,omitempty"`
	URL     string   `json:"url,omitempty"`
	Outputs []Output `json:"outputs,omitempty"`
}

// Output is one session artifact surfaced by the agent.
type Output struct {
	PullRequest *PullRequest `json:"pullRequest,omitempty"`
}

// PullRequest is the PR a session opened.
type PullRequest struct {
	URL    string `json:"url,omitempty"`
	Number int    `json:"number,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// ID returns the bare session identifier without the resource prefix.
func (s *Session) ID() string {
	return strings.TrimPrefix(s.Name, "sessions/")
}

// Status derives the session status: a pull request in any output means
// PR_OPEN regardless of the agent's own state.
func (s *Session) Status() Status {
	if s.PullRequestURL() != "" {
		return StatusPROpen
	}
	return ParseStatus(s.State)
}

// PullRequestURL returns the first pull request URL among the outputs, or "".
func (s *Session) PullRequestURL() string {
	for _, o := range s.Outputs {
		if o.PullRequest != nil && o.PullRequest.URL != "" {
			return o.PullRequest.URL
		}
	}
	return ""
}

// Activity is one event in a session's timeline.
type Activity struct {
	Name          string         `json:"name"`
	CreateTime    time.Time      `json:"createTime"`
	Description   string         `json:"description,omitempty"`
	PlanGenerated *PlanGenerated `json:"planGenerated,omitempty"`
	AgentMessaged *AgentMessaged `json:"agentMessaged,omitempty"`
	Artifacts     []Artifact     `json:"artifacts,omitempty"`
}

// PlanGenerated carries the plan attached to a planning activity.
type PlanGenerated struct {
	Plan *Plan `json:"plan,omitempty"`
}

// AgentMessaged carries free-form agent output.
type AgentMessaged struct {
	Message string `json:"message,omitempty"`
}

// Plan is the agent's proposed approach, replaced wholesale on refinement.
type Plan struct {
	ID    string     `json:"id,omitempty"`
	Steps []PlanStep `json:"steps,omitempty"`
}

// PlanStep is one step of a plan.
type PlanStep struct {
	Index       int    `json:"index,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// StepSummaries flattens the plan into one line per step.
func (p *Plan) StepSummaries() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Steps))
	for _, st := range p.Steps {
		line := st.Title
		if st.Description != "" {
			if line != "" {
				line += ": " + st.Description
			} else {
				line = st.Description
			}
		}
		out = append(out, line)
	}
	return out
}

// Artifact is a produced object attached to an activity.
type Artifact struct {
	ChangeSet *ChangeSet `json:"changeSet,omitempty"`
}

// ChangeSet carries a git patch produced by the agent.
type ChangeSet struct {
	Source   string    `json:"source,omitempty"`
	GitPatch *GitPatch `json:"gitPatch,omitempty"`
}

// GitPatch is a unified diff plus the commit it applies to.
type GitPatch struct {
	UnidiffPatch string `json:"unidiffPatch,omitempty"`
	BaseCommitID string `json:"baseCommitId,omitempty"`
}

// patch returns the activity's unidiff patch, or "".
func (a Activity) patch() string {
	for _, art := range a.Artifacts {
		if art.ChangeSet != nil && art.ChangeSet.GitPatch != nil && art.ChangeSet.GitPatch.UnidiffPatch != "" {
			return art.ChangeSet.GitPatch.UnidiffPatch
		}
	}
	return ""
}

// sortNewestFirst orders activities by createTime descending. Patch and plan
// lookups depend on this ordering; a stale patch is a correctness bug.
func sortNewestFirst(acts []Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		return acts[i].CreateTime.After(acts[j].CreateTime)
	})
}
