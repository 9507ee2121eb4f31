// Package forge drives one mission end to end: a plan-approval gate with
// retried fresh sessions, then an iterative pull-request refinement loop
// against the quality gate, staging the diff on PASS.
package forge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/agentapi"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/critic"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/gate"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/sanitize"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

// minImprovement is the score gain between two gate passes that earns a
// bonus refinement iteration.
const minImprovement = 5

// criticalIssueThreshold is the critical-issue count beyond which the
// refinement pause is extended.
const criticalIssueThreshold = 2

// outcomeRejected marks outcomes terminated for cause rather than exhaustion.
const outcomeRejected = "REJECTED"

// Agent is the coding-agent surface the forge drives.
type Agent interface {
	SourceForRepo(ctx context.Context, repo string) *agentapi.Source
	CreateSession(ctx context.Context, req agentapi.SessionRequest) *agentapi.Session
	CreateRepolessSession(ctx context.Context, prompt, title string) *agentapi.Session
	GetSession(ctx context.Context, id string) *agentapi.Session
	GetPlan(ctx context.Context, id string) *agentapi.Plan
	GetGitPatch(ctx context.Context, id string) string
	SendMessage(ctx context.Context, id, prompt string) bool
	ApprovePlan(ctx context.Context, id string) bool
}

// Judge scores a diff against the mission.
type Judge interface {
	Evaluate(ctx context.Context, m mission.Mission, diff, testOutput string) gate.Judgment
}

// PlanCritic reviews a generated plan before it is approved.
type PlanCritic interface {
	Critique(ctx context.Context, m mission.Mission, steps []string) critic.Review
}

// Stager persists a passing project for human review.
type Stager interface {
	Stage(p staging.Project, diff string) (staging.Project, error)
}

// Git cleans up pull requests the mission abandons.
type Git interface {
	CleanupPR(ctx context.Context, prURL string, merged bool) bool
}

// Claims marks the mission's current session as owned so the watchdog leaves
// it alone until the mission moves on. Optional; nil disables the handshake.
type Claims interface {
	Claim(id string)
	Release(id string)
}

// Memory is the slice of the durable store the forge writes: session
// registration at creation time, plus terminal outcomes and notifications.
type Memory interface {
	PutActiveSession(sess memory.ActiveSession) error
	AppendOutcome(o memory.Outcome) error
	Notify(n memory.Notification) (memory.Notification, error)
}

// Logger is the subset of a structured logger the forge uses. A nil Logger
// silently discards.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Deps are the collaborators a Forge needs.
type Deps struct {
	Agent  Agent
	Judge  Judge
	Critic PlanCritic
	Stager Stager
	Git    Git
	Memory Memory
	Claims Claims

	// Scanner checks every fresh patch before it is gated. A nil Scanner
	// falls back to the built-in exemptions.
	Scanner *sanitize.Scanner

	Catalog *prompts.Catalog
	Logger  Logger
}

// Forge is the per-mission state machine. Safe for sequential use; missions
// are never refined concurrently within one Forge.
type Forge struct {
	agent   Agent
	judge   Judge
	critic  PlanCritic
	stager  Stager
	git     Git
	mem     Memory
	claims  Claims
	scanner *sanitize.Scanner
	catalog *prompts.Catalog
	cfg     config.ForgeConfig
	logger  Logger

	// current is the session the running mission owns right now.
	current string

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a Forge from its collaborators.
func New(deps Deps, cfg config.ForgeConfig) *Forge {
	scanner := deps.Scanner
	if scanner == nil {
		scanner = sanitize.NewScanner(nil)
	}
	return &Forge{
		agent:   deps.Agent,
		judge:   deps.Judge,
		critic:  deps.Critic,
		stager:  deps.Stager,
		git:     deps.Git,
		mem:     deps.Memory,
		claims:  deps.Claims,
		scanner: scanner,
		catalog: deps.Catalog,
		cfg:     cfg,
		logger:  deps.Logger,
		sleep:   sleepContext,
	}
}

// Run executes one mission to a terminal result. Every wait observes ctx.
func (f *Forge) Run(ctx context.Context, m mission.Mission) mission.Result {
	defer f.releaseCurrent()
	if err := m.Validate(); err != nil {
		return f.fail(m, "", "", err.Error())
	}
	f.info("mission started", "mission", m.Title, "source", string(m.Source), "repo", m.Repo)
	if !m.RequiresRepo {
		return f.runRepoless(ctx, m)
	}
	return f.runRepo(ctx, m)
}

func (f *Forge) runRepo(ctx context.Context, m mission.Mission) mission.Result {
	source := f.agent.SourceForRepo(ctx, m.Repo)
	if source == nil {
		return f.fail(m, "", "", fmt.Sprintf("no agent source matches repo %s", m.Repo))
	}
	id, err := f.planGate(ctx, m, source)
	if err != nil {
		return f.fail(m, "", "", err.Error())
	}
	return f.refine(ctx, m, id)
}

// --- Phase A: plan approval ---

// planGate runs at most MaxPlanAttempts fresh sessions. Each one is polled
// to AWAITING_PLAN_APPROVAL and its plan reviewed by the critic; a rejected
// plan's improvement prompt feeds the next attempt's mission text.
func (f *Forge) planGate(ctx context.Context, m mission.Mission, source *agentapi.Source) (string, error) {
	base, err := f.missionPrompt(m)
	if err != nil {
		return "", err
	}

	var feedback []string
	for attempt := 1; attempt <= f.cfg.MaxPlanAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", fmt.Errorf("cancelled during plan approval: %w", ctx.Err())
		}

		req := agentapi.NewSessionRequest(withPlanFeedback(base, feedback), m.Title)
		req.Source = source.Name
		req.RequirePlanApproval = true

		sess := f.agent.CreateSession(ctx, req)
		if sess == nil {
			f.warn("creating session failed", "mission", m.Title, "attempt", attempt)
			continue
		}
		id := sess.ID()
		f.track(m, id)

		last, ready := f.waitForPlanReady(ctx, id)
		if !ready {
			f.warn("plan never became reviewable", "session", id, "status", string(last), "attempt", attempt)
			continue
		}

		steps := f.agent.GetPlan(ctx, id).StepSummaries()
		review := f.critic.Critique(ctx, m, steps)
		if review.Approved {
			if f.agent.ApprovePlan(ctx, id) {
				f.debug("plan approved", "session", id, "confidence", review.Confidence)
				return id, nil
			}
			f.warn("plan approval call failed, treating as rejected", "session", id)
			review.Approved = false
		}

		fb := review.ImprovementPrompt
		if fb == "" {
			fb = review.Critique
		}
		if fb == "" {
			fb = "The previous plan was rejected; propose a smaller, more focused plan."
		}
		feedback = append(feedback, fb)
		f.debug("plan rejected", "session", id, "attempt", attempt)
	}
	return "", fmt.Errorf("plan rejected %d times", f.cfg.MaxPlanAttempts)
}

// waitForPlanReady polls until the session awaits plan approval. It returns
// the last observed status and whether the plan is reviewable; a terminal
// status ends the wait early.
func (f *Forge) waitForPlanReady(ctx context.Context, id string) (agentapi.Status, bool) {
	last := agentapi.StatusOther
	for i := 0; i < f.cfg.PlanPollAttempts; i++ {
		if err := f.sleep(ctx, f.cfg.PlanPollInterval); err != nil {
			return last, false
		}
		sess := f.agent.GetSession(ctx, id)
		if sess == nil {
			continue
		}
		last = sess.Status()
		if last == agentapi.StatusAwaitingPlanApproval {
			return last, true
		}
		if last.Terminal() {
			return last, false
		}
	}
	return last, false
}

// withPlanFeedback appends the enumerated rejections from earlier attempts
// to the mission prompt.
func withPlanFeedback(prompt string, feedback []string) string {
	if len(feedback) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n## PREVIOUS PLAN FEEDBACK\n")
	b.WriteString("Earlier plans for this mission were rejected for the reasons below. Address every point.\n")
	for i, fb := range feedback {
		fmt.Fprintf(&b, "%d. %s\n", i+1, fb)
	}
	return b.String()
}

// --- Phase B: iterative refinement ---

// refine loops: wait for the pull request, fetch the newest patch, skip the
// iteration while the agent has pushed nothing new, gate the diff, then
// stage, trash, or send refinement feedback.
func (f *Forge) refine(ctx context.Context, m mission.Mission, id string) mission.Result {
	var (
		iteration = 1
		bonus     int
		prevHash  uint64
		prevSeen  bool
		prevScore int
		scored    bool
		retries   int
	)

	for {
		prURL, res, ok := f.waitForPR(ctx, m, id)
		if !ok {
			return res
		}

		diff := f.agent.GetGitPatch(ctx, id)
		hash := xxhash.Sum64String(diff)

		if prevSeen && hash == prevHash {
			retries++
			if retries >= f.cfg.MaxUnchangedRetries {
				return f.fail(m, id, prURL, fmt.Sprintf("agent unresponsive: patch unchanged across %d checks", retries))
			}
			fresh, changed := f.waitForPatchChange(ctx, id, hash)
			if !changed {
				f.debug("patch still unchanged, iteration not consumed", "session", id, "retries", retries)
				continue
			}
			diff, hash = fresh, xxhash.Sum64String(fresh)
		}
		retries = 0
		prevHash, prevSeen = hash, true

		if ok, threat := f.scanner.ScanDiff(diff); !ok {
			f.git.CleanupPR(ctx, prURL, false)
			return f.failSecurity(m, id, prURL, threat)
		}

		j := f.judge.Evaluate(ctx, m, diff, "")
		if scored && j.Score > prevScore && j.Score-prevScore >= minImprovement && bonus < f.cfg.MaxBonusIterations {
			bonus++
			f.debug("score improving, extending patience", "session", id, "score", j.Score, "bonus", bonus)
		}
		prevScore, scored = j.Score, true

		switch j.Verdict {
		case gate.VerdictPass:
			return f.stage(m, id, prURL, diff, j)
		case gate.VerdictTrash:
			f.git.CleanupPR(ctx, prURL, false)
			return f.fail(m, id, prURL, trashReason(j))
		default:
			limit := f.cfg.MaxIterations + bonus
			if iteration >= limit {
				f.git.CleanupPR(ctx, prURL, false)
				return f.fail(m, id, prURL, fmt.Sprintf("score %d after %d refinement iterations", j.Score, iteration))
			}
			f.sendRefinement(ctx, m, id, iteration, j)
			pause := f.cfg.RefinePause
			if len(j.CriticalIssues) > criticalIssueThreshold {
				pause = f.cfg.RefinePauseCritical
			}
			if err := f.sleep(ctx, pause); err != nil {
				return f.fail(m, id, prURL, "cancelled during refinement pause")
			}
			iteration++
		}
	}
}

// waitForPR blocks until the session exposes a pull request. The mission
// fails when the session dies first or the budget runs out.
func (f *Forge) waitForPR(ctx context.Context, m mission.Mission, id string) (string, mission.Result, bool) {
	for i := 0; i < f.cfg.PRWaitAttempts; i++ {
		sess := f.agent.GetSession(ctx, id)
		if sess != nil {
			if url := sess.PullRequestURL(); url != "" {
				return url, mission.Result{}, true
			}
			st := sess.Status()
			if st == agentapi.StatusFailed || st == agentapi.StatusError {
				return "", f.fail(m, id, "", fmt.Sprintf("session ended %s before opening a pull request", st)), false
			}
		}
		if err := f.sleep(ctx, f.cfg.PRWaitInterval); err != nil {
			return "", f.fail(m, id, "", "cancelled while waiting for a pull request"), false
		}
	}
	wait := time.Duration(f.cfg.PRWaitAttempts) * f.cfg.PRWaitInterval
	return "", f.fail(m, id, "", fmt.Sprintf("no pull request after %s", wait)), false
}

// waitForPatchChange gives the agent a short window to push new commits
// before the unchanged patch costs a retry.
func (f *Forge) waitForPatchChange(ctx context.Context, id string, prev uint64) (string, bool) {
	attempts := 1
	if f.cfg.UnchangedPoll > 0 {
		attempts = int(f.cfg.UnchangedWait / f.cfg.UnchangedPoll)
	}
	for i := 0; i < attempts; i++ {
		if err := f.sleep(ctx, f.cfg.UnchangedPoll); err != nil {
			return "", false
		}
		diff := f.agent.GetGitPatch(ctx, id)
		if xxhash.Sum64String(diff) != prev {
			return diff, true
		}
	}
	return "", false
}

func (f *Forge) stage(m mission.Mission, id, prURL, diff string, j gate.Judgment) mission.Result {
	p := staging.Project{
		Title:       m.Title,
		Description: m.Description,
		Repo:        m.Repo,
		SessionID:   id,
		PRURL:       prURL,
		Score:       j.Score,
	}
	if _, err := f.stager.Stage(p, diff); err != nil {
		return f.fail(m, id, prURL, fmt.Sprintf("staging the passing diff: %v", err))
	}
	f.info("mission staged", "mission", m.Title, "score", j.Score, "pr", prURL)
	return mission.Result{Status: mission.StatusSuccess, PRURL: prURL, Score: j.Score, SessionID: id}
}

// sendRefinement turns the judgment into the agent's next instruction.
func (f *Forge) sendRefinement(ctx context.Context, m mission.Mission, id string, iteration int, j gate.Judgment) {
	issues := make([]prompts.RefineIssue, 0, len(j.CriticalIssues))
	for _, is := range j.CriticalIssues {
		issues = append(issues, prompts.RefineIssue{
			Severity:    is.Severity,
			Description: is.Description,
			File:        is.File,
		})
	}
	fixes := make([]prompts.RefineFix, 0, len(j.GapAnalysis.Fixes))
	for _, fx := range j.GapAnalysis.Fixes {
		fixes = append(fixes, prompts.RefineFix{Action: fx.Action, Points: fx.Points})
	}
	msg, err := f.catalog.Render(prompts.MissionRefine, prompts.RefineData{
		Title:      m.Title,
		Iteration:  iteration,
		Score:      j.Score,
		PointsTo90: j.GapAnalysis.PointsTo90,
		Summary:    j.Feedback,
		Issues:     issues,
		Fixes:      fixes,
	})
	if err != nil {
		f.warn("rendering refinement prompt", "session", id, "error", err)
		msg = fmt.Sprintf("Score %d/100. %s", j.Score, j.Feedback)
	}
	if !f.agent.SendMessage(ctx, id, msg) {
		f.warn("sending refinement feedback failed", "session", id)
	}
}

// --- Repoless path ---

// runRepoless executes a standalone analysis mission: one session, no
// repository, no pull request. The session's own completion is the result.
func (f *Forge) runRepoless(ctx context.Context, m mission.Mission) mission.Result {
	prompt, err := f.missionPrompt(m)
	if err != nil {
		return f.fail(m, "", "", err.Error())
	}
	sess := f.agent.CreateRepolessSession(ctx, prompt, m.Title)
	if sess == nil {
		return f.fail(m, "", "", "creating repoless session failed")
	}
	id := sess.ID()
	f.track(m, id)

	for i := 0; i < f.cfg.RepolessAttempts; i++ {
		if err := f.sleep(ctx, f.cfg.RepolessInterval); err != nil {
			return f.fail(m, id, "", "cancelled while waiting for completion")
		}
		cur := f.agent.GetSession(ctx, id)
		if cur == nil {
			continue
		}
		switch st := cur.Status(); st {
		case agentapi.StatusCompleted:
			f.info("repoless mission completed", "mission", m.Title, "session", id)
			return mission.Result{Status: mission.StatusSuccess, SessionID: id}
		case agentapi.StatusFailed, agentapi.StatusError:
			return f.fail(m, id, "", fmt.Sprintf("session ended %s", st))
		}
	}
	wait := time.Duration(f.cfg.RepolessAttempts) * f.cfg.RepolessInterval
	return f.fail(m, id, "", fmt.Sprintf("no completion after %s", wait))
}

// --- Shared plumbing ---

func (f *Forge) missionPrompt(m mission.Mission) (string, error) {
	return f.catalog.Render(prompts.Mission, prompts.MissionData{
		Title:       m.Title,
		Description: m.Description,
		Repo:        m.Repo,
	})
}

// track registers the session in the durable active set and claims it for
// this mission. The heart owns the set afterwards; the forge only ever adds
// entries, at creation time. Claiming a new session releases the previous
// one, so an abandoned plan attempt falls back to the watchdog.
func (f *Forge) track(m mission.Mission, id string) {
	if f.claims != nil {
		if f.current != "" {
			f.claims.Release(f.current)
		}
		f.claims.Claim(id)
	}
	f.current = id

	err := f.mem.PutActiveSession(memory.ActiveSession{
		ID:    id,
		Title: m.Title,
		Repo:  m.Repo,
	})
	if err != nil {
		f.warn("registering active session", "session", id, "error", err)
	}
}

func (f *Forge) releaseCurrent() {
	if f.claims != nil && f.current != "" {
		f.claims.Release(f.current)
	}
	f.current = ""
}

// fail records the terminal failure in the learning store, raises a
// notification, and returns the FAILED result.
// failSecurity ends the mission over a forbidden pattern in the patch. The
// outcome is recorded as rejected and the notification carries the
// security kind.
func (f *Forge) failSecurity(m mission.Mission, id, prURL, threat string) mission.Result {
	reason := "security: " + threat
	f.warn("forbidden pattern in the patch", "mission", m.Title, "session", id, "threat", threat)
	err := f.mem.AppendOutcome(memory.Outcome{
		SessionID: id,
		Title:     m.Title,
		Status:    outcomeRejected,
		Reason:    reason,
		PRURL:     prURL,
	})
	if err != nil {
		f.warn("recording outcome", "mission", m.Title, "error", err)
	}
	if _, err := f.mem.Notify(memory.Notification{
		Kind:      memory.NoteSecurity,
		Title:     "Security violation: " + m.Title,
		Message:   "Forbidden pattern in the diff: " + threat,
		PRURL:     prURL,
		SessionID: id,
	}); err != nil {
		f.warn("raising notification", "mission", m.Title, "error", err)
	}
	return mission.Result{Status: mission.StatusFailed, PRURL: prURL, SessionID: id, Reason: reason}
}

func (f *Forge) fail(m mission.Mission, id, prURL, reason string) mission.Result {
	f.warn("mission failed", "mission", m.Title, "session", id, "reason", reason)
	err := f.mem.AppendOutcome(memory.Outcome{
		SessionID: id,
		Title:     m.Title,
		Status:    string(mission.StatusFailed),
		Reason:    reason,
		PRURL:     prURL,
	})
	if err != nil {
		f.warn("recording outcome", "mission", m.Title, "error", err)
	}
	if _, err := f.mem.Notify(memory.Notification{
		Kind:      memory.NoteInfo,
		Title:     "Mission failed: " + m.Title,
		Message:   reason,
		PRURL:     prURL,
		SessionID: id,
	}); err != nil {
		f.warn("raising notification", "mission", m.Title, "error", err)
	}
	return mission.Result{Status: mission.StatusFailed, PRURL: prURL, SessionID: id, Reason: reason}
}

func trashReason(j gate.Judgment) string {
	if j.Feedback != "" {
		return fmt.Sprintf("gate verdict TRASH (score %d): %s", j.Score, j.Feedback)
	}
	return fmt.Sprintf("gate verdict TRASH (score %d)", j.Score)
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Forge) debug(msg string, keyvals ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, keyvals...)
	}
}

func (f *Forge) info(msg string, keyvals ...interface{}) {
	if f.logger != nil {
		f.logger.Info(msg, keyvals...)
	}
}

func (f *Forge) warn(msg string, keyvals ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, keyvals...)
	}
}
