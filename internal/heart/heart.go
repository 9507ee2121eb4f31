// Package heart is the long-running watchdog over the durable active-session
// set. Every tick it fetches each session's status, nudges stuck plans through
// the critic, and walks pull requests through the security scan, the sandbox
// test run, and the confidence review before surfacing them as human
// decisions. Sessions claimed by an in-flight mission are left alone.
package heart

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/agentapi"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/critic"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/llm"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/sandbox"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/sanitize"
)

// confidenceFloor is the review confidence below which a pull request is
// closed instead of surfaced to the user.
const confidenceFloor = 50

// outcomeRejected marks outcomes where the watchdog closed the work itself.
const outcomeRejected = "REJECTED"

// testFileGlobs mark diff paths that count as test coverage.
var testFileGlobs = []string{
	"**/tests/**",
	"**/test_*",
}

// Agent is the session surface the watchdog polls.
type Agent interface {
	GetSession(ctx context.Context, id string) *agentapi.Session
	GetPlan(ctx context.Context, id string) *agentapi.Plan
	GetGitPatch(ctx context.Context, id string) string
	SendMessage(ctx context.Context, id, prompt string) bool
}

// PlanCritic reviews plans stuck at the approval gate.
type PlanCritic interface {
	Critique(ctx context.Context, m mission.Mission, steps []string) critic.Review
}

// Chatter is the LLM surface for the confidence review.
type Chatter interface {
	ChatFresh(ctx context.Context, system, user string) (string, llm.Usage, error)
}

// Sandbox runs the project tests and owns the probation lock.
type Sandbox interface {
	RunTests(ctx context.Context) sandbox.Result
	CheckProbation(lastConfidence int) bool
	ArmProbation() error
}

// Git closes pull requests the watchdog rejects.
type Git interface {
	CleanupPR(ctx context.Context, prURL string, merged bool) bool
}

// Memory is the slice of the durable store the watchdog reads and writes.
type Memory interface {
	ActiveSessions() ([]memory.ActiveSession, error)
	PutActiveSession(sess memory.ActiveSession) error
	RemoveActiveSession(id string) error
	AppendOutcome(o memory.Outcome) error
	Notify(n memory.Notification) (memory.Notification, error)
	RecordError(errText, sessionID string) (memory.HealerEntry, error)
	CanHeal(errText string) (bool, error)
	QueueSentinel(e memory.SentinelEntry) (bool, error)
}

// Logger is the minimal logging surface the watchdog needs. A nil Logger
// silently discards.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Deps are the collaborators a Heart needs. A nil Scanner falls back to the
// built-in exemptions.
type Deps struct {
	Agent   Agent
	Critic  PlanCritic
	Chat    Chatter
	Sandbox Sandbox
	Git     Git
	Memory  Memory
	Catalog *prompts.Catalog
	Scanner *sanitize.Scanner
	Logger  Logger
}

// Heart polls the active-session set on a fixed tick. It is the sole remover
// of sessions; missions only ever add them.
type Heart struct {
	agent   Agent
	critic  PlanCritic
	chat    Chatter
	sandbox Sandbox
	git     Git
	mem     Memory
	catalog *prompts.Catalog
	scanner *sanitize.Scanner
	cfg     config.HeartConfig
	logger  Logger

	mu           sync.Mutex
	claimed      map[string]struct{}
	planNotified map[string]bool

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a Heart from its collaborators.
func New(deps Deps, cfg config.HeartConfig) *Heart {
	scanner := deps.Scanner
	if scanner == nil {
		scanner = sanitize.NewScanner(nil)
	}
	return &Heart{
		agent:        deps.Agent,
		critic:       deps.Critic,
		chat:         deps.Chat,
		sandbox:      deps.Sandbox,
		git:          deps.Git,
		mem:          deps.Memory,
		catalog:      deps.Catalog,
		scanner:      scanner,
		cfg:          cfg,
		logger:       deps.Logger,
		claimed:      make(map[string]struct{}),
		planNotified: make(map[string]bool),
		sleep:        sleepContext,
	}
}

// Claim marks a session as owned by an in-flight mission so the watchdog
// skips it. Claims are process-local; a restart releases everything.
func (h *Heart) Claim(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.claimed[id] = struct{}{}
}

// Release returns a session to the watchdog.
func (h *Heart) Release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.claimed, id)
}

func (h *Heart) isClaimed(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.claimed[id]
	return ok
}

// Run polls until ctx is cancelled.
func (h *Heart) Run(ctx context.Context) error {
	h.info("heart started", "tick", h.cfg.Tick)
	for {
		if err := h.sleep(ctx, h.cfg.Tick); err != nil {
			h.info("heart stopped")
			return nil
		}
		h.Beat(ctx)
	}
}

// Beat processes every unclaimed active session once, serially.
func (h *Heart) Beat(ctx context.Context) {
	sessions, err := h.mem.ActiveSessions()
	if err != nil {
		h.warn("reading active sessions", "error", err)
		return
	}
	for _, sess := range sessions {
		if ctx.Err() != nil {
			return
		}
		if h.isClaimed(sess.ID) {
			h.debug("session claimed by a running mission", "session", sess.ID)
			continue
		}
		h.processSession(ctx, sess)
	}
}

func (h *Heart) processSession(ctx context.Context, sess memory.ActiveSession) {
	cur := h.agent.GetSession(ctx, sess.ID)
	if cur == nil {
		h.debug("session fetch failed, retrying next tick", "session", sess.ID)
		return
	}
	switch st := cur.Status(); st {
	case agentapi.StatusAwaitingPlanApproval:
		h.reviewPlan(ctx, sess)
	case agentapi.StatusPROpen:
		h.reviewPR(ctx, sess, cur.PullRequestURL())
	case agentapi.StatusFailed, agentapi.StatusError:
		h.reportDeath(sess, st)
	case agentapi.StatusCompleted:
		h.debug("session completed without a pull request, dropping", "session", sess.ID)
		h.drop(sess.ID)
	default:
		h.debug("session still working", "session", sess.ID, "status", string(st))
	}
}

// --- Plan approval ---

// reviewPlan handles a session stuck at the approval gate: while the
// refinement budget lasts, rejected plans get critic feedback; an approved
// plan or an exhausted budget becomes the user's call.
func (h *Heart) reviewPlan(ctx context.Context, sess memory.ActiveSession) {
	if sess.RefinementCount >= h.cfg.MaxRefinements {
		h.surfacePlanDecision(sess)
		return
	}

	steps := h.agent.GetPlan(ctx, sess.ID).StepSummaries()
	review := h.critic.Critique(ctx, mission.Mission{Title: sess.Title, Repo: sess.Repo}, steps)
	if review.Approved {
		h.surfacePlanDecision(sess)
		return
	}

	feedback := review.ImprovementPrompt
	if feedback == "" {
		feedback = review.Critique
	}
	if feedback == "" {
		feedback = "The plan needs rework; make it smaller and more focused."
	}
	if !h.agent.SendMessage(ctx, sess.ID, feedback) {
		h.warn("sending plan feedback failed", "session", sess.ID)
		return
	}
	sess.RefinementCount++
	h.put(sess)
	h.debug("plan feedback sent", "session", sess.ID, "refinements", sess.RefinementCount)
}

// surfacePlanDecision raises the approve-or-cancel event once per session and
// leaves the session in place.
func (h *Heart) surfacePlanDecision(sess memory.ActiveSession) {
	h.mu.Lock()
	seen := h.planNotified[sess.ID]
	h.planNotified[sess.ID] = true
	h.mu.Unlock()
	if seen {
		return
	}

	h.notify(memory.Notification{
		Kind:      memory.NoteDecision,
		Title:     "Plan approval needed: " + sess.Title,
		Message:   "Review the generated plan: approve it or cancel the session.",
		SessionID: sess.ID,
		Meta:      map[string]string{"actions": "APPROVE,CANCEL"},
	})
	h.info("plan decision surfaced", "session", sess.ID)
}

// --- Pull-request review ---

// reviewPR is the merge safety rail: probation, security scan, test run, the
// untested-code rule, then the confidence review. Anything below the floor is
// closed; everything else becomes a decision event and arms probation.
func (h *Heart) reviewPR(ctx context.Context, sess memory.ActiveSession, prURL string) {
	if !h.sandbox.CheckProbation(sess.LastConfidence) {
		h.debug("probation active, deferring review", "session", sess.ID)
		return
	}

	diff := h.agent.GetGitPatch(ctx, sess.ID)

	if ok, threat := h.scanner.ScanDiff(diff); !ok {
		h.git.CleanupPR(ctx, prURL, false)
		h.notify(memory.Notification{
			Kind:      memory.NoteSecurity,
			Title:     "Security violation: " + sess.Title,
			Message:   "Forbidden pattern in the diff: " + threat,
			PRURL:     prURL,
			SessionID: sess.ID,
		})
		h.record(sess, outcomeRejected, "security: "+threat, prURL)
		h.drop(sess.ID)
		return
	}

	if res := h.sandbox.RunTests(ctx); !res.Passed {
		h.git.CleanupPR(ctx, prURL, false)
		reason := truncate(res.Error, h.cfg.StderrNotifyMax)
		h.notify(memory.Notification{
			Kind:      memory.NoteInfo,
			Title:     "Tests failed: " + sess.Title,
			Message:   reason,
			PRURL:     prURL,
			SessionID: sess.ID,
		})
		h.record(sess, string(mission.StatusFailed), reason, prURL)
		h.drop(sess.ID)
		return
	}

	if untestedCode(diff) {
		h.git.CleanupPR(ctx, prURL, false)
		h.notify(memory.Notification{
			Kind:      memory.NoteInfo,
			Title:     "Rejected untested change: " + sess.Title,
			Message:   "The diff introduces new functions or classes but touches no test file.",
			PRURL:     prURL,
			SessionID: sess.ID,
		})
		h.record(sess, outcomeRejected, "new code without tests", prURL)
		h.drop(sess.ID)
		return
	}

	conf, verdict, reason := h.confidenceReview(ctx, sess, prURL, diff)
	if conf < confidenceFloor {
		h.git.CleanupPR(ctx, prURL, false)
		h.notify(memory.Notification{
			Kind:      memory.NoteInfo,
			Title:     "Low confidence: " + sess.Title,
			Message:   fmt.Sprintf("Confidence %d: %s", conf, reason),
			PRURL:     prURL,
			SessionID: sess.ID,
		})
		h.record(sess, outcomeRejected, fmt.Sprintf("confidence %d: %s", conf, reason), prURL)
		h.drop(sess.ID)
		return
	}

	h.notify(memory.Notification{
		Kind:      memory.NoteDecision,
		Title:     "Ready for review: " + sess.Title,
		Message:   fmt.Sprintf("Confidence %d (%s). %s", conf, verdict, reason),
		PRURL:     prURL,
		SessionID: sess.ID,
		Meta: map[string]string{
			"confidence": strconv.Itoa(conf),
			"verdict":    verdict,
			"actions":    "MERGE,PENDING,REJECT",
		},
	})
	h.record(sess, string(mission.StatusSuccess), reason, prURL)

	sess.PRURL = prURL
	sess.LastConfidence = conf
	h.put(sess)
	if err := h.sandbox.ArmProbation(); err != nil {
		h.warn("arming probation", "error", err)
	}
	h.info("review surfaced", "session", sess.ID, "confidence", conf, "verdict", verdict)
}

// confidenceReview asks the model how likely a human maintainer is to merge
// the pull request. Unavailable or unparseable reviews surface at the floor
// rather than closing work that already passed the scan and the tests.
func (h *Heart) confidenceReview(ctx context.Context, sess memory.ActiveSession, prURL, diff string) (int, string, string) {
	system, err := h.catalog.Render(prompts.ReviewSystem, nil)
	if err != nil {
		h.warn("rendering review prompt", "error", err)
		return confidenceFloor, "PENDING", "confidence review unavailable"
	}
	user, err := h.catalog.Render(prompts.ReviewUser, prompts.ReviewData{
		Title: sess.Title,
		Repo:  sess.Repo,
		PRURL: prURL,
		Diff:  diff,
	})
	if err != nil {
		h.warn("rendering review prompt", "error", err)
		return confidenceFloor, "PENDING", "confidence review unavailable"
	}

	raw, _, err := h.chat.ChatFresh(ctx, system, user)
	if err != nil {
		h.warn("confidence review call failed", "session", sess.ID, "error", err)
		return confidenceFloor, "PENDING", "confidence review unavailable"
	}
	conf, verdict, reason, ok := parseReview(llm.StripThinkBlocks(raw))
	if !ok {
		h.warn("confidence review unparseable", "session", sess.ID)
		return confidenceFloor, "PENDING", "confidence review unparseable"
	}
	return conf, verdict, reason
}

// parseReview extracts the CONFIDENCE/VERDICT/REASON block. ok is false when
// no confidence line parses.
func parseReview(s string) (conf int, verdict, reason string, ok bool) {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CONFIDENCE:"):
			v := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if n, err := strconv.Atoi(v); err == nil {
				conf, ok = clampConfidence(n), true
			}
		case strings.HasPrefix(line, "VERDICT:"):
			verdict = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "VERDICT:")))
		case strings.HasPrefix(line, "REASON:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "REASON:"))
		}
	}
	return conf, verdict, reason, ok
}

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// untestedCode reports whether the diff adds a function or class outside test
// paths while touching no test file at all.
func untestedCode(diff string) bool {
	file := ""
	hasTestFile := false
	introduces := false

	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			file = pathFromGitHeader(line)
			if isTestFile(file) {
				hasTestFile = true
			}
			continue
		case strings.HasPrefix(line, "+++ b/"):
			file = strings.TrimPrefix(line, "+++ b/")
			if isTestFile(file) {
				hasTestFile = true
			}
			continue
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		}

		if !strings.HasPrefix(line, "+") || isTestFile(file) {
			continue
		}
		content := strings.TrimSpace(line[1:])
		if strings.HasPrefix(content, "def ") ||
			strings.HasPrefix(content, "async def ") ||
			strings.HasPrefix(content, "class ") {
			introduces = true
		}
	}
	return introduces && !hasTestFile
}

func pathFromGitHeader(line string) string {
	fields := strings.Fields(line)
	last := fields[len(fields)-1]
	return strings.TrimPrefix(last, "b/")
}

func isTestFile(path string) bool {
	if path == "" {
		return false
	}
	for _, glob := range testFileGlobs {
		if ok, err := doublestar.Match(glob, path); err == nil && ok {
			return true
		}
	}
	return false
}

// --- Session death ---

// reportDeath records the failure fingerprint, queues a heal suggestion while
// the error is not yet chronic, and drops the session.
func (h *Heart) reportDeath(sess memory.ActiveSession, st agentapi.Status) {
	detail := fmt.Sprintf("%s: session ended %s", sess.Title, st)
	recurring := false
	if entry, err := h.mem.RecordError(detail, sess.ID); err == nil {
		recurring = entry.Status == memory.HealerRecurring
		if ok, herr := h.mem.CanHeal(detail); herr == nil && ok {
			queued, qerr := h.mem.QueueSentinel(memory.SentinelEntry{
				Title:  "Heal failing mission: " + sess.Title,
				Reason: entry.Sample,
				Repo:   sess.Repo,
			})
			if qerr == nil && queued {
				h.debug("heal suggestion queued", "session", sess.ID)
			}
		}
	} else {
		h.warn("recording failure fingerprint", "session", sess.ID, "error", err)
	}

	msg := fmt.Sprintf("Session ended %s.", st)
	if recurring {
		msg += " This failure keeps recurring; automated healing is suspended."
	}
	h.notify(memory.Notification{
		Kind:      memory.NoteInfo,
		Title:     "Session died: " + sess.Title,
		Message:   msg,
		SessionID: sess.ID,
	})
	h.record(sess, string(mission.StatusFailed), fmt.Sprintf("session ended %s", st), "")
	h.drop(sess.ID)
}

// --- Store plumbing ---

func (h *Heart) put(sess memory.ActiveSession) {
	if err := h.mem.PutActiveSession(sess); err != nil {
		h.warn("persisting session", "session", sess.ID, "error", err)
	}
}

func (h *Heart) drop(id string) {
	if err := h.mem.RemoveActiveSession(id); err != nil {
		h.warn("dropping session", "session", id, "error", err)
	}
	h.mu.Lock()
	delete(h.planNotified, id)
	h.mu.Unlock()
}

func (h *Heart) record(sess memory.ActiveSession, status, reason, prURL string) {
	err := h.mem.AppendOutcome(memory.Outcome{
		SessionID: sess.ID,
		Title:     sess.Title,
		Status:    status,
		Reason:    reason,
		PRURL:     prURL,
	})
	if err != nil {
		h.warn("recording outcome", "session", sess.ID, "error", err)
	}
}

func (h *Heart) notify(n memory.Notification) {
	if _, err := h.mem.Notify(n); err != nil {
		h.warn("raising notification", "session", n.SessionID, "error", err)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
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

func (h *Heart) debug(msg string, keyvals ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(msg, keyvals...)
	}
}

func (h *Heart) info(msg string, keyvals ...interface{}) {
	if h.logger != nil {
		h.logger.Info(msg, keyvals...)
	}
}

func (h *Heart) warn(msg string, keyvals ...interface{}) {
	if h.logger != nil {
		h.logger.Warn(msg, keyvals...)
	}
}
