// Package council runs the nightly proposal pipeline: collect candidate
// missions from the ideation, insider, harvest and external sources in
// parallel, cross-validate and rank them, weed out duplicates, then
// dispatch missions through the forge until the night's success quota is
// met or the pool runs dry.
package council

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/jsonutil"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/llm"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

// ErrAlreadyRunning is returned by Convene while a previous run is still in
// flight. The HTTP trigger maps it to a conflict response.
var ErrAlreadyRunning = errors.New("council: already running")

const (
	dateLayout = "2006-01-02"

	verdictApproved = "APPROVED"
	verdictRejected = "REJECTED"

	briefReady  = "ready"
	briefEmpty  = "empty"
	briefFailed = "failed"

	// avoidWindow is how many recent outcomes feed the ideation prompt's
	// do-not-repeat list.
	avoidWindow = 10

	// treeMaxFiles caps the file listing sent to the insider member.
	treeMaxFiles = 400

	// treeMaxNotes caps the structural notes derived from the listing.
	treeMaxNotes = 6
)

// Chatter is the uncached completion surface the council deliberates with.
type Chatter interface {
	ChatFresh(ctx context.Context, system, user string) (string, llm.Usage, error)
}

// Runner executes one mission end to end.
type Runner interface {
	Run(ctx context.Context, m mission.Mission) mission.Result
}

// Staging is the staged-project surface the quota accounting reads.
type Staging interface {
	List() ([]staging.Project, error)
	RejectedTitles() (map[string]bool, error)
}

// Memory is the persistent surface the council reads proposals from and
// writes its reports to.
type Memory interface {
	Suggestions() ([]memory.Suggestion, error)
	TakeEvolution() ([]mission.Mission, error)
	TakeSentinel() ([]memory.SentinelEntry, error)
	Outcomes() ([]memory.Outcome, error)
	SaveBrief(b memory.Brief) error
	SaveExecution(e memory.Execution) error
}

// Git is the local-checkout surface the insider scan reads.
type Git interface {
	ListTree(ctx context.Context, dir string) []string
}

// Logger is the minimal logging surface the council needs.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Deps are the collaborators a Council needs.
type Deps struct {
	Chat    Chatter
	Forge   Runner
	Staging Staging
	Memory  Memory
	Git     Git
	Catalog *prompts.Catalog
	Logger  Logger
}

// Council is the nightly pipeline.
type Council struct {
	chat     Chatter
	forge    Runner
	staging  Staging
	mem      Memory
	git      Git
	catalog  *prompts.Catalog
	cfg      config.CouncilConfig
	reposDir string
	logger   Logger

	mu      sync.Mutex
	running bool
	started time.Time

	now func() time.Time
}

// New creates a Council. reposDir holds the local checkouts the insider
// scan reads; it is also the repo-list fallback when cfg.Repos is empty.
func New(deps Deps, cfg config.CouncilConfig, reposDir string) *Council {
	return &Council{
		chat:     deps.Chat,
		forge:    deps.Forge,
		staging:  deps.Staging,
		mem:      deps.Memory,
		git:      deps.Git,
		catalog:  deps.Catalog,
		cfg:      cfg,
		reposDir: reposDir,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Running reports whether a run is in flight and when it started.
func (c *Council) Running() (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running, c.started
}

// Convene executes one full council run and returns its execution report.
// A second caller gets ErrAlreadyRunning until the first run finishes;
// everything else the run learns is persisted, so the error return matters
// only for the stages before the brief is written.
func (c *Council) Convene(ctx context.Context) (memory.Execution, error) {
	if err := c.begin(); err != nil {
		return memory.Execution{}, err
	}
	defer c.end()

	night := c.now().Format(dateLayout)
	c.info("council convened", "date", night)

	projects, err := c.staging.List()
	if err != nil {
		c.warn("listing staged projects", "error", err)
	}

	candidates := c.collect(ctx)
	c.info("candidates collected", "count", len(candidates))

	var ranked []memory.BriefCandidate
	if len(candidates) > 0 {
		ranked, err = c.validate(ctx, candidates)
		if err != nil {
			c.saveBrief(night, nil, briefFailed)
			return memory.Execution{}, err
		}
	}

	status := briefReady
	if len(ranked) == 0 {
		status = briefEmpty
	}
	c.saveBrief(night, ranked, status)

	kept := c.dedup(ctx, approvedOf(ranked), stagedTitles(projects))
	pool := c.pool(kept)

	report := c.dispatch(ctx, night, pool, len(projects))
	if err := c.mem.SaveExecution(report); err != nil {
		c.warn("saving execution report", "error", err)
	}
	c.info("nightly run complete",
		"target", report.Target,
		"achieved", report.Achieved,
		"attempted", report.TotalAttempted,
		"pool", report.PoolSize,
	)
	return report, nil
}

func (c *Council) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true
	c.started = c.now()
	return nil
}

func (c *Council) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// --- Collection ---

// proposal is the row shape the ideation and insider prompts return.
type proposal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Repo        string `json:"repo"`
	Kind        string `json:"kind"`
	Rationale   string `json:"rationale"`
}

// collect gathers candidates from all sources and collapses exact-title
// duplicates, first occurrence wins. Collectors log their own failures and
// contribute nothing on error.
func (c *Council) collect(ctx context.Context) []mission.Mission {
	suggestions, err := c.mem.Suggestions()
	if err != nil {
		c.warn("reading suggestion cache", "error", err)
	}

	var creative, insider, external []mission.Mission
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		creative = c.ideate(gctx, suggestions)
		return nil
	})
	g.Go(func() error {
		insider = c.scanRepo(gctx)
		return nil
	})
	g.Go(func() error {
		external = c.external()
		return nil
	})
	harvested := harvestMissions(suggestions)
	_ = g.Wait()

	pool := make([]mission.Mission, 0, len(creative)+len(insider)+len(harvested)+len(external))
	pool = append(pool, creative...)
	pool = append(pool, insider...)
	pool = append(pool, harvested...)
	pool = append(pool, external...)

	seen := make(map[string]bool, len(pool))
	out := make([]mission.Mission, 0, len(pool))
	for _, m := range pool {
		key := m.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// ideate asks the creative member for open-ended proposals. The harvested
// suggestions ride along as hints; any overlap with the direct harvest
// candidates is resolved by the dedup stage, which keeps the more precise
// phrasing.
func (c *Council) ideate(ctx context.Context, suggestions []memory.Suggestion) []mission.Mission {
	data := prompts.IdeateData{
		Count:   c.cfg.TargetSuccesses * c.cfg.AttemptFactor,
		Repos:   c.repos(),
		Avoid:   c.recentTitles(),
		Harvest: harvestHints(suggestions),
	}
	system, err := c.catalog.Render(prompts.IdeateSystem, nil)
	if err != nil {
		c.warn("rendering ideation prompt", "error", err)
		return nil
	}
	user, err := c.catalog.Render(prompts.IdeateUser, data)
	if err != nil {
		c.warn("rendering ideation prompt", "error", err)
		return nil
	}
	content, _, err := c.chat.ChatFresh(ctx, system, user)
	if err != nil {
		c.warn("ideation failed", "error", err)
		return nil
	}
	var props []proposal
	if err := jsonutil.Into(content, &props); err != nil {
		c.warn("unparseable ideation reply", "error", err)
		return nil
	}
	return missionsFrom(props, mission.SourceCreative)
}

// scanRepo feeds one repository's file tree to the insider member. Repos
// rotate by day so every checkout gets scanned over time.
func (c *Council) scanRepo(ctx context.Context) []mission.Mission {
	repos := c.repos()
	if len(repos) == 0 {
		c.debug("insider scan skipped, no repositories")
		return nil
	}
	repo := repos[c.now().YearDay()%len(repos)]
	dir := filepath.Join(c.reposDir, path.Base(repo))
	files := c.git.ListTree(ctx, dir)
	if len(files) == 0 {
		c.warn("insider scan found no checkout", "repo", repo, "dir", dir)
		return nil
	}

	data := prompts.InsiderData{
		Count: c.cfg.TargetSuccesses,
		Repo:  repo,
		Tree:  renderTree(files),
		Notes: treeNotes(files),
	}
	system, err := c.catalog.Render(prompts.InsiderSystem, nil)
	if err != nil {
		c.warn("rendering insider prompt", "error", err)
		return nil
	}
	user, err := c.catalog.Render(prompts.InsiderUser, data)
	if err != nil {
		c.warn("rendering insider prompt", "error", err)
		return nil
	}
	content, _, err := c.chat.ChatFresh(ctx, system, user)
	if err != nil {
		c.warn("insider scan failed", "repo", repo, "error", err)
		return nil
	}
	var props []proposal
	if err := jsonutil.Into(content, &props); err != nil {
		c.warn("unparseable insider reply", "error", err)
		return nil
	}

	out := missionsFrom(props, mission.SourceInsider)
	for i := range out {
		if out[i].Repo == "" {
			out[i].Repo = repo
		}
		out[i].RequiresRepo = true
	}
	return out
}

// external drains the evolution file and the sentinel queue. Both reads
// clear their source, so a candidate that loses tonight's validation is
// gone; the feeder owns re-submission.
func (c *Council) external() []mission.Mission {
	var out []mission.Mission

	evolved, err := c.mem.TakeEvolution()
	if err != nil {
		c.warn("draining evolution proposals", "error", err)
	}
	for _, m := range evolved {
		if m.Source == "" {
			m.Source = mission.SourceEvolution
		}
		out = append(out, m)
	}

	queued, err := c.mem.TakeSentinel()
	if err != nil {
		c.warn("draining sentinel queue", "error", err)
	}
	for _, e := range queued {
		out = append(out, sentinelMission(e))
	}
	return out
}

// harvestMissions turns the suggestion cache into direct candidates.
func harvestMissions(list []memory.Suggestion) []mission.Mission {
	out := make([]mission.Mission, 0, len(list))
	for _, s := range list {
		desc := s.Description
		if s.Location != "" {
			desc = fmt.Sprintf("%s (see %s)", desc, s.Location)
		}
		out = append(out, mission.Mission{
			Title:       s.Title,
			Description: desc,
			Rationale:   "harvested suggestion, priority " + s.Priority,
			Source:      mission.SourceHarvest,
		})
	}
	return out
}

// harvestHints formats suggestions for the ideation prompt.
func harvestHints(list []memory.Suggestion) []string {
	hints := make([]string, 0, len(list))
	for _, s := range list {
		if s.Location != "" {
			hints = append(hints, s.Title+" ("+s.Location+")")
			continue
		}
		hints = append(hints, s.Title)
	}
	return hints
}

func sentinelMission(e memory.SentinelEntry) mission.Mission {
	desc := strings.TrimSpace(e.Reason)
	if desc == "" {
		desc = "Investigate and fix the failure recorded for this mission."
	}
	return mission.Mission{
		Title:        e.Title,
		Description:  desc,
		Rationale:    "queued by the watchdog after a session failure",
		RequiresRepo: e.Repo != "",
		Repo:         e.Repo,
		Source:       mission.SourceSentinel,
		Kind:         mission.KindFix,
	}
}

func missionsFrom(props []proposal, src mission.Source) []mission.Mission {
	out := make([]mission.Mission, 0, len(props))
	for _, p := range props {
		title := strings.TrimSpace(p.Title)
		desc := strings.TrimSpace(p.Description)
		if title == "" || desc == "" {
			continue
		}
		repo := strings.TrimSpace(p.Repo)
		out = append(out, mission.Mission{
			Title:        title,
			Description:  desc,
			Rationale:    strings.TrimSpace(p.Rationale),
			RequiresRepo: repo != "",
			Repo:         repo,
			Source:       src,
			Kind:         mission.Kind(strings.ToLower(strings.TrimSpace(p.Kind))),
		})
	}
	return out
}

// recentTitles lists the most recent outcome titles, newest first, for the
// ideation prompt's do-not-repeat section.
func (c *Council) recentTitles() []string {
	outcomes, err := c.mem.Outcomes()
	if err != nil {
		c.warn("reading outcome history", "error", err)
		return nil
	}
	if len(outcomes) > avoidWindow {
		outcomes = outcomes[len(outcomes)-avoidWindow:]
	}
	seen := make(map[string]bool, len(outcomes))
	var titles []string
	for i := len(outcomes) - 1; i >= 0; i-- {
		title := outcomes[i].Title
		key := mission.NormalizeTitle(title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, title)
	}
	return titles
}

// repos returns the repositories under management: the configured list, or
// the checkouts found under reposDir when the list is empty.
func (c *Council) repos() []string {
	if len(c.cfg.Repos) > 0 {
		return c.cfg.Repos
	}
	entries, err := os.ReadDir(c.reposDir)
	if err != nil {
		c.debug("scanning repos dir", "dir", c.reposDir, "error", err)
		return nil
	}
	var repos []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.reposDir, e.Name(), ".git")); err != nil {
			continue
		}
		repos = append(repos, e.Name())
	}
	return repos
}

func renderTree(files []string) string {
	if len(files) <= treeMaxFiles {
		return strings.Join(files, "\n")
	}
	head := strings.Join(files[:treeMaxFiles], "\n")
	return fmt.Sprintf("%s\n... and %d more files", head, len(files)-treeMaxFiles)
}

// treeNotes summarizes where the files live: the largest top-level
// directories by file count.
func treeNotes(files []string) []string {
	counts := make(map[string]int)
	for _, f := range files {
		top := "./"
		if i := strings.IndexByte(f, '/'); i >= 0 {
			top = f[:i] + "/"
		}
		counts[top]++
	}
	dirs := make([]string, 0, len(counts))
	for d := range counts {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		if counts[dirs[i]] != counts[dirs[j]] {
			return counts[dirs[i]] > counts[dirs[j]]
		}
		return dirs[i] < dirs[j]
	})
	if len(dirs) > treeMaxNotes {
		dirs = dirs[:treeMaxNotes]
	}
	notes := make([]string, 0, len(dirs))
	for _, d := range dirs {
		notes = append(notes, fmt.Sprintf("%s: %d files", d, counts[d]))
	}
	return notes
}

// --- Cross-validation ---

// verdictRow is the per-candidate annotation the validation prompt returns.
type verdictRow struct {
	Index        int    `json:"index"`
	Verdict      string `json:"verdict"`
	Confidence   int    `json:"confidence"`
	RequiresRepo bool   `json:"requires_repo"`
}

// validate ranks the candidates. Every input candidate comes back as a
// brief row: annotated by the model, or rejected when the model skipped
// it. Rows are ordered by descending confidence.
func (c *Council) validate(ctx context.Context, candidates []mission.Mission) ([]memory.BriefCandidate, error) {
	rows := make([]prompts.Candidate, len(candidates))
	for i, m := range candidates {
		rows[i] = prompts.Candidate{
			Index:       i,
			Title:       m.Title,
			Description: m.Description,
			Source:      string(m.Source),
		}
	}
	system, err := c.catalog.Render(prompts.ValidateSystem, nil)
	if err != nil {
		return nil, fmt.Errorf("council: rendering validation prompt: %w", err)
	}
	user, err := c.catalog.Render(prompts.ValidateUser, prompts.ValidateData{Candidates: rows})
	if err != nil {
		return nil, fmt.Errorf("council: rendering validation prompt: %w", err)
	}
	content, _, err := c.chat.ChatFresh(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("council: cross-validation: %w", err)
	}
	var verdicts []verdictRow
	if err := jsonutil.Into(content, &verdicts); err != nil {
		return nil, fmt.Errorf("council: cross-validation: %w", err)
	}

	ranked := make([]memory.BriefCandidate, 0, len(candidates))
	seen := make(map[int]bool, len(verdicts))
	for _, v := range verdicts {
		if v.Index < 0 || v.Index >= len(candidates) || seen[v.Index] {
			continue
		}
		seen[v.Index] = true
		m := candidates[v.Index]
		m.Confidence = clampConfidence(v.Confidence)
		m.RequiresRepo = v.RequiresRepo
		ranked = append(ranked, memory.BriefCandidate{
			Mission:    m,
			Verdict:    strings.ToUpper(strings.TrimSpace(v.Verdict)),
			Confidence: m.Confidence,
		})
	}
	for i, m := range candidates {
		if seen[i] {
			continue
		}
		c.debug("candidate skipped by validator", "title", m.Title)
		ranked = append(ranked, memory.BriefCandidate{Mission: m, Verdict: verdictRejected})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked, nil
}

func approvedOf(ranked []memory.BriefCandidate) []memory.BriefCandidate {
	out := make([]memory.BriefCandidate, 0, len(ranked))
	for _, b := range ranked {
		if b.Verdict == verdictApproved {
			out = append(out, b)
		}
	}
	return out
}

// --- Deduplication ---

// dedupReply is the shape the dedup prompt returns.
type dedupReply struct {
	KeepIndices []int `json:"keep_indices"`
	Duplicates  []struct {
		Index       int    `json:"index"`
		DuplicateOf string `json:"duplicate_of"`
	} `json:"duplicates"`
}

// dedup drops candidates the model judges equivalent to each other or to
// already-staged work. Deduplication fails open: losing it costs at worst
// a redundant attempt, whereas failing closed would cancel the night.
func (c *Council) dedup(ctx context.Context, kept []memory.BriefCandidate, staged []string) []memory.BriefCandidate {
	if len(kept) == 0 || (len(kept) < 2 && len(staged) == 0) {
		return kept
	}
	rows := make([]prompts.Candidate, len(kept))
	for i, b := range kept {
		rows[i] = prompts.Candidate{
			Index:       i,
			Title:       b.Title,
			Description: b.Description,
			Source:      string(b.Source),
		}
	}
	system, err := c.catalog.Render(prompts.DedupSystem, nil)
	if err != nil {
		c.warn("rendering dedup prompt", "error", err)
		return kept
	}
	user, err := c.catalog.Render(prompts.DedupUser, prompts.DedupData{Candidates: rows, StagedTitles: staged})
	if err != nil {
		c.warn("rendering dedup prompt", "error", err)
		return kept
	}
	content, _, err := c.chat.ChatFresh(ctx, system, user)
	if err != nil {
		c.warn("deduplication failed, keeping all candidates", "error", err)
		return kept
	}
	var reply dedupReply
	if err := jsonutil.Into(content, &reply); err != nil {
		c.warn("unparseable dedup reply, keeping all candidates", "error", err)
		return kept
	}
	if len(reply.KeepIndices) == 0 && len(reply.Duplicates) == 0 {
		c.warn("empty dedup reply, keeping all candidates")
		return kept
	}

	for _, d := range reply.Duplicates {
		if d.Index >= 0 && d.Index < len(kept) {
			c.debug("duplicate dropped", "title", kept[d.Index].Title, "duplicate_of", d.DuplicateOf)
		}
	}
	out := make([]memory.BriefCandidate, 0, len(reply.KeepIndices))
	seen := make(map[int]bool, len(reply.KeepIndices))
	for _, i := range reply.KeepIndices {
		if i < 0 || i >= len(kept) || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, kept[i])
	}
	return out
}

// --- Dispatch ---

// pool turns the surviving brief rows back into dispatchable missions. A
// candidate the validator marked repo-bound but that names no repository is
// anchored to the primary repo, or dropped when none is configured.
func (c *Council) pool(kept []memory.BriefCandidate) []mission.Mission {
	primary := ""
	if repos := c.repos(); len(repos) > 0 {
		primary = repos[0]
	}
	out := make([]mission.Mission, 0, len(kept))
	for _, b := range kept {
		m := b.Mission
		if m.RequiresRepo && m.Repo == "" {
			if primary == "" {
				c.warn("dropping candidate with no repository to target", "title", m.Title)
				continue
			}
			m.Repo = primary
		}
		out = append(out, m)
	}
	return out
}

// dispatch runs the quota loop: batches of min(needed, remaining) missions
// go through the forge sequentially until the adjusted target is met, the
// pool is exhausted, or the attempt budget runs out.
func (c *Council) dispatch(ctx context.Context, night string, pool []mission.Mission, staged int) memory.Execution {
	report := memory.Execution{
		Date:     night,
		PoolSize: len(pool),
		Results:  []memory.MissionOutcome{},
	}
	report.Target = c.cfg.TargetSuccesses - staged
	if report.Target <= 0 {
		report.Target = 0
		c.info("staging already at quota", "staged", staged)
		return report
	}
	if len(pool) == 0 {
		return report
	}

	rejected, err := c.staging.RejectedTitles()
	if err != nil {
		c.warn("reading rejected titles", "error", err)
	}

	maxAttempts := c.cfg.TargetSuccesses * c.cfg.AttemptFactor
	next := 0
	for report.Achieved < report.Target && next < len(pool) && report.TotalAttempted < maxAttempts {
		batch := report.Target - report.Achieved
		if remaining := len(pool) - next; batch > remaining {
			batch = remaining
		}
		if left := maxAttempts - report.TotalAttempted; batch > left {
			batch = left
		}
		report.Batches++
		c.debug("dispatch batch", "batch", report.Batches, "size", batch)

		for i := 0; i < batch; i++ {
			if ctx.Err() != nil {
				break
			}
			m := pool[next]
			next++
			if rejected[m.Key()] {
				c.debug("skipping rejected title", "title", m.Title)
				continue
			}
			report.TotalAttempted++
			c.info("dispatching mission", "title", m.Title, "source", m.Source, "attempt", report.TotalAttempted)
			res := c.forge.Run(ctx, m)
			report.Results = append(report.Results, memory.MissionOutcome{
				Title:     m.Title,
				Status:    string(res.Status),
				PRURL:     res.PRURL,
				Score:     res.Score,
				SessionID: res.SessionID,
				Reason:    res.Reason,
			})
			if res.Succeeded() {
				report.Achieved++
			}
		}
		if ctx.Err() != nil {
			c.warn("dispatch cancelled", "attempted", report.TotalAttempted)
			break
		}
	}
	return report
}

// --- Plumbing ---

func (c *Council) saveBrief(date string, ranked []memory.BriefCandidate, status string) {
	if ranked == nil {
		ranked = []memory.BriefCandidate{}
	}
	brief := memory.Brief{Date: date, Candidates: ranked, Status: status, Total: len(ranked)}
	if err := c.mem.SaveBrief(brief); err != nil {
		c.warn("saving morning brief", "error", err)
	}
}

func stagedTitles(projects []staging.Project) []string {
	titles := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Title != "" {
			titles = append(titles, p.Title)
		}
	}
	return titles
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

func (c *Council) debug(msg string, keyvals ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func (c *Council) info(msg string, keyvals ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, keyvals...)
	}
}

func (c *Council) warn(msg string, keyvals ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, keyvals...)
	}
}
