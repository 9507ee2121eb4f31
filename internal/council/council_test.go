package council

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/llm"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

const (
	stageIdeate   = "ideate"
	stageInsider  = "insider"
	stageValidate = "validate"
	stageDedup    = "dedup"
)

// fakeChat answers by pipeline stage, recognized from the system prompt.
// Ideation and the insider scan run concurrently, hence the mutex.
type fakeChat struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	users   map[string]string
	calls   map[string]int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		replies: map[string]string{
			stageIdeate:   "[]",
			stageInsider:  "[]",
			stageValidate: "[]",
			stageDedup:    `{"keep_indices":[],"duplicates":[]}`,
		},
		errs:  map[string]error{},
		users: map[string]string{},
		calls: map[string]int{},
	}
}

func (c *fakeChat) set(stage, reply string) { c.replies[stage] = reply }

func (c *fakeChat) fail(stage string, err error) { c.errs[stage] = err }

func (c *fakeChat) user(stage string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users[stage]
}

func (c *fakeChat) count(stage string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[stage]
}

func (c *fakeChat) ChatFresh(_ context.Context, system, user string) (string, llm.Usage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stage := stageOf(system)
	c.calls[stage]++
	c.users[stage] = user
	if err := c.errs[stage]; err != nil {
		return "", llm.Usage{}, err
	}
	return c.replies[stage], llm.Usage{}, nil
}

func stageOf(system string) string {
	switch {
	case strings.Contains(system, "ideation member"):
		return stageIdeate
	case strings.Contains(system, "insider member"):
		return stageInsider
	case strings.Contains(system, "validation member"):
		return stageValidate
	case strings.Contains(system, "deduplicate proposals"):
		return stageDedup
	}
	return "unknown"
}

type fakeForge struct {
	mu  sync.Mutex
	fn  func(call int, m mission.Mission) mission.Result
	run []mission.Mission
}

func (f *fakeForge) Run(_ context.Context, m mission.Mission) mission.Result {
	f.mu.Lock()
	f.run = append(f.run, m)
	call := len(f.run)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return mission.Result{Status: mission.StatusSuccess, PRURL: "https://github.com/acme/widget/pull/1"}
	}
	return fn(call, m)
}

func (f *fakeForge) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.run)
}

func (f *fakeForge) ran() []mission.Mission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mission.Mission(nil), f.run...)
}

type fakeGit struct {
	files []string
	dirs  []string
}

func (g *fakeGit) ListTree(_ context.Context, dir string) []string {
	g.dirs = append(g.dirs, dir)
	return g.files
}

// nullGit satisfies the staging store's PR surface; council tests never
// exercise it.
type nullGit struct{}

func (nullGit) MergePR(context.Context, string, bool) bool { return true }
func (nullGit) ClosePR(context.Context, string) bool       { return true }
func (nullGit) DeleteBranch(context.Context, string) bool  { return true }

type harness struct {
	council  *Council
	chat     *fakeChat
	forge    *fakeForge
	git      *fakeGit
	mem      *memory.Store
	staging  *staging.Store
	catalog  *prompts.Catalog
	cfg      config.CouncilConfig
	reposDir string
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog, err := prompts.New("en")
	require.NoError(t, err)
	store, err := staging.New(t.TempDir(), nullGit{}, nil)
	require.NoError(t, err)
	mem, err := memory.New(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		chat:     newFakeChat(),
		forge:    &fakeForge{},
		git:      &fakeGit{},
		mem:      mem,
		staging:  store,
		catalog:  catalog,
		cfg:      config.NewDefaults().Council,
		reposDir: t.TempDir(),
		now:      time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	h.build()
	return h
}

// build reconstructs the council so tests can mutate h.cfg first.
func (h *harness) build() {
	h.council = New(Deps{
		Chat:    h.chat,
		Forge:   h.forge,
		Staging: h.staging,
		Memory:  h.mem,
		Git:     h.git,
		Catalog: h.catalog,
	}, h.cfg, h.reposDir)
	h.council.now = func() time.Time { return h.now }
}

func (h *harness) seedEvolution(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		m := mission.Mission{
			Title:       title,
			Description: "Do the work for " + title + ".",
			Source:      mission.SourceEvolution,
		}
		require.NoError(t, h.mem.AppendEvolution(m))
	}
}

func numbered(n int) []string {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("Mission %d", i)
	}
	return titles
}

const stageDiff = "diff --git a/app/x.py b/app/x.py\n--- a/app/x.py\n+++ b/app/x.py\n@@ -1 +1,2 @@\n line\n+more\n"

func (h *harness) stageProject(t *testing.T, title string) staging.Project {
	t.Helper()
	p, err := h.staging.Stage(staging.Project{
		Title: title,
		Repo:  "acme/widget",
		PRURL: "https://github.com/acme/widget/pull/3",
	}, stageDiff)
	require.NoError(t, err)
	return p
}

// approveAll builds a validation reply approving every candidate, with
// confidence descending in index order so the pool keeps the input order.
func approveAll(n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"index":%d,"verdict":"APPROVED","confidence":%d,"requires_repo":false}`, i, 90-i)
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func keepAll(n int) string {
	idx := make([]string, n)
	for i := range idx {
		idx[i] = strconv.Itoa(i)
	}
	return fmt.Sprintf(`{"keep_indices":[%s],"duplicates":[]}`, strings.Join(idx, ","))
}

// --- Quota dispatch ---

func TestConvene_QuotaLoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, numbered(10)...)
	h.chat.set(stageValidate, approveAll(10))
	h.chat.set(stageDedup, keepAll(10))
	h.forge.fn = func(call int, _ mission.Mission) mission.Result {
		if call%2 == 0 {
			return mission.Result{Status: mission.StatusSuccess}
		}
		return mission.Result{Status: mission.StatusFailed, Reason: "tests failed"}
	}

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Target)
	assert.Equal(t, 3, report.Achieved)
	assert.Equal(t, 6, report.TotalAttempted)
	assert.Equal(t, 10, report.PoolSize)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, "2025-06-10", report.Date)
	require.Len(t, report.Results, 6)
	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprintf("Mission %d", i), res.Title)
		if i%2 == 1 {
			assert.Equal(t, string(mission.StatusSuccess), res.Status)
		} else {
			assert.Equal(t, string(mission.StatusFailed), res.Status)
		}
	}

	saved, err := h.mem.LastExecution()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, report, *saved)
}

func TestConvene_TargetAdjustedByStagedWork(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.stageProject(t, "Speed up the cache")
	h.stageProject(t, "Trim the logger")
	h.seedEvolution(t, numbered(3)...)
	h.chat.set(stageValidate, approveAll(3))
	h.chat.set(stageDedup, keepAll(3))

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Target)
	assert.Equal(t, 1, report.Achieved)
	assert.Equal(t, 1, report.TotalAttempted)
	assert.Equal(t, 1, report.Batches)

	dedupPrompt := h.chat.user(stageDedup)
	assert.Contains(t, dedupPrompt, "Speed up the cache")
	assert.Contains(t, dedupPrompt, "Trim the logger")
}

func TestConvene_QuotaAlreadyMet(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.stageProject(t, fmt.Sprintf("Staged %d", i))
	}
	h.seedEvolution(t, numbered(2)...)
	h.chat.set(stageValidate, approveAll(2))

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Target)
	assert.Zero(t, report.TotalAttempted)
	assert.Zero(t, h.forge.calls())

	// the morning brief is still produced for the full staging case
	brief, err := h.mem.Brief()
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Equal(t, "ready", brief.Status)
	assert.Equal(t, 2, brief.Total)
}

func TestConvene_SkipsRejectedTitles(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stageProject(t, "Fix the parser")
	_, err := h.staging.Reject(context.Background(), p.ID, "not wanted")
	require.NoError(t, err)

	h.seedEvolution(t, "Fix the parser", "Add retry logic")
	h.chat.set(stageValidate, approveAll(2))
	h.chat.set(stageDedup, keepAll(2))

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalAttempted)
	assert.Equal(t, 1, report.Achieved)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Add retry logic", report.Results[0].Title)
	require.Equal(t, 1, h.forge.calls())
	assert.Equal(t, "Add retry logic", h.forge.ran()[0].Title)
}

func TestConvene_CancelledContextStopsDispatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, numbered(5)...)
	h.chat.set(stageValidate, approveAll(5))
	h.chat.set(stageDedup, keepAll(5))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.forge.fn = func(int, mission.Mission) mission.Result {
		cancel()
		return mission.Result{Status: mission.StatusFailed, Reason: "interrupted"}
	}

	report, err := h.council.Convene(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalAttempted)
	assert.Equal(t, 1, report.Batches)
	assert.Zero(t, report.Achieved)
}

func TestConvene_ConcurrentRunRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, "Mission 0")
	h.chat.set(stageValidate, approveAll(1))

	entered := make(chan struct{})
	release := make(chan struct{})
	h.forge.fn = func(int, mission.Mission) mission.Result {
		close(entered)
		<-release
		return mission.Result{Status: mission.StatusSuccess}
	}

	done := make(chan memory.Execution, 1)
	go func() {
		report, err := h.council.Convene(context.Background())
		assert.NoError(t, err)
		done <- report
	}()

	<-entered
	running, since := h.council.Running()
	assert.True(t, running)
	assert.Equal(t, h.now, since)

	_, err := h.council.Convene(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	report := <-done
	assert.Equal(t, 1, report.Achieved)

	running, _ = h.council.Running()
	assert.False(t, running)
}

// --- Validation and the brief ---

func TestConvene_BriefShowsTheNight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, "Mission 0", "Mission 1")
	h.chat.set(stageValidate,
		`[{"index":0,"verdict":"APPROVED","confidence":90,"requires_repo":false},
		  {"index":1,"verdict":"REJECTED","confidence":40,"requires_repo":false}]`)

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	brief, err := h.mem.Brief()
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Equal(t, "ready", brief.Status)
	assert.Equal(t, "2025-06-10", brief.Date)
	require.Len(t, brief.Candidates, 2)
	assert.Equal(t, "Mission 0", brief.Candidates[0].Title)
	assert.Equal(t, "APPROVED", brief.Candidates[0].Verdict)
	assert.Equal(t, 90, brief.Candidates[0].Confidence)
	assert.Equal(t, "Mission 1", brief.Candidates[1].Title)
	assert.Equal(t, "REJECTED", brief.Candidates[1].Verdict)

	// only the approved candidate dispatches
	assert.Equal(t, 1, report.PoolSize)
	require.Equal(t, 1, h.forge.calls())
	assert.Equal(t, "Mission 0", h.forge.ran()[0].Title)
}

func TestConvene_UnrankedCandidateIsRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, "Mission 0", "Mission 1")
	h.chat.set(stageValidate, `[{"index":0,"verdict":"APPROVED","confidence":90,"requires_repo":false}]`)

	_, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	brief, err := h.mem.Brief()
	require.NoError(t, err)
	require.Len(t, brief.Candidates, 2)
	assert.Equal(t, "Mission 1", brief.Candidates[1].Title)
	assert.Equal(t, "REJECTED", brief.Candidates[1].Verdict)
	assert.Equal(t, 1, h.forge.calls())
}

func TestConvene_ValidationFailureAbortsTheNight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, "Mission 0")
	h.chat.fail(stageValidate, fmt.Errorf("gateway down"))

	_, err := h.council.Convene(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cross-validation")

	brief, err := h.mem.Brief()
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Equal(t, "failed", brief.Status)
	assert.Zero(t, brief.Total)

	saved, err := h.mem.LastExecution()
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Zero(t, h.forge.calls())
}

func TestConvene_EmptyNight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.PoolSize)
	assert.Equal(t, 3, report.Target)
	assert.Zero(t, report.TotalAttempted)
	assert.Zero(t, h.chat.count(stageValidate))

	brief, err := h.mem.Brief()
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Equal(t, "empty", brief.Status)

	saved, err := h.mem.LastExecution()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Zero(t, saved.TotalAttempted)
}

// --- Deduplication ---

func TestConvene_DedupDropsDuplicates(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, numbered(3)...)
	h.chat.set(stageValidate, approveAll(3))
	h.chat.set(stageDedup, `{"keep_indices":[0,2],"duplicates":[{"index":1,"duplicate_of":"Mission 0"}]}`)

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PoolSize)
	assert.Equal(t, 2, report.TotalAttempted)
	ran := h.forge.ran()
	require.Len(t, ran, 2)
	assert.Equal(t, "Mission 0", ran[0].Title)
	assert.Equal(t, "Mission 2", ran[1].Title)
}

func TestConvene_DedupFailsOpen(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, "Mission 0", "Mission 1")
	h.chat.set(stageValidate, approveAll(2))
	h.chat.fail(stageDedup, fmt.Errorf("gateway down"))

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PoolSize)
	assert.Equal(t, 2, report.TotalAttempted)
	assert.Equal(t, 2, report.Achieved)
}

// --- Collection ---

func TestConvene_MergesAllSources(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.cfg.Repos = []string{"acme/widget"}
	h.build()
	h.git.files = []string{"src/a.py", "src/b.py", "tests/test_a.py"}

	require.NoError(t, h.mem.SaveSuggestions([]memory.Suggestion{{
		Title:       "Handle TODO in parser",
		Location:    "src/a.py:10",
		Description: "The tokenizer skips malformed input silently.",
		Priority:    "CRITIQUE",
	}}))
	require.NoError(t, h.mem.AppendOutcome(memory.Outcome{Title: "Old mission", Status: "FAILED"}))
	h.seedEvolution(t, "Evolution idea")
	queued, err := h.mem.QueueSentinel(memory.SentinelEntry{
		Title:  "Heal failing mission: ingest",
		Reason: "boom",
		Repo:   "acme/widget",
	})
	require.NoError(t, err)
	require.True(t, queued)

	h.chat.set(stageIdeate, `[{"title":"Creative idea","description":"Build the thing.","repo":"acme/widget","kind":"feature","rationale":"value"}]`)
	h.chat.set(stageInsider, `[{"title":"Insider idea","description":"Split the module.","repo":"","kind":"refactor","rationale":"oversized"}]`)
	h.chat.set(stageValidate, approveAll(5))
	h.chat.set(stageDedup, keepAll(5))

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.PoolSize)

	ideatePrompt := h.chat.user(stageIdeate)
	assert.Contains(t, ideatePrompt, "acme/widget")
	assert.Contains(t, ideatePrompt, "Old mission")
	assert.Contains(t, ideatePrompt, "Handle TODO in parser (src/a.py:10)")

	insiderPrompt := h.chat.user(stageInsider)
	assert.Contains(t, insiderPrompt, "src/a.py")
	assert.Contains(t, insiderPrompt, "src/: 2 files")
	require.Len(t, h.git.dirs, 1)
	assert.Equal(t, filepath.Join(h.reposDir, "widget"), h.git.dirs[0])

	validatePrompt := h.chat.user(stageValidate)
	for _, title := range []string{"Creative idea", "Insider idea", "Handle TODO in parser", "Evolution idea", "Heal failing mission: ingest"} {
		assert.Contains(t, validatePrompt, title)
	}
	for _, source := range []string{"creative", "insider", "harvest", "evolution", "sentinel"} {
		assert.Contains(t, validatePrompt, "source: "+source)
	}

	// the insider proposal inherits the scanned repo
	ran := h.forge.ran()
	require.Len(t, ran, 3)
	assert.Equal(t, "Insider idea", ran[1].Title)
	assert.Equal(t, "acme/widget", ran[1].Repo)

	// both external feeds were drained
	evolved, err := h.mem.TakeEvolution()
	require.NoError(t, err)
	assert.Empty(t, evolved)
	sentinels, err := h.mem.TakeSentinel()
	require.NoError(t, err)
	assert.Empty(t, sentinels)
}

func TestConvene_ExactTitleCollisionCollapses(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedEvolution(t, "Fix the  parser", "fix the parser")
	h.chat.set(stageValidate, approveAll(1))

	report, err := h.council.Convene(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.PoolSize)
	validatePrompt := h.chat.user(stageValidate)
	assert.Contains(t, validatePrompt, "Fix the  parser")
	assert.NotContains(t, validatePrompt, "fix the parser")
}

// --- Repo anchoring ---

func TestConvene_AnchorsRepoBoundCandidates(t *testing.T) {
	t.Parallel()

	t.Run("anchored to the primary repo", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.cfg.Repos = []string{"acme/widget"}
		h.build()
		h.seedEvolution(t, "Mission 0")
		h.chat.set(stageValidate, `[{"index":0,"verdict":"APPROVED","confidence":90,"requires_repo":true}]`)

		_, err := h.council.Convene(context.Background())
		require.NoError(t, err)

		ran := h.forge.ran()
		require.Len(t, ran, 1)
		assert.Equal(t, "acme/widget", ran[0].Repo)
		assert.True(t, ran[0].RequiresRepo)
	})

	t.Run("dropped when no repo is configured", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.seedEvolution(t, "Mission 0")
		h.chat.set(stageValidate, `[{"index":0,"verdict":"APPROVED","confidence":90,"requires_repo":true}]`)

		report, err := h.council.Convene(context.Background())
		require.NoError(t, err)

		assert.Zero(t, report.PoolSize)
		assert.Zero(t, h.forge.calls())
	})
}

// --- Helpers ---

func TestMissionsFrom(t *testing.T) {
	t.Parallel()
	props := []proposal{
		{Title: " Add caching ", Description: " Cache the hot path. ", Repo: "acme/widget", Kind: "Refactor", Rationale: " hot path "},
		{Title: "", Description: "no title"},
		{Title: "no description", Description: "   "},
		{Title: "Standalone audit", Description: "Scan the logs.", Kind: "docs"},
	}

	out := missionsFrom(props, mission.SourceCreative)
	require.Len(t, out, 2)

	assert.Equal(t, "Add caching", out[0].Title)
	assert.Equal(t, "Cache the hot path.", out[0].Description)
	assert.Equal(t, "hot path", out[0].Rationale)
	assert.Equal(t, mission.KindRefactor, out[0].Kind)
	assert.Equal(t, mission.SourceCreative, out[0].Source)
	assert.True(t, out[0].RequiresRepo)

	assert.Equal(t, "Standalone audit", out[1].Title)
	assert.False(t, out[1].RequiresRepo)
}

func TestSentinelMission(t *testing.T) {
	t.Parallel()

	m := sentinelMission(memory.SentinelEntry{Title: "Heal failing mission: X", Reason: "  ", Repo: ""})
	assert.Equal(t, "Heal failing mission: X", m.Title)
	assert.Equal(t, "Investigate and fix the failure recorded for this mission.", m.Description)
	assert.False(t, m.RequiresRepo)
	assert.Equal(t, mission.SourceSentinel, m.Source)
	assert.Equal(t, mission.KindFix, m.Kind)

	m = sentinelMission(memory.SentinelEntry{Title: "Heal failing mission: Y", Reason: "stack overflow in ingest", Repo: "acme/widget"})
	assert.Equal(t, "stack overflow in ingest", m.Description)
	assert.True(t, m.RequiresRepo)
	assert.Equal(t, "acme/widget", m.Repo)
}

func TestTreeNotes(t *testing.T) {
	t.Parallel()
	files := []string{"src/a.py", "src/b.py", "src/c.py", "tests/test_a.py", "README.md"}
	assert.Equal(t, []string{"src/: 3 files", "./: 1 files", "tests/: 1 files"}, treeNotes(files))
}

func TestRenderTree_CapsListing(t *testing.T) {
	t.Parallel()
	files := make([]string, treeMaxFiles+5)
	for i := range files {
		files[i] = fmt.Sprintf("pkg/file_%03d.go", i)
	}
	out := renderTree(files)
	assert.True(t, strings.HasSuffix(out, "... and 5 more files"))
	assert.Contains(t, out, "pkg/file_000.go")
	assert.NotContains(t, out, fmt.Sprintf("pkg/file_%03d.go", treeMaxFiles))
}
