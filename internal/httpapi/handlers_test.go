package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/council"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

const sampleDiff = `diff --git a/pkg/parser.go b/pkg/parser.go
index 1111111..2222222 100644
--- a/pkg/parser.go
+++ b/pkg/parser.go
@@ -1,3 +1,4 @@
 package parser
+
+func Retry() {}
`

const samplePR = "https://github.com/acme/widget/pull/7"

// --- Fakes ---

type fakeArchitect struct {
	mu        sync.Mutex
	running   bool
	startedAt time.Time
	err       error
	triggers  int
}

func (f *fakeArchitect) TriggerCouncil() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.startedAt, f.err
	}
	f.triggers++
	f.running = true
	return f.startedAt, nil
}

func (f *fakeArchitect) CouncilStatus() (bool, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running, f.startedAt
}

type countingGit struct {
	mu        sync.Mutex
	failMerge bool
	merged    []string
	closed    []string
	deleted   []string
}

func (g *countingGit) MergePR(ctx context.Context, prURL string, squash bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failMerge {
		return false
	}
	g.merged = append(g.merged, prURL)
	return true
}

func (g *countingGit) ClosePR(ctx context.Context, prURL string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = append(g.closed, prURL)
	return true
}

func (g *countingGit) DeleteBranch(ctx context.Context, prURL string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, prURL)
	return true
}

// --- Harness ---

type harness struct {
	srv     *Server
	router  *gin.Engine
	mem     *memory.Store
	staging *staging.Store
	arch    *fakeArchitect
	git     *countingGit
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	git := &countingGit{}
	store, err := staging.New(t.TempDir(), git, nil)
	require.NoError(t, err)
	mem, err := memory.New(t.TempDir())
	require.NoError(t, err)
	arch := &fakeArchitect{startedAt: time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)}

	defaults := config.NewDefaults()
	srv := New(Deps{Staging: store, Memory: mem, Architect: arch}, defaults.HTTP, defaults.Gate)
	return &harness{
		srv:     srv,
		router:  srv.Router(),
		mem:     mem,
		staging: store,
		arch:    arch,
		git:     git,
	}
}

func (h *harness) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return h.do(t, http.MethodGet, path, nil)
}

func (h *harness) post(t *testing.T, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return h.do(t, http.MethodPost, path, body)
}

func (h *harness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), "body: %s", rec.Body.String())
	}
	return rec, decoded
}

func (h *harness) stage(t *testing.T, title, sessionID string) staging.Project {
	t.Helper()
	p, err := h.staging.Stage(staging.Project{
		Title:     title,
		Repo:      "acme/widget",
		SessionID: sessionID,
		PRURL:     samplePR,
		Score:     91,
	}, sampleDiff)
	require.NoError(t, err)
	return p
}

func (h *harness) claim(t *testing.T, sessionID, title string) {
	t.Helper()
	require.NoError(t, h.mem.PutActiveSession(memory.ActiveSession{ID: sessionID, Title: title}))
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestStatus_IdleWhenNothingPending(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", body["status"])
	assert.EqualValues(t, 0, body["waiting_count"])
	assert.EqualValues(t, 0, body["council_count"])
	assert.EqualValues(t, 0, body["staged_projects"])
	assert.EqualValues(t, 0, body["total_pending"])
	assert.EqualValues(t, 85, body["pass_threshold"])
}

func TestStatus_CountsPendingWork(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.claim(t, "sess-1", "Fix the parser")
	h.stage(t, "Add retry logic", "sess-2")
	h.stage(t, "Harden the cache", "sess-3")
	require.NoError(t, h.mem.SaveBrief(memory.Brief{
		Date:   "2025-06-10",
		Status: "ready",
		Total:  3,
		Candidates: []memory.BriefCandidate{
			{Mission: mission.Mission{Title: "A"}, Verdict: "APPROVED", Confidence: 90},
			{Mission: mission.Mission{Title: "B"}, Verdict: "APPROVED", Confidence: 80},
			{Mission: mission.Mission{Title: "C"}, Verdict: "REJECTED", Confidence: 30},
		},
	}))

	rec, body := h.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", body["status"])
	assert.EqualValues(t, 1, body["waiting_count"])
	assert.EqualValues(t, 3, body["council_count"])
	assert.EqualValues(t, 2, body["staged_projects"])
	assert.EqualValues(t, 3, body["total_pending"])
}

func TestMorningBrief_EmptyShape(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.get(t, "/morning-brief")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["date"])
	candidates, ok := body["candidates"].([]any)
	require.True(t, ok, "candidates must be an array, got %T", body["candidates"])
	assert.Empty(t, candidates)
}

func TestMorningBrief_ReturnsLastBrief(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	require.NoError(t, h.mem.SaveBrief(memory.Brief{
		Date:   "2025-06-10",
		Status: "ready",
		Total:  2,
		Candidates: []memory.BriefCandidate{
			{Mission: mission.Mission{Title: "Add retry logic", Source: mission.SourceCreative}, Verdict: "APPROVED", Confidence: 90},
			{Mission: mission.Mission{Title: "Fix the parser"}, Verdict: "REJECTED", Confidence: 40},
		},
	}))

	rec, body := h.get(t, "/morning-brief")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-06-10", body["date"])
	assert.Equal(t, "ready", body["status"])
	assert.EqualValues(t, 2, body["total"])

	candidates, ok := body["candidates"].([]any)
	require.True(t, ok)
	require.Len(t, candidates, 2)
	first, ok := candidates[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Add retry logic", first["title"])
	assert.Equal(t, "APPROVED", first["verdict"])
	assert.EqualValues(t, 90, first["confidence"])
}

func TestStagedProjects_ListsLive(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.stage(t, "Add retry logic", "sess-1")
	h.stage(t, "Harden the cache", "sess-2")

	rec, body := h.get(t, "/staged-projects")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])

	projects, ok := body["projects"].([]any)
	require.True(t, ok)
	require.Len(t, projects, 2)
	titles := make([]string, 0, 2)
	for _, raw := range projects {
		p, ok := raw.(map[string]any)
		require.True(t, ok)
		titles = append(titles, p["title"].(string))
	}
	assert.ElementsMatch(t, []string{"Add retry logic", "Harden the cache"}, titles)
}

func TestProject_GetByID(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")

	rec, body := h.get(t, "/project/"+p.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, body["id"])
	assert.Equal(t, "Add retry logic", body["title"])
	assert.Equal(t, string(staging.StatusStaged), body["status"])
	assert.EqualValues(t, 91, body["score"])

	rec, body = h.get(t, "/project/no-such-id")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "project not found", body["error"])
}

func TestProjectDiff(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")

	rec, body := h.get(t, "/project/"+p.ID+"/diff")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sampleDiff, body["diff"])

	rec, _ = h.get(t, "/project/no-such-id/diff")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectFiles(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")

	rec, body := h.get(t, "/project/"+p.ID+"/files")
	require.Equal(t, http.StatusOK, rec.Code)
	files, ok := body["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 1)
	file, ok := files[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pkg/parser.go", file["path"])
	assert.EqualValues(t, 2, file["additions"])
	assert.EqualValues(t, 0, file["deletions"])

	rec, _ = h.get(t, "/project/no-such-id/files")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecision_MergeAcceptsAndRecords(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")
	h.claim(t, "sess-1", "Add retry logic")

	rec, body := h.post(t, "/project/"+p.ID+"/decision", map[string]string{"action": "MERGE"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "project merged", body["message"])

	assert.Equal(t, []string{samplePR}, h.git.merged)

	live, err := h.staging.List()
	require.NoError(t, err)
	assert.Empty(t, live)

	history, err := h.mem.MergeHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Add retry logic", history[0].Title)
	assert.Equal(t, samplePR, history[0].PRURL)
	assert.Equal(t, 91, history[0].Confidence)
	assert.False(t, history[0].MergedAt.IsZero())

	sessions, err := h.mem.ActiveSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDecision_MergeIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")

	rec, body := h.post(t, "/project/"+p.ID+"/decision", map[string]string{"action": "merge"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
}

func TestDecision_RejectClosesAndRemembers(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")
	h.claim(t, "sess-1", "Add retry logic")

	rec, body := h.post(t, "/project/"+p.ID+"/decision", map[string]string{
		"action": "REJECT",
		"reason": "too broad",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "project rejected", body["message"])

	assert.Equal(t, []string{samplePR}, h.git.closed)
	assert.Equal(t, []string{samplePR}, h.git.deleted)

	live, err := h.staging.List()
	require.NoError(t, err)
	assert.Empty(t, live)

	rejected, err := h.staging.Rejected()
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "too broad", rejected[0].Reason)

	sessions, err := h.mem.ActiveSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDecision_PendingKeepsSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")
	h.claim(t, "sess-1", "Add retry logic")

	rec, body := h.post(t, "/project/"+p.ID+"/decision", map[string]string{"action": "PENDING"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "project deferred", body["message"])

	got, err := h.staging.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusPending, got.Status)

	sessions, err := h.mem.ActiveSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-1", sessions[0].ID)
}

func TestDecision_UnknownAction(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")

	rec, body := h.post(t, "/project/"+p.ID+"/decision", map[string]string{"action": "SHIP"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], `unknown action "SHIP"`)

	rec, body = h.post(t, "/project/"+p.ID+"/decision", map[string]string{"reason": "no action"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestDecision_MergeFailureKeepsProject(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")
	h.git.failMerge = true

	rec, body := h.post(t, "/project/"+p.ID+"/decision", map[string]string{"action": "MERGE"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "merging")

	live, err := h.staging.List()
	require.NoError(t, err)
	assert.Len(t, live, 1)

	history, err := h.mem.MergeHistory()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDecision_MissingProject(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	for _, action := range []string{"MERGE", "REJECT", "PENDING"} {
		rec, body := h.post(t, "/project/no-such-id/decision", map[string]string{"action": action})
		require.Equal(t, http.StatusNotFound, rec.Code, "action %s", action)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "project not found", body["message"])
	}
}

func TestRejected_ListsSkeletons(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	p := h.stage(t, "Add retry logic", "sess-1")
	_, err := h.staging.Reject(context.Background(), p.ID, "not worth it")
	require.NoError(t, err)

	rec, body := h.get(t, "/rejected")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	projects, ok := body["projects"].([]any)
	require.True(t, ok)
	require.Len(t, projects, 1)
	first, ok := projects[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not worth it", first["reason"])
	assert.Equal(t, string(staging.StatusRejected), first["status"])
}

func TestStats_Aggregates(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	for _, o := range []memory.Outcome{
		{SessionID: "s1", Title: "A", Status: "SUCCESS"},
		{SessionID: "s2", Title: "B", Status: "SUCCESS"},
		{SessionID: "s3", Title: "C", Status: "FAILED", Reason: "tests"},
	} {
		require.NoError(t, h.mem.AppendOutcome(o))
	}
	require.NoError(t, h.mem.AppendMerge(memory.MergeRecord{ID: "m1", Title: "A", PRURL: samplePR}))
	h.stage(t, "Live one", "sess-1")
	p := h.stage(t, "Doomed one", "sess-2")
	_, err := h.staging.Reject(context.Background(), p.ID, "nope")
	require.NoError(t, err)

	rec, body := h.get(t, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["total_outcomes"])
	assert.EqualValues(t, 1, body["merged"])
	assert.EqualValues(t, 1, body["staged"])
	assert.EqualValues(t, 1, body["rejected"])
	assert.EqualValues(t, 85, body["pass_threshold"])

	outcomes, ok := body["outcomes"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, outcomes["SUCCESS"])
	assert.EqualValues(t, 1, outcomes["FAILED"])
}

func TestCouncilStats(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	require.NoError(t, h.mem.SaveExecution(memory.Execution{
		Date:           "2025-06-10",
		Target:         3,
		Achieved:       2,
		Batches:        2,
		TotalAttempted: 4,
		PoolSize:       8,
	}))
	require.NoError(t, h.mem.SaveBrief(memory.Brief{Date: "2025-06-10", Status: "ready", Total: 5}))

	rec, body := h.get(t, "/council-stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["running"])
	_, hasStart := body["started_at"]
	assert.False(t, hasStart)

	exec, ok := body["last_execution"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, exec["achieved"])
	assert.EqualValues(t, 8, exec["pool_size"])

	brief, ok := body["brief"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2025-06-10", brief["date"])
	assert.Equal(t, "ready", brief["status"])
	assert.EqualValues(t, 5, brief["total"])

	h.arch.mu.Lock()
	h.arch.running = true
	h.arch.mu.Unlock()

	_, body = h.get(t, "/council-stats")
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "2025-06-10T03:00:00Z", body["started_at"])
}

func TestHistory(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.get(t, "/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	merges, ok := body["merges"].([]any)
	require.True(t, ok, "merges must be an array, got %T", body["merges"])
	assert.Empty(t, merges)

	require.NoError(t, h.mem.AppendMerge(memory.MergeRecord{ID: "m1", Title: "Add retry logic", PRURL: samplePR}))

	_, body = h.get(t, "/history")
	assert.EqualValues(t, 1, body["count"])
	merges, ok = body["merges"].([]any)
	require.True(t, ok)
	require.Len(t, merges, 1)
	first, ok := merges[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Add retry logic", first["title"])
}

func TestNotifications_RoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.get(t, "/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	list, ok := body["notifications"].([]any)
	require.True(t, ok, "notifications must be an array, got %T", body["notifications"])
	assert.Empty(t, list)

	rec, body = h.post(t, "/notifications", map[string]string{
		"kind":   "MERGE_OK",
		"title":  "Add retry logic",
		"pr_url": samplePR,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["at"])
	assert.Equal(t, "MERGE_OK", body["kind"])

	rec, body = h.get(t, "/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	list, ok = body["notifications"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	first, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Add retry logic", first["title"])
	assert.Equal(t, samplePR, first["pr_url"])
}

func TestNotifications_RejectsIncompleteBody(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.post(t, "/notifications", map[string]string{"message": "no kind or title"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestCouncilStart(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.post(t, "/council/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2025-06-10T03:00:00Z", body["started_at"])
	assert.Equal(t, 1, h.arch.triggers)
}

func TestCouncilStart_ConflictWhenRunning(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.arch.mu.Lock()
	h.arch.err = fmt.Errorf("architect: %w since 2025-06-10T03:00:00Z", council.ErrAlreadyRunning)
	h.arch.mu.Unlock()

	rec, body := h.post(t, "/council/start", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "already running")
	assert.Equal(t, "2025-06-10T03:00:00Z", body["started_at"])
}

func TestCouncilStart_OtherErrorIs500(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.arch.mu.Lock()
	h.arch.err = errors.New("boom")
	h.arch.mu.Unlock()

	rec, body := h.post(t, "/council/start", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", body["error"])
}

func TestCouncilStatus(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec, body := h.get(t, "/council/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["running"])
	_, hasStart := body["started_at"]
	assert.False(t, hasStart)

	h.arch.mu.Lock()
	h.arch.running = true
	h.arch.mu.Unlock()

	_, body = h.get(t, "/council/status")
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "2025-06-10T03:00:00Z", body["started_at"])
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
