// Package agentapi is the HTTP client for the remote coding agent: sessions,
// activities, plans and git patches. Failures never cross the boundary as
// errors; every method degrades to a nil or zero result with a log entry, so
// callers stay total.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
)

// Logger is the minimal logging surface the client needs. A nil Logger
// silently discards output.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// defaultPageSize is the activities page size when the caller passes 0.
const defaultPageSize = 30

// defaultTimeout bounds one API call when the config leaves it unset.
const defaultTimeout = 60 * time.Second

// Client talks to the agent API. It caches the source list after the first
// successful listing.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger

	mu      sync.Mutex
	sources []Source
}

// New creates a Client from the resolved agent configuration. The logger may
// be nil.
func New(cfg config.AgentConfig, logger Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// --- Sources ---

// ListSources returns the repositories the agent can work on. The result is
// cached after the first successful call; a failure returns nil.
func (c *Client) ListSources(ctx context.Context) []Source {
	c.mu.Lock()
	if c.sources != nil {
		cached := c.sources
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	var resp struct {
		Sources []Source `json:"sources"`
	}
	if err := c.do(ctx, http.MethodGet, "sources", nil, &resp); err != nil {
		c.warn("listing sources", "error", err)
		return nil
	}

	c.mu.Lock()
	c.sources = resp.Sources
	c.mu.Unlock()
	return resp.Sources
}

// SourceForRepo resolves the source serving repo, or nil when the agent has
// no such repository connected.
func (c *Client) SourceForRepo(ctx context.Context, repo string) *Source {
	for _, s := range c.ListSources(ctx) {
		if s.Matches(repo) {
			hit := s
			return &hit
		}
	}
	return nil
}

// --- Sessions ---

// SessionRequest describes a session to create.
type SessionRequest struct {
	Prompt              string
	Title               string
	Source              string // source resource name; empty means repoless
	StartingBranch      string
	AutoCreatePR        bool
	RequirePlanApproval bool
}

// NewSessionRequest returns a request with the standard defaults: sessions
// start from main and open a pull request when done.
func NewSessionRequest(prompt, title string) SessionRequest {
	return SessionRequest{
		Prompt:         prompt,
		Title:          title,
		StartingBranch: "main",
		AutoCreatePR:   true,
	}
}

type sourceContext struct {
	Source            string             `json:"source"`
	GitHubRepoContext *gitHubRepoContext `json:"githubRepoContext,omitempty"`
}

type gitHubRepoContext struct {
	StartingBranch string `json:"startingBranch,omitempty"`
}

type createSessionBody struct {
	Prompt              string         `json:"prompt"`
	Title               string         `json:"title,omitempty"`
	SourceContext       *sourceContext `json:"sourceContext,omitempty"`
	AutoCreatePR        bool           `json:"autoCreatePr"`
	RequirePlanApproval bool           `json:"requirePlanApproval,omitempty"`
}

// CreateSession starts a new agent session, or returns nil on any failure.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) *Session {
	body := createSessionBody{
		Prompt:              req.Prompt,
		Title:               req.Title,
		AutoCreatePR:        req.AutoCreatePR,
		RequirePlanApproval: req.RequirePlanApproval,
	}
	if req.Source != "" {
		branch := req.StartingBranch
		if branch == "" {
			branch = "main"
		}
		body.SourceContext = &sourceContext{
			Source:            req.Source,
			GitHubRepoContext: &gitHubRepoContext{StartingBranch: branch},
		}
	}

	var sess Session
	if err := c.do(ctx, http.MethodPost, "sessions", body, &sess); err != nil {
		c.warn("creating session", "title", req.Title, "error", err)
		return nil
	}
	c.debug("session created", "session", sess.ID(), "title", req.Title)
	return &sess
}

// CreateRepolessSession starts a session with no repository attached. The
// agent works in a scratch workspace and never opens a pull request.
func (c *Client) CreateRepolessSession(ctx context.Context, prompt, title string) *Session {
	return c.CreateSession(ctx, SessionRequest{Prompt: prompt, Title: title})
}

// GetSession fetches one session, or nil on any failure.
func (c *Client) GetSession(ctx context.Context, id string) *Session {
	var sess Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id), nil, &sess); err != nil {
		c.warn("fetching session", "session", id, "error", err)
		return nil
	}
	return &sess
}

// SendMessage appends a follow-up instruction to a running session.
func (c *Client) SendMessage(ctx context.Context, id, prompt string) bool {
	body := map[string]string{"prompt": prompt}
	if err := c.do(ctx, http.MethodPost, sessionPath(id)+":sendMessage", body, nil); err != nil {
		c.warn("sending message", "session", id, "error", err)
		return false
	}
	return true
}

// ApprovePlan approves the session's pending plan.
func (c *Client) ApprovePlan(ctx context.Context, id string) bool {
	if err := c.do(ctx, http.MethodPost, sessionPath(id)+":approvePlan", struct{}{}, nil); err != nil {
		c.warn("approving plan", "session", id, "error", err)
		return false
	}
	c.debug("plan approved", "session", id)
	return true
}

// --- Activities ---

// GetActivities returns the session's activity timeline, newest first. A
// non-zero since drops activities at or before that instant. pageSize 0
// means the default of 30.
func (c *Client) GetActivities(ctx context.Context, id string, since time.Time, pageSize int) []Activity {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	path := sessionPath(id) + "/activities?" + url.Values{
		"pageSize": []string{strconv.Itoa(pageSize)},
	}.Encode()

	var resp struct {
		Activities []Activity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		c.warn("fetching activities", "session", id, "error", err)
		return nil
	}

	acts := resp.Activities
	sortNewestFirst(acts)
	if since.IsZero() {
		return acts
	}
	filtered := acts[:0]
	for _, a := range acts {
		if a.CreateTime.After(since) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// GetPlan returns the most recent plan the session generated, or nil. Plans
// are replaced wholesale on refinement, so only the newest one is live.
func (c *Client) GetPlan(ctx context.Context, id string) *Plan {
	for _, a := range c.GetActivities(ctx, id, time.Time{}, 0) {
		if a.PlanGenerated != nil && a.PlanGenerated.Plan != nil {
			return a.PlanGenerated.Plan
		}
	}
	return nil
}

// GetGitPatch returns the newest unidiff patch across the session's
// activities, or "". The activity timeline is the authoritative source for
// a session's diff.
func (c *Client) GetGitPatch(ctx context.Context, id string) string {
	for _, a := range c.GetActivities(ctx, id, time.Time{}, 0) {
		if p := a.patch(); p != "" {
			return p
		}
	}
	return ""
}

// --- HTTP plumbing ---

func sessionPath(id string) string {
	if strings.HasPrefix(id, "sessions/") {
		return id
	}
	return "sessions/" + id
}

// do performs one API call. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("agentapi: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("agentapi: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agentapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("agentapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agentapi: %s %s: HTTP %d: %s", method, path, resp.StatusCode, truncateBody(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("agentapi: parse response: %w", err)
	}
	return nil
}

// truncateBody keeps error messages readable when the API returns a page.
func truncateBody(b []byte) string {
	const max = 300
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
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
