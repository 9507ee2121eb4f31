// Package harvest maintains the cache of the coding agent's own improvement
// suggestions. On a 24h cadence it opens a repoless session that asks the
// agent to sweep its analysis into a canonical markdown checklist, then on a
// later pass parses the added lines of the session's patch into suggestions
// for the council's ideation.
package harvest

import (
	"context"
	"strings"
	"time"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/agentapi"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
)

// Suggestion priorities, as the harvest prompt instructs the agent to emit
// them.
const (
	PriorityCritique = "CRITIQUE"
	PriorityHaute    = "HAUTE"
)

// sessionTitle names harvest sessions on the agent platform.
const sessionTitle = "Harvest code-analysis suggestions"

// Agent is the session surface the harvester drives.
type Agent interface {
	CreateRepolessSession(ctx context.Context, prompt, title string) *agentapi.Session
	GetSession(ctx context.Context, id string) *agentapi.Session
	GetGitPatch(ctx context.Context, id string) string
}

// Memory is the durable slice the harvester owns: its own state plus the
// suggestion cache.
type Memory interface {
	HarvestState() (memory.HarvestState, error)
	SaveHarvestState(st memory.HarvestState) error
	Suggestions() ([]memory.Suggestion, error)
	SaveSuggestions(list []memory.Suggestion) error
}

// Logger is the minimal logging surface the harvester needs. A nil Logger
// silently discards.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Deps are the collaborators a Harvester needs.
type Deps struct {
	Agent   Agent
	Memory  Memory
	Catalog *prompts.Catalog
	Logger  Logger
}

// Harvester refreshes the suggestion cache. All methods are total functions;
// failures are logged and leave the previous cache intact.
type Harvester struct {
	agent   Agent
	mem     Memory
	catalog *prompts.Catalog
	cfg     config.HarvestConfig
	logger  Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New wires a Harvester from its collaborators.
func New(deps Deps, cfg config.HarvestConfig) *Harvester {
	return &Harvester{
		agent:   deps.Agent,
		mem:     deps.Memory,
		catalog: deps.Catalog,
		cfg:     cfg,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

// Refresh advances the harvest by one step: collect finished sessions once
// they are old enough, or start a new one when the period has elapsed and
// nothing is pending. Call it as often as convenient; it is cheap when there
// is nothing to do.
func (h *Harvester) Refresh(ctx context.Context) {
	state, err := h.mem.HarvestState()
	if err != nil {
		h.warn("reading harvest state", "error", err)
		return
	}

	if len(state.Pending) > 0 {
		if h.now().Sub(state.LastRun) < h.cfg.MinWait {
			h.debug("harvest session too young to collect", "age", h.now().Sub(state.LastRun).Round(time.Second))
			return
		}
		state = h.collect(ctx, state)
		if err := h.mem.SaveHarvestState(state); err != nil {
			h.warn("saving harvest state", "error", err)
		}
		return
	}

	if !state.LastRun.IsZero() && h.now().Sub(state.LastRun) < h.cfg.Period {
		return
	}
	h.start(ctx, state)
}

// start opens a fresh harvest session and records it as pending.
func (h *Harvester) start(ctx context.Context, state memory.HarvestState) {
	prompt, err := h.catalog.Render(prompts.Harvest, prompts.HarvestData{Markers: h.cfg.Markers})
	if err != nil {
		h.warn("rendering harvest prompt", "error", err)
		return
	}
	sess := h.agent.CreateRepolessSession(ctx, prompt, sessionTitle)
	if sess == nil {
		h.warn("creating harvest session failed")
		return
	}
	state.Pending = []string{sess.ID()}
	state.LastRun = h.now()
	if err := h.mem.SaveHarvestState(state); err != nil {
		h.warn("saving harvest state", "error", err)
		return
	}
	h.info("harvest session started", "session", sess.ID())
}

// collect resolves every pending session: completed ones feed the cache,
// dead ones are dropped, running ones stay pending.
func (h *Harvester) collect(ctx context.Context, state memory.HarvestState) memory.HarvestState {
	var still []string
	for _, id := range state.Pending {
		sess := h.agent.GetSession(ctx, id)
		if sess == nil {
			still = append(still, id)
			continue
		}
		switch st := sess.Status(); {
		case st == agentapi.StatusCompleted:
			if n, ok := h.ingest(ctx, id); ok {
				state.LastSize = n
			}
		case st.Terminal():
			h.warn("harvest session died", "session", id, "status", string(st))
		default:
			still = append(still, id)
		}
	}
	state.Pending = still
	return state
}

// ingest parses a finished session's patch and replaces the suggestion
// cache. It returns the new cache size and whether a refresh happened.
func (h *Harvester) ingest(ctx context.Context, id string) (int, bool) {
	patch := h.agent.GetGitPatch(ctx, id)
	if patch == "" {
		h.warn("harvest session produced no patch", "session", id)
		return 0, false
	}
	if !h.looksLikeSuggestions(patch) {
		h.warn("harvest patch does not look like a suggestion sweep", "session", id)
		return 0, false
	}

	found := ParseSuggestions(patch)
	if len(found) == 0 {
		h.warn("harvest patch contained no checklist items", "session", id)
		return 0, false
	}
	if h.cfg.Cap > 0 && len(found) > h.cfg.Cap {
		found = found[:h.cfg.Cap]
	}
	now := h.now().UTC()
	for i := range found {
		found[i].HarvestedAt = now
	}

	if err := h.mem.SaveSuggestions(found); err != nil {
		h.warn("saving suggestion cache", "error", err)
		return 0, false
	}
	h.info("suggestion cache refreshed", "session", id, "count", len(found))
	return len(found), true
}

// looksLikeSuggestions gates parsing on the configured marker substrings, so
// an unrelated patch never wipes the cache.
func (h *Harvester) looksLikeSuggestions(patch string) bool {
	if len(h.cfg.Match) == 0 {
		return true
	}
	upper := strings.ToUpper(patch)
	for _, m := range h.cfg.Match {
		if strings.Contains(upper, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}

// ParseSuggestions extracts markdown checklist items from the added lines of
// a unified diff. The canonical line shape is
//
//	- [ ] **title** | location | description | PRIORITY
//
// Items are deduplicated by normalized title, first occurrence wins.
func ParseSuggestions(patch string) []memory.Suggestion {
	var out []memory.Suggestion
	seen := make(map[string]bool)

	for _, line := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(line, "+") || strings.HasPrefix(line, "+++") {
			continue
		}
		s, ok := parseChecklistItem(strings.TrimSpace(line[1:]))
		if !ok {
			continue
		}
		key := mission.NormalizeTitle(s.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// parseChecklistItem parses one markdown checklist line. Lines missing a
// title or a description are rejected; a missing or unknown priority falls
// back to HAUTE.
func parseChecklistItem(line string) (memory.Suggestion, bool) {
	rest, ok := trimChecklistPrefix(line)
	if !ok {
		return memory.Suggestion{}, false
	}

	parts := strings.Split(rest, "|")
	if len(parts) < 3 {
		return memory.Suggestion{}, false
	}
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(parts[0]), "*"))
	location := strings.TrimSpace(parts[1])
	description := strings.TrimSpace(parts[2])
	if title == "" || description == "" {
		return memory.Suggestion{}, false
	}

	priority := PriorityHaute
	if len(parts) > 3 {
		if p := strings.ToUpper(strings.TrimSpace(parts[3])); p == PriorityCritique || p == PriorityHaute {
			priority = p
		}
	}

	return memory.Suggestion{
		Title:       title,
		Location:    location,
		Description: description,
		Priority:    priority,
	}, true
}

// trimChecklistPrefix strips the "- [ ]" or "- [x]" marker.
func trimChecklistPrefix(line string) (string, bool) {
	for _, prefix := range []string{"- [ ]", "- [x]", "- [X]"} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

func (h *Harvester) debug(msg string, keyvals ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(msg, keyvals...)
	}
}

func (h *Harvester) info(msg string, keyvals ...interface{}) {
	if h.logger != nil {
		h.logger.Info(msg, keyvals...)
	}
}

func (h *Harvester) warn(msg string, keyvals ...interface{}) {
	if h.logger != nil {
		h.logger.Warn(msg, keyvals...)
	}
}
