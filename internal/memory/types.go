package memory

import (
	"time"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
)

// File names under the memory root. Exported so tests and ops tooling can
// address them directly.
const (
	FileActiveSessions = "active_sessions.json"
	FileBrief          = "morning_brief.json"
	FileExecution      = "nightly_execution.json"
	FileMergeHistory   = "merge_history.json"
	FileOutcomes       = "outcomes.json"
	FileHarvestState   = "harvest_state.json"
	FileHarvestCache   = "harvest_cache.json"
	FileHealerHistory  = "healer_history.json"
	FileSentinelQueue  = "sentinel_queue.json"
	FileEvolution      = "evolution_proposals.json"
	FileNotifications  = "notifications.json"
)

// ActiveSession is one entry of the watchdog's working set. The heart is the
// sole writer; the forge appends only at session creation.
type ActiveSession struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Repo            string    `json:"repo,omitempty"`
	PRURL           string    `json:"pr_url,omitempty"`
	RefinementCount int       `json:"refinement_count"`
	LastConfidence  int       `json:"last_confidence,omitempty"`
	AddedAt         time.Time `json:"added_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BriefCandidate is a mission annotated by the council's cross-validation.
type BriefCandidate struct {
	mission.Mission
	Verdict    string `json:"verdict"`
	Confidence int    `json:"confidence"`
}

// Brief is the morning proposal brief, overwritten at each council run.
type Brief struct {
	Date       string           `json:"date"`
	Candidates []BriefCandidate `json:"candidates"`
	Status     string           `json:"status"`
	Total      int              `json:"total"`
}

// MissionOutcome is one row of a nightly execution report.
type MissionOutcome struct {
	Title     string `json:"title"`
	Status    string `json:"status"`
	PRURL     string `json:"pr_url,omitempty"`
	Score     int    `json:"score,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Execution is the report the council persists after each run.
type Execution struct {
	Date           string           `json:"date"`
	Target         int              `json:"target"`
	Achieved       int              `json:"achieved"`
	Batches        int              `json:"batches"`
	TotalAttempted int              `json:"total_attempted"`
	PoolSize       int              `json:"pool_size"`
	Results        []MissionOutcome `json:"results"`
}

// MergeRecord is one merged project, append-only.
type MergeRecord struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Repo       string    `json:"repo,omitempty"`
	PRURL      string    `json:"pr_url"`
	Confidence int       `json:"confidence,omitempty"`
	MergedAt   time.Time `json:"merged_at"`
}

// Outcome records how a watched session ended, for the learning store.
type Outcome struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"` // SUCCESS, REJECTED, FAILED
	Reason    string    `json:"reason,omitempty"`
	PRURL     string    `json:"pr_url,omitempty"`
	At        time.Time `json:"at"`
}

// HarvestState tracks the harvester's schedule and in-flight sessions.
type HarvestState struct {
	LastRun  time.Time `json:"last_run"`
	Pending  []string  `json:"pending,omitempty"`
	LastSize int       `json:"last_size,omitempty"`
}

// Suggestion is one harvested improvement, cached between council runs.
type Suggestion struct {
	Title       string    `json:"title"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"` // CRITIQUE or HAUTE
	HarvestedAt time.Time `json:"harvested_at"`
}

// Healer statuses. RECURRING suppresses further automated heal attempts.
const (
	HealerNew       = "NEW"
	HealerRecurring = "RECURRING"
)

// recurrenceThreshold is the occurrence count at which an error fingerprint
// flips to RECURRING.
const recurrenceThreshold = 3

// HealerEntry tracks one error fingerprint across sessions.
type HealerEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Status      string    `json:"status"`
	Count       int       `json:"count"`
	Sample      string    `json:"sample,omitempty"`
	Sessions    []string  `json:"sessions,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// SentinelEntry is one queued heal suggestion with its file cooldown key.
type SentinelEntry struct {
	File     string    `json:"file,omitempty"`
	Title    string    `json:"title"`
	Reason   string    `json:"reason,omitempty"`
	Repo     string    `json:"repo,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}

// sentinelState is the on-disk shape of sentinel_queue.json: the pending
// queue plus per-file cooldown stamps.
type sentinelState struct {
	Entries   []SentinelEntry      `json:"entries"`
	Cooldowns map[string]time.Time `json:"cooldowns,omitempty"`
}

// Notification kinds.
const (
	NoteInfo     = "info"
	NoteSecurity = "security"
	NoteDecision = "decision"
)

// Notification is a user-visible event raised by the heart, the council, or
// an external poster.
type Notification struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message,omitempty"`
	PRURL     string            `json:"pr_url,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	At        time.Time         `json:"at"`
}
