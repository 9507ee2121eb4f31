// Package memory is Trinity's durable state: small JSON files under one
// root directory. Every write is atomic (temp file then rename) and every
// read tolerates a missing file, so a crash between operations never leaves
// a reader facing a partial document.
//
// The store is process-local. Concurrent goroutines share one Store; a
// single mutex serializes read-modify-write cycles.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
)

// Store reads and writes the memory files.
type Store struct {
	mu   sync.Mutex
	root string
}

// New creates the memory root if needed and returns a Store over it.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("memory: root directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("memory: creating root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the memory root directory.
func (s *Store) Root() string {
	return s.root
}

// --- Active sessions ---

// ActiveSessions returns the watchdog's working set, oldest first.
func (s *Store) ActiveSessions() ([]ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]ActiveSession
	if err := s.read(FileActiveSessions, &m); err != nil {
		return nil, err
	}
	out := make([]ActiveSession, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

// PutActiveSession upserts one session. A zero AddedAt is stamped now.
func (s *Store) PutActiveSession(sess ActiveSession) error {
	if sess.ID == "" {
		return fmt.Errorf("memory: active session ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]ActiveSession
	if err := s.read(FileActiveSessions, &m); err != nil {
		return err
	}
	if m == nil {
		m = make(map[string]ActiveSession)
	}
	if prev, ok := m[sess.ID]; ok && sess.AddedAt.IsZero() {
		sess.AddedAt = prev.AddedAt
	}
	if sess.AddedAt.IsZero() {
		sess.AddedAt = time.Now().UTC()
	}
	sess.UpdatedAt = time.Now().UTC()
	m[sess.ID] = sess
	return s.write(FileActiveSessions, m)
}

// RemoveActiveSession drops a session from the working set. Removing an
// unknown ID is not an error.
func (s *Store) RemoveActiveSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]ActiveSession
	if err := s.read(FileActiveSessions, &m); err != nil {
		return err
	}
	if _, ok := m[id]; !ok {
		return nil
	}
	delete(m, id)
	return s.write(FileActiveSessions, m)
}

// --- Morning brief ---

// SaveBrief overwrites the morning brief.
func (s *Store) SaveBrief(b Brief) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(FileBrief, b)
}

// Brief returns the last morning brief, or nil when none exists.
func (s *Store) Brief() (*Brief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b Brief
	ok, err := s.readExisting(FileBrief, &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

// --- Nightly execution ---

// SaveExecution overwrites the last council execution report.
func (s *Store) SaveExecution(e Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(FileExecution, e)
}

// LastExecution returns the last execution report, or nil when none exists.
func (s *Store) LastExecution() (*Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e Execution
	ok, err := s.readExisting(FileExecution, &e)
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

// --- Merge history ---

// AppendMerge appends one merged project to the history.
func (s *Store) AppendMerge(rec MergeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []MergeRecord
	if err := s.read(FileMergeHistory, &list); err != nil {
		return err
	}
	if rec.MergedAt.IsZero() {
		rec.MergedAt = time.Now().UTC()
	}
	list = append(list, rec)
	return s.write(FileMergeHistory, list)
}

// MergeHistory returns all merged projects, oldest first.
func (s *Store) MergeHistory() ([]MergeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []MergeRecord
	if err := s.read(FileMergeHistory, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// --- Outcomes ---

// AppendOutcome records how a watched session ended.
func (s *Store) AppendOutcome(o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []Outcome
	if err := s.read(FileOutcomes, &list); err != nil {
		return err
	}
	if o.At.IsZero() {
		o.At = time.Now().UTC()
	}
	list = append(list, o)
	return s.write(FileOutcomes, list)
}

// Outcomes returns all recorded session outcomes, oldest first.
func (s *Store) Outcomes() ([]Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []Outcome
	if err := s.read(FileOutcomes, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// --- Harvest ---

// HarvestState returns the harvester schedule state.
func (s *Store) HarvestState() (HarvestState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st HarvestState
	if err := s.read(FileHarvestState, &st); err != nil {
		return HarvestState{}, err
	}
	return st, nil
}

// SaveHarvestState overwrites the harvester schedule state.
func (s *Store) SaveHarvestState(st HarvestState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(FileHarvestState, st)
}

// Suggestions returns the harvested suggestion cache.
func (s *Store) Suggestions() ([]Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []Suggestion
	if err := s.read(FileHarvestCache, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveSuggestions overwrites the harvested suggestion cache.
func (s *Store) SaveSuggestions(list []Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(FileHarvestCache, list)
}

// --- Healer ---

// RecordError fingerprints errText and updates the healer history. The
// returned entry reflects the new state; once Count reaches the recurrence
// threshold the status flips to RECURRING and stays there.
func (s *Store) RecordError(errText, sessionID string) (HealerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]HealerEntry
	if err := s.read(FileHealerHistory, &m); err != nil {
		return HealerEntry{}, err
	}
	if m == nil {
		m = make(map[string]HealerEntry)
	}

	fp := Fingerprint(errText)
	now := time.Now().UTC()

	entry, ok := m[fp]
	if !ok {
		entry = HealerEntry{
			Fingerprint: fp,
			Status:      HealerNew,
			Sample:      truncate(errText, 300),
			FirstSeen:   now,
		}
	}
	entry.Count++
	entry.LastSeen = now
	if sessionID != "" {
		entry.Sessions = appendUnique(entry.Sessions, sessionID)
	}
	if entry.Count >= recurrenceThreshold {
		entry.Status = HealerRecurring
	}
	m[fp] = entry

	if err := s.write(FileHealerHistory, m); err != nil {
		return HealerEntry{}, err
	}
	return entry, nil
}

// CanHeal reports whether automated healing is still allowed for the error.
// Unknown fingerprints are healable.
func (s *Store) CanHeal(errText string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]HealerEntry
	if err := s.read(FileHealerHistory, &m); err != nil {
		return false, err
	}
	entry, ok := m[Fingerprint(errText)]
	if !ok {
		return true, nil
	}
	return entry.Status != HealerRecurring, nil
}

// --- Sentinel queue ---

// sentinelCooldown is how long a file stays on cooldown after a heal
// suggestion was queued for it.
const sentinelCooldown = 24 * time.Hour

// QueueSentinel appends a heal suggestion unless its file is on cooldown.
// It returns true when the entry was queued.
func (s *Store) QueueSentinel(e SentinelEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st sentinelState
	if err := s.read(FileSentinelQueue, &st); err != nil {
		return false, err
	}
	if st.Cooldowns == nil {
		st.Cooldowns = make(map[string]time.Time)
	}

	now := time.Now().UTC()
	if e.File != "" {
		if last, ok := st.Cooldowns[e.File]; ok && now.Sub(last) < sentinelCooldown {
			return false, nil
		}
		st.Cooldowns[e.File] = now
	}
	if e.QueuedAt.IsZero() {
		e.QueuedAt = now
	}
	st.Entries = append(st.Entries, e)
	if err := s.write(FileSentinelQueue, st); err != nil {
		return false, err
	}
	return true, nil
}

// TakeSentinel drains the sentinel queue, preserving the cooldown stamps.
func (s *Store) TakeSentinel() ([]SentinelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st sentinelState
	if err := s.read(FileSentinelQueue, &st); err != nil {
		return nil, err
	}
	if len(st.Entries) == 0 {
		return nil, nil
	}
	taken := st.Entries
	st.Entries = nil
	if err := s.write(FileSentinelQueue, st); err != nil {
		return nil, err
	}
	return taken, nil
}

// --- Evolution proposals ---

// AppendEvolution adds an externally fed proposal for the next council run.
func (s *Store) AppendEvolution(m mission.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []mission.Mission
	if err := s.read(FileEvolution, &list); err != nil {
		return err
	}
	list = append(list, m)
	return s.write(FileEvolution, list)
}

// TakeEvolution reads and clears the evolution proposal file.
func (s *Store) TakeEvolution() ([]mission.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []mission.Mission
	if err := s.read(FileEvolution, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	if err := s.write(FileEvolution, []mission.Mission{}); err != nil {
		return nil, err
	}
	return list, nil
}

// --- Notifications ---

// maxNotifications bounds the notification file; older entries roll off.
const maxNotifications = 200

// Notify appends a notification. A zero ID or timestamp is filled in.
func (s *Store) Notify(n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []Notification
	if err := s.read(FileNotifications, &list); err != nil {
		return Notification{}, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	list = append(list, n)
	if len(list) > maxNotifications {
		list = list[len(list)-maxNotifications:]
	}
	if err := s.write(FileNotifications, list); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// Notifications returns the retained notifications, newest first.
func (s *Store) Notifications() ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []Notification
	if err := s.read(FileNotifications, &list); err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// --- File plumbing ---

// read unmarshals the named file into target. A missing file leaves target
// at its zero value.
func (s *Store) read(name string, target any) error {
	_, err := s.readExisting(name, target)
	return err
}

// readExisting unmarshals the named file into target, reporting whether the
// file existed.
func (s *Store) readExisting(name string, target any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("memory: reading %s: %w", name, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("memory: parsing %s: %w", name, err)
	}
	return true, nil
}

// write marshals v and atomically replaces the named file.
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encoding %s: %w", name, err)
	}

	path := filepath.Join(s.root, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("memory: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("memory: replacing %s: %w", name, err)
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
