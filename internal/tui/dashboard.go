// Package tui renders the live operations dashboard behind trinity watch:
// a summary of staged work and watched sessions, refreshed by polling the
// stores, plus a scrolling log of daemon events.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/architect"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

const (
	// maxLogEntries bounds the event log ring buffer.
	maxLogEntries = 200
	// pollEvery is the cadence of the store polls behind the numbers.
	pollEvery = 2 * time.Second
	// stagedPaneRows fixes the staged pane height so the event viewport
	// below keeps a stable size.
	stagedPaneRows = 6
	// chromeRows is every screen row except the event viewport.
	chromeRows = 14

	minWidth  = 70
	minHeight = 18
)

// Memory is the slice of the memory store the dashboard polls.
type Memory interface {
	ActiveSessions() ([]memory.ActiveSession, error)
	Brief() (*memory.Brief, error)
}

// Staging lists the projects awaiting a decision.
type Staging interface {
	List() ([]staging.Project, error)
}

// Architect reports whether a council run is in flight.
type Architect interface {
	CouncilStatus() (bool, time.Time)
}

// Deps are the read surfaces behind the dashboard.
type Deps struct {
	Memory    Memory
	Staging   Staging
	Architect Architect
}

// Snapshot is one poll of the stores.
type Snapshot struct {
	Sessions       []memory.ActiveSession
	Staged         []staging.Project
	Brief          *memory.Brief
	CouncilRunning bool
	CouncilSince   time.Time
}

type (
	eventMsg    architect.Event
	snapshotMsg Snapshot
	pollMsg     time.Time
)

// Model is the Bubble Tea model for the watch dashboard.
type Model struct {
	ctx     context.Context
	deps    Deps
	events  <-chan architect.Event
	version string

	width    int
	height   int
	ready    bool
	quitting bool

	spin    spinner.Model
	log     viewport.Model
	entries []architect.Event
	snap    Snapshot
	now     func() time.Time
}

// New builds the dashboard model. A nil events channel is allowed; the log
// pane then stays empty and only the polled numbers move.
func New(ctx context.Context, deps Deps, events <-chan architect.Event, version string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		ctx:     ctx,
		deps:    deps,
		events:  events,
		version: version,
		spin:    sp,
		log:     viewport.New(0, 0),
		now:     time.Now,
	}
}

// Init arms the spinner, the first poll, the poll timer, and the event
// listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.poll(), schedulePoll()}
	if m.events != nil {
		cmds = append(cmds, listen(m.ctx, m.events))
	}
	return tea.Batch(cmds...)
}

// Update dispatches messages: window sizing, quit keys, spinner ticks,
// daemon events, and poll results. Remaining key presses scroll the log.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		m.push(architect.Event(msg))
		return m, listen(m.ctx, m.events)

	case snapshotMsg:
		m.snap = Snapshot(msg)
		return m, nil

	case pollMsg:
		return m, tea.Batch(m.poll(), schedulePoll())
	}
	return m, nil
}

// View renders the dashboard. Quitting clears the screen; an unsized or
// undersized terminal gets a plain message instead of a broken layout.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting Trinity dashboard..."
	}
	if m.width < minWidth || m.height < minHeight {
		return tooSmallStyle.Render(fmt.Sprintf(
			"Terminal too small. Please resize to at least %dx%d.", minWidth, minHeight))
	}

	sections := []string{
		m.titleView(),
		"",
		m.summaryView(),
		"",
		m.stagedView(),
		"",
		sectionStyle.Render("Events"),
		m.log.View(),
		hintStyle.Render("q quit · ↑/↓ scroll"),
	}
	return strings.Join(sections, "\n")
}

// --- Commands ---

// listen delivers one daemon event. Update re-arms it after each delivery;
// a closed channel or cancelled context ends the chain.
func listen(ctx context.Context, ch <-chan architect.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return eventMsg(ev)
		}
	}
}

// poll reads the stores once. Read failures show up as empty sections, not
// as dashboard errors.
func (m Model) poll() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		var snap Snapshot
		if deps.Memory != nil {
			if sessions, err := deps.Memory.ActiveSessions(); err == nil {
				snap.Sessions = sessions
			}
			if brief, err := deps.Memory.Brief(); err == nil {
				snap.Brief = brief
			}
		}
		if deps.Staging != nil {
			if projects, err := deps.Staging.List(); err == nil {
				snap.Staged = projects
			}
		}
		if deps.Architect != nil {
			snap.CouncilRunning, snap.CouncilSince = deps.Architect.CouncilStatus()
		}
		return snapshotMsg(snap)
	}
}

func schedulePoll() tea.Cmd {
	return tea.Tick(pollEvery, func(t time.Time) tea.Msg { return pollMsg(t) })
}

// --- State ---

// push appends an event to the ring buffer and scrolls the log to the
// bottom.
func (m *Model) push(ev architect.Event) {
	m.entries = append(m.entries, ev)
	if len(m.entries) > maxLogEntries {
		m.entries = m.entries[len(m.entries)-maxLogEntries:]
	}
	m.log.SetContent(m.renderLog())
	m.log.GotoBottom()
}

// resize gives the event viewport every row the fixed chrome does not use.
func (m *Model) resize() {
	m.log.Width = m.width
	h := m.height - chromeRows
	if h < 3 {
		h = 3
	}
	m.log.Height = h
	m.log.SetContent(m.renderLog())
	m.log.GotoBottom()
}

// --- Rendering ---

func (m Model) titleView() string {
	left := titleStyle.Render("Trinity") + " " + versionStyle.Render(m.version)
	right := ""
	if m.snap.CouncilRunning {
		right = m.spin.View() + activityStyle.Render(
			" council in session ("+age(m.now().Sub(m.snap.CouncilSince))+")")
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) summaryView() string {
	parts := []string{
		fmt.Sprintf("%d staged", len(m.snap.Staged)),
		fmt.Sprintf("%d watching", len(m.snap.Sessions)),
	}
	if b := m.snap.Brief; b != nil {
		parts = append(parts, fmt.Sprintf("brief %s %s (%d candidates)", b.Date, b.Status, b.Total))
	} else {
		parts = append(parts, "no brief yet")
	}
	return strings.Join(parts, " · ")
}

// stagedView always renders stagedPaneRows+1 lines: a header plus project
// rows padded with blanks, so the layout below never shifts.
func (m Model) stagedView() string {
	lines := []string{sectionStyle.Render("Staged")}
	rows := m.snap.Staged
	overflow := 0
	if len(rows) > stagedPaneRows {
		overflow = len(rows) - (stagedPaneRows - 1)
		rows = rows[:stagedPaneRows-1]
	}
	for _, p := range rows {
		lines = append(lines, m.stagedRow(p))
	}
	if overflow > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  ... and %d more", overflow)))
	}
	for len(lines) < stagedPaneRows+1 {
		lines = append(lines, "")
	}
	if len(m.snap.Staged) == 0 {
		lines[1] = mutedStyle.Render("  nothing staged yet")
	}
	return strings.Join(lines, "\n")
}

func (m Model) stagedRow(p staging.Project) string {
	maxTitle := m.width - 32
	if maxTitle < 10 {
		maxTitle = 10
	}
	title := p.Title
	if len(title) > maxTitle {
		title = title[:maxTitle-3] + "..."
	}
	score := scoreStyle.Render(fmt.Sprintf("%3d", p.Score))
	churn := fmt.Sprintf("+%d/-%d", p.Additions, p.Deletions)
	return fmt.Sprintf("  %s  %-*s  %-12s %s ago",
		score, maxTitle, title, churn, age(m.now().Sub(p.StagedAt)))
}

func (m Model) renderLog() string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("waiting for daemon events...")
	}
	lines := make([]string, 0, len(m.entries))
	for _, ev := range m.entries {
		line := fmt.Sprintf("%s %s %s",
			logTimeStyle.Render(ev.At.Format("15:04:05")),
			kindStyle(ev.Kind).Render(fmt.Sprintf("%-16s", ev.Kind)),
			ev.Message)
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return strings.Join(lines, "\n")
}

func kindStyle(kind architect.EventKind) lipgloss.Style {
	switch kind {
	case architect.EventCouncilFinished:
		return logSuccessStyle
	case architect.EventCouncilFailed:
		return logErrorStyle
	case architect.EventCouncilStarted:
		return logWarningStyle
	default:
		return logInfoStyle
	}
}

// age renders a compact duration: 45s, 12m, 3h, 2d.
func age(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
