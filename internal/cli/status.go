package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/logging"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

var statusFlagJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staged work, watched sessions, and the last council run",
	Long: `Display a snapshot of the orchestration state: projects staged for
review, sessions the watchdog is following, the latest morning brief, and
the last council execution.

Use --json for structured output suitable for scripting.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlagJSON, "json", false, "Output structured JSON to stdout")
	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	Config        string                 `json:"config,omitempty"`
	Staged        []staging.Project      `json:"staged"`
	Watching      []memory.ActiveSession `json:"watching"`
	Brief         *memory.Brief          `json:"brief,omitempty"`
	LastExecution *memory.Execution      `json:"last_execution,omitempty"`
	MergedTotal   int                    `json:"merged_total"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	out := collectStatus(rt)

	if statusFlagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderStatus(out, time.Now()))
	return nil
}

// collectStatus gathers the snapshot. Failed reads degrade to empty
// sections; a snapshot command should never die on one corrupt file.
func collectStatus(rt *runtime) statusOutput {
	logger := logging.New("status")
	out := statusOutput{
		Config:   rt.cfgPath,
		Staged:   []staging.Project{},
		Watching: []memory.ActiveSession{},
	}

	if list, err := rt.staging.List(); err != nil {
		logger.Warn("reading staged projects", "error", err)
	} else {
		out.Staged = list
	}
	if sessions, err := rt.mem.ActiveSessions(); err != nil {
		logger.Warn("reading active sessions", "error", err)
	} else if sessions != nil {
		out.Watching = sessions
	}
	if brief, err := rt.mem.Brief(); err != nil {
		logger.Warn("reading brief", "error", err)
	} else {
		out.Brief = brief
	}
	if exec, err := rt.mem.LastExecution(); err != nil {
		logger.Warn("reading last execution", "error", err)
	} else {
		out.LastExecution = exec
	}
	if merges, err := rt.mem.MergeHistory(); err != nil {
		logger.Warn("reading merge history", "error", err)
	} else {
		out.MergedTotal = len(merges)
	}

	return out
}

// renderStatus lays the snapshot out for the terminal.
func renderStatus(d statusOutput, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Trinity"))
	if d.Config != "" {
		sb.WriteString(mutedStyle.Render("  " + d.Config))
	}
	sb.WriteString("\n\n")

	sb.WriteString(headerStyle.Render(fmt.Sprintf("Staged for review (%d)", len(d.Staged))))
	sb.WriteString("\n")
	if len(d.Staged) == 0 {
		sb.WriteString(mutedStyle.Render("  nothing staged"))
		sb.WriteString("\n")
	}
	for _, p := range d.Staged {
		churn := fmt.Sprintf("+%d/-%d", p.Additions, p.Deletions)
		sb.WriteString(fmt.Sprintf("  %s  %-40s %-14s %-10s %s\n",
			okStyle.Render(fmt.Sprintf("%3d", p.Score)),
			clip(p.Title, 40), clip(p.Repo, 14), churn, agoString(p.StagedAt, now)))
	}
	sb.WriteString("\n")

	sb.WriteString(headerStyle.Render(fmt.Sprintf("Watching (%d)", len(d.Watching))))
	sb.WriteString("\n")
	if len(d.Watching) == 0 {
		sb.WriteString(mutedStyle.Render("  no active sessions"))
		sb.WriteString("\n")
	}
	for _, s := range d.Watching {
		detail := fmt.Sprintf("refined %d", s.RefinementCount)
		if s.PRURL != "" {
			detail += "  " + s.PRURL
		}
		sb.WriteString(fmt.Sprintf("  %-40s %s  %s\n",
			clip(s.Title, 40), mutedStyle.Render(detail), agoString(s.UpdatedAt, now)))
	}
	sb.WriteString("\n")

	if d.Brief != nil {
		sb.WriteString(fmt.Sprintf("Last brief    %s  %s (%d candidates)\n",
			d.Brief.Date, d.Brief.Status, len(d.Brief.Candidates)))
	} else {
		sb.WriteString(mutedStyle.Render("Last brief    none"))
		sb.WriteString("\n")
	}
	if d.LastExecution != nil {
		sb.WriteString(fmt.Sprintf("Last council  %s  achieved %d/%d (%d attempted)\n",
			d.LastExecution.Date, d.LastExecution.Achieved, d.LastExecution.Target,
			d.LastExecution.TotalAttempted))
	} else {
		sb.WriteString(mutedStyle.Render("Last council  none"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Merged total  %d\n", d.MergedTotal))

	if len(d.Staged) > 0 {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(`decide with "trinity review"`))
		sb.WriteString("\n")
	}
	return sb.String()
}

// clip truncates s to max runes, marking the cut with an ellipsis.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// agoString renders a compact relative age like the dashboard does.
func agoString(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
