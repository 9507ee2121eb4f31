package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

// Decision actions the daemon accepts, plus the console-only choices.
const (
	reviewActionMerge   = "MERGE"
	reviewActionPending = "PENDING"
	reviewActionReject  = "REJECT"

	reviewChoiceDiff = "diff"
	reviewChoiceSkip = "skip"
	reviewChoiceQuit = "quit"
)

var reviewFlagAddr string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Decide the fate of staged projects",
	Long: `Walk through every staged project and merge, reject, or defer each one.

Decisions go through the running daemon so its bookkeeping stays consistent;
start it first with "trinity serve".`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewFlagAddr, "addr", "", "Daemon address (default: the configured http.addr)")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	addr := reviewFlagAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	client := newReviewClient(apiBaseURL(addr))

	projects, err := client.stagedProjects()
	if err != nil {
		return fmt.Errorf(`reaching the daemon at %s (is "trinity serve" running?): %w`, client.base, err)
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("nothing staged; the forge will deliver"))
		return nil
	}

	now := time.Now()
	for i, p := range projects {
		fmt.Fprintf(out, "\n%s\n", renderProjectCard(p, i+1, len(projects), now))

		for {
			choice, err := promptChoice(p)
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}

			switch choice {
			case reviewChoiceDiff:
				diff, derr := client.diff(p.ID)
				if derr != nil {
					fmt.Fprintln(out, failStyle.Render("fetching diff: "+derr.Error()))
					continue
				}
				fmt.Fprintln(out, diff)
				continue

			case reviewChoiceSkip:
			case reviewChoiceQuit:
				return nil

			default:
				reason := ""
				if choice == reviewActionReject {
					if rerr := promptReason(&reason); rerr != nil {
						if errors.Is(rerr, huh.ErrUserAborted) {
							continue
						}
						return rerr
					}
				}

				msg, derr := client.decide(p.ID, choice, reason)
				if derr != nil {
					fmt.Fprintln(out, failStyle.Render(derr.Error()))
					continue
				}
				fmt.Fprintln(out, okStyle.Render(msg))
			}
			break
		}
	}
	return nil
}

// promptChoice runs the per-project decision menu.
func promptChoice(p staging.Project) (string, error) {
	choice := ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(p.Title).
				Description(fmt.Sprintf("score %d, +%d/-%d in %d files", p.Score, p.Additions, p.Deletions, p.FilesCount)).
				Options(
					huh.NewOption("Merge the pull request", reviewActionMerge),
					huh.NewOption("Reject and close", reviewActionReject),
					huh.NewOption("Decide later (keep watching)", reviewActionPending),
					huh.NewOption("Show the diff", reviewChoiceDiff),
					huh.NewOption("Skip for now", reviewChoiceSkip),
					huh.NewOption("Quit", reviewChoiceQuit),
				).
				Value(&choice),
		),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

// promptReason asks for an optional rejection reason.
func promptReason(reason *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Why reject it?").
				Placeholder("optional, shown to the council as feedback").
				Value(reason),
		),
	).WithTheme(huh.ThemeCharm()).Run()
}

// renderProjectCard summarizes one staged project above its decision menu.
func renderProjectCard(p staging.Project, idx, total int, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("[%d/%d] %s", idx, total, p.Title)))
	sb.WriteString("\n")

	meta := []string{fmt.Sprintf("score %d", p.Score)}
	if p.Repo != "" {
		meta = append(meta, p.Repo)
	}
	meta = append(meta, fmt.Sprintf("+%d/-%d in %d files", p.Additions, p.Deletions, p.FilesCount))
	if age := agoString(p.StagedAt, now); age != "" {
		meta = append(meta, "staged "+age)
	}
	sb.WriteString("  " + mutedStyle.Render(strings.Join(meta, "  |  ")))
	sb.WriteString("\n")

	if p.PRURL != "" {
		sb.WriteString("  " + p.PRURL)
		sb.WriteString("\n")
	}
	if p.Description != "" {
		sb.WriteString("  " + clip(p.Description, 100))
		sb.WriteString("\n")
	}
	return sb.String()
}

// --- Daemon client ---

// reviewClient is a thin HTTP client for the daemon's decision API.
type reviewClient struct {
	base string
	hc   *http.Client
}

func newReviewClient(base string) *reviewClient {
	return &reviewClient{
		base: base,
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *reviewClient) stagedProjects() ([]staging.Project, error) {
	var payload struct {
		Projects []staging.Project `json:"projects"`
	}
	if err := c.getJSON("/staged-projects", &payload); err != nil {
		return nil, err
	}
	return payload.Projects, nil
}

func (c *reviewClient) diff(id string) (string, error) {
	var payload struct {
		Diff string `json:"diff"`
	}
	if err := c.getJSON("/project/"+id+"/diff", &payload); err != nil {
		return "", err
	}
	return payload.Diff, nil
}

// decide posts one decision and returns the daemon's confirmation message.
func (c *reviewClient) decide(id, action, reason string) (string, error) {
	body, err := json.Marshal(map[string]string{"action": action, "reason": reason})
	if err != nil {
		return "", fmt.Errorf("encoding decision: %w", err)
	}

	resp, err := c.hc.Post(c.base+"/project/"+id+"/decision", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decoding daemon reply: %w", err)
	}
	if !reply.Success {
		return "", fmt.Errorf("daemon refused the decision: %s", reply.Message)
	}
	return reply.Message, nil
}

func (c *reviewClient) getJSON(path string, target any) error {
	resp, err := c.hc.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon replied %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// apiBaseURL turns a listen address into a client base URL. A bare ":8315"
// listens on every interface; the client dials loopback.
func apiBaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
