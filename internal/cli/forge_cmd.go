package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
)

var (
	forgeFlagTitle string
	forgeFlagDesc  string
	forgeFlagRepo  string
)

var forgeCmd = &cobra.Command{
	Use:   "forge",
	Short: "Run a single mission through the forge",
	Long: `Dispatch one operator-written mission: plan approval with the critic,
iterative refinement against the quality gate, and staging on PASS.

With --repo the mission targets that repository; without it the agent works
against its own workspace (repoless).`,
	Example: `  trinity forge --title "Add retry to the fetcher" \
    --desc "Wrap outbound calls in exponential backoff with jitter." \
    --repo acme/widget`,
	Args: cobra.NoArgs,
	RunE: runForge,
}

func init() {
	forgeCmd.Flags().StringVar(&forgeFlagTitle, "title", "", "Mission title (required)")
	forgeCmd.Flags().StringVar(&forgeFlagDesc, "desc", "", "Mission description (required)")
	forgeCmd.Flags().StringVar(&forgeFlagRepo, "repo", "", `Target repository as "owner/name"; empty runs repoless`)
	_ = forgeCmd.MarkFlagRequired("title")
	_ = forgeCmd.MarkFlagRequired("desc")
	rootCmd.AddCommand(forgeCmd)
}

func runForge(cmd *cobra.Command, _ []string) error {
	m := mission.Mission{
		Title:        forgeFlagTitle,
		Description:  forgeFlagDesc,
		Repo:         forgeFlagRepo,
		RequiresRepo: forgeFlagRepo != "",
		Confidence:   100,
		Source:       mission.SourceHuman,
	}
	if err := m.Validate(); err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.chat.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := rt.forge.Run(ctx, m)

	out := cmd.OutOrStdout()
	if !res.Succeeded() {
		if res.Reason != "" {
			return fmt.Errorf("mission %q failed: %s", m.Title, res.Reason)
		}
		return fmt.Errorf("mission %q failed", m.Title)
	}

	fmt.Fprintln(out, okStyle.Render("mission staged"))
	if res.PRURL != "" {
		fmt.Fprintf(out, "  pr      %s\n", res.PRURL)
	}
	if res.Score > 0 {
		fmt.Fprintf(out, "  score   %d\n", res.Score)
	}
	if res.SessionID != "" {
		fmt.Fprintf(out, "  session %s\n", res.SessionID)
	}
	fmt.Fprintln(out, mutedStyle.Render(`review it with "trinity review"`))
	return nil
}
