package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
)

var councilCmd = &cobra.Command{
	Use:   "council",
	Short: "Convene the council once",
	Long: `Collect candidate missions from every source, cross-validate and rank
them, then dispatch missions through the forge until the success quota is
met or the pool runs dry. This is the same run the daemon fires nightly;
expect it to take a while when missions dispatch.`,
	Args: cobra.NoArgs,
	RunE: runCouncil,
}

func init() {
	rootCmd.AddCommand(councilCmd)
}

func runCouncil(cmd *cobra.Command, _ []string) error {
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

	exec, err := rt.council.Convene(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), renderExecution(exec))
	return nil
}

// renderExecution formats a council report for the terminal.
func renderExecution(e memory.Execution) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Council report %s", e.Date)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  achieved %d of %d target successes (%d attempted, pool %d)\n",
		e.Achieved, e.Target, e.TotalAttempted, e.PoolSize))

	if len(e.Results) == 0 {
		sb.WriteString(mutedStyle.Render("  no missions dispatched"))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString("\n")
	for _, r := range e.Results {
		mark := failStyle.Render("x")
		if r.Status == string(mission.StatusSuccess) {
			mark = okStyle.Render("+")
		}
		line := fmt.Sprintf("  %s %s", mark, r.Title)
		if r.Score > 0 {
			line += mutedStyle.Render(fmt.Sprintf("  score %d", r.Score))
		}
		if r.Reason != "" {
			line += mutedStyle.Render("  " + r.Reason)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
