package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var harvestFlagForce bool

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Advance the suggestion harvest by one step",
	Long: `Run one step of the suggestion harvest: collect finished harvest
sessions into the suggestion cache, or open a new session when the period
has elapsed. The daemon does this on its own schedule; the command exists
for kicking the cycle along by hand.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().BoolVar(&harvestFlagForce, "force", false, "Reset the schedule so a session opens now")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Forcing only makes sense when no session is pending collection;
	// restarting under a pending session would orphan it.
	if harvestFlagForce {
		state, serr := rt.mem.HarvestState()
		if serr != nil {
			return serr
		}
		if len(state.Pending) == 0 {
			state.LastRun = time.Time{}
			if serr := rt.mem.SaveHarvestState(state); serr != nil {
				return serr
			}
		}
	}

	rt.harvester.Refresh(ctx)

	state, err := rt.mem.HarvestState()
	if err != nil {
		return err
	}
	suggestions, err := rt.mem.Suggestions()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pending sessions    %d\n", len(state.Pending))
	if !state.LastRun.IsZero() {
		fmt.Fprintf(out, "last run            %s\n", state.LastRun.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "cached suggestions  %d\n", len(suggestions))
	return nil
}
