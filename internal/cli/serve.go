package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Trinity daemon",
	Long: `Run the long-lived Trinity daemon: the watchdog loop, the harvest
schedule, the nightly council, and the HTTP decision API.

The daemon stops cleanly on SIGINT or SIGTERM. An in-flight council run is
drained before exit.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires the full runtime and drives the architect and the decision
// API until a signal arrives or one of them fails.
func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	// The gate, the critic, and the council all deliberate through the LLM
	// gateway; a daemon without one only produces failures.
	if err := rt.chat.Validate(); err != nil {
		return err
	}

	logger := logging.New("serve")
	logger.Info("starting daemon",
		"config", rt.cfgPath,
		"memory_dir", rt.cfg.Core.MemoryDir,
		"addr", rt.cfg.HTTP.Addr,
		"council_hour", rt.cfg.Council.Hour,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.architect.Run(gctx) })
	g.Go(func() error { return rt.api.Run(gctx) })

	err = g.Wait()
	logger.Info("daemon stopped")
	return err
}
