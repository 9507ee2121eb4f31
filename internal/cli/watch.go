package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/buildinfo"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/logging"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the daemon with a live dashboard",
	Long: `Run the full daemon with an interactive dashboard on top: staged work,
watched sessions, the council clock, and a tail of daemon events.

watch replaces "trinity serve" in the foreground. Do not run both against
the same memory directory; two daemons would each convene a council.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.chat.Validate(); err != nil {
		return err
	}

	// Log lines would tear the alternate screen apart; errors still land on
	// stderr and survive the screen restore.
	logging.Setup(false, true, os.Getenv("TRINITY_LOG_FORMAT") == "json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.architect.Run(gctx) })
	g.Go(func() error { return rt.api.Run(gctx) })

	model := tui.New(gctx, tui.Deps{
		Memory:    rt.mem,
		Staging:   rt.staging,
		Architect: rt.architect,
	}, rt.events, buildinfo.Get().Version)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	_, tuiErr := p.Run()

	// Quitting the dashboard stops the daemon.
	stop()
	err = g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		return tuiErr
	}
	return nil
}
