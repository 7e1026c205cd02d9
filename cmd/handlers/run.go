package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/logger"
)

// NewRunCmd creates the long-running daemon command: event workers plus the
// scheduled digest and backlink jobs.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline daemon with scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.orch.Start(ctx)
			if err := a.sched.Start(ctx); err != nil {
				return err
			}
			logger.Get().Info().Msg("daemon started")

			<-ctx.Done()
			logger.Get().Info().Msg("shutting down")
			a.sched.Stop()
			a.orch.Stop()
			return nil
		},
	}
}
