package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless",
		Long: `Run the simulation as fast as possible for the configured number of ticks,
writing report lines, field dumps and stats history as configured.

Examples:
  antsim run --ticks 5000 --report -
  antsim run --config antsim.yaml --db runs.db --activation rwor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Run.Ticks == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "ticks is 0: running until interrupted")
			}
			// Headless runs never pause or sleep.
			cfg.Run.Interval = 0
			cfg.Run.Speed = 1

			s, err := newSession(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return s.finish(cmd.ErrOrStderr())
		},
	}
	addModelFlags(cmd)
	return cmd
}
