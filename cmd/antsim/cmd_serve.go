package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/antpheromones/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation behind the HTTP API",
		Long: `Run the simulation at the configured tick interval and serve aggregate
stats over HTTP, including a websocket stream at /api/v1/ws.

POST endpoints (speed, params, resample) require the admin key, given as
server.admin_key or ANTSIM_ADMIN_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.Server.Port = port
			}
			if cfg.Server.AdminKey == "" {
				slog.Warn("admin key not set, POST endpoints will be disabled")
			}

			s, err := newSession(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &api.Server{
				Sim:      s.sim,
				Eng:      s.eng,
				DB:       s.db,
				Port:     cfg.Server.Port,
				AdminKey: cfg.Server.AdminKey,
			}
			if s.rec != nil {
				server.RunID = s.rec.RunID
			}
			server.Start(ctx)

			fmt.Fprintf(cmd.ErrOrStderr(), "API: http://localhost:%d/api/v1/status (Ctrl+C to stop)\n", cfg.Server.Port)
			if err := s.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if ctx.Err() == nil {
				// Tick limit reached: keep serving the final state.
				slog.Info("simulation finished, still serving", "tick", s.sim.CurrentTick())
				<-ctx.Done()
			}
			return s.finish(cmd.ErrOrStderr())
		},
	}
	addModelFlags(cmd)
	cmd.Flags().Int("port", 0, "HTTP port (0 keeps the config value)")
	return cmd
}
