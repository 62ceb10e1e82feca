// Command antsim runs the ant pheromone simulation headless, behind an HTTP
// API, or inspects stored runs.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/antpheromones/internal/config"
	"github.com/talgya/antpheromones/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "antsim",
		Short: "Ant pheromone simulation",
		Long: `antsim simulates ants on a toroidal grid, drawn up a diffusing pheromone
gradient toward a central source where they are most likely to die. Dead ants
are replaced by offspring of tournament-selected parents.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug, trace")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newHistoryCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "antsim version %s\n", version)
		},
	}
}

// addModelFlags registers the overrides shared by run and serve.
func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64("seed", 0, "Random seed")
	f.Int("ants", 0, "Target number of ants")
	f.Int("size", 0, "World width and height")
	f.Uint64("ticks", 0, "Ticks to run (0 keeps the config value)")
	f.String("activation", "", "Activation order: fixed|0, rwr|1, rwor|2")
	f.String("move", "", "Random move method: random_open|0, first_open|1")
	f.String("db", "", "SQLite database for stats history")
	f.String("report", "", "Plain-text report file (- for stdout)")
	f.String("field-report", "", "Pheromone field dump file")
}

// loadConfig reads --config, applies environment and flag overrides,
// validates, and installs the process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Lookup("seed") != nil {
		if f.Changed("seed") {
			cfg.Model.Seed, _ = f.GetInt64("seed")
		}
		if f.Changed("ants") {
			cfg.Model.NumAnts, _ = f.GetInt("ants")
		}
		if f.Changed("size") {
			n, _ := f.GetInt("size")
			cfg.Model.SizeX, cfg.Model.SizeY = n, n
		}
		if f.Changed("ticks") {
			cfg.Run.Ticks, _ = f.GetUint64("ticks")
		}
		if v, _ := f.GetString("activation"); v != "" {
			cfg.Model.ActivationOrder = config.Choice(v)
		}
		if v, _ := f.GetString("move"); v != "" {
			cfg.Model.RandomMoveMethod = config.Choice(v)
		}
		if v, _ := f.GetString("db"); v != "" {
			cfg.Storage.DBPath = v
		}
		if v, _ := f.GetString("report"); v != "" {
			cfg.Report.File = v
		}
		if v, _ := f.GetString("field-report"); v != "" {
			cfg.Report.FieldFile = v
		}
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	slog.SetDefault(logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()))
	return cfg, nil
}
