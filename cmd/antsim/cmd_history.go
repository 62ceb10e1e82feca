package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/antpheromones/internal/persistence"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored runs or show one run's stats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			jsonOut, _ := cmd.Flags().GetBool("json")
			from, _ := cmd.Flags().GetUint64("from")
			to, _ := cmd.Flags().GetUint64("to")
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := db.ListRuns(limit)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if jsonOut {
					return json.NewEncoder(out).Encode(runs)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tSTARTED\tSEED\tWORLD\tANTS\tTICKS")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%dx%d\t%d\t%s\n",
						r.ID, r.StartedAt, r.Seed, r.SizeX, r.SizeY, r.NumAnts, humanize.Comma(int64(r.FinalTick)))
				}
				return tw.Flush()
			}

			rows, err := db.LoadStatsHistory(args[0], from, to, limit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			if jsonOut {
				return json.NewEncoder(out).Encode(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "TICK\tANTS\tDEATHS\tBIRTHS\tAVG DIST\tWIN10\tRAND MOVE\tPR DIE\tPHEROMONE\t")
			for _, st := range rows {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%s\t\n",
					st.Tick, st.Population, st.Deaths, st.Births,
					st.AvgDistance, st.RollingAvgDistance, st.AvgProbRandMove, st.AvgProbDieCenter,
					humanize.FormatFloat("#,###.", st.TotalPheromone))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("db", "antsim.db", "SQLite database")
	cmd.Flags().Uint64("from", 0, "First tick")
	cmd.Flags().Uint64("to", 0, "Last tick (0 for no bound)")
	cmd.Flags().Int("limit", 50, "Maximum rows")
	return cmd
}
