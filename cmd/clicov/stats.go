package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/oxhq/clicov/db"
	"github.com/oxhq/clicov/models"
	"github.com/oxhq/clicov/report"
)

var statsLimit int

// runStat is one history row plus its overall-coverage delta against the
// previous run for the same (cli path, test dir) pair. Nil delta means there
// is no earlier run to compare with.
type runStat struct {
	models.Run
	OverallDelta *float64 `json:"overall_delta,omitempty"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent analysis runs and coverage deltas from the history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := viper.GetString("db")
		if dsn == "" {
			return fmt.Errorf("--db (or CLICOV_DB) is required for stats")
		}
		gdb, err := db.Connect(dsn, viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		stats, err := collectRunStats(gdb, statsLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if viper.GetString("format") == report.FormatJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(stats) == 0 {
			fmt.Fprintln(out, "no recorded runs")
			return nil
		}
		fmt.Fprintf(out, "%-20s %-19s %8s %7s %9s  %s\n", "ID", "WHEN", "OVERALL", "DELTA", "WARNINGS", "CLI")
		for _, stat := range stats {
			fmt.Fprintf(out, "%-20s %-19s %7.1f%% %7s %9d  %s\n",
				stat.ID,
				stat.CreatedAt.Format("2006-01-02 15:04:05"),
				stat.OverallPercent,
				formatDelta(stat.OverallDelta),
				stat.WarningCount,
				stat.CLIPath,
			)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statsCmd)
}

// collectRunStats loads recent runs and joins each with its predecessor's
// overall percentage.
func collectRunStats(gdb *gorm.DB, limit int) ([]runStat, error) {
	runs, err := db.RecentRuns(gdb, limit)
	if err != nil {
		return nil, err
	}
	stats := make([]runStat, 0, len(runs))
	for _, run := range runs {
		stat := runStat{Run: run}
		prev, err := db.PreviousRun(gdb, &run)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			delta := run.OverallPercent - prev.OverallPercent
			stat.OverallDelta = &delta
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func formatDelta(delta *float64) string {
	if delta == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *delta)
}
