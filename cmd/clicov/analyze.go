package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oxhq/clicov/analyzer"
	"github.com/oxhq/clicov/coverage"
	"github.com/oxhq/clicov/db"
	"github.com/oxhq/clicov/models"
	"github.com/oxhq/clicov/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full coverage analysis and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg := analyzerConfig(logger)
		if err := requireInputs(cfg.CLIPath, cfg.TestDir); err != nil {
			return err
		}

		a := analyzer.New(cfg)
		rep, result, err := a.Analyze(cmd.Context())
		if err != nil {
			return err
		}

		out, err := report.Render(rep, viper.GetString("format"))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		stats := a.Cache().Stats()
		logger.Debug("parse cache", "hits", stats.Hits, "misses", stats.Misses, "hit_rate", stats.HitRate, "size", stats.Size)

		persistRun(logger, rep, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func requireInputs(cliPath, testDir string) error {
	if cliPath == "" {
		return fmt.Errorf("--cli-path is required")
	}
	if testDir == "" {
		return fmt.Errorf("--test-dir is required")
	}
	return nil
}

// persistRun writes the run to the history store when one is configured.
// History is an add-on; failures are logged, never fatal.
func persistRun(logger *log.Logger, rep *report.Report, result *coverage.Result) {
	dsn := viper.GetString("db")
	if dsn == "" {
		return
	}
	gdb, err := db.Connect(dsn, viper.GetBool("verbose"))
	if err != nil {
		logger.Warn("run history unavailable", "err", err)
		return
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		logger.Warn("could not encode report for history", "err", err)
		return
	}
	summary := result.Summary

	// Surface movement against the previous run for the same inputs.
	if prev, err := db.LastRunFor(gdb, rep.Metadata.CLIPath, rep.Metadata.TestDir); err == nil && prev != nil {
		current := summary[coverage.CategoryOverall].Percentage
		logger.Info("overall coverage vs previous run",
			"previous", fmt.Sprintf("%.1f%%", prev.OverallPercent),
			"current", fmt.Sprintf("%.1f%%", current),
			"delta", fmt.Sprintf("%+.1f%%", current-prev.OverallPercent),
		)
	}
	run := &models.Run{
		CLIPath:           rep.Metadata.CLIPath,
		TestDir:           rep.Metadata.TestDir,
		CommandsTotal:     summary[coverage.CategoryCommands].Total,
		CommandsTested:    summary[coverage.CategoryCommands].Tested,
		SubcommandsTotal:  summary[coverage.CategorySubcommands].Total,
		SubcommandsTested: summary[coverage.CategorySubcommands].Tested,
		FlagsTotal:        summary[coverage.CategoryFlags].Total,
		FlagsTested:       summary[coverage.CategoryFlags].Tested,
		OptionsTotal:      summary[coverage.CategoryOptions].Total,
		OptionsTested:     summary[coverage.CategoryOptions].Tested,
		OverallTotal:      summary[coverage.CategoryOverall].Total,
		OverallTested:     summary[coverage.CategoryOverall].Tested,
		OverallPercent:    summary[coverage.CategoryOverall].Percentage,
		Report:            payload,
		WarningCount:      len(rep.Warnings),
	}
	if err := db.SaveRun(gdb, run); err != nil {
		logger.Warn("could not save run history", "err", err)
		return
	}
	logger.Debug("run recorded", "id", run.ID)
}
