package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oxhq/clicov/analyzer"
	"github.com/oxhq/clicov/report"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Run the analysis and print only the prioritized coverage gaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg := analyzerConfig(logger)
		if err := requireInputs(cfg.CLIPath, cfg.TestDir); err != nil {
			return err
		}

		a := analyzer.New(cfg)
		rep, _, err := a.Analyze(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if viper.GetString("format") == report.FormatJSON {
			data, err := json.MarshalIndent(rep.Recommendations, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(rep.Recommendations) == 0 {
			fmt.Fprintln(out, "no coverage gaps found")
			return nil
		}
		for _, rec := range rep.Recommendations {
			fmt.Fprintf(out, "[%s] %s\n", rec.Priority, rec.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
