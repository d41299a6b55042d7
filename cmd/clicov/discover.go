package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oxhq/clicov/analyzer"
	"github.com/oxhq/clicov/core"
	"github.com/oxhq/clicov/report"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the discovered CLI command tree without analyzing tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg := analyzerConfig(logger)
		if cfg.CLIPath == "" {
			return fmt.Errorf("--cli-path is required")
		}

		a := analyzer.New(cfg)
		root, warnings, err := a.DiscoverStructure()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if viper.GetString("format") == report.FormatJSON {
			payload := struct {
				Root     *core.CommandNode `json:"root"`
				Warnings []core.Warning    `json:"warnings,omitempty"`
			}{Root: root, Warnings: warnings}
			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		printTree(cmd, root, 0)
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.Type, w.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func printTree(cmd *cobra.Command, node *core.CommandNode, depth int) {
	out := cmd.OutOrStdout()
	indent := strings.Repeat("  ", depth)

	desc := ""
	if node.Description != "" {
		desc = " - " + node.Description
	}
	fmt.Fprintf(out, "%s%s%s\n", indent, node.Name, desc)

	for _, name := range core.SortedKeys(node.Flags) {
		fmt.Fprintf(out, "%s  --%s (flag)\n", indent, name)
	}
	for _, name := range core.SortedKeys(node.Options) {
		opt := node.Options[name]
		fmt.Fprintf(out, "%s  --%s <%s> (option)\n", indent, name, opt.ValueType)
	}
	for _, name := range core.SortedKeys(node.Subcommands) {
		printTree(cmd, node.Subcommands[name], depth+1)
	}
}
