package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oxhq/clicov/core"
	"github.com/oxhq/clicov/coverage"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// Report is the machine-readable analysis result. Key names are stable so
// CI tooling can gate on them. Apart from Metadata.AnalyzedAt, two runs over
// identical inputs render identical reports.
type Report struct {
	Summary         map[string]core.CoverageRecord `json:"summary"`
	Commands        map[string]CommandDetail       `json:"commands"`
	Recommendations []Recommendation               `json:"recommendations"`
	Metadata        Metadata                       `json:"metadata"`
	Warnings        []core.Warning                 `json:"warnings,omitempty"`
}

// CommandDetail is the per-command breakdown of the annotated tree.
type CommandDetail struct {
	Description string                   `json:"description,omitempty"`
	Tested      bool                     `json:"tested"`
	TestFiles   []string                 `json:"test_files,omitempty"`
	Flags       map[string]bool          `json:"flags,omitempty"`
	Options     map[string]bool          `json:"options,omitempty"`
	Subcommands map[string]CommandDetail `json:"subcommands,omitempty"`
}

// Recommendation is one prioritized gap in test coverage.
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Target   string `json:"target"`
	Message  string `json:"message"`
}

// Metadata identifies the analyzed inputs. AnalyzedAt is the only
// non-reproducible field and is confined here.
type Metadata struct {
	AnalyzedAt time.Time `json:"analyzedAt"`
	CLIPath    string    `json:"cliPath"`
	TestDir    string    `json:"testDir"`
}

// Build assembles a Report from a coverage result plus the discovery-time
// warnings.
func Build(result *coverage.Result, warnings []core.Warning, meta Metadata) *Report {
	all := make([]core.Warning, 0, len(warnings)+len(result.Warnings))
	all = append(all, warnings...)
	all = append(all, result.Warnings...)

	return &Report{
		Summary:         result.Summary,
		Commands:        commandDetails(result.Root),
		Recommendations: recommendations(result.Root),
		Metadata:        meta,
		Warnings:        all,
	}
}

// Render serializes the report in the requested format.
func Render(rep *Report, format string) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding report: %w", err)
		}
		return string(data) + "\n", nil
	case FormatText, "":
		return renderText(rep), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func commandDetails(root *core.CommandNode) map[string]CommandDetail {
	details := make(map[string]CommandDetail, len(root.Subcommands))
	for _, name := range core.SortedKeys(root.Subcommands) {
		details[name] = commandDetail(root.Subcommands[name])
	}
	return details
}

func commandDetail(node *core.CommandNode) CommandDetail {
	detail := CommandDetail{
		Description: node.Description,
		Tested:      node.Tested,
		TestFiles:   append([]string(nil), node.TestFiles...),
	}
	if len(node.Flags) > 0 {
		detail.Flags = make(map[string]bool, len(node.Flags))
		for name, flag := range node.Flags {
			detail.Flags[name] = flag.Tested
		}
	}
	if len(node.Options) > 0 {
		detail.Options = make(map[string]bool, len(node.Options))
		for name, option := range node.Options {
			detail.Options[name] = option.Tested
		}
	}
	if len(node.Subcommands) > 0 {
		detail.Subcommands = make(map[string]CommandDetail, len(node.Subcommands))
		for _, name := range core.SortedKeys(node.Subcommands) {
			detail.Subcommands[name] = commandDetail(node.Subcommands[name])
		}
	}
	return detail
}

// recommendations lists untested surface, highest priority first: commands
// and subcommands are high, flags and options medium.
func recommendations(root *core.CommandNode) []Recommendation {
	commands, subcommands, flags, options := coverage.Untested(root)

	recs := make([]Recommendation, 0, len(commands)+len(subcommands)+len(flags)+len(options))
	for _, target := range commands {
		recs = append(recs, Recommendation{
			Type:     "untested_command",
			Priority: PriorityHigh,
			Target:   target,
			Message:  fmt.Sprintf("command %q has no test coverage", target),
		})
	}
	for _, target := range subcommands {
		recs = append(recs, Recommendation{
			Type:     "untested_subcommand",
			Priority: PriorityHigh,
			Target:   target,
			Message:  fmt.Sprintf("subcommand %q has no test coverage", target),
		})
	}
	for _, target := range flags {
		recs = append(recs, Recommendation{
			Type:     "untested_flag",
			Priority: PriorityMedium,
			Target:   target,
			Message:  fmt.Sprintf("flag %q is never exercised by tests", target),
		})
	}
	for _, target := range options {
		recs = append(recs, Recommendation{
			Type:     "untested_option",
			Priority: PriorityMedium,
			Target:   target,
			Message:  fmt.Sprintf("option %q is never exercised by tests", target),
		})
	}
	return recs
}

func renderText(rep *Report) string {
	var b strings.Builder

	b.WriteString("CLI Test Coverage Report\n")
	b.WriteString("========================\n\n")
	fmt.Fprintf(&b, "CLI entry: %s\n", rep.Metadata.CLIPath)
	fmt.Fprintf(&b, "Test dir:  %s\n\n", rep.Metadata.TestDir)

	b.WriteString("Summary\n-------\n")
	for _, category := range []string{
		coverage.CategoryCommands,
		coverage.CategorySubcommands,
		coverage.CategoryFlags,
		coverage.CategoryOptions,
		coverage.CategoryOverall,
	} {
		record := rep.Summary[category]
		fmt.Fprintf(&b, "%-12s %3d/%-3d (%.1f%%)\n", category, record.Tested, record.Total, record.Percentage)
	}

	if len(rep.Commands) > 0 {
		b.WriteString("\nCommands\n--------\n")
		names := make([]string, 0, len(rep.Commands))
		for name := range rep.Commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			writeCommandText(&b, name, rep.Commands[name], 0)
		}
	}

	if len(rep.Recommendations) > 0 {
		b.WriteString("\nRecommendations\n---------------\n")
		for _, rec := range rep.Recommendations {
			fmt.Fprintf(&b, "[%s] %s\n", rec.Priority, rec.Message)
		}
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("\nWarnings\n--------\n")
		for _, warning := range rep.Warnings {
			if warning.File != "" {
				fmt.Fprintf(&b, "%s: %s (%s:%d)\n", warning.Type, warning.Message, warning.File, warning.Line)
			} else {
				fmt.Fprintf(&b, "%s: %s\n", warning.Type, warning.Message)
			}
		}
	}

	return b.String()
}

func writeCommandText(b *strings.Builder, name string, detail CommandDetail, depth int) {
	indent := strings.Repeat("  ", depth)
	marker := "✗"
	if detail.Tested {
		marker = "✓"
	}
	fmt.Fprintf(b, "%s%s %s", indent, marker, name)
	if len(detail.TestFiles) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(detail.TestFiles, ", "))
	}
	b.WriteString("\n")

	for _, flag := range sortedBoolKeys(detail.Flags) {
		fmt.Fprintf(b, "%s  %s --%s (flag)\n", indent, boolMarker(detail.Flags[flag]), flag)
	}
	for _, option := range sortedBoolKeys(detail.Options) {
		fmt.Fprintf(b, "%s  %s --%s (option)\n", indent, boolMarker(detail.Options[option]), option)
	}
	for _, sub := range sortedDetailKeys(detail.Subcommands) {
		writeCommandText(b, sub, detail.Subcommands[sub], depth+1)
	}
}

func boolMarker(tested bool) string {
	if tested {
		return "✓"
	}
	return "✗"
}

func sortedBoolKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDetailKeys(m map[string]CommandDetail) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
