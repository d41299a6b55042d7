package coverage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oxhq/clicov/core"
)

// Coverage categories.
const (
	CategoryCommands    = "commands"
	CategorySubcommands = "subcommands"
	CategoryFlags       = "flags"
	CategoryOptions     = "options"
	CategoryOverall     = "overall"
)

// Result is the outcome of joining a discovered CLI tree with the invocation
// patterns found in its test suite.
type Result struct {
	// Root is an annotated deep copy of the discovered tree; the input tree
	// is never mutated.
	Root *core.CommandNode
	// Summary holds one CoverageRecord per category.
	Summary map[string]core.CoverageRecord
	// Orphans are patterns whose command path did not resolve.
	Orphans []core.InvocationPattern
	// Warnings carries one entry per orphan pattern.
	Warnings []core.Warning
}

// Compute annotates a copy of root with tested/testFiles markings from
// patterns and calculates per-category and overall coverage. Patterns whose
// path does not resolve are recorded as orphans, not errors.
func Compute(root *core.CommandNode, patterns []core.InvocationPattern) *Result {
	annotated := root.Clone()
	result := &Result{Root: annotated}

	for _, pattern := range patterns {
		node := resolvePattern(annotated, pattern.CommandPath)
		if node == nil {
			result.Orphans = append(result.Orphans, pattern)
			result.Warnings = append(result.Warnings, core.Warning{
				Type: core.WarnOrphanPattern,
				Message: fmt.Sprintf("test invokes %q but no such command exists",
					strings.Join(pattern.CommandPath, " ")),
				File: pattern.SourceFile,
				Line: pattern.SourceLine,
			})
			continue
		}
		markTested(node, pattern)
	}

	result.Summary = summarize(annotated)
	return result
}

// resolvePattern resolves a command path against the tree. A leading token
// equal to the root command's own name is tolerated; runners sometimes spell
// the binary name, sometimes not.
func resolvePattern(root *core.CommandNode, path []string) *core.CommandNode {
	if node := root.Resolve(path); node != nil {
		return node
	}
	if len(path) > 0 && path[0] == root.Name {
		return root.Resolve(path[1:])
	}
	return nil
}

// markTested records that pattern exercises node, including any flags and
// options the invocation used.
func markTested(node *core.CommandNode, pattern core.InvocationPattern) {
	node.Tested = true
	node.TestFiles = appendUnique(node.TestFiles, pattern.SourceFile)

	for _, name := range pattern.FlagsUsed {
		if flag, ok := node.Flags[name]; ok {
			flag.Tested = true
		}
	}
	for _, name := range pattern.OptionsUsed {
		if option, ok := node.Options[name]; ok {
			option.Tested = true
		}
	}
}

// summarize counts tested vs total across the whole tree. The root command
// is the commands pool; every descendant, at any depth, is a subcommand;
// flags and options aggregate across all nodes including the root. Overall
// is the union of all four pools counted as one, not an average of
// percentages (averaging skews when one category has very few items).
func summarize(root *core.CommandNode) map[string]core.CoverageRecord {
	var (
		commandsTotal, commandsTested       int
		subcommandsTotal, subcommandsTested int
		flagsTotal, flagsTested             int
		optionsTotal, optionsTested         int
	)

	root.Walk(func(node *core.CommandNode, depth int) {
		if depth == 0 {
			commandsTotal++
			if node.Tested {
				commandsTested++
			}
		} else {
			subcommandsTotal++
			if node.Tested {
				subcommandsTested++
			}
		}
		for _, flag := range node.Flags {
			flagsTotal++
			if flag.Tested {
				flagsTested++
			}
		}
		for _, option := range node.Options {
			optionsTotal++
			if option.Tested {
				optionsTested++
			}
		}
	})

	overallTotal := commandsTotal + subcommandsTotal + flagsTotal + optionsTotal
	overallTested := commandsTested + subcommandsTested + flagsTested + optionsTested

	return map[string]core.CoverageRecord{
		CategoryCommands:    core.NewCoverageRecord(commandsTested, commandsTotal),
		CategorySubcommands: core.NewCoverageRecord(subcommandsTested, subcommandsTotal),
		CategoryFlags:       core.NewCoverageRecord(flagsTested, flagsTotal),
		CategoryOptions:     core.NewCoverageRecord(optionsTested, optionsTotal),
		CategoryOverall:     core.NewCoverageRecord(overallTested, overallTotal),
	}
}

// Untested lists the command paths, flags and options that no pattern
// exercised, in deterministic order. Flags and options are rendered as
// "path --name".
func Untested(root *core.CommandNode) (commands, subcommands, flags, options []string) {
	root.Walk(func(node *core.CommandNode, depth int) {
		path := strings.Join(node.Path(), " ")
		switch {
		case depth == 0 && !node.Tested:
			commands = append(commands, node.Name)
		case depth > 0 && !node.Tested:
			subcommands = append(subcommands, path)
		}
		for _, name := range core.SortedKeys(node.Flags) {
			if !node.Flags[name].Tested {
				flags = append(flags, strings.TrimSpace(path+" --"+name))
			}
		}
		for _, name := range core.SortedKeys(node.Options) {
			if !node.Options[name].Tested {
				options = append(options, strings.TrimSpace(path+" --"+name))
			}
		}
	})
	sort.Strings(commands)
	sort.Strings(subcommands)
	return commands, subcommands, flags, options
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	list = append(list, value)
	sort.Strings(list)
	return list
}
