package coverage

import (
	"reflect"
	"testing"

	"github.com/oxhq/clicov/core"
)

// fixtureTree is mycli {verbose} with subcommands build {out, force} and
// test {}.
func fixtureTree() *core.CommandNode {
	root := core.NewCommandNode("mycli")
	root.Flags["verbose"] = &core.FlagSpec{Name: "verbose"}

	build := core.NewCommandNode("build")
	build.Options["out"] = &core.OptionSpec{Name: "out", ValueType: "string"}
	build.Flags["force"] = &core.FlagSpec{Name: "force"}
	root.AddSubcommand(build)

	root.AddSubcommand(core.NewCommandNode("test"))
	return root
}

func TestCompute_Summary(t *testing.T) {
	patterns := []core.InvocationPattern{{
		CommandPath: []string{"build"},
		OptionsUsed: []string{"out"},
		SourceFile:  "build.test.mjs",
		SourceLine:  4,
	}}

	result := Compute(fixtureTree(), patterns)

	want := map[string]core.CoverageRecord{
		CategoryCommands:    core.NewCoverageRecord(0, 1), // root itself untested
		CategorySubcommands: core.NewCoverageRecord(1, 2), // build yes, test no
		CategoryFlags:       core.NewCoverageRecord(0, 2), // verbose, force
		CategoryOptions:     core.NewCoverageRecord(1, 1), // out
		CategoryOverall:     core.NewCoverageRecord(2, 6), // union pool, not an average
	}
	for category, record := range want {
		if got := result.Summary[category]; got != record {
			t.Errorf("%s = %+v, want %+v", category, got, record)
		}
	}
	if result.Summary[CategorySubcommands].Percentage != 50.0 {
		t.Errorf("subcommands percent = %v, want 50.0", result.Summary[CategorySubcommands].Percentage)
	}

	build := result.Root.Subcommands["build"]
	if !build.Tested {
		t.Error("build should be marked tested")
	}
	if !reflect.DeepEqual(build.TestFiles, []string{"build.test.mjs"}) {
		t.Errorf("build.TestFiles = %v", build.TestFiles)
	}
	if !build.Options["out"].Tested {
		t.Error("out should be marked tested")
	}
	if build.Flags["force"].Tested {
		t.Error("force was never used")
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	root := fixtureTree()
	Compute(root, []core.InvocationPattern{{
		CommandPath: []string{"build"},
		OptionsUsed: []string{"out"},
	}})

	if root.Subcommands["build"].Tested {
		t.Error("input tree was mutated")
	}
	if root.Subcommands["build"].Options["out"].Tested {
		t.Error("input option spec was mutated")
	}
}

func TestCompute_RootNameTolerated(t *testing.T) {
	result := Compute(fixtureTree(), []core.InvocationPattern{
		{CommandPath: []string{"mycli", "build"}},
	})
	if len(result.Orphans) != 0 {
		t.Fatalf("leading binary name should resolve, got orphans %+v", result.Orphans)
	}
	if !result.Root.Subcommands["build"].Tested {
		t.Error("build should be tested through the mycli-prefixed path")
	}
}

func TestCompute_Orphans(t *testing.T) {
	result := Compute(fixtureTree(), []core.InvocationPattern{
		{CommandPath: []string{"deploy"}, SourceFile: "deploy.test.mjs", SourceLine: 7},
		{CommandPath: []string{"build"}},
	})

	if len(result.Orphans) != 1 || result.Orphans[0].CommandPath[0] != "deploy" {
		t.Fatalf("orphans = %+v, want the deploy pattern", result.Orphans)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want 1", result.Warnings)
	}
	w := result.Warnings[0]
	if w.Type != core.WarnOrphanPattern || w.File != "deploy.test.mjs" || w.Line != 7 {
		t.Errorf("warning = %+v", w)
	}
	// The resolvable pattern still counts despite the orphan.
	if !result.Root.Subcommands["build"].Tested {
		t.Error("build should still be tested")
	}
}

func TestCompute_NoPatterns(t *testing.T) {
	result := Compute(fixtureTree(), nil)

	overall := result.Summary[CategoryOverall]
	if overall.Tested != 0 || overall.Total != 6 || overall.Percentage != 0 {
		t.Errorf("overall = %+v, want 0/6 at 0%%", overall)
	}
	if len(result.Orphans) != 0 || len(result.Warnings) != 0 {
		t.Error("no patterns means no orphans and no warnings")
	}
}

func TestCompute_EmptyCategoriesAreFullyCovered(t *testing.T) {
	root := core.NewCommandNode("bare")
	result := Compute(root, []core.InvocationPattern{{CommandPath: nil}})

	// Zero-total pools report 100%, and the empty path resolves to the root.
	for _, category := range []string{CategorySubcommands, CategoryFlags, CategoryOptions} {
		if record := result.Summary[category]; record.Percentage != 100.0 {
			t.Errorf("%s = %+v, want 100%% for an empty pool", category, record)
		}
	}
	if record := result.Summary[CategoryCommands]; record.Tested != 1 || record.Total != 1 {
		t.Errorf("commands = %+v, want 1/1", record)
	}
}

func TestCompute_DuplicateTestFilesDeduped(t *testing.T) {
	result := Compute(fixtureTree(), []core.InvocationPattern{
		{CommandPath: []string{"build"}, SourceFile: "b.test.mjs"},
		{CommandPath: []string{"build"}, SourceFile: "b.test.mjs"},
		{CommandPath: []string{"build"}, SourceFile: "a.test.mjs"},
	})

	got := result.Root.Subcommands["build"].TestFiles
	if !reflect.DeepEqual(got, []string{"a.test.mjs", "b.test.mjs"}) {
		t.Errorf("TestFiles = %v, want deduped and sorted", got)
	}
}

func TestUntested(t *testing.T) {
	result := Compute(fixtureTree(), []core.InvocationPattern{{
		CommandPath: []string{"build"},
		OptionsUsed: []string{"out"},
	}})

	commands, subcommands, flags, options := Untested(result.Root)
	if !reflect.DeepEqual(commands, []string{"mycli"}) {
		t.Errorf("commands = %v", commands)
	}
	if !reflect.DeepEqual(subcommands, []string{"test"}) {
		t.Errorf("subcommands = %v", subcommands)
	}
	if !reflect.DeepEqual(flags, []string{"build --force", "--verbose"}) &&
		!reflect.DeepEqual(flags, []string{"--verbose", "build --force"}) {
		t.Errorf("flags = %v", flags)
	}
	if len(options) != 0 {
		t.Errorf("options = %v, want none", options)
	}
}
