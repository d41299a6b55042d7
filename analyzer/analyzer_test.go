package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxhq/clicov/core"
	"github.com/oxhq/clicov/coverage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fixtureProject lays out a small CLI project: an entry with an imported and
// an inline subcommand, plus a test suite covering part of the surface.
func fixtureProject(t *testing.T) (cliPath, testDir string) {
	t.Helper()
	dir := t.TempDir()

	cliPath = writeFile(t, dir, "src/cli.mjs", `#!/usr/bin/env node
import { defineCommand, runMain } from "citty";
import build from "./commands/build.mjs";

const main = defineCommand({
  meta: { name: "mycli", description: "demo" },
  args: {
    verbose: { type: "boolean" },
  },
  subCommands: {
    build,
    test: defineCommand({ meta: { name: "test" } }),
  },
});

runMain(main);
`)
	writeFile(t, dir, "src/commands/build.mjs", `import { defineCommand } from "citty";

export default defineCommand({
  meta: { name: "build", description: "build the project" },
  args: {
    out: { type: "string" },
    force: { type: "boolean" },
  },
});
`)
	testDir = filepath.Join(dir, "test")
	writeFile(t, dir, "test/build.test.mjs", `import { runLocalCli } from "./helpers.mjs";

test("build writes to dist", async () => {
  await runLocalCli(["build", "--out", "dist"]);
});
`)
	writeFile(t, dir, "test/orphan.test.mjs", `test("removed command", async () => {
  await runLocalCli(["deploy"]);
});
`)
	return cliPath, testDir
}

func TestAnalyze_EndToEnd(t *testing.T) {
	cliPath, testDir := fixtureProject(t)

	a := New(Config{CLIPath: cliPath, TestDir: testDir})
	rep, result, err := a.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	summary := result.Summary
	if got := summary[coverage.CategorySubcommands]; got.Tested != 1 || got.Total != 2 {
		t.Errorf("subcommands = %+v, want 1/2", got)
	}
	if got := summary[coverage.CategoryOptions]; got.Tested != 1 || got.Total != 1 {
		t.Errorf("options = %+v, want 1/1", got)
	}
	if got := summary[coverage.CategoryFlags]; got.Tested != 0 || got.Total != 2 {
		t.Errorf("flags = %+v, want 0/2", got)
	}

	build := result.Root.Subcommands["build"]
	if build == nil || !build.Tested {
		t.Fatal("build should be discovered and tested")
	}
	if len(build.TestFiles) != 1 || filepath.Base(build.TestFiles[0]) != "build.test.mjs" {
		t.Errorf("build.TestFiles = %v", build.TestFiles)
	}

	// The stale deploy invocation surfaces as an orphan warning, not an error.
	if len(result.Orphans) != 1 {
		t.Fatalf("orphans = %+v, want 1", result.Orphans)
	}
	var sawOrphan bool
	for _, w := range rep.Warnings {
		if w.Type == core.WarnOrphanPattern {
			sawOrphan = true
		}
	}
	if !sawOrphan {
		t.Error("report should carry the orphan warning")
	}

	if rep.Metadata.CLIPath != cliPath || rep.Metadata.TestDir != testDir {
		t.Errorf("metadata = %+v", rep.Metadata)
	}
}

func TestAnalyze_PopulatesCache(t *testing.T) {
	cliPath, testDir := fixtureProject(t)

	a := New(Config{CLIPath: cliPath, TestDir: testDir})
	if _, _, err := a.Analyze(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.Cache().Size() == 0 {
		t.Error("analysis should leave parsed files in the cache")
	}

	disabled := New(Config{CLIPath: cliPath, TestDir: testDir, CacheDisabled: true})
	if _, _, err := disabled.Analyze(context.Background()); err != nil {
		t.Fatal(err)
	}
	if disabled.Cache().Size() != 0 {
		t.Error("disabled cache must stay empty")
	}
}

func TestAnalyze_MissingEntry(t *testing.T) {
	_, testDir := fixtureProject(t)

	a := New(Config{CLIPath: filepath.Join(t.TempDir(), "nope.mjs"), TestDir: testDir})
	_, _, err := a.Analyze(context.Background())
	var discErr *core.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected *core.DiscoveryError, got %T (%v)", err, err)
	}
}

func TestAnalyze_MissingTestDir(t *testing.T) {
	cliPath, _ := fixtureProject(t)

	a := New(Config{CLIPath: cliPath, TestDir: filepath.Join(t.TempDir(), "nope")})
	if _, _, err := a.Analyze(context.Background()); err == nil {
		t.Fatal("missing test directory must be fatal")
	}
}

func TestAnalyze_CustomRunnerNames(t *testing.T) {
	cliPath, testDir := fixtureProject(t)

	a := New(Config{
		CLIPath:     cliPath,
		TestDir:     testDir,
		RunnerNames: []string{"execCli"},
	})
	_, result, err := a.Analyze(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// None of the fixture tests use execCli, so nothing is covered.
	if got := result.Summary[coverage.CategoryOverall]; got.Tested != 0 {
		t.Errorf("overall = %+v, want nothing tested with a foreign runner name", got)
	}
	if len(result.Orphans) != 0 {
		t.Errorf("orphans = %+v, want none", result.Orphans)
	}
}

func TestDiscoverStructure(t *testing.T) {
	cliPath, _ := fixtureProject(t)

	a := New(Config{CLIPath: cliPath})
	root, warnings, err := a.DiscoverStructure()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %+v", warnings)
	}
	if root.Name != "mycli" || len(root.Subcommands) != 2 {
		t.Errorf("root = %q with %d subcommands", root.Name, len(root.Subcommands))
	}
}
