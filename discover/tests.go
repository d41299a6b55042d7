package discover

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/clicov/core"
	"github.com/oxhq/clicov/parser"
)

// DefaultRunnerNames are the callee names recognized as CLI invocations in
// test files: the local process runner and the sandboxed (cleanroom) runner.
var DefaultRunnerNames = []string{"runLocalCli", "runCleanroomCli", "runCli"}

// DefaultIncludePatterns match conventional test file names.
var DefaultIncludePatterns = []string{
	".test.mjs", ".test.js", ".test.ts",
	".spec.mjs", ".spec.js", ".spec.ts",
}

// DefaultExcludePatterns prune directories never worth scanning.
var DefaultExcludePatterns = []string{"node_modules", ".git", "dist", "coverage"}

// TestDiscoverer finds test files under a directory and extracts the
// invocation patterns they exercise.
type TestDiscoverer struct {
	reader *core.Reader
	parser *parser.Parser
	log    *log.Logger

	// RunnerNames is the set of callee names treated as CLI invocations.
	RunnerNames []string
	// FailFast aborts the whole pass on the first test-file parse error
	// instead of degrading it to a warning. Default is continue-and-warn.
	FailFast bool
	// Workers caps the parse worker pool; 0 means one per CPU.
	Workers int
}

// NewTestDiscoverer wires a test pattern discoverer with its collaborators.
func NewTestDiscoverer(reader *core.Reader, p *parser.Parser, logger *log.Logger) *TestDiscoverer {
	return &TestDiscoverer{
		reader:      reader,
		parser:      p,
		log:         logger,
		RunnerNames: DefaultRunnerNames,
	}
}

// Discover enumerates testDir, parses each matching file and returns the
// invocation patterns in file-then-line order. Per-file parse failures are
// warnings unless FailFast is set; filesystem failure on testDir itself is
// fatal.
func (d *TestDiscoverer) Discover(ctx context.Context, testDir string, includes, excludes []string, root *core.CommandNode) ([]core.InvocationPattern, []core.Warning, error) {
	if info, err := os.Stat(testDir); err != nil {
		return nil, nil, &core.DiscoveryError{Path: testDir, Op: "stat", Err: err}
	} else if !info.IsDir() {
		return nil, nil, &core.DiscoveryError{Path: testDir, Op: "walk", Err: os.ErrInvalid}
	}
	if len(includes) == 0 {
		includes = DefaultIncludePatterns
	}
	if len(excludes) == 0 {
		excludes = DefaultExcludePatterns
	}

	files, err := enumerateTestFiles(testDir, includes, excludes)
	if err != nil {
		return nil, nil, err
	}
	d.log.Debug("enumerated test files", "dir", testDir, "count", len(files))

	patterns, warnings, err := d.parseFiles(ctx, files, root)
	if err != nil {
		return nil, nil, err
	}

	// Parsing is parallel; re-sort so the ordering guarantee (file
	// traversal order, then source order) holds regardless of scheduling.
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].SourceFile != patterns[j].SourceFile {
			return patterns[i].SourceFile < patterns[j].SourceFile
		}
		return patterns[i].SourceLine < patterns[j].SourceLine
	})
	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].File != warnings[j].File {
			return warnings[i].File < warnings[j].File
		}
		return warnings[i].Line < warnings[j].Line
	})
	return patterns, warnings, nil
}

// enumerateTestFiles walks testDir recursively, pruning excluded components
// and collecting files that match an include pattern. Results are sorted.
func enumerateTestFiles(testDir string, includes, excludes []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(testDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return &core.DiscoveryError{Path: path, Op: "walk", Err: err}
		}
		if entry.IsDir() {
			if path != testDir && matchesAny(entry.Name(), path, excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(entry.Name(), path, excludes) {
			return nil
		}
		if matchesInclude(entry.Name(), includes) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matchesInclude treats patterns with glob metacharacters as doublestar
// globs against the base name, anything else as a suffix match.
func matchesInclude(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if isGlob(pattern) {
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				return true
			}
			continue
		}
		if strings.HasSuffix(name, pattern) {
			return true
		}
	}
	return false
}

// matchesAny checks exclude patterns against the path component (substring
// or glob) and the full path (glob).
func matchesAny(name, fullPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if isGlob(pattern) {
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				return true
			}
			if ok, err := doublestar.PathMatch(pattern, filepath.ToSlash(fullPath)); err == nil && ok {
				return true
			}
			continue
		}
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// parseFiles fans file parsing out over a worker pool and merges the
// per-file results. Each worker owns its parse call end to end; no parser
// state is shared mid-parse because the cache is the only shared structure
// and it is mutex-guarded.
func (d *TestDiscoverer) parseFiles(ctx context.Context, files []string, root *core.CommandNode) ([]core.InvocationPattern, []core.Warning, error) {
	workers := d.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}
	if workers == 0 {
		return nil, nil, nil
	}

	paths := make(chan string)
	var (
		mu       sync.Mutex
		patterns []core.InvocationPattern
		warnings []core.Warning
		fatal    error
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				filePatterns, err := d.extractFromFile(path, root)

				mu.Lock()
				switch {
				case err != nil && d.FailFast:
					if fatal == nil {
						fatal = err
					}
				case err != nil:
					warnings = append(warnings, core.Warning{
						Type:    core.WarnTestParseError,
						Message: err.Error(),
						File:    path,
					})
				default:
					patterns = append(patterns, filePatterns...)
				}
				mu.Unlock()
			}
		}()
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			close(paths)
			wg.Wait()
			return nil, nil, ctx.Err()
		case paths <- path:
		}
	}
	close(paths)
	wg.Wait()

	if fatal != nil {
		return nil, nil, fatal
	}
	return patterns, warnings, nil
}

// extractFromFile parses one test file and extracts every recognized
// invocation pattern in source order.
func (d *TestDiscoverer) extractFromFile(path string, root *core.CommandNode) ([]core.InvocationPattern, error) {
	src, err := d.reader.Read(path)
	if err != nil {
		return nil, err
	}
	tree, err := d.parser.ParseFile(path, src)
	if err != nil {
		return nil, err
	}

	runnerSet := make(map[string]bool, len(d.RunnerNames))
	for _, name := range d.RunnerNames {
		runnerSet[name] = true
	}

	var patterns []core.InvocationPattern
	walkNamed(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		if !runnerSet[calleeName(n, src)] {
			return true
		}
		tokens, ok := literalStringArray(firstArgument(n), src)
		if !ok {
			return true
		}
		pattern := buildPattern(tokens, root)
		pattern.SourceFile = path
		pattern.SourceLine = int(n.StartPoint().Row) + 1
		patterns = append(patterns, pattern)
		return true
	})
	return patterns, nil
}

// literalStringArray extracts the elements of an array literal composed
// entirely of string literals. Arrays with computed elements cannot be
// analyzed statically and are skipped.
func literalStringArray(node *sitter.Node, src []byte) ([]string, bool) {
	if node == nil || node.Type() != "array" {
		return nil, false
	}
	var tokens []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		element := node.NamedChild(i)
		switch element.Type() {
		case "string":
			tokens = append(tokens, stringValue(element, src))
		case "template_string":
			text := parser.NodeText(element, src)
			if strings.Contains(text, "${") {
				return nil, false
			}
			tokens = append(tokens, strings.Trim(text, "`"))
		default:
			return nil, false
		}
	}
	return tokens, true
}

// buildPattern interprets an argv-style token list: the leading run of
// non-dash tokens is the command path; dash tokens are split into flags and
// options using the discovered tree (a token is an option when the matching
// node declares it value-taking, else a flag). An option's value token is
// consumed and never treated as a path element.
func buildPattern(tokens []string, root *core.CommandNode) core.InvocationPattern {
	var pattern core.InvocationPattern

	i := 0
	for ; i < len(tokens); i++ {
		if strings.HasPrefix(tokens[i], "-") {
			break
		}
		pattern.CommandPath = append(pattern.CommandPath, tokens[i])
	}

	node := deepestResolved(root, pattern.CommandPath)
	flags := make(map[string]bool)
	options := make(map[string]bool)

	for ; i < len(tokens); i++ {
		token := tokens[i]
		if token == "--" {
			break // terminator: everything after is passed through untouched
		}
		if !strings.HasPrefix(token, "-") {
			continue // positional argument or stray option value
		}
		name := strings.TrimLeft(token, "-")
		if name == "" {
			continue // bare "-" conventionally means stdin, not a flag
		}
		name, hasInlineValue := splitInlineValue(name)
		name = canonicalArgName(node, name)

		if isOption(node, name) {
			options[name] = true
			if !hasInlineValue && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				i++ // consume the option's value
			}
			continue
		}
		flags[name] = true
	}

	pattern.FlagsUsed = sortedSet(flags)
	pattern.OptionsUsed = sortedSet(options)
	return pattern
}

// deepestResolved walks root along path as far as it resolves, so flag and
// option classification still works for partially stale paths. A leading
// token equal to the root command's own name is skipped; the coverage mapper
// tolerates it the same way, and classification must agree with resolution.
func deepestResolved(root *core.CommandNode, path []string) *core.CommandNode {
	if len(path) > 0 && path[0] == root.Name {
		if _, ok := root.Subcommands[path[0]]; !ok {
			path = path[1:]
		}
	}
	node := root
	for _, seg := range path {
		next, ok := node.Subcommands[seg]
		if !ok {
			break
		}
		node = next
	}
	return node
}

// canonicalArgName maps a single-letter alias to its declared flag or
// option name when possible.
func canonicalArgName(node *core.CommandNode, name string) string {
	if node == nil || len(name) != 1 {
		return name
	}
	for _, f := range node.Flags {
		if f.Alias == name {
			return f.Name
		}
	}
	for _, o := range node.Options {
		if o.Alias == name {
			return o.Name
		}
	}
	return name
}

func isOption(node *core.CommandNode, name string) bool {
	if node == nil {
		return false
	}
	_, ok := node.Options[name]
	return ok
}

// splitInlineValue handles the --name=value form.
func splitInlineValue(name string) (string, bool) {
	if idx := strings.IndexByte(name, '='); idx >= 0 {
		return name[:idx], true
	}
	return name, false
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
