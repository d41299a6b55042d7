package core

import (
	"sort"
)

// FlagSpec describes a boolean switch declared on a command.
type FlagSpec struct {
	Name        string `json:"name"`
	Alias       string `json:"alias,omitempty"`
	Description string `json:"description,omitempty"`
	Tested      bool   `json:"tested"`
}

// OptionSpec describes a value-taking argument declared on a command.
type OptionSpec struct {
	Name        string `json:"name"`
	Alias       string `json:"alias,omitempty"`
	Description string `json:"description,omitempty"`
	ValueType   string `json:"value_type,omitempty"` // string, number, etc
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Tested      bool   `json:"tested"`
}

// CommandNode is one command or subcommand in the discovered CLI tree.
// Subcommands are exclusively owned by their parent; Parent is a non-owning
// back pointer used only for error messages.
type CommandNode struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Flags       map[string]*FlagSpec    `json:"flags,omitempty"`
	Options     map[string]*OptionSpec  `json:"options,omitempty"`
	Subcommands map[string]*CommandNode `json:"subcommands,omitempty"`

	// Provenance of the command definition.
	SourceFile string `json:"source_file,omitempty"`
	SourceLine int    `json:"source_line,omitempty"`

	// Populated by the coverage mapper on an annotated copy, never by the
	// discoverer itself.
	Tested    bool     `json:"tested"`
	TestFiles []string `json:"test_files,omitempty"`

	Parent *CommandNode `json:"-"`
}

// NewCommandNode creates an empty command with initialized collections.
func NewCommandNode(name string) *CommandNode {
	return &CommandNode{
		Name:        name,
		Flags:       make(map[string]*FlagSpec),
		Options:     make(map[string]*OptionSpec),
		Subcommands: make(map[string]*CommandNode),
	}
}

// AddSubcommand registers child under its name. Registering a name that
// already exists overwrites the previous child (last registration wins) and
// reports the collision to the caller.
func (n *CommandNode) AddSubcommand(child *CommandNode) (collision bool) {
	if n.Subcommands == nil {
		n.Subcommands = make(map[string]*CommandNode)
	}
	_, collision = n.Subcommands[child.Name]
	child.Parent = n
	n.Subcommands[child.Name] = child
	return collision
}

// Path returns the command path from the root to this node, excluding the
// root command's own name.
func (n *CommandNode) Path() []string {
	var parts []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}

// Resolve walks the tree along path and returns the matching node, or nil
// when any segment does not resolve.
func (n *CommandNode) Resolve(path []string) *CommandNode {
	cur := n
	for _, seg := range path {
		next, ok := cur.Subcommands[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Walk visits this node and every descendant in depth-first order with
// children visited in sorted name order, so traversal is deterministic.
func (n *CommandNode) Walk(fn func(node *CommandNode, depth int)) {
	n.walk(fn, 0)
}

func (n *CommandNode) walk(fn func(node *CommandNode, depth int), depth int) {
	fn(n, depth)
	for _, name := range sortedKeys(n.Subcommands) {
		n.Subcommands[name].walk(fn, depth+1)
	}
}

// Clone returns a deep copy of the subtree rooted at n. The copy's Parent is
// nil; coverage annotation works on clones so the discoverer's tree stays
// immutable.
func (n *CommandNode) Clone() *CommandNode {
	cp := &CommandNode{
		Name:        n.Name,
		Description: n.Description,
		SourceFile:  n.SourceFile,
		SourceLine:  n.SourceLine,
		Tested:      n.Tested,
		Flags:       make(map[string]*FlagSpec, len(n.Flags)),
		Options:     make(map[string]*OptionSpec, len(n.Options)),
		Subcommands: make(map[string]*CommandNode, len(n.Subcommands)),
	}
	cp.TestFiles = append(cp.TestFiles, n.TestFiles...)
	for name, f := range n.Flags {
		fc := *f
		cp.Flags[name] = &fc
	}
	for name, o := range n.Options {
		oc := *o
		cp.Options[name] = &oc
	}
	for name, child := range n.Subcommands {
		cc := child.Clone()
		cc.Parent = cp
		cp.Subcommands[name] = cc
	}
	return cp
}

// InvocationPattern is one statically discovered CLI call inside a test file.
// Immutable after creation.
type InvocationPattern struct {
	CommandPath []string `json:"command_path"`
	FlagsUsed   []string `json:"flags_used,omitempty"`
	OptionsUsed []string `json:"options_used,omitempty"`
	SourceFile  string   `json:"source_file"`
	SourceLine  int      `json:"source_line"`
}

// CoverageRecord aggregates tested/total counts for one coverage category.
type CoverageRecord struct {
	Total      int     `json:"total"`
	Tested     int     `json:"tested"`
	Percentage float64 `json:"percentage"`
}

// NewCoverageRecord computes the percentage for a tested/total pair. An empty
// category (total == 0) is trivially fully covered.
func NewCoverageRecord(tested, total int) CoverageRecord {
	pct := 100.0
	if total > 0 {
		pct = 100 * float64(tested) / float64(total)
	}
	return CoverageRecord{Total: total, Tested: tested, Percentage: pct}
}

// Warning kinds surfaced in the report body.
const (
	WarnUnresolvedImport    = "unresolved_import"
	WarnDuplicateSubcommand = "duplicate_subcommand"
	WarnTestParseError      = "test_parse_error"
	WarnOrphanPattern       = "orphan_pattern"
)

// Warning is a recoverable anomaly collected during analysis. Warnings never
// abort a run; they ride along to the final report.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedKeys exposes deterministic map key ordering for report rendering.
func SortedKeys[V any](m map[string]V) []string {
	return sortedKeys(m)
}
