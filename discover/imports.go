package discover

import (
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/clicov/parser"
)

// commandSource is the tagged variant behind a subCommands entry: the
// definition is either written inline in the current file or lives behind an
// import that must be resolved before tree construction.
type commandSource struct {
	Kind       sourceKind
	Object     *sitter.Node // inline definition object (Kind == sourceInline)
	ModulePath string       // import specifier (Kind == sourceImported)
	ExportName string       // "default" or a named export (Kind == sourceImported)
	Reason     string       // why classification failed (Kind == sourceUnknown)
}

type sourceKind int

const (
	sourceInline sourceKind = iota
	sourceImported
	sourceUnknown
)

// importBinding records one local identifier introduced by a static import.
type importBinding struct {
	Module string // import specifier as written
	Export string // "default" for default imports, otherwise the remote name
}

// collectImports maps local identifiers to their import bindings for a
// parsed module. Namespace imports are skipped; member access through a
// namespace is beyond static subcommand resolution.
func collectImports(tree *sitter.Tree, src []byte) map[string]importBinding {
	bindings := make(map[string]importBinding)
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		module := stringValue(stmt.ChildByFieldName("source"), src)
		if module == "" {
			continue
		}
		walkNamed(stmt, func(n *sitter.Node) bool {
			switch n.Type() {
			case "identifier":
				// Default import: `import build from "./build.mjs"`.
				if n.Parent() != nil && n.Parent().Type() == "import_clause" {
					bindings[parser.NodeText(n, src)] = importBinding{Module: module, Export: "default"}
				}
			case "import_specifier":
				name := parser.NodeText(n.ChildByFieldName("name"), src)
				local := name
				if alias := n.ChildByFieldName("alias"); alias != nil {
					local = parser.NodeText(alias, src)
				}
				if name != "" && local != "" {
					bindings[local] = importBinding{Module: module, Export: name}
				}
				return false
			}
			return true
		})
	}
	return bindings
}

// classifySubcommand decides how a subCommands entry value provides its
// command definition.
func classifySubcommand(value *sitter.Node, src []byte, imports map[string]importBinding) commandSource {
	switch value.Type() {
	case "object":
		if isCommandObject(value, src) {
			return commandSource{Kind: sourceInline, Object: value}
		}
		return commandSource{Kind: sourceUnknown, Reason: "object has no meta.name"}

	case "call_expression":
		// defineCommand({...}) written inline.
		if obj := firstObjectArgument(value); isCommandObject(obj, src) {
			return commandSource{Kind: sourceInline, Object: obj}
		}

	case "identifier", "shorthand_property_identifier":
		name := parser.NodeText(value, src)
		if binding, ok := imports[name]; ok {
			return commandSource{Kind: sourceImported, ModulePath: binding.Module, ExportName: binding.Export}
		}
		// A local identifier: the definition may be assigned earlier in the
		// same file.
		if obj := resolveLocalIdentifier(value, src, name); obj != nil {
			return commandSource{Kind: sourceInline, Object: obj}
		}
		return commandSource{Kind: sourceUnknown, Reason: "identifier " + name + " is neither imported nor defined locally"}
	}

	// Lazy subcommands: () => import("./cmd.mjs").then(m => m.default).
	if module := dynamicImportPath(value, src); module != "" {
		return commandSource{Kind: sourceImported, ModulePath: module, ExportName: "default"}
	}
	return commandSource{Kind: sourceUnknown, Reason: "unsupported subcommand value shape " + value.Type()}
}

// resolveLocalIdentifier finds `const name = defineCommand({...})` in the
// enclosing file and returns the definition object.
func resolveLocalIdentifier(from *sitter.Node, src []byte, name string) *sitter.Node {
	root := from
	for root.Parent() != nil {
		root = root.Parent()
	}
	var found *sitter.Node
	walkNamed(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() != "variable_declarator" {
			return true
		}
		id := n.ChildByFieldName("name")
		if id == nil || parser.NodeText(id, src) != name {
			return true
		}
		value := n.ChildByFieldName("value")
		if value == nil {
			return true
		}
		switch value.Type() {
		case "object":
			if isCommandObject(value, src) {
				found = value
			}
		case "call_expression":
			if obj := firstObjectArgument(value); isCommandObject(obj, src) {
				found = obj
			}
		}
		return true
	})
	return found
}

// dynamicImportPath scans a value (typically an arrow function) for a
// dynamic import("...") call and returns its specifier.
func dynamicImportPath(value *sitter.Node, src []byte) string {
	var module string
	walkNamed(value, func(n *sitter.Node) bool {
		if module != "" {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil || fn.Type() != "import" {
			return true
		}
		module = stringValue(firstArgument(n), src)
		return false
	})
	return module
}

// moduleExtensions are tried, in order, when an import specifier does not
// name an existing file directly.
var moduleExtensions = []string{".mjs", ".js", ".cjs", ".ts", ".tsx"}

// resolveModuleFile turns a relative import specifier into an existing file
// path, trying extension and index-file candidates.
func resolveModuleFile(fromDir, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return "", false
	}
	base := filepath.Join(fromDir, filepath.FromSlash(specifier))

	candidates := []string{base}
	for _, ext := range moduleExtensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range moduleExtensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
