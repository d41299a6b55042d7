package discover

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/clicov/core"
	"github.com/oxhq/clicov/parser"
)

// Discoverer builds the command hierarchy of a CLI from its entry-point
// source file, following import references to subcommand modules.
type Discoverer struct {
	reader *core.Reader
	parser *parser.Parser
	log    *log.Logger

	warnings []core.Warning
	inFlight map[string]bool // import resolution cycle guard
}

// NewDiscoverer wires a structure discoverer with its collaborators. The
// cache lives inside the parser; injecting the parser keeps cache lifecycle
// explicit.
func NewDiscoverer(reader *core.Reader, p *parser.Parser, logger *log.Logger) *Discoverer {
	return &Discoverer{
		reader:   reader,
		parser:   p,
		log:      logger,
		inFlight: make(map[string]bool),
	}
}

// Discover parses entryPath and returns the fully populated root command
// plus any recoverable warnings. Failures on the entry file itself (read,
// parse, missing root definition) are fatal; unresolved subcommand imports
// degrade to warnings with placeholder nodes.
func (d *Discoverer) Discover(entryPath string) (*core.CommandNode, []core.Warning, error) {
	d.warnings = nil

	src, err := d.reader.Read(entryPath)
	if err != nil {
		return nil, nil, err
	}
	tree, err := d.parser.ParseFile(entryPath, src)
	if err != nil {
		return nil, nil, err
	}

	rootObj := findRootDefinition(tree, src)
	if rootObj == nil {
		return nil, nil, &core.StructureError{
			File:    entryPath,
			Pattern: "defineCommand({ meta: { name: ... } })",
			Msg:     "no root command definition found",
		}
	}

	imports := collectImports(tree, src)
	root := d.buildCommand(rootObj, src, entryPath, imports, "")
	d.log.Debug("discovered CLI structure",
		"entry", entryPath, "root", root.Name, "subcommands", len(root.Subcommands))
	return root, d.warnings, nil
}

// findRootDefinition locates the first call expression whose configuration
// object carries meta.name, which marks the root command definition.
func findRootDefinition(tree *sitter.Tree, src []byte) *sitter.Node {
	var rootObj *sitter.Node
	walkNamed(tree.RootNode(), func(n *sitter.Node) bool {
		if rootObj != nil {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		if obj := firstObjectArgument(n); isCommandObject(obj, src) {
			rootObj = obj
			return false
		}
		return true
	})
	return rootObj
}

// buildCommand turns a command definition object into a CommandNode,
// classifying args into flags/options and resolving subcommands. The name
// parameter, when non-empty, is the registration key under the parent and
// wins over the definition's own meta.name.
func (d *Discoverer) buildCommand(obj *sitter.Node, src []byte, file string, imports map[string]importBinding, name string) *core.CommandNode {
	meta := pairValue(obj, src, "meta")
	if name == "" {
		name = stringValue(pairValue(meta, src, "name"), src)
	}
	node := core.NewCommandNode(name)
	node.Description = stringValue(pairValue(meta, src, "description"), src)
	node.SourceFile = file
	node.SourceLine = int(obj.StartPoint().Row) + 1

	d.collectArgs(node, pairValue(obj, src, "args"), src)

	subCommands := pairValue(obj, src, "subCommands")
	for _, pair := range objectPairs(subCommands, src) {
		child := d.resolveSubcommand(pair.Key, pair.Value, src, file, imports)
		if collision := node.AddSubcommand(child); collision {
			d.warn(core.Warning{
				Type:    core.WarnDuplicateSubcommand,
				Message: fmt.Sprintf("subcommand %q registered twice under %q; last registration wins", pair.Key, node.Name),
				File:    file,
				Line:    int(pair.Value.StartPoint().Row) + 1,
			})
		}
	}
	return node
}

// collectArgs classifies each args entry: boolean type means flag, any other
// type means a value-taking option.
func (d *Discoverer) collectArgs(node *core.CommandNode, args *sitter.Node, src []byte) {
	for _, pair := range objectPairs(args, src) {
		spec := pair.Value
		argType := stringValue(pairValue(spec, src, "type"), src)
		description := stringValue(pairValue(spec, src, "description"), src)
		alias := stringValue(pairValue(spec, src, "alias"), src)

		if argType == "boolean" {
			node.Flags[pair.Key] = &core.FlagSpec{
				Name:        pair.Key,
				Alias:       alias,
				Description: description,
			}
			continue
		}
		if argType == "" {
			argType = "string"
		}
		node.Options[pair.Key] = &core.OptionSpec{
			Name:        pair.Key,
			Alias:       alias,
			Description: description,
			ValueType:   argType,
			Default:     stringValue(pairValue(spec, src, "default"), src),
			Required:    parser.NodeText(pairValue(spec, src, "required"), src) == "true",
		}
	}
}

// resolveSubcommand materializes one subCommands entry. Resolution failures
// produce a placeholder node plus a warning; partial discovery is acceptable
// for subcommands, never for the root.
func (d *Discoverer) resolveSubcommand(name string, value *sitter.Node, src []byte, file string, imports map[string]importBinding) *core.CommandNode {
	source := classifySubcommand(value, src, imports)
	line := int(value.StartPoint().Row) + 1

	switch source.Kind {
	case sourceInline:
		return d.buildCommand(source.Object, src, file, imports, name)

	case sourceImported:
		child, err := d.loadImportedCommand(filepath.Dir(file), source.ModulePath, source.ExportName, name)
		if err != nil {
			d.warn(core.Warning{
				Type:    core.WarnUnresolvedImport,
				Message: fmt.Sprintf("subcommand %q: %v", name, err),
				File:    file,
				Line:    line,
			})
			return placeholderNode(name, file, line)
		}
		return child

	default:
		d.warn(core.Warning{
			Type:    core.WarnUnresolvedImport,
			Message: fmt.Sprintf("subcommand %q: %s", name, source.Reason),
			File:    file,
			Line:    line,
		})
		return placeholderNode(name, file, line)
	}
}

// loadImportedCommand follows an import to another module, parses it and
// extracts the exported command definition.
func (d *Discoverer) loadImportedCommand(fromDir, modulePath, exportName, name string) (*core.CommandNode, error) {
	file, ok := resolveModuleFile(fromDir, modulePath)
	if !ok {
		return nil, fmt.Errorf("cannot resolve module %q from %s", modulePath, fromDir)
	}

	guard := file + "#" + exportName
	if d.inFlight[guard] {
		return nil, fmt.Errorf("import cycle through %s", file)
	}
	d.inFlight[guard] = true
	defer delete(d.inFlight, guard)

	src, err := d.reader.Read(file)
	if err != nil {
		return nil, err
	}
	tree, err := d.parser.ParseFile(file, src)
	if err != nil {
		return nil, err
	}

	obj := findExportedCommandObject(tree, src, exportName)
	if obj == nil {
		return nil, fmt.Errorf("module %s has no command definition export %q", file, exportName)
	}
	d.log.Debug("resolved subcommand module", "name", name, "module", file, "export", exportName)
	return d.buildCommand(obj, src, file, collectImports(tree, src), name), nil
}

// findExportedCommandObject finds the definition object behind an export of
// the module: `export default defineCommand({...})`, `export const x =
// defineCommand({...})`, or an identifier pointing at either.
func findExportedCommandObject(tree *sitter.Tree, src []byte, exportName string) *sitter.Node {
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "export_statement" {
			continue
		}
		isDefault := hasKeyword(stmt, "default")

		if exportName == "default" && isDefault {
			if stmt.NamedChildCount() == 0 {
				continue
			}
			expr := stmt.NamedChild(int(stmt.NamedChildCount()) - 1)
			if obj := commandObjectFromExpr(expr, src); obj != nil {
				return obj
			}
		}
		if exportName != "default" && !isDefault {
			if obj := namedExportObject(stmt, src, exportName); obj != nil {
				return obj
			}
		}
	}
	// Fall back to the first command-shaped definition anywhere in the file;
	// single-command modules often export through re-assigned bindings the
	// static scan above does not follow.
	var fallback *sitter.Node
	walkNamed(root, func(n *sitter.Node) bool {
		if fallback != nil {
			return false
		}
		if n.Type() == "call_expression" {
			if obj := firstObjectArgument(n); isCommandObject(obj, src) {
				fallback = obj
				return false
			}
		}
		return true
	})
	return fallback
}

// namedExportObject handles `export const name = defineCommand({...})`.
func namedExportObject(stmt *sitter.Node, src []byte, exportName string) *sitter.Node {
	var found *sitter.Node
	walkNamed(stmt, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() != "variable_declarator" {
			return true
		}
		id := n.ChildByFieldName("name")
		if id == nil || parser.NodeText(id, src) != exportName {
			return true
		}
		found = commandObjectFromExpr(n.ChildByFieldName("value"), src)
		return true
	})
	return found
}

// commandObjectFromExpr unwraps an exported expression down to its command
// definition object.
func commandObjectFromExpr(expr *sitter.Node, src []byte) *sitter.Node {
	if expr == nil {
		return nil
	}
	switch expr.Type() {
	case "object":
		if isCommandObject(expr, src) {
			return expr
		}
	case "call_expression":
		if obj := firstObjectArgument(expr); isCommandObject(obj, src) {
			return obj
		}
	case "identifier":
		return resolveLocalIdentifier(expr, src, parser.NodeText(expr, src))
	}
	return nil
}

// hasKeyword reports whether stmt has the given anonymous keyword child.
func hasKeyword(stmt *sitter.Node, keyword string) bool {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if stmt.Child(i).Type() == keyword {
			return true
		}
	}
	return false
}

func placeholderNode(name, file string, line int) *core.CommandNode {
	node := core.NewCommandNode(name)
	node.SourceFile = file
	node.SourceLine = line
	return node
}

func (d *Discoverer) warn(w core.Warning) {
	d.log.Debug("discovery warning", "type", w.Type, "message", w.Message)
	d.warnings = append(d.warnings, w)
}
