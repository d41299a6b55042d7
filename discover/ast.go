package discover

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/clicov/parser"
)

// Shared tree helpers for walking defineCommand-style configuration objects
// and test invocations in JavaScript/TypeScript trees.

// walkNamed visits every node in the tree, pre-order. The visitor returns
// false to prune the subtree.
func walkNamed(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkNamed(node.Child(i), fn)
	}
}

// objectPairs returns the key/value pairs of an object literal in source
// order. Spread elements, methods and computed keys are skipped; a static
// analysis cannot resolve them.
func objectPairs(obj *sitter.Node, src []byte) []objectPair {
	if obj == nil || obj.Type() != "object" {
		return nil
	}
	var pairs []objectPair
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		child := obj.NamedChild(i)
		switch child.Type() {
		case "pair":
			keyNode := child.ChildByFieldName("key")
			valNode := child.ChildByFieldName("value")
			if keyNode == nil || valNode == nil {
				continue
			}
			key := propertyKey(keyNode, src)
			if key == "" {
				continue
			}
			pairs = append(pairs, objectPair{Key: key, Value: valNode})
		case "shorthand_property_identifier":
			// { build }: the key doubles as the value expression.
			pairs = append(pairs, objectPair{Key: parser.NodeText(child, src), Value: child})
		}
	}
	return pairs
}

type objectPair struct {
	Key   string
	Value *sitter.Node
}

// pairValue returns the value node for key inside an object literal.
func pairValue(obj *sitter.Node, src []byte, key string) *sitter.Node {
	for _, p := range objectPairs(obj, src) {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// propertyKey normalizes an object key node (identifier or string literal).
func propertyKey(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "property_identifier", "identifier":
		return parser.NodeText(node, src)
	case "string":
		return stringValue(node, src)
	default:
		return ""
	}
}

// stringValue extracts the contents of a string or substitution-free
// template literal, without quotes.
func stringValue(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "string":
		return strings.Trim(parser.NodeText(node, src), `"'`)
	case "template_string":
		text := parser.NodeText(node, src)
		if strings.Contains(text, "${") {
			return ""
		}
		return strings.Trim(text, "`")
	default:
		return ""
	}
}

// calleeName returns the invoked name of a call expression: the identifier
// itself, or the property name of a member expression (runner.local(...) ->
// "local").
func calleeName(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return parser.NodeText(fn, src)
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return parser.NodeText(prop, src)
		}
	}
	return ""
}

// firstObjectArgument returns the first object literal among a call's
// arguments, or nil.
func firstObjectArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if arg := args.NamedChild(i); arg.Type() == "object" {
			return arg
		}
	}
	return nil
}

// firstArgument returns the call's first named argument, or nil.
func firstArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	return args.NamedChild(0)
}

// isCommandObject reports whether obj looks like a command definition: an
// object literal carrying a meta.name field.
func isCommandObject(obj *sitter.Node, src []byte) bool {
	if obj == nil || obj.Type() != "object" {
		return false
	}
	meta := pairValue(obj, src, "meta")
	if meta == nil || meta.Type() != "object" {
		return false
	}
	name := pairValue(meta, src, "name")
	return name != nil && stringValue(name, src) != ""
}
