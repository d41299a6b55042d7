package parser

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/oxhq/clicov/core"
)

// Parser turns JavaScript/TypeScript source text into a syntax tree, going
// through the injected cache. Grammar selection follows the file extension.
// Sources are parsed as modules; the grammar is context-free, so top-level
// await and return parse cleanly.
type Parser struct {
	cache *Cache
}

// New creates a parser backed by cache. The cache must not be nil; use
// NewDisabledCache to opt out of memoization.
func New(cache *Cache) *Parser {
	return &Parser{cache: cache}
}

// Cache exposes the underlying cache, mainly for stats reporting.
func (p *Parser) Cache() *Cache { return p.cache }

// ParseFile parses src as the contents of path. A shebang line is blanked
// (not stripped) before parsing so byte offsets and line numbers stay true
// to the original file. Returns *core.ParseError when the tree contains
// syntax errors.
func (p *Parser) ParseFile(path string, src []byte) (*sitter.Tree, error) {
	if tree := p.cache.Get(path, src); tree != nil {
		return tree, nil
	}

	prepared := blankShebang(src)

	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(path))
	tree, err := parser.ParseCtx(context.Background(), nil, prepared)
	if err != nil || tree == nil {
		return nil, &core.ParseError{File: path, Line: 1, Column: 1, Msg: "failed to parse source"}
	}

	if perr := firstSyntaxError(tree.RootNode(), path, prepared); perr != nil {
		return nil, perr
	}

	p.cache.Set(path, src, tree)
	return tree, nil
}

// languageFor picks the tree-sitter grammar by extension, defaulting to
// JavaScript for .js/.mjs/.cjs and anything unrecognized.
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// blankShebang overwrites a leading `#!...` line with spaces. Replacing
// instead of removing keeps every node's byte offset and line number aligned
// with the on-disk file.
func blankShebang(src []byte) []byte {
	if len(src) < 2 || src[0] != '#' || src[1] != '!' {
		return src
	}
	out := make([]byte, len(src))
	copy(out, src)
	for i := 0; i < len(out) && out[i] != '\n'; i++ {
		out[i] = ' '
	}
	return out
}

// firstSyntaxError scans the tree for the first ERROR or MISSING node and
// converts it into a ParseError carrying the offending line's text.
func firstSyntaxError(node *sitter.Node, path string, src []byte) *core.ParseError {
	if !node.HasError() && !node.IsMissing() {
		return nil
	}
	if node.Type() == "ERROR" || node.IsMissing() {
		line := int(node.StartPoint().Row) + 1
		return &core.ParseError{
			File:     path,
			Line:     line,
			Column:   int(node.StartPoint().Column) + 1,
			LineText: lineAt(src, line),
			Msg:      "syntax error",
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if perr := firstSyntaxError(node.Child(i), path, src); perr != nil {
			return perr
		}
	}
	return nil
}

// lineAt returns the 1-based line's text, trimmed for display.
func lineAt(src []byte, line int) string {
	lines := strings.Split(string(src), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

// NodeText returns the source text covered by node.
func NodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return string(src[node.StartByte():node.EndByte()])
}
