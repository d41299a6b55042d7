package core

import "fmt"

// ParseError means source text could not be parsed into a syntax tree.
type ParseError struct {
	File     string
	Line     int
	Column   int
	LineText string
	Msg      string
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "syntax error"
	}
	if e.LineText != "" {
		return fmt.Sprintf("%s:%d:%d: %s near %q", e.File, e.Line, e.Column, msg, e.LineText)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, msg)
}

// StructureError means a required structural pattern (root command
// definition, exported command) was not found in otherwise valid source.
type StructureError struct {
	File    string
	Pattern string
	Msg     string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: %s (expected pattern: %s)", e.File, e.Msg, e.Pattern)
}

// DiscoveryError is a filesystem failure while enumerating or reading files.
type DiscoveryError struct {
	Path string
	Op   string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
