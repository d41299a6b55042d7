package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/oxhq/clicov/core"
)

func main() {
	// Optional .env for CLICOV_* settings; absence is fine.
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := remediation(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// remediation maps error kinds to a concrete suggestion. Operational
// failures always carry at least one.
func remediation(err error) string {
	var parseErr *core.ParseError
	var structErr *core.StructureError
	var discErr *core.DiscoveryError

	switch {
	case errors.As(err, &parseErr):
		return fmt.Sprintf("fix the syntax error in %s around line %d, then rerun", parseErr.File, parseErr.Line)
	case errors.As(err, &structErr):
		return "make sure the entry file defines its root command with a meta.name field (defineCommand style)"
	case errors.As(err, &discErr):
		return fmt.Sprintf("check that %s exists and is readable (--cli-path / --test-dir)", discErr.Path)
	default:
		return ""
	}
}
