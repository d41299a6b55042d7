package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/oxhq/clicov/core"
)

func TestRemediation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "parse error",
			err:  &core.ParseError{File: "cli.mjs", Line: 7, Column: 2},
			want: "cli.mjs around line 7",
		},
		{
			name: "wrapped parse error",
			err:  fmt.Errorf("analyzing: %w", &core.ParseError{File: "cli.mjs", Line: 7}),
			want: "cli.mjs around line 7",
		},
		{
			name: "structure error",
			err:  &core.StructureError{File: "cli.mjs", Msg: "no root command definition found"},
			want: "meta.name",
		},
		{
			name: "discovery error",
			err:  &core.DiscoveryError{Path: "/src/cli.mjs", Op: "stat", Err: errors.New("no such file")},
			want: "/src/cli.mjs",
		},
		{
			name: "unknown error has no hint",
			err:  errors.New("boom"),
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := remediation(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("remediation = %q, want none", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("remediation = %q, should contain %q", got, tt.want)
			}
		})
	}
}
